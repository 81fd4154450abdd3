package test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/planlens/planlens/internal/analyzer"
	"github.com/planlens/planlens/internal/model"
	"github.com/planlens/planlens/internal/parser"
)

var (
	rootPath string
	once     sync.Once
)

// RootPath resolves a path relative to the repository root (where go.mod resides).
func RootPath(t *testing.T) string {
	t.Helper()
	once.Do(func() {
		wd, err := os.Getwd()
		if err != nil {
			t.Fatalf("getwd: %v", err)
		}
		for {
			if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
				rootPath = wd
				break
			}
			next := filepath.Dir(wd)
			if next == wd {
				t.Fatalf("go.mod not found from %s", wd)
			}
			wd = next
		}
	})
	return rootPath
}

// LoadSampleExplain parses a plan fixture relative to the repository root.
func LoadSampleExplain(t *testing.T, rel string) *model.Explain {
	t.Helper()
	root := RootPath(t)
	f, err := os.Open(filepath.Join(root, "samples", rel))
	if err != nil {
		t.Fatalf("open plan: %v", err)
	}
	defer func() { _ = f.Close() }()

	explain, err := parser.ParseJSON(f)
	if err != nil {
		t.Fatalf("parse plan: %v", err)
	}
	return explain
}

// LoadSampleReport parses and analyzes a plan fixture relative to the
// repository root.
func LoadSampleReport(t *testing.T, rel string) *analyzer.Report {
	t.Helper()
	report, err := analyzer.Analyze(LoadSampleExplain(t, rel), analyzer.DefaultOptions())
	if err != nil {
		t.Fatalf("analyze plan: %v", err)
	}
	return report
}
