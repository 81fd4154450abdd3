package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"

	"github.com/planlens/planlens/internal/analyzer"
	"github.com/planlens/planlens/internal/config"
	"github.com/planlens/planlens/internal/diff"
	"github.com/planlens/planlens/internal/parser"
	"github.com/planlens/planlens/internal/render/tui"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "analyze":
		err = analyzeCommand(args)
	case "report":
		err = reportCommand(args)
	case "diff":
		err = diffCommand(args)
	case "version":
		err = versionCommand(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		_, _ = fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`planlens - EXPLAIN (ANALYZE, BUFFERS) performance breakdown

Usage:
  planlens <command> [options]

Commands:
  analyze  Produce the full JSON report for an EXPLAIN JSON trace
  report   Render a terminal report for an EXPLAIN JSON trace
  diff     Compare two traces and summarise regressions/improvements
  version  Show CLI version information

Use "planlens <command> -h" for command-specific help.`)
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)
}

func applyConfigPath(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("PLANLENS_CONFIG"))
	}
	return config.Apply(path)
}

func analyzeCommand(args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: planlens analyze [--input plan.json] [--top 25] [--out report.json]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		input      = fs.String("input", "", "Path to EXPLAIN JSON input (stdin if omitted)")
		outPath    = fs.String("out", "", "Path to write the report JSON (stdout if omitted)")
		topN       = fs.Int("top", analyzer.DefaultTopN, "Number of top nodes to include")
		noTop      = fs.Bool("no-top-nodes", false, "Omit the top-nodes drilldown")
		verbose    = fs.Bool("verbose", false, "Enable debug logging")
		configPath = fs.String("config", "", "Path to configuration file (JSON). Falls back to $PLANLENS_CONFIG")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}
	if err := applyConfigPath(*configPath); err != nil {
		return err
	}

	logger := newLogger(*verbose)

	report, err := loadReport(*input, analyzer.Options{IncludeTopNodes: !*noTop, TopN: *topN})
	if err != nil {
		return err
	}
	logger.Debug().
		Int("nodes", report.Summary.NodeCount).
		Str("dominant_factor", report.Summary.DominantFactor).
		Bool("low_confidence", report.Summary.LowConfidence).
		Msg("analyzed plan")

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	payload = append(payload, '\n')

	if *outPath == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	return os.WriteFile(*outPath, payload, 0o644)
}

func reportCommand(args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: planlens report [--input plan.json] [--out file]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		input      = fs.String("input", "", "Path to EXPLAIN JSON input (stdin if omitted)")
		outPath    = fs.String("out", "", "Output path (stdout if omitted)")
		topN       = fs.Int("top", analyzer.DefaultTopN, "Number of top nodes to include")
		maxRows    = fs.Int("rows", 10, "Maximum rows per table")
		color      = fs.Bool("color", true, "Enable ANSI colors")
		insights   = fs.Bool("insights", true, "Show insight messages")
		verbose    = fs.Bool("verbose", false, "Enable debug logging")
		configPath = fs.String("config", "", "Path to configuration file (JSON). Falls back to $PLANLENS_CONFIG")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}
	if err := applyConfigPath(*configPath); err != nil {
		return err
	}

	logger := newLogger(*verbose)

	report, err := loadReport(*input, analyzer.Options{IncludeTopNodes: true, TopN: *topN})
	if err != nil {
		return err
	}
	logger.Debug().
		Int("nodes", report.Summary.NodeCount).
		Str("dominant_factor", report.Summary.DominantFactor).
		Msg("analyzed plan")

	target := io.Writer(os.Stdout)
	if *outPath != "" {
		file, err := os.Create(*outPath)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer func() {
			_ = file.Close()
		}()
		target = file
	}
	return tui.Render(target, report, tui.Options{
		EnableColor:  *color,
		MaxRows:      *maxRows,
		ShowInsights: *insights,
	})
}

func diffCommand(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {
		_, _ = fmt.Fprintf(os.Stdout, "Usage: planlens diff --base base.json --target target.json [--format text|json]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	var (
		basePath   = fs.String("base", "", "Path to baseline EXPLAIN JSON")
		targetPath = fs.String("target", "", "Path to target EXPLAIN JSON")
		format     = fs.String("format", "text", "Output format (text or json)")
		outPath    = fs.String("out", "", "Output path (stdout if omitted)")
		minDelta   = fs.Float64("min-delta", 0, "Minimum self-time delta in ms to report (default from config)")
		minPct     = fs.Float64("min-percent", 0, "Minimum percent change to report (default from config)")
		maxItems   = fs.Int("limit", 0, "Maximum rows per section (default from config)")
		verbose    = fs.Bool("verbose", false, "Enable debug logging")
		configPath = fs.String("config", "", "Path to configuration file (JSON). Falls back to $PLANLENS_CONFIG")
	)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}
	if err := applyConfigPath(*configPath); err != nil {
		return err
	}
	if *basePath == "" || *targetPath == "" {
		return fmt.Errorf("--base and --target are required")
	}

	logger := newLogger(*verbose)

	baseReport, err := loadReport(*basePath, analyzer.DefaultOptions())
	if err != nil {
		return fmt.Errorf("load base: %w", err)
	}
	targetReport, err := loadReport(*targetPath, analyzer.DefaultOptions())
	if err != nil {
		return fmt.Errorf("load target: %w", err)
	}

	report, err := diff.Compare(baseReport, targetReport, diff.Options{
		MinSelfTimeDeltaMs: *minDelta,
		MinPercentChange:   *minPct,
		MaxItems:           *maxItems,
	})
	if err != nil {
		return err
	}
	logger.Debug().
		Int("regressions", len(report.Regressions)).
		Int("improvements", len(report.Improvements)).
		Bool("factor_changed", report.Summary.FactorChanged).
		Msg("compared plans")

	switch *format {
	case "text":
		content := report.Text()
		if *outPath == "" {
			fmt.Print(content)
			return nil
		}
		return os.WriteFile(*outPath, []byte(content), 0o644)
	case "json":
		payload, err := report.JSON()
		if err != nil {
			return err
		}
		if *outPath == "" {
			_, _ = os.Stdout.Write(payload)
			_, _ = os.Stdout.WriteString("\n")
			return nil
		}
		return os.WriteFile(*outPath, payload, 0o644)
	default:
		return fmt.Errorf("unsupported format %q", *format)
	}
}

func versionCommand(args []string) error {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	short := fs.Bool("short", false, "Print only the version number")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fs.SetOutput(os.Stdout)
			fs.Usage()
			return nil
		}
		return err
	}

	v, meta := resolveVersion()
	if *short {
		fmt.Println(v)
		return nil
	}
	if meta != "" {
		fmt.Printf("planlens %s (%s)\n", v, meta)
	} else {
		fmt.Printf("planlens %s\n", v)
	}
	return nil
}

func resolveVersion() (string, string) {
	v := strings.TrimSpace(version)
	if v == "" {
		v = "dev"
	}

	var commit, buildTime string
	var dirty bool
	if info, ok := debug.ReadBuildInfo(); ok {
		if (v == "dev" || v == "(devel)") &&
			info.Main.Version != "" &&
			info.Main.Version != "(devel)" &&
			!strings.HasPrefix(info.Main.Version, "v0.0.0-") {
			v = info.Main.Version
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				commit = setting.Value
			case "vcs.time":
				buildTime = setting.Value
			case "vcs.modified":
				dirty = setting.Value == "true"
			}
		}
	}

	var details []string
	if commit != "" {
		short := commit
		if len(short) > 12 {
			short = short[:12]
		}
		if dirty {
			short += "*"
			dirty = false
		}
		details = append(details, fmt.Sprintf("commit %s", short))
	}
	if buildTime != "" {
		details = append(details, fmt.Sprintf("built %s", buildTime))
	}
	if dirty {
		details = append(details, "modified workspace")
	}

	return v, strings.Join(details, ", ")
}

func loadReport(path string, opts analyzer.Options) (*analyzer.Report, error) {
	var r io.Reader = os.Stdin
	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer func() {
			_ = file.Close()
		}()
		r = file
	}

	explain, err := parser.ParseJSON(r)
	if err != nil {
		return nil, err
	}
	return analyzer.Analyze(explain, opts)
}
