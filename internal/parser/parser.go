package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/planlens/planlens/internal/model"
)

// ErrStructural marks documents that cannot be recognized as an EXPLAIN
// trace at all: wrong top-level shape, empty array, or a missing/invalid
// Plan root. Anything less (missing or non-numeric fields) degrades to
// zero values so that traces from older server versions still parse.
var ErrStructural = errors.New("explain json: unrecognized document")

// ParseJSON reads a PostgreSQL EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON)
// document and produces an Explain structure.
func ParseJSON(r io.Reader) (*model.Explain, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode explain json: %w", err)
	}

	return Parse(payload)
}

// Parse interprets an already-decoded JSON value. The accepted wrapper
// shapes are an object with a "Plan" key, or an array whose first element
// has that shape.
func Parse(payload any) (*model.Explain, error) {
	entry, err := pickFirstEntry(payload)
	if err != nil {
		return nil, err
	}

	planVal, ok := entry["Plan"]
	if !ok {
		return nil, fmt.Errorf("%w: missing Plan root", ErrStructural)
	}
	planMap, ok := planVal.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: Plan is not an object", ErrStructural)
	}

	return &model.Explain{
		Plan:          parsePlanNode(planMap),
		PlanningTime:  asFloat(entry["Planning Time"]),
		ExecutionTime: asFloat(entry["Execution Time"]),
	}, nil
}

func pickFirstEntry(payload any) (map[string]any, error) {
	switch v := payload.(type) {
	case []any:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: empty payload", ErrStructural)
		}
		obj, ok := v[0].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: entry is %T, expected object", ErrStructural, v[0])
		}
		return obj, nil
	case map[string]any:
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unexpected top-level type %T", ErrStructural, payload)
	}
}

func parsePlanNode(data map[string]any) *model.PlanNode {
	node := &model.PlanNode{
		NodeType:           asString(data["Node Type"]),
		RelationName:       asString(data["Relation Name"]),
		Schema:             asString(data["Schema"]),
		Alias:              asString(data["Alias"]),
		ParentRelationship: asString(data["Parent Relationship"]),
		StartupCost:        asFloat(data["Startup Cost"]),
		TotalCost:          asFloat(data["Total Cost"]),
		PlanRows:           asFloat(data["Plan Rows"]),
		ActualTotalTime:    asFloat(data["Actual Total Time"]),
		ActualRows:         asFloat(data["Actual Rows"]),
		ActualLoops:        asFloat(data["Actual Loops"]),
		JoinType:           asString(data["Join Type"]),
		IndexName:          asString(data["Index Name"]),
		Filter:             asString(data["Filter"]),
		Buffers:            parseBuffers(data),
	}

	children, _ := data["Plans"].([]any)
	for _, childVal := range children {
		childMap, ok := childVal.(map[string]any)
		if !ok {
			// A malformed subtree degrades to an empty node instead of
			// aborting the whole analysis.
			node.Children = append(node.Children, &model.PlanNode{})
			continue
		}
		node.Children = append(node.Children, parsePlanNode(childMap))
	}

	return node
}

func parseBuffers(data map[string]any) model.BufferMetrics {
	return model.BufferMetrics{
		SharedHit:     asInt64(data["Shared Hit Blocks"]),
		SharedRead:    asInt64(data["Shared Read Blocks"]),
		SharedDirtied: asInt64(data["Shared Dirtied Blocks"]),
		SharedWritten: asInt64(data["Shared Written Blocks"]),
		LocalHit:      asInt64(data["Local Hit Blocks"]),
		LocalRead:     asInt64(data["Local Read Blocks"]),
		LocalDirtied:  asInt64(data["Local Dirtied Blocks"]),
		LocalWritten:  asInt64(data["Local Written Blocks"]),
		TempRead:      asInt64(data["Temp Read Blocks"]),
		TempWritten:   asInt64(data["Temp Written Blocks"]),
	}
}

func asString(val any) string {
	if val == nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

func asFloat(val any) float64 {
	if val == nil {
		return 0
	}
	switch v := val.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		if v == "" {
			return 0
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func asInt64(val any) int64 {
	if val == nil {
		return 0
	}
	switch v := val.(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(math.Round(v))
	case json.Number:
		i, err := v.Int64()
		if err == nil {
			return i
		}
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return int64(math.Round(f))
	case string:
		if v == "" {
			return 0
		}
		if strings.ContainsRune(v, '.') {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return 0
			}
			return int64(math.Round(f))
		}
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}
