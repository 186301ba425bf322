// Package tools declares the function the examiner calls to end a viva and
// parses the arguments it sends back.
package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/invopop/jsonschema"
	"github.com/koscakluka/viva-core/core/live"
)

const (
	ConcludeName        = "conclude_viva"
	concludeDescription = "Conclude the viva examination. Call this once the student has been assessed " +
		"or when asked to end the session, with the final score and feedback."

	// ScoreTotal is the maximum score the examiner can award.
	ScoreTotal = 10
)

type ConcludeArgs struct {
	Score              float64  `json:"score" jsonschema:"description=Overall score out of 10,minimum=0,maximum=10"`
	Summary            string   `json:"summary" jsonschema:"description=Short spoken style summary of how the student performed"`
	StrongPoints       []string `json:"strong_points" jsonschema:"description=Concepts the student explained well"`
	AreasOfImprovement []string `json:"areas_of_improvement" jsonschema:"description=Concepts the student should revisit"`
}

// ConcludeDeclaration returns the conclude_viva declaration sent in the
// live setup message.
func ConcludeDeclaration() (live.FunctionDeclaration, error) {
	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&ConcludeArgs{})

	encoded, err := json.Marshal(schema)
	if err != nil {
		return live.FunctionDeclaration{}, fmt.Errorf("error marshalling conclude schema: %w", err)
	}
	var parameters map[string]any
	if err := json.Unmarshal(encoded, &parameters); err != nil {
		return live.FunctionDeclaration{}, fmt.Errorf("error unmarshalling conclude schema: %w", err)
	}

	return live.FunctionDeclaration{
		Name:        ConcludeName,
		Description: concludeDescription,
		Parameters:  parameters,
	}, nil
}

// ParseConcludeArgs reads the arguments of a conclude_viva call. Missing or
// mistyped fields become zero values so a sloppy call still ends the
// session; the score is clamped to [0, ScoreTotal].
func ParseConcludeArgs(args map[string]any) ConcludeArgs {
	parsed := ConcludeArgs{
		Summary:            stringArg(args["summary"]),
		StrongPoints:       stringsArg(args["strong_points"]),
		AreasOfImprovement: stringsArg(args["areas_of_improvement"]),
	}

	score := numberArg(args["score"])
	if math.IsNaN(score) || score < 0 {
		score = 0
	} else if score > ScoreTotal {
		score = ScoreTotal
	}
	parsed.Score = score

	return parsed
}

func numberArg(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func stringArg(v any) string {
	s, _ := v.(string)
	return s
}

func stringsArg(v any) []string {
	out := []string{}
	switch list := v.(type) {
	case []string:
		out = append(out, list...)
	case []any:
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
