package serialmux

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	EventTypeResult  = "result"
	EventTypeStatus  = "status"
	EventTypeConfig  = "config"
	EventTypeUnknown = "unknown"
)

// ResultLine holds one completed size result streamed over the bench link.
// Sizes arrive in nanometres and temperatures in Celsius because Initialize
// pins the instrument to those units.
type ResultLine struct {
	Sample        string
	ZAverageNm    float64
	PDI           float64
	CountRateKcps float64
	TemperatureC  float64
}

// ClassifyPayload inspects a payload string and returns a simple event type
// token. Anything that is not a recognized prefix is unknown; callers decide
// whether to log or drop it.
func ClassifyPayload(payload string) string {
	if strings.HasPrefix(payload, "RESULT,") {
		return EventTypeResult
	}
	if strings.HasPrefix(payload, "STATUS,") {
		return EventTypeStatus
	}
	if strings.HasPrefix(payload, "{") {
		return EventTypeConfig
	}
	return EventTypeUnknown
}

// ParseResultLine parses a streamed result line of the form
//
//	RESULT,<sample>,<z-average nm>,<pdi>,<count rate kcps>,<temperature C>
//
// Sample names never contain commas; the instrument strips them before
// streaming.
func ParseResultLine(line string) (ResultLine, error) {
	fields := strings.Split(line, ",")
	if len(fields) != 6 {
		return ResultLine{}, fmt.Errorf("expected 6 fields in result line, got %d", len(fields))
	}
	if fields[0] != "RESULT" {
		return ResultLine{}, fmt.Errorf("not a result line: %q", line)
	}

	result := ResultLine{Sample: strings.TrimSpace(fields[1])}
	if result.Sample == "" {
		return ResultLine{}, fmt.Errorf("empty sample name in result line: %q", line)
	}

	numeric := []struct {
		name string
		dst  *float64
	}{
		{"z-average", &result.ZAverageNm},
		{"pdi", &result.PDI},
		{"count rate", &result.CountRateKcps},
		{"temperature", &result.TemperatureC},
	}
	for i, field := range numeric {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i+2]), 64)
		if err != nil {
			return ResultLine{}, fmt.Errorf("invalid %s value %q: %w", field.name, fields[i+2], err)
		}
		*field.dst = v
	}

	return result, nil
}
