package serialmux

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/lumen-data/particle.report/internal/db"
	"github.com/lumen-data/particle.report/internal/monitoring"
)

// configState accumulates key/value pairs from instrument config responses.
// The monitor goroutine writes while the debug console and tests read, so
// all access goes through configMu.
var (
	configMu    sync.Mutex
	configState map[string]any
)

// ConfigState returns a copy of the latest config values reported by the
// instrument. Empty until the first config response arrives.
func ConfigState() map[string]any {
	configMu.Lock()
	defer configMu.Unlock()
	out := make(map[string]any, len(configState))
	for k, v := range configState {
		out[k] = v
	}
	return out
}

// ResetConfigState discards all accumulated config values.
func ResetConfigState() {
	configMu.Lock()
	defer configMu.Unlock()
	configState = nil
}

// HandleResultLine parses a streamed size result and records it to the
// live_results table.
func HandleResultLine(d *db.DB, payload string) error {
	result, err := ParseResultLine(payload)
	if err != nil {
		return fmt.Errorf("failed to parse result line: %w", err)
	}
	monitoring.Logf("bench result: %s", payload)
	return d.RecordLiveResult(result.Sample, result.ZAverageNm, result.PDI,
		result.CountRateKcps, result.TemperatureC)
}

// HandleStatusLine logs instrument status transitions. Status lines are not
// persisted; they only matter while watching a run.
func HandleStatusLine(payload string) error {
	monitoring.Logf("bench status: %s", payload)
	return nil
}

// HandleConfigResponse merges a JSON config payload into the accumulated
// config state. The instrument replies with partial objects, so keys from
// earlier responses survive unless the new payload overwrites them.
func HandleConfigResponse(payload string) error {
	var values map[string]any
	if err := json.Unmarshal([]byte(payload), &values); err != nil {
		return fmt.Errorf("failed to unmarshal config response: %w", err)
	}

	configMu.Lock()
	if configState == nil {
		configState = make(map[string]any)
	}
	for k, v := range values {
		configState[k] = v
	}
	configMu.Unlock()

	monitoring.Logf("bench config: %s", payload)
	return nil
}

// HandleEvent dispatches one line from the bench link to the matching
// handler. Unknown lines are logged and dropped rather than returned as
// errors so a chatty instrument cannot kill the monitor loop.
func HandleEvent(d *db.DB, payload string) error {
	switch ClassifyPayload(payload) {
	case EventTypeResult:
		if err := HandleResultLine(d, payload); err != nil {
			return fmt.Errorf("failed to handle result event: %w", err)
		}
	case EventTypeStatus:
		if err := HandleStatusLine(payload); err != nil {
			return fmt.Errorf("failed to handle status event: %w", err)
		}
	case EventTypeConfig:
		if err := HandleConfigResponse(payload); err != nil {
			return fmt.Errorf("failed to handle config response: %w", err)
		}
	default:
		monitoring.Logf("bench: unrecognized line: %s", payload)
	}
	return nil
}
