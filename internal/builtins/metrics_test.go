// ABOUTME: Tests for the metrics pack tool handlers.
// ABOUTME: Covers numeric and checkin metrics with daily and timestamped resolution.

package builtins

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	pack := MetricsPack(newTestService(t))

	assert.Equal(t, "No metrics defined yet. Use create_metric to get started.",
		mustCall(t, pack, "alice", "list_metrics", `{}`))

	assert.Equal(t, `Created metric "Weight" (numeric, daily) in kg`,
		mustCall(t, pack, "alice", "create_metric", `{"name":"Weight","unit":"kg","resolution":"daily","type":"numeric"}`))
	assert.Equal(t, `Created metric "Gym" (checkin, timestamped)`,
		mustCall(t, pack, "alice", "create_metric", `{"name":"Gym","resolution":"timestamped","type":"checkin"}`))

	text, isErr := call(t, pack, "alice", "create_metric", `{"name":"Weight","resolution":"daily","type":"numeric"}`)
	assert.True(t, isErr)
	assert.Equal(t, `A metric named "Weight" already exists.`, text)

	assert.Equal(t, "- Gym (checkin, timestamped)\n- Weight (numeric, daily) [kg]",
		mustCall(t, pack, "alice", "list_metrics", `{}`))
}

func TestLogMetric(t *testing.T) {
	pack := MetricsPack(newTestService(t))
	mustCall(t, pack, "alice", "create_metric", `{"name":"Weight","unit":"kg","resolution":"daily","type":"numeric"}`)
	mustCall(t, pack, "alice", "create_metric", `{"name":"Gym","resolution":"timestamped","type":"checkin"}`)

	assert.Equal(t, "Weight: logged 80.5 kg on 2026-03-09",
		mustCall(t, pack, "alice", "log_metric", `{"name":"Weight","value":80.5,"date":"2026-03-09"}`))
	assert.Equal(t, "Gym: checked in on 2026-03-10",
		mustCall(t, pack, "alice", "log_metric", `{"name":"Gym"}`))

	tests := []struct {
		name string
		args string
		want string
	}{
		{"unknown metric", `{"name":"Steps","value":1}`, `No metric named "Steps" found. Use create_metric first.`},
		{"numeric without value", `{"name":"Weight"}`, `Metric "Weight" is numeric — a value is required.`},
		{"checkin with value", `{"name":"Gym","value":1}`, `Metric "Gym" is checkin — value should not be provided.`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, pack, "alice", "log_metric", tt.args)
			assert.True(t, isErr)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestGetMetricEntries(t *testing.T) {
	pack := MetricsPack(newTestService(t))
	mustCall(t, pack, "alice", "create_metric", `{"name":"Weight","unit":"kg","resolution":"daily","type":"numeric"}`)
	mustCall(t, pack, "alice", "create_metric", `{"name":"Gym","resolution":"daily","type":"checkin"}`)

	assert.Equal(t, `No entries for "Weight" between 2026-03-03 and 2026-03-10.`,
		mustCall(t, pack, "alice", "get_metric_entries", `{"name":"Weight"}`))

	mustCall(t, pack, "alice", "log_metric", `{"name":"Weight","value":81,"date":"2026-03-08"}`)
	mustCall(t, pack, "alice", "log_metric", `{"name":"Weight","value":80.5,"date":"2026-03-09"}`)
	mustCall(t, pack, "alice", "log_metric", `{"name":"Weight","value":79,"date":"2026-02-01"}`)
	mustCall(t, pack, "alice", "log_metric", `{"name":"Gym","date":"2026-03-10"}`)

	assert.Equal(t, "Weight (2026-03-03 to 2026-03-10):\n- 2026-03-08: 81 kg\n- 2026-03-09: 80.5 kg",
		mustCall(t, pack, "alice", "get_metric_entries", `{"name":"Weight"}`))
	assert.Equal(t, "Gym (2026-03-10 to 2026-03-10):\n- 2026-03-10: ✓",
		mustCall(t, pack, "alice", "get_metric_entries", `{"name":"Gym","from":"2026-03-10","to":"2026-03-10"}`))

	text, isErr := call(t, pack, "alice", "get_metric_entries", `{"name":"Steps"}`)
	assert.True(t, isErr)
	assert.Equal(t, `No metric named "Steps" found.`, text)
}

func TestDeleteMetric(t *testing.T) {
	pack := MetricsPack(newTestService(t))
	mustCall(t, pack, "alice", "create_metric", `{"name":"Weight","resolution":"daily","type":"numeric"}`)
	mustCall(t, pack, "alice", "log_metric", `{"name":"Weight","value":80}`)

	assert.Equal(t, `Deleted metric "Weight" and all its entries.`,
		mustCall(t, pack, "alice", "delete_metric", `{"name":"Weight"}`))

	text, isErr := call(t, pack, "alice", "delete_metric", `{"name":"Weight"}`)
	assert.True(t, isErr)
	assert.Equal(t, `No metric named "Weight" found.`, text)
}
