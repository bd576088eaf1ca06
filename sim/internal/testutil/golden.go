// Package testutil provides shared test infrastructure for the iot-sim
// packages: the golden scenario dataset and tolerance-based assertions.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase is one fully deterministic scenario and the results it must
// produce. Parameter names follow the `iot-sim run` flags.
type GoldenTestCase struct {
	Name           string  `json:"name"`
	Seed           int64   `json:"seed"`
	Horizon        float64 `json:"horizon"`
	Servers        int     `json:"servers"`
	LocalTime      float64 `json:"local-time"`
	PriorityLevels int     `json:"priority-levels"`
	Machines       int     `json:"machines"`
	CloudTime      float64 `json:"cloud-time"`
	Handoff        bool    `json:"handoff"`
	HandoffTime    float64 `json:"handoff-time"`
	Policy         string  `json:"policy"`
	EveryN         int     `json:"every-n"`
	CounterStart   int     `json:"counter-start"`
	Probability    float64 `json:"probability"`
	ArrivalMode    string  `json:"arrival-mode"`
	InitialBurst   int     `json:"initial-burst"`
	MeanInterval   float64 `json:"mean-interval"`
	Jitter         float64 `json:"jitter"`
	Discrete       bool    `json:"discrete"`
	DeviceCount    int     `json:"device-count"`

	Metrics GoldenMetrics `json:"metrics"`
}

// GoldenMetrics represents the expected results of a golden test case.
type GoldenMetrics struct {
	// Exact match counters
	DevicesSpawned  int   `json:"devices_spawned"`
	Completed       int   `json:"completed"`
	InFlight        int   `json:"in_flight"`
	Local           int64 `json:"local"`
	Escalated       int64 `json:"escalated"`
	GatewayMaxQueue int   `json:"gateway_max_queue"`
	CloudMaxQueue   int   `json:"cloud_max_queue"`

	// Virtual-time metrics
	EndTime            float64 `json:"end_time"`
	WaitMean           float64 `json:"wait_mean"`
	TotalMean          float64 `json:"total_mean"`
	TotalMax           float64 `json:"total_max"`
	GatewayUtilization float64 `json:"gateway_utilization"`
	CloudUtilization   float64 `json:"cloud_utilization"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}
	if len(dataset.Tests) == 0 {
		t.Fatal("Golden dataset has no test cases")
	}
	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
