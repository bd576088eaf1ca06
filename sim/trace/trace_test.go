package trace

import (
	"testing"
)

func TestSimulationTrace_RecordRouting_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN a routing record is recorded
	st.RecordRouting(RoutingRecord{
		RequestID: "IOT 9",
		Clock:     180,
		Policy:    "counter",
		Escalated: true,
		Reason:    "every 10th request",
	})

	// THEN the trace contains one routing record with correct data
	if len(st.Routings) != 1 {
		t.Fatalf("expected 1 routing, got %d", len(st.Routings))
	}
	if st.Routings[0].RequestID != "IOT 9" {
		t.Errorf("expected request ID IOT 9, got %s", st.Routings[0].RequestID)
	}
	if !st.Routings[0].Escalated {
		t.Error("expected escalated=true")
	}
}

func TestSimulationTrace_LevelNone_RecordsNothing(t *testing.T) {
	// GIVEN a trace with tracing disabled
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelNone})

	// WHEN a record is offered
	st.RecordRouting(RoutingRecord{RequestID: "IOT 0"})

	// THEN nothing is kept
	if len(st.Routings) != 0 {
		t.Errorf("expected 0 routings, got %d", len(st.Routings))
	}
}

func TestSimulationTrace_Nil_IsSafe(t *testing.T) {
	var st *SimulationTrace
	st.RecordRouting(RoutingRecord{RequestID: "IOT 0"})
	if st.Enabled() {
		t.Error("nil trace reports enabled")
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"", true},
		{"none", true},
		{"decisions", true},
		{"verbose", false},
	}
	for _, tt := range tests {
		if got := IsValidTraceLevel(tt.level); got != tt.valid {
			t.Errorf("IsValidTraceLevel(%q) = %v, want %v", tt.level, got, tt.valid)
		}
	}
}
