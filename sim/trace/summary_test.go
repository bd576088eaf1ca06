package trace

import "testing"

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})

	// WHEN summarized
	summary := Summarize(st)

	// THEN all counts are zero
	if summary.TotalDecisions != 0 {
		t.Errorf("expected 0 total decisions, got %d", summary.TotalDecisions)
	}
	if summary.EscalatedCount != 0 || summary.LocalCount != 0 {
		t.Error("expected 0 escalated and local")
	}
	if summary.EscalationFraction != 0 {
		t.Errorf("expected 0 escalation fraction, got %f", summary.EscalationFraction)
	}
	if len(summary.PolicyDistribution) != 0 {
		t.Error("expected empty policy distribution")
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	summary := Summarize(nil)
	if summary.TotalDecisions != 0 || summary.PolicyDistribution == nil {
		t.Errorf("unexpected summary for nil trace: %+v", summary)
	}
}

func TestSummarize_MixedDecisions_CorrectCounts(t *testing.T) {
	// GIVEN a trace with 1 escalation out of 4 decisions
	st := NewSimulationTrace(TraceConfig{Level: TraceLevelDecisions})
	st.RecordRouting(RoutingRecord{RequestID: "IOT 0", Policy: "counter"})
	st.RecordRouting(RoutingRecord{RequestID: "IOT 1", Policy: "counter"})
	st.RecordRouting(RoutingRecord{RequestID: "IOT 2", Policy: "counter", Escalated: true})
	st.RecordRouting(RoutingRecord{RequestID: "IOT 3", Policy: "counter"})

	// WHEN summarized
	summary := Summarize(st)

	// THEN counts and fraction match
	if summary.TotalDecisions != 4 {
		t.Errorf("expected 4 total decisions, got %d", summary.TotalDecisions)
	}
	if summary.EscalatedCount != 1 || summary.LocalCount != 3 {
		t.Errorf("expected 1 escalated / 3 local, got %d / %d", summary.EscalatedCount, summary.LocalCount)
	}
	if summary.EscalationFraction != 0.25 {
		t.Errorf("expected fraction 0.25, got %f", summary.EscalationFraction)
	}
	if summary.PolicyDistribution["counter"] != 4 {
		t.Errorf("expected 4 counter decisions, got %d", summary.PolicyDistribution["counter"])
	}
}
