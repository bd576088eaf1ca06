// Package trace provides decision-trace recording for gateway routing analysis.
// It only stores plain data and does not import sim/ or sim/iot/.
package trace

// RoutingRecord captures a single gateway routing decision.
type RoutingRecord struct {
	RequestID string
	Clock     float64 // virtual time of the decision
	Policy    string  // policy name, e.g. "counter" or "probabilistic"
	Escalated bool    // true = forwarded to the cloud tier
	Reason    string
}
