package stats

// Discard drops every observation.
var Discard Collector = discard{}

type discard struct{}

// NewNoop returns Discard. Components default to it when no collector
// is configured.
func NewNoop() Collector {
	return Discard
}

func (discard) IncCounter(string, int64)         {}
func (discard) SetGauge(string, int64)           {}
func (discard) ObserveHistogram(string, float64) {}
