package port

import "time"

// DispatchRecorder collects counters about dispatch cycles and deliveries.
type DispatchRecorder interface {
	RecordOutcome(cadence, outcome string)
	ObserveGeneration(duration time.Duration, success bool)
	RecordDelivery(success bool)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordOutcome(string, string)          {}
func (NopRecorder) ObserveGeneration(time.Duration, bool) {}
func (NopRecorder) RecordDelivery(bool)                   {}

// MultiRecorder fans out to several recorders.
type MultiRecorder []DispatchRecorder

func (m MultiRecorder) RecordOutcome(cadence, outcome string) {
	for _, r := range m {
		r.RecordOutcome(cadence, outcome)
	}
}

func (m MultiRecorder) ObserveGeneration(duration time.Duration, success bool) {
	for _, r := range m {
		r.ObserveGeneration(duration, success)
	}
}

func (m MultiRecorder) RecordDelivery(success bool) {
	for _, r := range m {
		r.RecordDelivery(success)
	}
}
