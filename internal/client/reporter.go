package client

import (
	"sensorfusion/internal/quorum"
	"sensorfusion/internal/reconcile"
)

// Reporter receives the observable events of each round.
type Reporter interface {
	Waiting(round int)
	Accepted(round int, readings []quorum.Reading, d quorum.Decision)
	Rejected(round int, readings []quorum.Reading, d quorum.Decision)
	Reconciled(round int, res reconcile.Result)
	Reread(round int, readings []quorum.Reading, mean float64)
}

// NopReporter discards every event.
type NopReporter struct{}

func (NopReporter) Waiting(int) {}
func (NopReporter) Accepted(int, []quorum.Reading, quorum.Decision) {}
func (NopReporter) Rejected(int, []quorum.Reading, quorum.Decision) {}
func (NopReporter) Reconciled(int, reconcile.Result) {}
func (NopReporter) Reread(int, []quorum.Reading, float64) {}
