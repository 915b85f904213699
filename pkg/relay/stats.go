package relay

import (
	"sync/atomic"
	"time"

	"github.com/shuldan/dispatch/pkg/queue"
)

// Stats counts relay traffic. It doubles as the queue.Counter of every
// inbound queue.
type Stats struct {
	forwarded  atomic.Int64
	received   atomic.Int64
	skipped    atomic.Int64
	failed     atomic.Int64
	retried    atomic.Int64
	duplicates atomic.Int64
	rejected   atomic.Int64
}

type StatsSnapshot struct {
	Forwarded int64
	Received  int64
	Skipped   int64
	Failed    int64
	Retried   int64
	// Duplicates are inbound envelopes dropped because their id was seen before.
	Duplicates int64
	// Rejected are outgoing events refused while the breaker was open.
	Rejected int64
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Forwarded: s.forwarded.Load(),
		Received:  s.received.Load(),
		Skipped:   s.skipped.Load(),
		Failed:    s.failed.Load(),
		Retried:   s.retried.Load(),

		Duplicates: s.duplicates.Load(),
		Rejected:   s.rejected.Load(),
	}
}

func (s *Stats) IncProcessed(_ string, status queue.ProcessedStatus) {
	if status != queue.StatusSuccess {
		s.failed.Add(1)
	}
}

func (s *Stats) IncError(string) {}

func (s *Stats) IncRetry(string) { s.retried.Add(1) }

func (s *Stats) IncDLQ(string) {}

func (s *Stats) ObserveProcessingTime(string, time.Duration) {}
