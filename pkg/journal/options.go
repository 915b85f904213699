package journal

import (
	"time"

	"github.com/shuldan/dispatch/pkg/contracts"
)

type Option func(*Journal)

func WithLogger(logger contracts.Logger) Option {
	return func(j *Journal) {
		j.logger = logger
	}
}

// WithBuffer sets how many records may wait for the writer. Records arriving
// when the buffer is full are dropped and counted.
func WithBuffer(size int) Option {
	return func(j *Journal) {
		if size > 0 {
			j.bufferSize = size
		}
	}
}

// WithBatchSize caps how many records the writer commits per transaction.
func WithBatchSize(size int) Option {
	return func(j *Journal) {
		if size > 0 {
			j.batchSize = size
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(j *Journal) {
		if now != nil {
			j.now = now
		}
	}
}

// WithOwnedDB makes Close also close the database handle.
func WithOwnedDB() Option {
	return func(j *Journal) {
		j.ownsDB = true
	}
}
