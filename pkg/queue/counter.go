package queue

import "time"

// Counter receives per-topic processing statistics.
type Counter interface {
	IncProcessed(topic string, status ProcessedStatus)
	IncError(topic string)
	IncRetry(topic string)
	IncDLQ(topic string)
	ObserveProcessingTime(topic string, duration time.Duration)
}

type ProcessedStatus string

const (
	StatusSuccess ProcessedStatus = "success"
	StatusError   ProcessedStatus = "error"
	StatusDLQ     ProcessedStatus = "dlq"
)

type NoOpCounter struct{}

func (NoOpCounter) IncProcessed(string, ProcessedStatus)        {}
func (NoOpCounter) IncError(string)                             {}
func (NoOpCounter) IncRetry(string)                             {}
func (NoOpCounter) IncDLQ(string)                               {}
func (NoOpCounter) ObserveProcessingTime(string, time.Duration) {}
