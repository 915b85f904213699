package queue

import "github.com/shuldan/dispatch/pkg/errors"

var newQueueCode = errors.WithPrefix("QUEUE")

var (
	ErrQueueClosed    = newQueueCode().New("cannot use closed queue")
	ErrInvalidJobType = newQueueCode().New("job type must be a pointer to struct, got {{.type}}")
	ErrMarshal        = newQueueCode().New("failed to marshal job")
	ErrUnmarshal      = newQueueCode().New("failed to unmarshal job")
	ErrSendToDLQ      = newQueueCode().New("failed to send job to DLQ")
	ErrNilBroker      = newQueueCode().New("broker must not be nil")
	ErrEmptyTopic     = newQueueCode().New("topic must not be empty")
	ErrInvalidBackoff = newQueueCode().New("unknown backoff strategy {{.name}}")
)
