package queue

import (
	"log/slog"

	"github.com/shuldan/dispatch/pkg/contracts"
)

type PanicHandler interface {
	Handle(topic string, panicValue any, stack []byte)
}

type ErrorHandler interface {
	Handle(topic string, err error)
}

type defaultPanicHandler struct{ logger contracts.Logger }

func NewDefaultPanicHandler(logger contracts.Logger) PanicHandler {
	return &defaultPanicHandler{logger: logger}
}

func (d *defaultPanicHandler) Handle(topic string, panicValue any, stack []byte) {
	if d.logger == nil {
		slog.Error("queue panic", "topic", topic, "panic", panicValue, "stack", string(stack))
		return
	}
	d.logger.Critical("queue panic", "topic", topic, "panic", panicValue, "stack", string(stack))
}

type defaultErrorHandler struct{ logger contracts.Logger }

func NewDefaultErrorHandler(logger contracts.Logger) ErrorHandler {
	return &defaultErrorHandler{logger: logger}
}

func (d *defaultErrorHandler) Handle(topic string, err error) {
	if d.logger == nil {
		slog.Error("queue error", "topic", topic, "error", err)
		return
	}
	d.logger.Error("queue error", "topic", topic, "error", err)
}
