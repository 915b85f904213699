package errors

import (
	"bytes"
	"fmt"
	"maps"
	"runtime"
	"sync/atomic"
	"text/template"
	"time"
)

type Code string

func (c Code) New(msg string) *Error {
	return &Error{
		Code:      c,
		Message:   msg,
		Details:   make(map[string]any),
		Stack:     getStack(),
		Timestamp: time.Now(),
	}
}

// WithPrefix returns a generator of sequential codes, PREFIX_0001 and up.
func WithPrefix(prefix string) func() Code {
	var counter atomic.Int64
	return func() Code {
		return Code(fmt.Sprintf("%s_%04d", prefix, counter.Add(1)))
	}
}

// Error is a coded error. Sentinels declared with Code.New are never mutated:
// WithDetail and WithCause return copies.
type Error struct {
	Code      Code           `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Cause     error          `json:"-"`
	Stack     string         `json:"-"`
	Timestamp time.Time      `json:"timestamp"`
}

func (e *Error) Error() string {
	msg := e.render()
	if msg == "" {
		return ""
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) render() string {
	t, err := template.New("error").Parse(e.Message)
	if err != nil {
		return e.Message
	}

	var output bytes.Buffer
	if err = t.Execute(&output, e.Details); err != nil {
		return e.Message
	}

	return output.String()
}

func (e *Error) WithCause(err error) *Error {
	cp := e.clone()
	cp.Cause = err
	return cp
}

func (e *Error) WithDetail(key string, value any) *Error {
	cp := e.clone()
	cp.Details[key] = value
	return cp
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target carries the same code, so copies made by
// WithDetail and WithCause still match their sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func (e *Error) clone() *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	maps.Copy(cp.Details, e.Details)
	cp.Stack = getStack()
	cp.Timestamp = time.Now()
	return &cp
}

func getStack() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
