package dispatcher

import "github.com/shuldan/dispatch/pkg/errors"

var newDispatchCode = errors.WithPrefix("DISPATCH")

var (
	ErrDispatcherClosed  = newDispatchCode().New("dispatcher is closed")
	ErrInvalidSubscriber = newDispatchCode().New("subscriber must be a non-nil comparable value")
	ErrInvalidKind       = newDispatchCode().New("event kind must not be empty")
	ErrInvalidHandler    = newDispatchCode().New("handler must not be nil")
	ErrInvalidEventType  = newDispatchCode().New("cannot resolve kind of {{.type}}: Kind must work on the zero value")
	ErrUnexpectedEvent   = newDispatchCode().New("subscription for {{.kind}} received {{.type}}")
	ErrUnresolvedContext = newDispatchCode().New("execution context {{.context}} is not available")
	ErrReservedContext   = newDispatchCode().New("execution context {{.context}} is reserved")
	ErrContextExists     = newDispatchCode().New("execution context {{.context}} is already attached")
	ErrContextNotFound   = newDispatchCode().New("execution context {{.context}} is not attached")
	ErrExecutorClosed    = newDispatchCode().New("executor is closed")
	ErrCloseFromHandler  = newDispatchCode().New("cannot close execution context {{.context}} from one of its handlers")
	ErrHandlerPanic      = newDispatchCode().New("handler panicked: {{.panic}}")
)

var (
	ErrDispatcherNotFound        = newDispatchCode().New("dispatcher not found in container")
	ErrInvalidDispatcherInstance = newDispatchCode().New("container entry is not a dispatcher")
)
