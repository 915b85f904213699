package relay

import "github.com/shuldan/dispatch/pkg/errors"

var newRelayCode = errors.WithPrefix("RELAY")

var (
	ErrNoCodec          = newRelayCode().New("no codec registered for kind {{.kind}}")
	ErrCodecExists      = newRelayCode().New("codec for kind {{.kind}} is already registered")
	ErrDecode           = newRelayCode().New("cannot decode {{.kind}} payload")
	ErrEncode           = newRelayCode().New("cannot encode {{.kind}} event")
	ErrRelayClosed      = newRelayCode().New("relay is closed")
	ErrAlreadyForwarded = newRelayCode().New("kind {{.kind}} is already forwarded")
	ErrAlreadyReceived  = newRelayCode().New("kind {{.kind}} is already received")
	ErrRelayNotFound    = newRelayCode().New("relay not found in container")
	ErrBreakerOpen      = newRelayCode().New("broker unavailable, not forwarding {{.kind}}")
)
