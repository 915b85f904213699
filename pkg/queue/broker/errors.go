package broker

import "github.com/shuldan/dispatch/pkg/errors"

var newErrorCode = errors.WithPrefix("QUEUE_BROKER")

var (
	ErrConfigNotFound        = newErrorCode().New("broker needs a config module")
	ErrRedisConfigNotFound   = newErrorCode().New("redis config not found")
	ErrInvalidConfigInstance = newErrorCode().New("config instance must be Config interface")
	ErrInvalidLoggerInstance = newErrorCode().New("logger instance must be a Logger interface")
	ErrUnsupportedDriver     = newErrorCode().New("unsupported broker driver {{.driver}}")
)
