package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrOnlyCensoredFiles = fmt.Errorf("censored directory contains directories")
	ErrEmptyWords        = fmt.Errorf("no words have been found")

	ErrClusterNotFound      = fmt.Errorf("cluster not found")
	ErrClusterAlreadyExists = fmt.Errorf("cluster already exists")
	ErrInvalidGroup         = fmt.Errorf("invalid group")
	ErrInvalidDocument      = fmt.Errorf("invalid cluster document")

	ErrGatewayUnavailable = fmt.Errorf("im gateway unavailable")
	ErrRPCTimeout         = fmt.Errorf("im gateway query timed out")
	ErrRPCFailed          = fmt.Errorf("im gateway query failed")
	ErrUnknownEventType   = fmt.Errorf("unknown event type")
	ErrInvalidPayload     = fmt.Errorf("invalid payload")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
)

// Is and As forward to the standard library so callers only import this package.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }
