// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Domain error kinds. Services wrap these with a message; transports map them.
var (
	ErrInvalidOperation = errors.New("invalid operation")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// InvalidOperation rejects self-references and malformed payloads.
func InvalidOperation(msg string) error {
	return &kindError{kind: ErrInvalidOperation, msg: msg}
}

// NotFound reports an unknown user, conversation or record.
func NotFound(msg string) error {
	return &kindError{kind: ErrNotFound, msg: msg}
}

// Unavailable wraps a persistence failure.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// Message returns the client-facing text for err. Internal failures are not
// echoed to clients.
func Message(err error) string {
	var ke *kindError
	switch {
	case errors.As(err, &ke):
		return ke.msg
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "record not found"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	case errors.Is(err, ErrStoreUnavailable):
		return "store unavailable"
	default:
		return "internal server error"
	}
}

// Map converts repo/infra errors into gRPC-friendly status errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrInvalidOperation):
		return status.Error(codes.InvalidArgument, Message(err))

	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, Message(err))

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	case errors.Is(err, ErrStoreUnavailable):
		return status.Error(codes.Unavailable, "store unavailable")

	default:
		// fallback → bubble up error message for debugging
		return status.Error(codes.Internal, err.Error())
	}
}

// HTTPStatus picks the response status for err using the same taxonomy as Map.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
