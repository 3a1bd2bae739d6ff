package errors

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrInvalidCredentials = fmt.Errorf("invalid username or password")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
	ErrInvalidMessage     = fmt.Errorf("invalid message payload")
	ErrArchiveDisabled    = fmt.Errorf("message archive is disabled")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)

// MapToGRPCError translates service errors into gRPC status errors.
// Errors that already carry a status are returned untouched.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrInvalidToken):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ErrInvalidMessage), errors.As(err, &validationErrors):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrArchiveDisabled):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
