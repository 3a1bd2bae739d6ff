package auth

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type LoginRequest struct {
	Username string `validate:"required,max=64"`
	Password string `validate:"required,max=72"`
}

// ValidateLogin rejects malformed credentials before any hashing happens.
func ValidateLogin(req LoginRequest) error {
	return validate.Struct(req)
}
