package auth

import (
	"regexp"
	"time"

	errors "github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/core/common/validation"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (dto LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", dto.Email).Required().
		Matches(emailPattern, "email must be a valid address", errors.ErrCodeValidationFailed)
	v.Field("password", dto.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      *User     `json:"user"`
}
