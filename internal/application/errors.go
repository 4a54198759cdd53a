package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
)

// classifyAuthError maps a backend failure onto the closed set of manager
// error kinds, keeping the cause in the chain.
func classifyAuthError(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrUnknown, err)
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrSessionExpired),
		errors.Is(err, domain.ErrUserAlreadyExists),
		errors.Is(err, domain.ErrConfirmationRequired),
		errors.Is(err, domain.ErrNoSession):
		return fmt.Errorf("%w: %w", domain.ErrAuthFailure, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrUnknown, err)
	}
}
