package application

import (
	"strings"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
)

type AddAccountCommand struct {
	Email  string          `validate:"required,email"`
	Secret string          `validate:"required"`
	Mode   domain.AuthMode `validate:"omitempty,oneof=sign-in register"`
}

func (c AddAccountCommand) normalized() AddAccountCommand {
	c.Email = strings.TrimSpace(c.Email)
	if c.Mode == "" {
		c.Mode = domain.AuthModeSignIn
	}
	return c
}
