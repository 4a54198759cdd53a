package kratos

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/bnema/ppl-accounts-cli/internal/domain"
	kratos "github.com/ory/kratos-client-go"
)

// Kratos UI message ids.
const (
	msgInvalidCredentials = "4000006"
	msgDuplicateIdentity  = "4000007"
	msgAddressNotVerified = "4000010"
)

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}

func errorBody(err error) []byte {
	var apiErr *kratos.GenericOpenAPIError
	if errors.As(err, &apiErr) {
		return apiErr.Body()
	}
	return nil
}

func wrapStatus(err error, resp *http.Response) error {
	if status := statusOf(resp); status != 0 {
		return fmt.Errorf("kratos returned status %d: %w", status, err)
	}
	return err
}

func mapLoginError(err error, resp *http.Response) error {
	body := errorBody(err)
	switch {
	case statusOf(resp) == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, wrapStatus(err, resp))
	case bytes.Contains(body, []byte(msgAddressNotVerified)):
		return fmt.Errorf("%w: %w", domain.ErrConfirmationRequired, wrapStatus(err, resp))
	case statusOf(resp) == http.StatusBadRequest, bytes.Contains(body, []byte(msgInvalidCredentials)):
		return fmt.Errorf("%w: %w", domain.ErrInvalidCredentials, wrapStatus(err, resp))
	}

	return wrapStatus(err, resp)
}

func mapRegistrationError(err error, resp *http.Response) error {
	body := errorBody(err)
	switch {
	case statusOf(resp) == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, wrapStatus(err, resp))
	case bytes.Contains(body, []byte(msgDuplicateIdentity)):
		return fmt.Errorf("%w: %w", domain.ErrUserAlreadyExists, wrapStatus(err, resp))
	}

	return wrapStatus(err, resp)
}

func mapSessionError(err error, resp *http.Response) error {
	switch statusOf(resp) {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, wrapStatus(err, resp))
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrSessionExpired, wrapStatus(err, resp))
	}

	return wrapStatus(err, resp)
}
