package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kingchat/kingchat/internal/chat"
)

// StatusFor maps an error onto the HTTP status the API answers with.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, chat.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, chat.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorFor maps an HTTP error status back onto the chat error taxonomy.
func ErrorFor(status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	var sentinel error
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		sentinel = chat.ErrValidation
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		sentinel = chat.ErrForbidden
	case status == http.StatusNotFound:
		sentinel = chat.ErrNotFound
	default:
		sentinel = chat.ErrNetwork
	}
	return fmt.Errorf("%s (HTTP %d): %w", msg, status, sentinel)
}
