package server

import (
	"errors"
	"net/http"

	"github.com/jonathan/lpi-harvester/internal/accounts"
	"github.com/jonathan/lpi-harvester/internal/race"
	"github.com/jonathan/lpi-harvester/internal/storage"
)

// ErrRunInProgress is returned when a harvest is requested while another is running
var ErrRunInProgress = errors.New("a harvest is already in progress")

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var ve *ErrValidation
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, storage.ErrNoResults),
		errors.Is(err, storage.ErrAccountNotFound),
		errors.Is(err, storage.ErrNoStreaks):
		return http.StatusNotFound
	case errors.Is(err, race.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, accounts.ErrNoAccounts):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
