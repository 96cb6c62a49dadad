package services

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrBadRequest         = errors.New("bad request")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyRedeemed    = errors.New("already redeemed")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrSoldOut            = errors.New("sold out")
)

// HTTPStatus maps a service error to a response status. Unclassified
// errors are upstream failures.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ErrAlreadyRedeemed),
		errors.Is(err, ErrInsufficientPoints):
		return http.StatusBadRequest
	case errors.Is(err, ErrSoldOut):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
