package server

import (
	"errors"
	"net/http"

	"github.com/nao1215/markcrawl/internal/fetch"
	"github.com/nao1215/markcrawl/internal/model"
)

// HTTPStatus returns the response status for a conversion or crawl error.
func HTTPStatus(err error) int {
	var inputErr *model.InputError
	if errors.As(err, &inputErr) {
		return http.StatusBadRequest
	}

	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		switch fetchErr.Kind {
		case fetch.KindNotFound:
			return http.StatusNotFound
		case fetch.KindBlocked, fetch.KindRateLimited:
			return http.StatusForbidden
		case fetch.KindUnavailable:
			return http.StatusServiceUnavailable
		case fetch.KindInvalidURL:
			return http.StatusBadRequest
		default:
			return http.StatusInternalServerError
		}
	}

	return http.StatusInternalServerError
}
