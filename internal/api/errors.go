package api

import (
	"errors"
	"net/http"

	"cpg-insights/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var validation *domain.ValidationError
	var execution *domain.ExecutionError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &execution):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// errorDetails extracts per-field reasons from an aggregated validation error.
func errorDetails(err error) []string {
	var validation *domain.ValidationError
	if errors.As(err, &validation) {
		return validation.Reasons
	}
	return nil
}
