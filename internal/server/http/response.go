package httpserver

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/helixir/paper-aggregator/internal/domain"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details []fieldProblem `json:"details,omitempty"`
}

// fieldProblem describes one invalid request field.
type fieldProblem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type papersResponse struct {
	Papers []*domain.Paper `json:"papers"`
}

// errorLabel names the error class of a status code.
func errorLabel(statusCode int) string {
	switch statusCode {
	case http.StatusBadRequest:
		return "Validation Error"
	case http.StatusNotFound:
		return "Not Found"
	case http.StatusTooManyRequests:
		return "Rate Limited"
	case http.StatusBadGateway:
		return "Upstream Error"
	case http.StatusServiceUnavailable:
		return "Service Unavailable"
	case http.StatusInternalServerError:
		return "Server Error"
	default:
		return http.StatusText(statusCode)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	writeJSON(w, r, statusCode, errorResponse{
		Error:   errorLabel(statusCode),
		Message: message,
	})
}

// writeValidationError writes a 400 listing the invalid fields.
func writeValidationError(w http.ResponseWriter, r *http.Request, message string, details []fieldProblem) {
	writeJSON(w, r, http.StatusBadRequest, errorResponse{
		Error:   errorLabel(http.StatusBadRequest),
		Message: message,
		Details: details,
	})
}

// writeDomainError maps domain errors to HTTP status codes and writes the response.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeValidationError(w, r, ve.Error(), []fieldProblem{{Field: ve.Field, Message: ve.Message}})
		return
	}
	status, message := errorStatus(err)
	writeError(w, r, status, message)
}

// errorStatus returns the status code and client message for err.
func errorStatus(err error) (int, string) {
	var api *domain.ExternalAPIError

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid input"
	case errors.Is(err, domain.ErrUnknownSource):
		return http.StatusNotFound, "unknown paper source"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "paper not found"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "upstream rate limit exceeded"
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "upstream service unavailable"
	case errors.As(err, &api):
		return http.StatusBadGateway, "upstream request failed: " + api.Source
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// validationProblems converts validator output into response details.
func validationProblems(err error) []fieldProblem {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []fieldProblem{{Message: err.Error()}}
	}

	problems := make([]fieldProblem, len(verrs))
	for i, fe := range verrs {
		problems[i] = fieldProblem{
			Field:   fe.Field(),
			Message: ruleMessage(fe),
		}
	}
	return problems
}

func ruleMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
