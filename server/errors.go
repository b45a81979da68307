package server

import (
	"errors"
	"fmt"
	"net/http"

	qerrors "github.com/sambeau/quantities/pkg/errors"
)

// apiError is an HTTP-level failure that has no QuantityError code.
type apiError struct {
	Status  int
	Code    string
	Message string
	Hints   []string
}

func (e *apiError) Error() string {
	return e.Message
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string   `json:"code"`
	Class   string   `json:"class,omitempty"`
	Message string   `json:"message"`
	Hints   []string `json:"hints,omitempty"`
}

// statusFor maps catalog and system errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, qerrors.ErrUnknownQuantity), errors.Is(err, qerrors.ErrUnknownUnit):
		return http.StatusNotFound
	case errors.Is(err, qerrors.ErrBadLiteral),
		errors.Is(err, qerrors.ErrNotApplicable),
		errors.Is(err, qerrors.ErrUnknownBase),
		errors.Is(err, qerrors.ErrNoBasicQuantity):
		return http.StatusBadRequest
	case errors.Is(err, qerrors.ErrUnsupported):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		status int
		detail errorDetail
		aerr   *apiError
		qerr   *qerrors.QuantityError
	)
	switch {
	case errors.As(err, &aerr):
		status = aerr.Status
		detail = errorDetail{Code: aerr.Code, Message: aerr.Message, Hints: aerr.Hints}
	case errors.As(err, &qerr):
		status = statusFor(qerr)
		detail = errorDetail{Code: qerr.Code, Class: string(qerr.Class), Message: qerr.Message, Hints: qerr.Hints}
	default:
		status = http.StatusInternalServerError
		detail = errorDetail{Code: "HTTP-500", Message: "internal error"}
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	s.writeJSON(w, status, errorBody{Error: detail})
}

func suggest(name string, candidates []string) []string {
	if match := qerrors.FindClosestMatch(name, candidates); match != "" {
		return []string{fmt.Sprintf("did you mean %q?", match)}
	}
	return nil
}
