package httpapi

import (
	"errors"
	"net/http"

	"github.com/radieske/betops-admin/internal/apiclient"
	"github.com/radieske/betops-admin/internal/query"
	"github.com/radieske/betops-admin/internal/resources"
	"github.com/radieske/betops-admin/internal/resources/dto"
)

var errUnknownEntity = errors.New("unknown entity")

type errorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// statusFor mapeia a taxonomia de erros para o status HTTP do console
func statusFor(err error) (int, errorBody) {
	var (
		ve *dto.ValidationError
		ee *resources.EnvelopeError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, errorBody{Error: "validation failed", Fields: ve.Fields}
	case errors.Is(err, query.ErrNotReady):
		return http.StatusUnauthorized, errorBody{Error: "not authenticated"}
	case errors.Is(err, errUnknownEntity):
		return http.StatusNotFound, errorBody{Error: err.Error()}
	case errors.Is(err, resources.ErrUnsupported):
		return http.StatusMethodNotAllowed, errorBody{Error: err.Error()}
	case errors.As(err, &ee):
		return http.StatusBadGateway, errorBody{Error: ee.Error()}
	}
	if ae, ok := apiclient.AsAPIError(err); ok {
		return ae.Status, errorBody{Error: ae.Message, Code: ae.Code}
	}
	if apiclient.IsNetwork(err) {
		return http.StatusBadGateway, errorBody{Error: query.GenericFailure}
	}
	return http.StatusInternalServerError, errorBody{Error: query.GenericFailure}
}

func writeError(w http.ResponseWriter, err error) {
	status, body := statusFor(err)
	writeJSON(w, status, body)
}
