package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError representa uma resposta não-2xx da API upstream
type APIError struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api %d: %s", e.Status, e.Message)
}

// ClientError indica 4xx: nunca é retentado
func (e *APIError) ClientError() bool { return e.Status >= 400 && e.Status < 500 }

// NetworkError cobre falhas de transporte e timeout por tentativa
type NetworkError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *NetworkError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s: timeout: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DefaultMessage devolve a mensagem padrão por status quando o corpo não traz uma
func DefaultMessage(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "Authentication required"
	case http.StatusForbidden:
		return "You do not have permission to perform this action"
	case http.StatusNotFound:
		return "The requested resource was not found"
	case http.StatusInternalServerError:
		return "Internal server error"
	case http.StatusServiceUnavailable:
		return "Service temporarily unavailable"
	}
	return fmt.Sprintf("Request failed with status %d", status)
}

// newAPIError tenta extrair message/code/details do corpo; formatos variam por endpoint
func newAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}

	var payload struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
		Msg     json.RawMessage `json:"msg"`
		Code    json.RawMessage `json:"code"`
		Details json.RawMessage `json:"details"`
		Errors  json.RawMessage `json:"errors"`
	}
	if len(body) > 0 && json.Unmarshal(body, &payload) == nil {
		for _, raw := range []json.RawMessage{payload.Message, payload.Error, payload.Msg} {
			if s := rawString(raw); s != "" {
				e.Message = s
				break
			}
		}
		e.Code = rawString(payload.Code)
		if len(payload.Details) > 0 {
			e.Details = payload.Details
		} else if len(payload.Errors) > 0 {
			e.Details = payload.Errors
		}
	}

	if e.Message == "" {
		e.Message = DefaultMessage(status)
	}
	return e
}

// rawString aceita string JSON ou número (códigos numéricos)
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

// Retryable: falhas de rede/timeout e 5xx
func Retryable(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status >= 500
	}
	return false
}

// AsAPIError é um atalho para errors.As
func AsAPIError(err error) (*APIError, bool) {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// IsNetwork informa se o erro é de transporte (inclui timeout)
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
