package dto

import (
	"fmt"
	"net/mail"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError agrega erros de formulário; nunca chega à camada de rede
type ValidationError struct {
	Fields map[string]string `json:"fields"`
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		e.add(field, "is required")
	}
}

func (e *ValidationError) Email(field, value string) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		e.add(field, "must be a valid email")
	}
}

func (e *ValidationError) NonNegative(field string, d *decimal.Decimal) {
	if d != nil && d.IsNegative() {
		e.add(field, "must be zero or greater")
	}
}

// Range exige min <= max quando ambos vierem preenchidos
func (e *ValidationError) Range(minField string, min *decimal.Decimal, maxField string, max *decimal.Decimal) {
	if min == nil || max == nil {
		return
	}
	if min.GreaterThan(*max) {
		e.add(maxField, fmt.Sprintf("must be greater than or equal to %s", minField))
	}
}

func (e *ValidationError) OneOf(field, value string, allowed ...string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	e.add(field, "must be one of "+strings.Join(allowed, ", "))
}

// OrNil devolve nil quando nenhum campo falhou
func (e *ValidationError) OrNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
