package apiclient

import (
	"fmt"
	"net/url"
	"strings"
)

// allSentinel é o valor "sem filtro" usado pelos selects; nunca vai para o upstream
const allSentinel = "ALL"

// BuildQuery monta a query string a partir de um mapa simples.
// Ignora nil, strings vazias e o sentinela "ALL"; chaves saem ordenadas.
func BuildQuery(params map[string]any) string {
	if len(params) == 0 {
		return ""
	}
	q := url.Values{}
	for k, v := range params {
		for _, s := range queryValues(v) {
			q.Add(k, s)
		}
	}
	return q.Encode()
}

func queryValues(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return keep(t)
	case *string:
		if t == nil {
			return nil
		}
		return keep(*t)
	case []string:
		var out []string
		for _, s := range t {
			out = append(out, keep(s)...)
		}
		return out
	case *int:
		if t == nil {
			return nil
		}
		return []string{fmt.Sprint(*t)}
	case *bool:
		if t == nil {
			return nil
		}
		return []string{fmt.Sprint(*t)}
	case fmt.Stringer:
		return keep(t.String())
	default:
		return keep(fmt.Sprint(t))
	}
}

func keep(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, allSentinel) {
		return nil
	}
	return []string{s}
}
