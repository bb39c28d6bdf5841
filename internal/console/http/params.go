package httpapi

import (
	"net/url"
	"strconv"

	"github.com/radieske/betops-admin/internal/resources"
)

// reservados não viram filtro
var reserved = map[string]bool{
	"pageNo": true, "pageSize": true, "sortBy": true, "sortDirection": true,
	"search": true, "searchQuery": true, "requestedBy": true,
}

// parseParams converte a query string do dashboard em resources.Params
func parseParams(q url.Values) resources.Params {
	p := resources.Params{
		PageNo:   atoi(q.Get("pageNo")),
		PageSize: atoi(q.Get("pageSize")),
		SortBy:   q.Get("sortBy"),
		Search:   q.Get("search"),
	}
	if p.Search == "" {
		p.Search = q.Get("searchQuery")
	}
	if d := atoi(q.Get("sortDirection")); d == -1 {
		p.SortDirection = -1
	} else if p.SortBy != "" {
		p.SortDirection = 1
	}
	for k, vs := range q {
		if reserved[k] || len(vs) == 0 {
			continue
		}
		if len(vs) == 1 {
			p = p.With(k, vs[0])
		} else {
			p = p.With(k, vs)
		}
	}
	return p
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
