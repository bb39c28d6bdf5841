package resources

import (
	"strings"

	"github.com/radieske/betops-admin/internal/apiclient"
)

// Params são os parâmetros comuns das listagens
type Params struct {
	PageNo        int            `json:"pageNo,omitempty"`
	PageSize      int            `json:"pageSize,omitempty"`
	SortBy        string         `json:"sortBy,omitempty"`
	SortDirection int            `json:"sortDirection,omitempty"` // 1 | -1
	Search        string         `json:"search,omitempty"`
	Filters       map[string]any `json:"filters,omitempty"`
}

// With devolve uma cópia com o filtro adicionado
func (p Params) With(key string, value any) Params {
	f := make(map[string]any, len(p.Filters)+1)
	for k, v := range p.Filters {
		f[k] = v
	}
	f[key] = value
	p.Filters = f
	return p
}

// Query converte para o mapa aceito pelo apiclient; searchParam varia por endpoint
func (p Params) Query(searchParam string) map[string]any {
	q := make(map[string]any, len(p.Filters)+5)
	for k, v := range p.Filters {
		q[k] = v
	}
	if p.PageNo > 0 {
		q["pageNo"] = p.PageNo
	}
	if p.PageSize > 0 {
		q["pageSize"] = p.PageSize
	}
	if p.SortBy != "" {
		q["sortBy"] = p.SortBy
		dir := p.SortDirection
		if dir != -1 {
			dir = 1
		}
		q["sortDirection"] = dir
	}
	if s := strings.TrimSpace(p.Search); s != "" {
		if searchParam == "" {
			searchParam = "search"
		}
		q[searchParam] = s
	}
	return q
}

// Key é a forma canônica usada nas chaves de cache: mesmos parâmetros, mesma chave
func (p Params) Key() string {
	return apiclient.BuildQuery(p.Query("search"))
}
