package dto

// Page é o formato canônico de qualquer listagem
type Page[T any] struct {
	Data       []T  `json:"data"`
	TotalItems int  `json:"totalItems"`
	Limit      int  `json:"limit"`
	Page       int  `json:"page"`
	TotalPages int  `json:"totalPages"`
	MorePages  bool `json:"morePages"`
	Degraded   bool `json:"degraded,omitempty"` // resultado vazio por falha de rede
}

// EmptyPage devolve uma página vazia bem formada
func EmptyPage[T any](page, limit int) Page[T] {
	if page < 1 {
		page = 1
	}
	return Page[T]{Data: []T{}, Page: page, Limit: limit}
}
