package resources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/radieske/betops-admin/internal/resources/dto"
)

// EnvelopeError indica uma resposta com formato não reconhecido
type EnvelopeError struct {
	Path   string
	Reason string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("unrecognized response envelope from %s: %s", e.Path, e.Reason)
}

type envelopeShape int

const (
	shapeUnknown envelopeShape = iota
	shapeData                  // {data: T[], totalItems, limit, page, ...}
	shapeNested                // {data: {data: T[], ...}}
	shapeItems                 // {items: T[], total}
	shapeArray                 // T[]
)

// paging reúne os campos de paginação em qualquer das grafias aceitas
type paging struct {
	total, limit, page, totalPages *int
	morePages                      *bool
}

func (p paging) empty() bool {
	return p.total == nil && p.limit == nil && p.page == nil && p.totalPages == nil && p.morePages == nil
}

// DecodePage normaliza qualquer formato aceito em dto.Page[T]
func DecodePage[T any](path string, raw json.RawMessage, p Params) (dto.Page[T], error) {
	shape, items, pg, err := classify(raw)
	if err != nil {
		return dto.Page[T]{}, &EnvelopeError{Path: path, Reason: err.Error()}
	}
	if shape == shapeUnknown {
		return dto.Page[T]{}, &EnvelopeError{Path: path, Reason: "no data/items array"}
	}

	data := []T{}
	if len(items) > 0 && !bytes.Equal(bytes.TrimSpace(items), []byte("null")) {
		if err := json.Unmarshal(items, &data); err != nil {
			return dto.Page[T]{}, &EnvelopeError{Path: path, Reason: err.Error()}
		}
	}

	return derive(data, pg, p), nil
}

// DecodeOne aceita {data: T} ou T puro
func DecodeOne[T any](path string, raw json.RawMessage) (T, error) {
	var out T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return out, &EnvelopeError{Path: path, Reason: "empty body"}
	}
	if trimmed[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return out, &EnvelopeError{Path: path, Reason: err.Error()}
		}
		if d, ok := obj["data"]; ok && len(bytes.TrimSpace(d)) > 0 && bytes.TrimSpace(d)[0] == '{' {
			trimmed = d
		}
	}
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return out, &EnvelopeError{Path: path, Reason: err.Error()}
	}
	return out, nil
}

func classify(raw json.RawMessage) (envelopeShape, json.RawMessage, paging, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return shapeUnknown, nil, paging{}, fmt.Errorf("empty body")
	}
	if trimmed[0] == '[' {
		return shapeArray, trimmed, paging{}, nil
	}
	if trimmed[0] != '{' {
		return shapeUnknown, nil, paging{}, fmt.Errorf("unexpected %q", trimmed[0])
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return shapeUnknown, nil, paging{}, err
	}

	if d, ok := obj["data"]; ok {
		d = bytes.TrimSpace(d)
		switch {
		case len(d) > 0 && d[0] == '[':
			return shapeData, d, readPaging(obj), nil
		case bytes.Equal(d, []byte("null")):
			return shapeData, nil, readPaging(obj), nil
		case len(d) > 0 && d[0] == '{':
			var inner map[string]json.RawMessage
			if err := json.Unmarshal(d, &inner); err != nil {
				return shapeUnknown, nil, paging{}, err
			}
			if arr, ok := inner["data"]; ok && isArray(arr) {
				pg := readPaging(inner)
				pg.fill(readPaging(obj))
				return shapeNested, arr, pg, nil
			}
			if arr, ok := inner["items"]; ok && isArray(arr) {
				return shapeNested, arr, readPaging(inner), nil
			}
		}
	}
	if arr, ok := obj["items"]; ok && isArray(arr) {
		return shapeItems, arr, readPaging(obj), nil
	}
	return shapeUnknown, nil, paging{}, nil
}

func isArray(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) > 0 && t[0] == '['
}

func readPaging(obj map[string]json.RawMessage) paging {
	return paging{
		total:      firstInt(obj, "totalItems", "total", "count"),
		limit:      firstInt(obj, "limit", "pageSize"),
		page:       firstInt(obj, "page", "pageNo"),
		totalPages: firstInt(obj, "totalPages"),
		morePages:  firstBool(obj, "morePages", "hasMore"),
	}
}

// fill completa campos ausentes com os de outro nível do envelope
func (p *paging) fill(o paging) {
	if p.total == nil {
		p.total = o.total
	}
	if p.limit == nil {
		p.limit = o.limit
	}
	if p.page == nil {
		p.page = o.page
	}
	if p.totalPages == nil {
		p.totalPages = o.totalPages
	}
	if p.morePages == nil {
		p.morePages = o.morePages
	}
}

func firstInt(obj map[string]json.RawMessage, keys ...string) *int {
	for _, k := range keys {
		raw, ok := obj[k]
		if !ok {
			continue
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			v := int(n)
			return &v
		}
		// alguns endpoints mandam números como string
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if v, err := strconv.Atoi(s); err == nil {
				return &v
			}
		}
	}
	return nil
}

func firstBool(obj map[string]json.RawMessage, keys ...string) *bool {
	for _, k := range keys {
		if raw, ok := obj[k]; ok {
			var b bool
			if err := json.Unmarshal(raw, &b); err == nil {
				return &b
			}
		}
	}
	return nil
}

// derive preenche a paginação ausente a partir dos dados e dos parâmetros pedidos
func derive[T any](data []T, pg paging, p Params) dto.Page[T] {
	// sem paginação e mais itens que o pedido: o endpoint ignorou pageSize e mandou tudo
	if pg.empty() && p.PageSize > 0 && len(data) > p.PageSize {
		return dto.Page[T]{Data: data, Page: 1, Limit: len(data), TotalItems: len(data), TotalPages: 1}
	}

	out := dto.Page[T]{Data: data}

	out.Page = 1
	if p.PageNo > 0 {
		out.Page = p.PageNo
	}
	if pg.page != nil && *pg.page > 0 {
		out.Page = *pg.page
	}

	out.Limit = len(data)
	if p.PageSize > 0 {
		out.Limit = p.PageSize
	}
	if pg.limit != nil && *pg.limit > 0 {
		out.Limit = *pg.limit
	}

	switch {
	case pg.total != nil:
		out.TotalItems = *pg.total
	case pg.totalPages != nil && out.Limit > 0 && out.Page >= *pg.totalPages:
		out.TotalItems = (out.Page-1)*out.Limit + len(data)
	default:
		out.TotalItems = (out.Page-1)*out.Limit + len(data)
		if pg.morePages != nil && *pg.morePages {
			// total real desconhecido; garante ao menos mais uma página
			out.TotalItems = out.Page*out.Limit + 1
		}
	}

	if pg.totalPages != nil {
		out.TotalPages = *pg.totalPages
	} else if out.Limit > 0 {
		out.TotalPages = int(math.Ceil(float64(out.TotalItems) / float64(out.Limit)))
	}

	if pg.morePages != nil {
		out.MorePages = *pg.morePages
	} else {
		out.MorePages = out.Page < out.TotalPages
	}
	return out
}
