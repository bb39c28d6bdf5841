package httpapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/radieske/betops-admin/internal/query"
	"github.com/radieske/betops-admin/internal/resources"
	"github.com/radieske/betops-admin/internal/resources/dto"
)

// Read é uma leitura já resolvida pelo cache
type Read struct {
	Data     any
	Stale    bool
	Degraded bool
}

// Endpoint é a visão sem tipo de um query.Entity[T], usada pelo roteador
type Endpoint interface {
	Name() string
	List(ctx context.Context, p resources.Params) (Read, error)
	Get(ctx context.Context, id string) (Read, error)
	All(ctx context.Context, p resources.Params) (any, error)
	Options(ctx context.Context, p resources.Params) (Read, error)
	Create(ctx context.Context, body []byte) (any, error)
	Update(ctx context.Context, id string, body []byte) (any, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string) (any, error)
}

type bound[T any] struct {
	e *query.Entity[T]
}

// Bind expõe uma entidade tipada ao roteador
func Bind[T any](e *query.Entity[T]) Endpoint { return bound[T]{e: e} }

func (b bound[T]) Name() string { return b.e.Name }

func (b bound[T]) List(ctx context.Context, p resources.Params) (Read, error) {
	res := b.e.List(ctx, p)
	if err := resultErr(res.Status, res.Err); err != nil {
		return Read{}, err
	}
	return Read{Data: res.Data, Stale: res.Stale, Degraded: res.Data.Degraded}, nil
}

func (b bound[T]) Get(ctx context.Context, id string) (Read, error) {
	res := b.e.Get(ctx, id)
	if err := resultErr(res.Status, res.Err); err != nil {
		return Read{}, err
	}
	return Read{Data: res.Data, Stale: res.Stale}, nil
}

func (b bound[T]) All(ctx context.Context, p resources.Params) (any, error) {
	res := b.e.All(ctx, p)
	if err := resultErr(res.Status, res.Err); err != nil {
		return nil, err
	}
	return res.Data, nil
}

func (b bound[T]) Options(ctx context.Context, p resources.Params) (Read, error) {
	res := b.e.Options(ctx, p)
	if err := resultErr(res.Status, res.Err); err != nil {
		return Read{}, err
	}
	return Read{Data: res.Data, Stale: res.Stale}, nil
}

func (b bound[T]) Create(ctx context.Context, body []byte) (any, error) {
	v, err := decode[T](body)
	if err != nil {
		return nil, err
	}
	return b.e.Create(ctx, v)
}

func (b bound[T]) Update(ctx context.Context, id string, body []byte) (any, error) {
	v, err := decode[T](body)
	if err != nil {
		return nil, err
	}
	return b.e.Update(ctx, id, v)
}

func (b bound[T]) Delete(ctx context.Context, id string) error { return b.e.Delete(ctx, id) }

func (b bound[T]) Toggle(ctx context.Context, id string) (any, error) {
	return b.e.ToggleStatus(ctx, id)
}

func decode[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, &dto.ValidationError{Fields: map[string]string{"body": fmt.Sprintf("invalid JSON: %v", err)}}
	}
	return v, nil
}

func resultErr(s query.Status, err error) error {
	switch s {
	case query.StatusNotReady:
		return query.ErrNotReady
	case query.StatusError:
		return err
	}
	return nil
}
