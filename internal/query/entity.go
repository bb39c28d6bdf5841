package query

import (
	"context"
	"time"

	"github.com/radieske/betops-admin/internal/resources"
	"github.com/radieske/betops-admin/internal/resources/dto"
)

// Source é o lado de leitura de um recurso
type Source[T any] interface {
	List(ctx context.Context, p resources.Params) (dto.Page[T], error)
	All(ctx context.Context, p resources.Params) ([]T, error)
	GetByID(ctx context.Context, id string) (T, error)
}

// Mutator é o lado de escrita de um recurso
type Mutator[T any] interface {
	Create(ctx context.Context, v T) (T, error)
	Update(ctx context.Context, id string, v T) (T, error)
	Delete(ctx context.Context, id string) error
	ToggleStatus(ctx context.Context, id string) (T, error)
}

// Freshness define as janelas de frescor por tipo de leitura
type Freshness struct {
	List    time.Duration
	Detail  time.Duration
	Options time.Duration
}

// DefaultFreshness: options mudam mais, então vencem antes
var DefaultFreshness = Freshness{List: 5 * time.Minute, Detail: 5 * time.Minute, Options: 2 * time.Minute}

// Entity junta cache + recurso: são os "hooks" de leitura e mutação de uma entidade
type Entity[T any] struct {
	Name     string
	Related  []string
	Fresh    Freshness
	Label    func(T) dto.Option // projeção para selects
	Notifier Notifier
	cache    *Cache
	source   Source[T]
	mutator  Mutator[T] // nil = somente leitura
}

// NewEntity monta os hooks; mutator pode ser nil
func NewEntity[T any](c *Cache, name string, src Source[T], mut Mutator[T], label func(T) dto.Option) *Entity[T] {
	return &Entity[T]{Name: name, Fresh: DefaultFreshness, Label: label, cache: c, source: src, mutator: mut}
}

func (e *Entity[T]) ListKey(p resources.Params) Key {
	return Key{Entity: e.Name, Kind: KindList, Params: p.Key()}
}

func (e *Entity[T]) DetailKey(id string) Key {
	return Key{Entity: e.Name, Kind: KindDetail, Params: id}
}

func (e *Entity[T]) OptionsKey(p resources.Params) Key {
	return Key{Entity: e.Name, Kind: KindOptions, Params: p.Key()}
}

// List lê uma página via cache; página degradada não fica como fresca
func (e *Entity[T]) List(ctx context.Context, p resources.Params) Result[dto.Page[T]] {
	key := e.ListKey(p)
	res := Fetch(ctx, e.cache, key, e.Fresh.List, func(ctx context.Context) (dto.Page[T], error) {
		return e.source.List(ctx, p)
	})
	if res.Status == StatusSuccess && res.Data.Degraded {
		e.cache.markInvalid(key)
	}
	return res
}

func (e *Entity[T]) Get(ctx context.Context, id string) Result[T] {
	return Fetch(ctx, e.cache, e.DetailKey(id), e.Fresh.Detail, func(ctx context.Context) (T, error) {
		return e.source.GetByID(ctx, id)
	})
}

// All lê a lista completa (todas as páginas) via cache
func (e *Entity[T]) All(ctx context.Context, p resources.Params) Result[[]T] {
	key := Key{Entity: e.Name, Kind: KindList, Params: "all:" + p.Key()}
	return Fetch(ctx, e.cache, key, e.Fresh.List, func(ctx context.Context) ([]T, error) {
		return e.source.All(ctx, p)
	})
}

// Reference lê a lista completa com a janela de options; alimenta os selects do cascade
func (e *Entity[T]) Reference(ctx context.Context, p resources.Params) Result[[]T] {
	key := Key{Entity: e.Name, Kind: KindOptions, Params: "ref:" + p.Key()}
	return Fetch(ctx, e.cache, key, e.Fresh.Options, func(ctx context.Context) ([]T, error) {
		return e.source.All(ctx, p)
	})
}

// Options projeta a lista completa em value/label
func (e *Entity[T]) Options(ctx context.Context, p resources.Params) Result[[]dto.Option] {
	if e.Label == nil {
		return Result[[]dto.Option]{Status: StatusError, Err: resources.ErrUnsupported}
	}
	return Fetch(ctx, e.cache, e.OptionsKey(p), e.Fresh.Options, func(ctx context.Context) ([]dto.Option, error) {
		all, err := e.source.All(ctx, p)
		if err != nil {
			return nil, err
		}
		out := make([]dto.Option, 0, len(all))
		for _, v := range all {
			out = append(out, e.Label(v))
		}
		return out, nil
	})
}

func (e *Entity[T]) mutation(action, success string) MutationSpec {
	return MutationSpec{Entity: e.Name, Action: action, Related: e.Related, Notifier: e.Notifier, Success: success}
}

func (e *Entity[T]) Create(ctx context.Context, v T) (T, error) {
	if e.mutator == nil {
		return v, resources.ErrUnsupported
	}
	return Mutate(ctx, e.cache, e.mutation("create", "Created successfully"), func(ctx context.Context) (T, error) {
		return e.mutator.Create(ctx, v)
	})
}

func (e *Entity[T]) Update(ctx context.Context, id string, v T) (T, error) {
	if e.mutator == nil {
		return v, resources.ErrUnsupported
	}
	return Mutate(ctx, e.cache, e.mutation("update", "Updated successfully"), func(ctx context.Context) (T, error) {
		return e.mutator.Update(ctx, id, v)
	})
}

func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if e.mutator == nil {
		return resources.ErrUnsupported
	}
	_, err := Mutate(ctx, e.cache, e.mutation("delete", "Deleted successfully"), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.mutator.Delete(ctx, id)
	})
	return err
}

func (e *Entity[T]) ToggleStatus(ctx context.Context, id string) (T, error) {
	if e.mutator == nil {
		var zero T
		return zero, resources.ErrUnsupported
	}
	return Mutate(ctx, e.cache, e.mutation("toggle", "Status updated"), func(ctx context.Context) (T, error) {
		return e.mutator.ToggleStatus(ctx, id)
	})
}
