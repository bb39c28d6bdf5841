package resources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/radieske/betops-admin/internal/apiclient"
	"github.com/radieske/betops-admin/internal/resources/dto"
	"github.com/radieske/betops-admin/internal/shared/logger"
)

var (
	// ErrUnsupported é devolvido por operações que o endpoint não oferece
	ErrUnsupported = errors.New("operation not supported by resource")
	// ErrDegraded indica que uma listagem completa foi interrompida por falha de rede
	ErrDegraded = errors.New("upstream unreachable, result incomplete")
	// ErrTooManyPages indica que All passou de MaxPages sem o servidor encerrar a paginação
	ErrTooManyPages = errors.New("pagination did not terminate")
)

// Requester é o subconjunto do apiclient usado pelos recursos
type Requester interface {
	Do(ctx context.Context, method, path string, body any, opts *apiclient.Options) ([]byte, error)
}

// clientAdapter adapta *apiclient.Client (json.RawMessage) ao Requester
type clientAdapter struct{ c *apiclient.Client }

func (a clientAdapter) Do(ctx context.Context, method, path string, body any, opts *apiclient.Options) ([]byte, error) {
	return a.c.Do(ctx, method, path, body, opts)
}

// Reader implementa list/getById sobre um endpoint REST
type Reader[T any] struct {
	Name        string // nome da entidade (raiz da chave de cache)
	Path        string
	SearchParam string // "search" ou "searchQuery"
	http        Requester
	log         *zap.Logger
}

func newReader[T any](c *apiclient.Client, name, path string, log *zap.Logger) Reader[T] {
	return Reader[T]{Name: name, Path: path, SearchParam: "search", http: clientAdapter{c}, log: logger.Nop(log)}
}

// List devolve uma página normalizada.
// Falha de rede vira página vazia com Degraded=true; erros da API e envelopes
// desconhecidos sobem para o chamador.
func (r Reader[T]) List(ctx context.Context, p Params) (dto.Page[T], error) {
	raw, err := r.http.Do(ctx, http.MethodGet, r.Path, nil, &apiclient.Options{Query: p.Query(r.SearchParam)})
	if err != nil {
		if apiclient.IsNetwork(err) {
			r.log.Warn("list degraded to empty result",
				zap.String("entity", r.Name),
				zap.Error(err),
			)
			page := dto.EmptyPage[T](p.PageNo, p.PageSize)
			page.Degraded = true
			return page, nil
		}
		return dto.Page[T]{}, fmt.Errorf("list %s: %w", r.Name, err)
	}
	return DecodePage[T](r.Path, raw, p)
}

// MaxPages limita a varredura de All
const MaxPages = 200

// All percorre todas as páginas; usado pelas listas de referência e exportação
func (r Reader[T]) All(ctx context.Context, p Params) ([]T, error) {
	if p.PageSize <= 0 {
		p.PageSize = 500
	}
	out := []T{}
	for page := 1; page <= MaxPages; page++ {
		p.PageNo = page
		pg, err := r.List(ctx, p)
		if err != nil {
			return nil, err
		}
		if pg.Degraded {
			return out, ErrDegraded
		}
		out = append(out, pg.Data...)
		// página incompleta encerra mesmo que o servidor diga o contrário
		if !pg.MorePages || len(pg.Data) == 0 || (pg.Limit > 0 && len(pg.Data) < pg.Limit) {
			return out, nil
		}
	}
	return nil, fmt.Errorf("list all %s: %w", r.Name, ErrTooManyPages)
}

func (r Reader[T]) GetByID(ctx context.Context, id string) (T, error) {
	var zero T
	if strings.TrimSpace(id) == "" {
		return zero, &dto.ValidationError{Fields: map[string]string{"id": "is required"}}
	}
	raw, err := r.http.Do(ctx, http.MethodGet, r.itemPath(id), nil, nil)
	if err != nil {
		return zero, fmt.Errorf("get %s %s: %w", r.Name, id, err)
	}
	return DecodeOne[T](r.itemPath(id), raw)
}

func (r Reader[T]) itemPath(id string) string {
	return strings.TrimRight(r.Path, "/") + "/" + url.PathEscape(id)
}

// Resource adiciona as mutações ao Reader
type Resource[T any] struct {
	Reader[T]
	Toggle bool // expõe PATCH {id}/toggle-status
}

func newResource[T any](c *apiclient.Client, name, path string, log *zap.Logger, toggle bool) *Resource[T] {
	return &Resource[T]{Reader: newReader[T](c, name, path, log), Toggle: toggle}
}

// Create valida localmente antes de qualquer chamada de rede
func (r *Resource[T]) Create(ctx context.Context, v T) (T, error) {
	if err := validate(v); err != nil {
		return v, err
	}
	raw, err := r.http.Do(ctx, http.MethodPost, r.Path, v, nil)
	if err != nil {
		return v, fmt.Errorf("create %s: %w", r.Name, err)
	}
	return r.echo(raw, v)
}

func (r *Resource[T]) Update(ctx context.Context, id string, v T) (T, error) {
	if strings.TrimSpace(id) == "" {
		return v, &dto.ValidationError{Fields: map[string]string{"id": "is required"}}
	}
	if err := validate(v); err != nil {
		return v, err
	}
	raw, err := r.http.Do(ctx, http.MethodPut, r.itemPath(id), v, nil)
	if err != nil {
		return v, fmt.Errorf("update %s %s: %w", r.Name, id, err)
	}
	return r.echo(raw, v)
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return &dto.ValidationError{Fields: map[string]string{"id": "is required"}}
	}
	if _, err := r.http.Do(ctx, http.MethodDelete, r.itemPath(id), nil, nil); err != nil {
		return fmt.Errorf("delete %s %s: %w", r.Name, id, err)
	}
	return nil
}

// ToggleStatus alterna isActive no servidor e devolve a entidade atualizada
func (r *Resource[T]) ToggleStatus(ctx context.Context, id string) (T, error) {
	var zero T
	if !r.Toggle {
		return zero, ErrUnsupported
	}
	if strings.TrimSpace(id) == "" {
		return zero, &dto.ValidationError{Fields: map[string]string{"id": "is required"}}
	}
	path := r.itemPath(id) + "/toggle-status"
	raw, err := r.http.Do(ctx, http.MethodPatch, path, nil, nil)
	if err != nil {
		return zero, fmt.Errorf("toggle %s %s: %w", r.Name, id, err)
	}
	return r.echo(raw, zero)
}

// echo decodifica a entidade devolvida; corpo vazio devolve o que foi enviado
func (r *Resource[T]) echo(raw []byte, sent T) (T, error) {
	if len(raw) == 0 {
		return sent, nil
	}
	return DecodeOne[T](r.Path, raw)
}

func validate(v any) error {
	if val, ok := v.(interface{ Validate() error }); ok {
		return val.Validate()
	}
	return nil
}
