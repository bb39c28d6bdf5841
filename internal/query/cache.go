// Package query é a camada de cache das leituras do console: chaves por
// entidade, janela de frescor, stale-while-revalidate e invalidação por raiz.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/radieske/betops-admin/internal/apiclient"
	"github.com/radieske/betops-admin/internal/shared/logger"
)

// ErrNotReady: leitura pedida sem token de autenticação
var ErrNotReady = errors.New("query not ready: no auth token")

type Kind string

const (
	KindList    Kind = "list"
	KindDetail  Kind = "detail"
	KindOptions Kind = "options"
)

// Key identifica uma leitura: [entidade, tipo, parâmetros canônicos]
type Key struct {
	Entity string
	Kind   Kind
	Params string
}

func (k Key) String() string { return k.Entity + "|" + string(k.Kind) + "|" + k.Params }

type Status int

const (
	StatusNotReady Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "not_ready"
	}
}

// Result é o estado de uma leitura, como visto pela tela
type Result[T any] struct {
	Status    Status
	Data      T
	Err       error
	Stale     bool // valor servido enquanto revalida em background
	UpdatedAt time.Time
}

// Hooks recebem eventos para métricas; todos opcionais
type Hooks struct {
	OnHit        func(entity string)
	OnMiss       func(entity string)
	OnInvalidate func(entity string)
}

// InvalidationListener é chamado a cada invalidação; source = "local" | "remote" | "refresh"
type InvalidationListener func(entity, source string)

type entry struct {
	data        any
	hasData     bool
	updatedAt   time.Time
	invalidated bool
	refreshing  bool
	err         error
}

// Cache é o serviço de cache injetado nos handlers; não existe instância global
type Cache struct {
	mu         sync.Mutex
	entries    map[Key]*entry
	generation uint64
	epochs     map[string]uint64 // por raiz; sobe a cada invalidação
	listeners  []InvalidationListener

	group  singleflight.Group
	bg     sync.WaitGroup
	base   context.Context
	cancel context.CancelFunc

	tokens apiclient.TokenSource
	store  Store
	now    func() time.Time
	hooks  Hooks
	log    *zap.Logger
}

type Option func(*Cache)

func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }
func WithHooks(h Hooks) Option              { return func(c *Cache) { c.hooks = h } }

// WithStore liga um L2 compartilhado (ex.: Redis) entre réplicas
func WithStore(s Store) Option { return func(c *Cache) { c.store = s } }

func New(tokens apiclient.TokenSource, log *zap.Logger, opts ...Option) *Cache {
	c := &Cache{
		entries: map[Key]*entry{},
		epochs:  map[string]uint64{},
		tokens:  tokens,
		now:     time.Now,
		log:     logger.Nop(log),
	}
	c.base, c.cancel = context.WithCancel(context.Background())
	for _, o := range opts {
		o(c)
	}
	return c
}

// Init amarra os refetches em background ao ciclo de vida da aplicação
func (c *Cache) Init(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel()
	c.base, c.cancel = context.WithCancel(ctx)
}

// Clear descarta tudo (logout); resultados em voo de antes do Clear são ignorados
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = map[Key]*entry{}
	c.epochs = map[string]uint64{}
	c.generation++
	c.mu.Unlock()
	c.log.Info("query cache cleared")
}

// Close cancela refetches pendentes e espera terminarem
func (c *Cache) Close() {
	c.mu.Lock()
	c.cancel()
	c.mu.Unlock()
	c.bg.Wait()
}

// Wait bloqueia até os refetches em background terminarem
func (c *Cache) Wait() { c.bg.Wait() }

// OnInvalidate registra um listener de invalidação
func (c *Cache) OnInvalidate(fn InvalidationListener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

// Ready informa se há token para disparar leituras
func (c *Cache) Ready() bool {
	return c.tokens != nil && c.tokens.Token() != ""
}

// Invalidate marca como stale tudo sob a raiz da entidade (invalidação grossa)
func (c *Cache) Invalidate(entity string) int {
	return c.invalidate(entity, "local")
}

// InvalidateFrom é o mesmo que Invalidate, informando a origem aos listeners
func (c *Cache) InvalidateFrom(entity, source string) int {
	return c.invalidate(entity, source)
}

// InvalidateAll invalida todas as raízes conhecidas; o L2 é limpo por inteiro,
// inclusive raízes que esta réplica ainda não leu
func (c *Cache) InvalidateAll(source string) int {
	if c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := c.store.DeleteEntity(ctx, ""); err != nil {
			c.log.Warn("l2 flush failed", zap.Error(err))
		}
		cancel()
	}
	n := 0
	for _, e := range c.Entities() {
		n += c.invalidateRoot(e, source, false)
	}
	return n
}

// Entities lista as raízes já lidas (em cache ou em voo)
func (c *Cache) Entities() []string {
	c.mu.Lock()
	seen := map[string]struct{}{}
	for k := range c.entries {
		seen[k.Entity] = struct{}{}
	}
	for e := range c.epochs {
		seen[e] = struct{}{}
	}
	c.mu.Unlock()

	out := make([]string, 0, len(seen))
	for e := range seen {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

// IsStale diz se a próxima leitura da chave vai ao upstream
func (c *Cache) IsStale(key Key, staleTime time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.hasData {
		return true
	}
	return e.invalidated || c.now().Sub(e.updatedAt) >= staleTime
}

func (c *Cache) invalidate(entity, source string) int {
	return c.invalidateRoot(entity, source, true)
}

// invalidateRoot marca as entradas da raiz e avança a época; buscas iniciadas
// antes disso não gravam mais como frescas nem são reaproveitadas
func (c *Cache) invalidateRoot(entity, source string, l2 bool) int {
	c.mu.Lock()
	n := 0
	for k, e := range c.entries {
		if k.Entity == entity {
			e.invalidated = true
			n++
		}
	}
	c.epochs[entity]++
	listeners := append([]InvalidationListener(nil), c.listeners...)
	c.mu.Unlock()

	if l2 && c.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if err := c.store.DeleteEntity(ctx, entity); err != nil {
			c.log.Warn("l2 invalidation failed", zap.String("entity", entity), zap.Error(err))
		}
		cancel()
	}
	if c.hooks.OnInvalidate != nil {
		c.hooks.OnInvalidate(entity)
	}
	for _, fn := range listeners {
		fn(entity, source)
	}
	c.log.Debug("query cache invalidated", zap.String("entity", entity), zap.String("source", source), zap.Int("entries", n))
	return n
}

// markInvalid força a próxima leitura da chave a ir ao upstream
func (c *Cache) markInvalid(key Key) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		e.invalidated = true
	}
	c.mu.Unlock()
}

// Fetch resolve uma leitura pelo cache.
//   - sem token: NotReady, fetch nunca é chamado
//   - fresco: valor em cache
//   - vencido pelo tempo: valor em cache + refetch em background
//   - invalidado ou ausente: busca síncrona (deduplicada por chave)
func Fetch[T any](ctx context.Context, c *Cache, key Key, staleTime time.Duration, fetch func(context.Context) (T, error)) Result[T] {
	if !c.Ready() {
		return Result[T]{Status: StatusNotReady, Err: ErrNotReady}
	}

	c.mu.Lock()
	e := c.entries[key]
	gen := c.generation
	ep, seen := c.epochs[key.Entity]
	if !seen {
		c.epochs[key.Entity] = 0
	}
	var (
		cached    T
		have      bool
		fresh     bool
		updatedAt time.Time
		spawn     bool
		prev      T
		hasPrev   bool
	)
	if e != nil && e.hasData {
		prev, hasPrev = e.data.(T)
	}
	if e != nil && e.hasData && !e.invalidated {
		cached, have = e.data.(T)
		updatedAt = e.updatedAt
		fresh = c.now().Sub(e.updatedAt) < staleTime
		if have && !fresh && !e.refreshing {
			e.refreshing = true
			spawn = true
		}
	}
	base := c.base
	c.mu.Unlock()

	if have {
		c.hit(key.Entity)
		if !fresh {
			if spawn {
				c.bg.Add(1)
				go func() {
					defer c.bg.Done()
					if _, err := load(base, c, key, gen, ep, fetch); err != nil {
						c.log.Warn("background refetch failed", zap.String("key", key.String()), zap.Error(err))
					}
				}()
			}
			return Result[T]{Status: StatusSuccess, Data: cached, Stale: true, UpdatedAt: updatedAt}
		}
		return Result[T]{Status: StatusSuccess, Data: cached, UpdatedAt: updatedAt}
	}

	// L2 só é consultado em ausência real; invalidado sempre vai ao upstream
	if e == nil && c.store != nil {
		if v, ok := fromStore[T](ctx, c, key, gen, ep); ok {
			c.hit(key.Entity)
			return Result[T]{Status: StatusSuccess, Data: v, UpdatedAt: c.now()}
		}
	}

	c.miss(key.Entity)
	v, err := load(ctx, c, key, gen, ep, fetch)
	if err != nil {
		res := Result[T]{Status: StatusError, Err: err}
		if hasPrev {
			res.Data = prev
		}
		return res
	}
	return Result[T]{Status: StatusSuccess, Data: v, UpdatedAt: c.now()}
}

// load executa o fetch com deduplicação por chave, geração e época, e grava o resultado
func load[T any](ctx context.Context, c *Cache, key Key, gen, ep uint64, fetch func(context.Context) (T, error)) (T, error) {
	flight := key.String() + "#" + strconv.FormatUint(gen, 10) + "." + strconv.FormatUint(ep, 10)
	v, err, _ := c.group.Do(flight, func() (any, error) {
		v, err := fetch(ctx)
		stored := c.put(key, gen, ep, v, err)
		if stored && c.store != nil {
			if b, jerr := json.Marshal(v); jerr == nil {
				sctx, cancel := context.WithTimeout(context.Background(), time.Second)
				if serr := c.store.Set(sctx, key.String(), b); serr != nil {
					c.log.Warn("l2 set failed", zap.String("key", key.String()), zap.Error(serr))
				}
				cancel()
			}
		}
		return v, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// put grava no L1 se o cache não foi limpo nem a raiz invalidada desde o
// início da leitura; devolve se o valor foi gravado
func (c *Cache) put(key Key, gen, ep uint64, v any, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	e, ok := c.entries[key]
	if c.epochs[key.Entity] != ep {
		if ok {
			e.refreshing = false
		}
		return false
	}
	if !ok {
		e = &entry{}
		c.entries[key] = e
	}
	e.refreshing = false
	if err != nil {
		e.err = err
		return false
	}
	e.data = v
	e.hasData = true
	e.updatedAt = c.now()
	e.invalidated = false
	e.err = nil
	return true
}

func fromStore[T any](ctx context.Context, c *Cache, key Key, gen, ep uint64) (T, bool) {
	var zero T
	b, ok, err := c.store.Get(ctx, key.String())
	if err != nil {
		c.log.Warn("l2 get failed", zap.String("key", key.String()), zap.Error(err))
		return zero, false
	}
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return zero, false
	}
	if !c.put(key, gen, ep, v, nil) {
		return zero, false
	}
	return v, true
}

func (c *Cache) hit(entity string) {
	if c.hooks.OnHit != nil {
		c.hooks.OnHit(entity)
	}
}

func (c *Cache) miss(entity string) {
	if c.hooks.OnMiss != nil {
		c.hooks.OnMiss(entity)
	}
}
