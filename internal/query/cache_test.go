package query

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/radieske/betops-admin/internal/apiclient"
	"github.com/radieske/betops-admin/internal/resources"
	"github.com/radieske/betops-admin/internal/resources/dto"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

// fakeBrands implementa Source e Mutator contando as chamadas
type fakeBrands struct {
	lists     int32
	createErr error
	items     []dto.Brand
}

func (f *fakeBrands) List(_ context.Context, p resources.Params) (dto.Page[dto.Brand], error) {
	atomic.AddInt32(&f.lists, 1)
	return dto.Page[dto.Brand]{Data: f.items, TotalItems: len(f.items), Page: 1, Limit: 10, TotalPages: 1}, nil
}

func (f *fakeBrands) All(ctx context.Context, p resources.Params) ([]dto.Brand, error) {
	pg, err := f.List(ctx, p)
	return pg.Data, err
}

func (f *fakeBrands) GetByID(_ context.Context, id string) (dto.Brand, error) {
	return dto.Brand{ID: id}, nil
}

func (f *fakeBrands) Create(_ context.Context, b dto.Brand) (dto.Brand, error) {
	if f.createErr != nil {
		return b, f.createErr
	}
	f.items = append(f.items, b)
	return b, nil
}

func (f *fakeBrands) Update(_ context.Context, _ string, b dto.Brand) (dto.Brand, error) {
	return b, nil
}
func (f *fakeBrands) Delete(context.Context, string) error { return nil }
func (f *fakeBrands) ToggleStatus(_ context.Context, id string) (dto.Brand, error) {
	return dto.Brand{ID: id}, nil
}

func brandLabel(b dto.Brand) dto.Option { return dto.Option{Value: b.ID, Label: b.Name} }

func newBrandsEntity(t *testing.T, token string, src *fakeBrands, opts ...Option) (*Cache, *Entity[dto.Brand]) {
	t.Helper()
	c := New(apiclient.NewTokenStore(token), nil, opts...)
	t.Cleanup(c.Close)
	return c, NewEntity[dto.Brand](c, resources.EntityBrands, src, src, brandLabel)
}

func TestNoTokenResolvesNotReady(t *testing.T) {
	src := &fakeBrands{}
	_, e := newBrandsEntity(t, "", src)

	res := e.List(context.Background(), resources.Params{PageNo: 1})
	if res.Status != StatusNotReady {
		t.Fatalf("want not_ready, got %s", res.Status)
	}
	if !errors.Is(res.Err, ErrNotReady) {
		t.Fatalf("want ErrNotReady, got %v", res.Err)
	}
	if src.lists != 0 {
		t.Fatalf("fetch must not run without a token, ran %d times", src.lists)
	}
}

func TestCreateInvalidatesAndRefetchesOnce(t *testing.T) {
	src := &fakeBrands{}
	c, e := newBrandsEntity(t, "tok", src)
	ctx := context.Background()
	p := resources.Params{PageNo: 1, PageSize: 10}

	e.List(ctx, p)
	e.List(ctx, p)
	if src.lists != 1 {
		t.Fatalf("second read should be served from cache, got %d fetches", src.lists)
	}

	if _, err := e.Create(ctx, dto.Brand{Name: "Lucky", PlatformID: "p1", OperatorID: "o1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !c.IsStale(e.ListKey(p), time.Hour) {
		t.Fatalf("list must be stale after create")
	}

	res := e.List(ctx, p)
	if src.lists != 2 {
		t.Fatalf("want exactly one refetch after create, got %d fetches", src.lists)
	}
	if res.Stale || len(res.Data.Data) != 1 {
		t.Fatalf("read after create must observe the new brand: %+v", res)
	}

	e.List(ctx, p)
	if src.lists != 2 {
		t.Fatalf("refetched entry should be fresh again, got %d fetches", src.lists)
	}
}

func TestFailedMutationInvalidatesNothing(t *testing.T) {
	src := &fakeBrands{createErr: &apiclient.APIError{Status: http.StatusConflict, Message: "brand name already used"}}
	c, e := newBrandsEntity(t, "tok", src)
	ctx := context.Background()

	var invalidations int
	c.OnInvalidate(func(string, string) { invalidations++ })

	var got []Notification
	e.Notifier = NotifierFunc(func(n Notification) { got = append(got, n) })

	e.List(ctx, resources.Params{})
	if _, err := e.Create(ctx, dto.Brand{Name: "Dup", PlatformID: "p1", OperatorID: "o1"}); err == nil {
		t.Fatalf("want error")
	}
	if invalidations != 0 {
		t.Fatalf("failed mutation must not invalidate, got %d", invalidations)
	}
	e.List(ctx, resources.Params{})
	if src.lists != 1 {
		t.Fatalf("no refetch expected after a failed mutation, got %d fetches", src.lists)
	}
	if len(got) != 1 || got[0].Level != "error" || got[0].Message != "brand name already used" {
		t.Fatalf("unexpected notifications %+v", got)
	}
}

func TestFailureMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{&apiclient.APIError{Status: 400, Message: "alias taken"}, "alias taken"},
		{&apiclient.NetworkError{Op: "POST /games", Err: errors.New("refused")}, GenericFailure},
		{&dto.ValidationError{Fields: map[string]string{"name": "is required"}}, "validation failed: name: is required"},
	}
	for _, tc := range cases {
		if got := FailureMessage(tc.err); got != tc.want {
			t.Fatalf("FailureMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestRelatedRootsInvalidated(t *testing.T) {
	src := &fakeBrands{}
	c, e := newBrandsEntity(t, "tok", src)
	e.Related = []string{resources.EntityOperatorGames}

	var roots []string
	c.OnInvalidate(func(entity, _ string) { roots = append(roots, entity) })

	if _, err := e.ToggleStatus(context.Background(), "b1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if len(roots) != 2 || roots[0] != resources.EntityBrands || roots[1] != resources.EntityOperatorGames {
		t.Fatalf("unexpected invalidated roots %v", roots)
	}
}

func TestStaleWhileRevalidate(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := New(apiclient.NewTokenStore("tok"), nil, WithClock(clock.Now))
	defer c.Close()

	var calls int32
	fetch := func(context.Context) (int, error) { return int(atomic.AddInt32(&calls, 1)), nil }
	key := Key{Entity: "games", Kind: KindList}
	ctx := context.Background()

	if r := Fetch(ctx, c, key, time.Minute, fetch); r.Data != 1 || r.Stale {
		t.Fatalf("first read: %+v", r)
	}

	clock.Advance(2 * time.Minute)
	r := Fetch(ctx, c, key, time.Minute, fetch)
	if r.Data != 1 || !r.Stale {
		t.Fatalf("stale read should return cached value immediately: %+v", r)
	}
	c.Wait()

	r = Fetch(ctx, c, key, time.Minute, fetch)
	if r.Data != 2 || r.Stale {
		t.Fatalf("after background refetch: %+v", r)
	}
	if calls != 2 {
		t.Fatalf("want 2 fetches, got %d", calls)
	}
}

func TestConcurrentFetchesDeduplicated(t *testing.T) {
	c := New(apiclient.NewTokenStore("tok"), nil)
	defer c.Close()

	release := make(chan struct{})
	var calls int32
	fetch := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "ok", nil
	}
	key := Key{Entity: "platforms", Kind: KindOptions}

	var wg sync.WaitGroup
	results := make([]Result[string], 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Fetch(context.Background(), c, key, time.Minute, fetch)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("want one upstream call, got %d", calls)
	}
	for _, r := range results {
		if r.Status != StatusSuccess || r.Data != "ok" {
			t.Fatalf("unexpected result %+v", r)
		}
	}
}

func TestFailedReadKeepsCachedValue(t *testing.T) {
	c := New(apiclient.NewTokenStore("tok"), nil)
	defer c.Close()
	key := Key{Entity: "users", Kind: KindDetail, Params: "u1"}
	ctx := context.Background()

	Fetch(ctx, c, key, time.Minute, func(context.Context) (string, error) { return "alice", nil })
	c.Invalidate("users")

	boom := errors.New("boom")
	r := Fetch(ctx, c, key, time.Minute, func(context.Context) (string, error) { return "", boom })
	if r.Status != StatusError || !errors.Is(r.Err, boom) || r.Data != "alice" {
		t.Fatalf("unexpected result %+v", r)
	}
}

func TestClearDropsEntries(t *testing.T) {
	c := New(apiclient.NewTokenStore("tok"), nil)
	defer c.Close()
	key := Key{Entity: "games", Kind: KindList}
	ctx := context.Background()

	var calls int
	fetch := func(context.Context) (int, error) { calls++; return calls, nil }
	Fetch(ctx, c, key, time.Hour, fetch)
	c.Clear()
	if len(c.Entities()) != 0 {
		t.Fatalf("clear must drop every root")
	}
	if r := Fetch(ctx, c, key, time.Hour, fetch); r.Data != 2 {
		t.Fatalf("read after clear must refetch, got %+v", r)
	}
}

func TestOptionsProjection(t *testing.T) {
	src := &fakeBrands{items: []dto.Brand{{ID: "b1", Name: "Alpha"}, {ID: "b2", Name: "Beta"}}}
	_, e := newBrandsEntity(t, "tok", src)

	r := e.Options(context.Background(), resources.Params{})
	if r.Status != StatusSuccess || len(r.Data) != 2 || r.Data[1] != (dto.Option{Value: "b2", Label: "Beta"}) {
		t.Fatalf("unexpected options %+v", r)
	}
}

func TestDegradedPageNotKeptFresh(t *testing.T) {
	c := New(apiclient.NewTokenStore("tok"), nil)
	defer c.Close()
	src := &degradedOnce{}
	e := NewEntity[dto.Brand](c, "brands", src, nil, nil)

	if r := e.List(context.Background(), resources.Params{}); !r.Data.Degraded {
		t.Fatalf("want degraded page first")
	}
	if r := e.List(context.Background(), resources.Params{}); r.Data.Degraded || src.calls != 2 {
		t.Fatalf("degraded page must be refetched: %+v calls=%d", r, src.calls)
	}
}

type degradedOnce struct {
	fakeBrands
	calls int
}

func (d *degradedOnce) List(context.Context, resources.Params) (dto.Page[dto.Brand], error) {
	d.calls++
	pg := dto.EmptyPage[dto.Brand](1, 10)
	pg.Degraded = d.calls == 1
	return pg, nil
}

func TestReadOnlyEntityRejectsMutations(t *testing.T) {
	c := New(apiclient.NewTokenStore("tok"), nil)
	defer c.Close()
	e := NewEntity[dto.Brand](c, "brands", &fakeBrands{}, nil, nil)
	if err := e.Delete(context.Background(), "b1"); !errors.Is(err, resources.ErrUnsupported) {
		t.Fatalf("want ErrUnsupported, got %v", err)
	}
}

func TestManagerRefreshAll(t *testing.T) {
	c := New(apiclient.NewTokenStore("tok"), nil)
	defer c.Close()
	ctx := context.Background()
	for _, ent := range []string{"games", "users"} {
		Fetch(ctx, c, Key{Entity: ent, Kind: KindList}, time.Hour, func(context.Context) (int, error) { return 1, nil })
	}
	var sources []string
	c.OnInvalidate(func(_, source string) { sources = append(sources, source) })

	m := NewManager(c, nil)
	if n := m.OnFocus(); n != 2 {
		t.Fatalf("want 2 invalidated entries, got %d", n)
	}
	if len(sources) != 2 || sources[0] != "refresh" {
		t.Fatalf("unexpected listener sources %v", sources)
	}
	if !c.IsStale(Key{Entity: "games", Kind: KindList}, time.Hour) {
		t.Fatalf("games list must be stale after refresh")
	}
}

// versioned simula o upstream: o valor lido no início da busca é o devolvido,
// e a chamada de número blockOn espera release
type versioned struct {
	mu      sync.Mutex
	value   string
	calls   int32
	blockOn int32
	started chan struct{}
	release chan struct{}
}

func newVersioned(value string, blockOn int32) *versioned {
	return &versioned{value: value, blockOn: blockOn, started: make(chan struct{}), release: make(chan struct{})}
}

func (v *versioned) set(value string) {
	v.mu.Lock()
	v.value = value
	v.mu.Unlock()
}

func (v *versioned) fetch(context.Context) (string, error) {
	n := atomic.AddInt32(&v.calls, 1)
	v.mu.Lock()
	val := v.value
	v.mu.Unlock()
	if n == v.blockOn {
		close(v.started)
		<-v.release
	}
	return val, nil
}

func TestInFlightFetchDoesNotOverwriteInvalidation(t *testing.T) {
	c := New(apiclient.NewTokenStore("tok"), nil)
	defer c.Close()
	key := Key{Entity: "brands", Kind: KindList}
	ctx := context.Background()
	up := newVersioned("v1", 1)

	done := make(chan Result[string])
	go func() { done <- Fetch(ctx, c, key, time.Hour, up.fetch) }()
	<-up.started

	c.Invalidate("brands")
	up.set("v2")
	close(up.release)
	<-done

	r := Fetch(ctx, c, key, time.Hour, up.fetch)
	if r.Data != "v2" {
		t.Fatalf("read after invalidation must see v2, got %+v", r)
	}
	if r = Fetch(ctx, c, key, time.Hour, up.fetch); r.Data != "v2" || up.calls != 2 {
		t.Fatalf("want cached v2 after 2 calls, got %+v calls=%d", r, up.calls)
	}
}

func TestInvalidatedReadSkipsOlderBackgroundFlight(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	c := New(apiclient.NewTokenStore("tok"), nil, WithClock(clock.Now))
	defer c.Close()
	key := Key{Entity: "brands", Kind: KindList}
	ctx := context.Background()
	up := newVersioned("v1", 2)

	Fetch(ctx, c, key, time.Minute, up.fetch)
	clock.Advance(2 * time.Minute)
	if r := Fetch(ctx, c, key, time.Minute, up.fetch); !r.Stale {
		t.Fatalf("want stale read with background refetch, got %+v", r)
	}
	<-up.started

	c.Invalidate("brands")
	up.set("v2")
	r := Fetch(ctx, c, key, time.Minute, up.fetch)
	if r.Data != "v2" || up.calls != 3 {
		t.Fatalf("want fresh v2 from a new call, got %+v calls=%d", r, up.calls)
	}

	close(up.release)
	c.Wait()
	if r = Fetch(ctx, c, key, time.Minute, up.fetch); r.Data != "v2" || r.Stale {
		t.Fatalf("older background result must not replace v2, got %+v", r)
	}
}

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	deletes []string
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[key]
	return b, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = val
	return nil
}

func (m *memStore) DeleteEntity(_ context.Context, entity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, entity)
	for k := range m.data {
		if entity == "" || strings.HasPrefix(k, entity+"|") {
			delete(m.data, k)
		}
	}
	return nil
}

func TestRefreshAllFlushesWholeStore(t *testing.T) {
	store := &memStore{data: map[string][]byte{
		Key{Entity: "games", Kind: KindList}.String(): []byte(`1`),
	}}
	c := New(apiclient.NewTokenStore("tok"), nil, WithStore(store))
	defer c.Close()

	NewManager(c, nil).RefreshAll("manual")

	if len(store.deletes) != 1 || store.deletes[0] != "" {
		t.Fatalf("want one full flush, got %q", store.deletes)
	}
	var calls int
	r := Fetch(context.Background(), c, Key{Entity: "games", Kind: KindList}, time.Hour, func(context.Context) (int, error) {
		calls++
		return 2, nil
	})
	if r.Data != 2 || calls != 1 {
		t.Fatalf("replica must not serve a flushed L2 value, got %+v calls=%d", r, calls)
	}
}

func TestReferenceUsesOptionsWindow(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	src := &fakeBrands{items: []dto.Brand{{ID: "b1"}}}
	_, e := newBrandsEntity(t, "tok", src, WithClock(clock.Now))
	ctx := context.Background()

	e.Reference(ctx, resources.Params{})
	e.All(ctx, resources.Params{})
	clock.Advance(3 * time.Minute)

	if r := e.Reference(ctx, resources.Params{}); !r.Stale {
		t.Fatalf("reference lists must expire with the options window: %+v", r)
	}
	if r := e.All(ctx, resources.Params{}); r.Stale {
		t.Fatalf("full list is still inside the list window: %+v", r)
	}
}
