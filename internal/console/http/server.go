package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/betops-admin/internal/cascade"
	"github.com/radieske/betops-admin/internal/console/ws"
	"github.com/radieske/betops-admin/internal/export"
	"github.com/radieske/betops-admin/internal/query"
	"github.com/radieske/betops-admin/internal/resources"
	"github.com/radieske/betops-admin/internal/resources/dto"
	"github.com/radieske/betops-admin/internal/shared/logger"
)

const maxBody = 1 << 20

// Hierarchy são as entidades de referência do cascade
type Hierarchy struct {
	Platforms *query.Entity[dto.Platform]
	Operators *query.Entity[dto.Operator]
	Brands    *query.Entity[dto.Brand]
	Users     *query.Entity[dto.User] // opcional; usado para o escopo do usuário
}

// ReportSource são os relatórios agregados
type ReportSource interface {
	Dashboard(ctx context.Context, p resources.Params) (dto.DashboardStats, error)
	ByGame(ctx context.Context, p resources.Params) (dto.Page[dto.Summary], error)
}

// RoundSource é o drill-down de transações por rodada
type RoundSource interface {
	ByRound(ctx context.Context, roundID string) ([]dto.Transaction, error)
}

// Session é o token da sessão do console (apiclient.TokenStore)
type Session interface {
	Set(token string)
	Clear()
}

// API expõe o console aos dashboards
type API struct {
	Log       *zap.Logger
	Cache     *query.Cache
	Manager   *query.Manager
	Endpoints map[string]Endpoint
	Hierarchy Hierarchy
	Reports   ReportSource
	Rounds    RoundSource
	Exporter  *export.Exporter
	Hub       *ws.Hub
	Session   Session

	ReportStaleTime time.Duration
}

// Register adiciona endpoints pelo nome da entidade
func (a *API) Register(eps ...Endpoint) {
	if a.Endpoints == nil {
		a.Endpoints = map[string]Endpoint{}
	}
	for _, e := range eps {
		a.Endpoints[e.Name()] = e
	}
}

// Router retorna o roteador HTTP com os endpoints do console
func (a *API) Router() http.Handler {
	a.Log = logger.Nop(a.Log)
	r := chi.NewRouter()

	r.Get("/v1/options/cascade", a.cascadeOptions)
	r.Get("/v1/reports/dashboard", a.dashboard)
	r.Get("/v1/reports/summaries", a.summaries)
	r.Get("/v1/reports/summaries/games", a.summariesByGame)
	r.Get("/v1/reports/transactions", a.transactions)
	r.Get("/v1/reports/transactions/round/{roundId}", a.transactionsByRound)
	r.Post("/v1/cache/refresh", a.refresh)
	r.Get("/v1/exports/audit", a.exportHistory)
	if a.Session != nil {
		r.Post("/v1/session", a.login)
		r.Delete("/v1/session", a.logout)
	}
	if a.Hub != nil {
		r.Get("/ws", a.Hub.HandleWS)
	}

	r.Route("/v1/{entity}", func(r chi.Router) {
		r.Get("/", a.list)
		r.Post("/", a.create)
		r.Get("/export", a.exportCSV)
		r.Get("/options", a.options)
		r.Get("/{id}", a.get)
		r.Put("/{id}", a.update)
		r.Delete("/{id}", a.remove)
		r.Patch("/{id}/status", a.toggle)
	})
	return r
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) endpoint(r *http.Request) (Endpoint, error) {
	name := chi.URLParam(r, "entity")
	e, ok := a.Endpoints[name]
	if !ok {
		return nil, errUnknownEntity
	}
	return e, nil
}

func readHeaders(w http.ResponseWriter, rd Read) {
	if rd.Stale {
		w.Header().Set("X-Cache", "stale")
	} else {
		w.Header().Set("X-Cache", "fresh")
	}
	if rd.Degraded {
		w.Header().Set("X-Result-Degraded", "true")
	}
}

func (a *API) list(w http.ResponseWriter, r *http.Request) {
	e, err := a.endpoint(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rd, err := e.List(r.Context(), parseParams(r.URL.Query()))
	if err != nil {
		writeError(w, err)
		return
	}
	readHeaders(w, rd)
	writeJSON(w, http.StatusOK, rd.Data)
}

// options devolve value/label da entidade, com a janela curta de options
func (a *API) options(w http.ResponseWriter, r *http.Request) {
	e, err := a.endpoint(r)
	if err != nil {
		writeError(w, err)
		return
	}
	p := parseParams(r.URL.Query())
	p.PageNo, p.PageSize = 0, 0
	rd, err := e.Options(r.Context(), p)
	if err != nil {
		writeError(w, err)
		return
	}
	readHeaders(w, rd)
	writeJSON(w, http.StatusOK, rd.Data)
}

func (a *API) get(w http.ResponseWriter, r *http.Request) {
	e, err := a.endpoint(r)
	if err != nil {
		writeError(w, err)
		return
	}
	rd, err := e.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	readHeaders(w, rd)
	writeJSON(w, http.StatusOK, rd.Data)
}

func (a *API) create(w http.ResponseWriter, r *http.Request) {
	a.mutate(w, r, http.StatusCreated, func(ctx context.Context, e Endpoint, body []byte) (any, error) {
		return e.Create(ctx, body)
	})
}

func (a *API) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.mutate(w, r, http.StatusOK, func(ctx context.Context, e Endpoint, body []byte) (any, error) {
		return e.Update(ctx, id, body)
	})
}

func (a *API) toggle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.mutate(w, r, http.StatusOK, func(ctx context.Context, e Endpoint, _ []byte) (any, error) {
		return e.Toggle(ctx, id)
	})
}

func (a *API) remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a.mutate(w, r, http.StatusNoContent, func(ctx context.Context, e Endpoint, _ []byte) (any, error) {
		return nil, e.Delete(ctx, id)
	})
}

func (a *API) mutate(w http.ResponseWriter, r *http.Request, okStatus int, fn func(context.Context, Endpoint, []byte) (any, error)) {
	e, err := a.endpoint(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var body []byte
	if r.Body != nil {
		body, err = io.ReadAll(io.LimitReader(r.Body, maxBody))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "unreadable body"})
			return
		}
	}
	v, err := fn(r.Context(), e, body)
	if err != nil {
		status, eb := statusFor(err)
		// a mensagem mostrada ao usuário é a mesma do aviso da mutação
		if status != http.StatusBadRequest {
			eb.Error = query.FailureMessage(err)
		}
		writeJSON(w, status, eb)
		return
	}
	if okStatus == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, okStatus, v)
}

// cascadeOptions devolve os três selects para a seleção informada.
// Com userId, as listas são restritas ao escopo daquele usuário.
func (a *API) cascadeOptions(w http.ResponseWriter, r *http.Request) {
	lists, err := a.loadLists(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	if uid := q.Get("userId"); uid != "" && a.Hierarchy.Users != nil {
		res := a.Hierarchy.Users.Get(r.Context(), uid)
		if err := resultErr(res.Status, res.Err); err != nil {
			writeError(w, err)
			return
		}
		lists = cascade.Scope(res.Data, lists)
	}
	sel := cascade.Selection{
		PlatformID: orAll(q.Get("platformId")),
		OperatorID: orAll(q.Get("operatorId")),
		BrandID:    orAll(q.Get("brandId")),
	}
	sel = sel.Reconcile(lists)
	writeJSON(w, http.StatusOK, map[string]any{
		"selection": sel,
		"options":   cascade.Derive(lists, sel),
	})
}

func orAll(s string) string {
	if s == "" {
		return dto.All
	}
	return s
}

func (a *API) loadLists(ctx context.Context) (cascade.Lists, error) {
	h := a.Hierarchy
	if h.Platforms == nil || h.Operators == nil || h.Brands == nil {
		return cascade.Lists{}, errUnknownEntity
	}
	pr := h.Platforms.Reference(ctx, resources.Params{})
	if err := resultErr(pr.Status, pr.Err); err != nil {
		return cascade.Lists{}, err
	}
	op := h.Operators.Reference(ctx, resources.Params{})
	if err := resultErr(op.Status, op.Err); err != nil {
		return cascade.Lists{}, err
	}
	br := h.Brands.Reference(ctx, resources.Params{})
	if err := resultErr(br.Status, br.Err); err != nil {
		return cascade.Lists{}, err
	}
	return cascade.Lists{Platforms: pr.Data, Operators: op.Data, Brands: br.Data}, nil
}

func (a *API) reportStale() time.Duration {
	if a.ReportStaleTime > 0 {
		return a.ReportStaleTime
	}
	return query.DefaultFreshness.List
}

func (a *API) dashboard(w http.ResponseWriter, r *http.Request) {
	if a.Reports == nil {
		writeError(w, errUnknownEntity)
		return
	}
	p := parseParams(r.URL.Query())
	key := query.Key{Entity: resources.EntitySummaries, Kind: query.KindDetail, Params: "dashboard:" + p.Key()}
	res := query.Fetch(r.Context(), a.Cache, key, a.reportStale(), func(ctx context.Context) (dto.DashboardStats, error) {
		return a.Reports.Dashboard(ctx, p)
	})
	if err := resultErr(res.Status, res.Err); err != nil {
		writeError(w, err)
		return
	}
	readHeaders(w, Read{Stale: res.Stale})
	writeJSON(w, http.StatusOK, res.Data)
}

func (a *API) summaries(w http.ResponseWriter, r *http.Request) {
	a.listOf(w, r, resources.EntitySummaries)
}

func (a *API) transactions(w http.ResponseWriter, r *http.Request) {
	a.listOf(w, r, resources.EntityTransactions)
}

func (a *API) listOf(w http.ResponseWriter, r *http.Request, entity string) {
	e, ok := a.Endpoints[entity]
	if !ok {
		writeError(w, errUnknownEntity)
		return
	}
	rd, err := e.List(r.Context(), parseParams(r.URL.Query()))
	if err != nil {
		writeError(w, err)
		return
	}
	readHeaders(w, rd)
	writeJSON(w, http.StatusOK, rd.Data)
}

func (a *API) summariesByGame(w http.ResponseWriter, r *http.Request) {
	if a.Reports == nil {
		writeError(w, errUnknownEntity)
		return
	}
	p := parseParams(r.URL.Query())
	key := query.Key{Entity: resources.EntitySummaries, Kind: query.KindList, Params: "games:" + p.Key()}
	res := query.Fetch(r.Context(), a.Cache, key, a.reportStale(), func(ctx context.Context) (dto.Page[dto.Summary], error) {
		return a.Reports.ByGame(ctx, p)
	})
	if err := resultErr(res.Status, res.Err); err != nil {
		writeError(w, err)
		return
	}
	readHeaders(w, Read{Stale: res.Stale, Degraded: res.Data.Degraded})
	writeJSON(w, http.StatusOK, res.Data)
}

func (a *API) transactionsByRound(w http.ResponseWriter, r *http.Request) {
	if a.Rounds == nil {
		writeError(w, errUnknownEntity)
		return
	}
	round := chi.URLParam(r, "roundId")
	key := query.Key{Entity: resources.EntityTransactions, Kind: query.KindDetail, Params: "round:" + round}
	res := query.Fetch(r.Context(), a.Cache, key, a.reportStale(), func(ctx context.Context) ([]dto.Transaction, error) {
		return a.Rounds.ByRound(ctx, round)
	})
	if err := resultErr(res.Status, res.Err); err != nil {
		writeError(w, err)
		return
	}
	readHeaders(w, Read{Stale: res.Stale})
	writeJSON(w, http.StatusOK, res.Data)
}

// exportCSV gera o CSV com todas as páginas que casam com os filtros
func (a *API) exportCSV(w http.ResponseWriter, r *http.Request) {
	e, err := a.endpoint(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if a.Exporter == nil {
		writeError(w, resources.ErrUnsupported)
		return
	}
	p := parseParams(r.URL.Query())
	p.PageNo, p.PageSize = 0, 0
	data, err := e.All(r.Context(), p)
	if err != nil {
		if errors.Is(err, resources.ErrDegraded) {
			// upstream caiu no meio: não exporta arquivo incompleto
			writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
			return
		}
		writeError(w, err)
		return
	}

	by := r.Header.Get("X-Requested-By")
	if by == "" {
		by = r.URL.Query().Get("requestedBy")
	}
	f, err := a.Exporter.Export(r.Context(), e.Name(), data, by)
	if err != nil {
		a.Log.Warn("csv export failed", zap.String("entity", e.Name()), zap.Error(err))
		writeJSON(w, exportStatus(err), errorBody{Error: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+f.Name+`"`)
	w.Header().Set("X-Export-Rows", strconv.Itoa(f.Rows))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, f.Content)
}

// exportStatus: perfil ausente é 404; falha ao gerar o arquivo é 500
func exportStatus(err error) int {
	if errors.Is(err, export.ErrNoProfile) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// refresh é o gatilho de foco/visibilidade vindo do dashboard
func (a *API) refresh(w http.ResponseWriter, r *http.Request) {
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "focus"
	}
	n := a.Manager.RefreshAll(reason)
	writeJSON(w, http.StatusOK, map[string]any{"invalidated": n})
}

// exportHistory lista a auditoria de exportações (?entity=&limit=)
func (a *API) exportHistory(w http.ResponseWriter, r *http.Request) {
	if a.Exporter == nil {
		writeError(w, resources.ErrUnsupported)
		return
	}
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	entries, err := a.Exporter.History(r.Context(), q.Get("entity"), limit)
	if err != nil {
		if errors.Is(err, export.ErrNoHistory) {
			writeError(w, resources.ErrUnsupported)
			return
		}
		a.Log.Warn("export history failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not load export history"})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type loginRequest struct {
	Token string `json:"token"`
}

// login troca o token da sessão e descarta o cache da sessão anterior
func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil || req.Token == "" {
		writeError(w, &dto.ValidationError{Fields: map[string]string{"token": "is required"}})
		return
	}
	a.Session.Set(req.Token)
	a.Manager.Login()
	a.Log.Info("console session started")
	w.WriteHeader(http.StatusNoContent)
}

// logout remove o token; leituras voltam a "not ready" até o próximo login
func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	a.Session.Clear()
	a.Manager.Logout()
	a.Log.Info("console session ended")
	w.WriteHeader(http.StatusNoContent)
}
