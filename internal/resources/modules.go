package resources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/radieske/betops-admin/internal/apiclient"
	"github.com/radieske/betops-admin/internal/resources/dto"
)

// Nomes das entidades; também são a raiz das chaves de cache
const (
	EntityGames         = "games"
	EntityOperatorGames = "operator-games"
	EntityUsers         = "users"
	EntityPlatforms     = "platforms"
	EntityOperators     = "operators"
	EntityBrands        = "brands"
	EntityTransactions  = "transactions"
	EntitySummaries     = "summaries"
)

func NewGames(c *apiclient.Client, log *zap.Logger) *Resource[dto.Game] {
	return newResource[dto.Game](c, EntityGames, "/games", log, true)
}

func NewOperatorGames(c *apiclient.Client, log *zap.Logger) *Resource[dto.OperatorGame] {
	return newResource[dto.OperatorGame](c, EntityOperatorGames, "/operator-games", log, true)
}

func NewUsers(c *apiclient.Client, log *zap.Logger) *Resource[dto.User] {
	r := newResource[dto.User](c, EntityUsers, "/users", log, true)
	r.SearchParam = "searchQuery"
	return r
}

func NewPlatforms(c *apiclient.Client, log *zap.Logger) *Resource[dto.Platform] {
	return newResource[dto.Platform](c, EntityPlatforms, "/platforms", log, false)
}

func NewOperators(c *apiclient.Client, log *zap.Logger) *Resource[dto.Operator] {
	return newResource[dto.Operator](c, EntityOperators, "/operators", log, false)
}

func NewBrands(c *apiclient.Client, log *zap.Logger) *Resource[dto.Brand] {
	return newResource[dto.Brand](c, EntityBrands, "/brands", log, true)
}

// Hierarchy agrupa Platform → Operator → Brand
type Hierarchy struct {
	Platforms *Resource[dto.Platform]
	Operators *Resource[dto.Operator]
	Brands    *Resource[dto.Brand]
}

func NewHierarchy(c *apiclient.Client, log *zap.Logger) *Hierarchy {
	return &Hierarchy{
		Platforms: NewPlatforms(c, log),
		Operators: NewOperators(c, log),
		Brands:    NewBrands(c, log),
	}
}

// Transactions é somente leitura
type Transactions struct {
	Reader[dto.Transaction]
}

func NewTransactions(c *apiclient.Client, log *zap.Logger) *Transactions {
	return &Transactions{Reader: newReader[dto.Transaction](c, EntityTransactions, "/transactions", log)}
}

// ByRound devolve todas as transações de uma rodada (drill-down)
func (t *Transactions) ByRound(ctx context.Context, roundID string) ([]dto.Transaction, error) {
	path := "/transactions/round/" + url.PathEscape(roundID)
	raw, err := t.http.Do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("transactions by round %s: %w", roundID, err)
	}
	pg, err := DecodePage[dto.Transaction](path, raw, Params{})
	if err != nil {
		return nil, err
	}
	return pg.Data, nil
}

// Summaries expõe os relatórios agregados
type Summaries struct {
	Reader[dto.Summary]
}

func NewSummaries(c *apiclient.Client, log *zap.Logger) *Summaries {
	return &Summaries{Reader: newReader[dto.Summary](c, EntitySummaries, "/summaries", log)}
}

// ByGame agrega por jogo no mesmo filtro de escopo/período
func (s *Summaries) ByGame(ctx context.Context, p Params) (dto.Page[dto.Summary], error) {
	byGame := s.Reader
	byGame.Path = "/summaries/games"
	return byGame.List(ctx, p)
}

// Dashboard devolve os totais do topo do dashboard
func (s *Summaries) Dashboard(ctx context.Context, p Params) (dto.DashboardStats, error) {
	const path = "/summaries/dashboard"
	raw, err := s.http.Do(ctx, http.MethodGet, path, nil, &apiclient.Options{Query: p.Query(s.SearchParam)})
	if err != nil {
		return dto.DashboardStats{}, fmt.Errorf("dashboard: %w", err)
	}
	return DecodeOne[dto.DashboardStats](path, raw)
}
