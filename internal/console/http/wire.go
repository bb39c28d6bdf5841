package httpapi

import (
	"go.uber.org/zap"

	"github.com/radieske/betops-admin/internal/apiclient"
	"github.com/radieske/betops-admin/internal/console/ws"
	"github.com/radieske/betops-admin/internal/export"
	"github.com/radieske/betops-admin/internal/query"
	"github.com/radieske/betops-admin/internal/resources"
	"github.com/radieske/betops-admin/internal/resources/dto"
)

// Deps são as dependências do console montadas no main
type Deps struct {
	Client    *apiclient.Client
	Cache     *query.Cache
	Exporter  *export.Exporter
	Hub       *ws.Hub
	Notifier  query.Notifier
	Freshness query.Freshness
	Log       *zap.Logger
}

// raízes afetadas por mutações de cada entidade
var related = map[string][]string{
	resources.EntityGames:     {resources.EntityOperatorGames},
	resources.EntityPlatforms: {resources.EntityOperators, resources.EntityBrands, resources.EntityOperatorGames},
	resources.EntityOperators: {resources.EntityBrands, resources.EntityOperatorGames},
	resources.EntityBrands:    {resources.EntityOperatorGames},
}

func configure[T any](e *query.Entity[T], d Deps) *query.Entity[T] {
	e.Related = related[e.Name]
	e.Notifier = d.Notifier
	if d.Freshness != (query.Freshness{}) {
		e.Fresh = d.Freshness
	}
	return e
}

// NewConsole registra todas as entidades do back-office sobre o cache
func NewConsole(d Deps) *API {
	c, log := d.Client, d.Log

	games := resources.NewGames(c, log)
	opGames := resources.NewOperatorGames(c, log)
	users := resources.NewUsers(c, log)
	h := resources.NewHierarchy(c, log)
	tx := resources.NewTransactions(c, log)
	sums := resources.NewSummaries(c, log)

	platforms := configure(query.NewEntity[dto.Platform](d.Cache, resources.EntityPlatforms, h.Platforms, h.Platforms,
		func(p dto.Platform) dto.Option { return dto.Option{Value: p.ID, Label: p.Name} }), d)
	operators := configure(query.NewEntity[dto.Operator](d.Cache, resources.EntityOperators, h.Operators, h.Operators,
		func(o dto.Operator) dto.Option { return dto.Option{Value: o.ID, Label: o.Name} }), d)
	brands := configure(query.NewEntity[dto.Brand](d.Cache, resources.EntityBrands, h.Brands, h.Brands,
		func(b dto.Brand) dto.Option { return dto.Option{Value: b.ID, Label: b.Name} }), d)
	userEnt := configure(query.NewEntity[dto.User](d.Cache, resources.EntityUsers, users, users,
		func(u dto.User) dto.Option { return dto.Option{Value: u.ID, Label: u.Email} }), d)

	api := &API{
		Log:     log,
		Cache:   d.Cache,
		Manager: query.NewManager(d.Cache, log),
		Hierarchy: Hierarchy{
			Platforms: platforms,
			Operators: operators,
			Brands:    brands,
			Users:     userEnt,
		},
		Reports:  sums,
		Rounds:   tx,
		Exporter: d.Exporter,
		Hub:      d.Hub,
	}
	if s, ok := sessionOf(c); ok {
		api.Session = s
	}
	if d.Freshness.List > 0 {
		api.ReportStaleTime = d.Freshness.List
	}
	api.Register(
		Bind(configure(query.NewEntity[dto.Game](d.Cache, resources.EntityGames, games, games,
			func(g dto.Game) dto.Option { return dto.Option{Value: g.ID, Label: g.Name} }), d)),
		Bind(configure(query.NewEntity[dto.OperatorGame](d.Cache, resources.EntityOperatorGames, opGames, opGames,
			func(g dto.OperatorGame) dto.Option { return dto.Option{Value: g.ID, Label: g.GameName} }), d)),
		Bind(userEnt),
		Bind(platforms),
		Bind(operators),
		Bind(brands),
		Bind(configure(query.NewEntity[dto.Transaction](d.Cache, resources.EntityTransactions, tx, nil, nil), d)),
		Bind(configure(query.NewEntity[dto.Summary](d.Cache, resources.EntitySummaries, sums, nil, nil), d)),
	)
	return api
}

func sessionOf(c *apiclient.Client) (Session, bool) {
	if c == nil {
		return nil, false
	}
	s, ok := c.Tokens.(Session)
	return s, ok
}
