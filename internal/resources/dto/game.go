package dto

import "github.com/shopspring/decimal"

// Tipos de jogo aceitos pelo backend
const (
	GameTypeSlot     = "slot"
	GameTypeTable    = "table"
	GameTypeLive     = "live"
	GameTypeCrash    = "crash"
	GameTypeInstant  = "instant"
	GameTypeOriginal = "original"
)

// Game é independente da hierarquia; os limites são os padrões globais
type Game struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Alias    string           `json:"alias"`
	Type     string           `json:"type"`
	MinBet   *decimal.Decimal `json:"minBet,omitempty"`
	MaxBet   *decimal.Decimal `json:"maxBet,omitempty"`
	MaxWin   *decimal.Decimal `json:"maxWin,omitempty"`
	IsActive bool             `json:"isActive"`
}

func (g Game) Validate() error {
	v := &ValidationError{}
	v.Required("name", g.Name)
	v.Required("alias", g.Alias)
	v.Required("type", g.Type)
	v.OneOf("type", g.Type, GameTypeSlot, GameTypeTable, GameTypeLive, GameTypeCrash, GameTypeInstant, GameTypeOriginal)
	v.NonNegative("minBet", g.MinBet)
	v.NonNegative("maxBet", g.MaxBet)
	v.NonNegative("maxWin", g.MaxWin)
	v.Range("minBet", g.MinBet, "maxBet", g.MaxBet)
	return v.OrNil()
}

// OperatorGame liga um Game a (Platform, Operator, Brand) com limites próprios.
// Limite nil = herda o padrão do Game.
type OperatorGame struct {
	ID         string           `json:"id"`
	GameID     string           `json:"gameId"`
	GameName   string           `json:"gameName,omitempty"`
	PlatformID string           `json:"platformId"`
	OperatorID string           `json:"operatorId"`
	BrandID    string           `json:"brandId"`
	MinBet     *decimal.Decimal `json:"minBet,omitempty"`
	MaxBet     *decimal.Decimal `json:"maxBet,omitempty"`
	MaxWin     *decimal.Decimal `json:"maxWin,omitempty"`
	IsActive   bool             `json:"isActive"`
}

func (og OperatorGame) Validate() error {
	v := &ValidationError{}
	v.Required("gameId", og.GameID)
	v.Required("platformId", og.PlatformID)
	v.Required("operatorId", og.OperatorID)
	v.Required("brandId", og.BrandID)
	v.NonNegative("minBet", og.MinBet)
	v.NonNegative("maxBet", og.MaxBet)
	v.NonNegative("maxWin", og.MaxWin)
	v.Range("minBet", og.MinBet, "maxBet", og.MaxBet)
	return v.OrNil()
}

// Effective resolve os limites aplicados: override do escopo ou padrão do jogo
func (og OperatorGame) Effective(g Game) (minBet, maxBet, maxWin *decimal.Decimal) {
	pick := func(override, def *decimal.Decimal) *decimal.Decimal {
		if override != nil {
			return override
		}
		return def
	}
	return pick(og.MinBet, g.MinBet), pick(og.MaxBet, g.MaxBet), pick(og.MaxWin, g.MaxWin)
}
