package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction é uma linha de relatório, somente leitura
type Transaction struct {
	ID         string          `json:"id"`
	RoundID    string          `json:"roundId"`
	GameID     string          `json:"gameId"`
	GameName   string          `json:"gameName,omitempty"`
	PlatformID string          `json:"platformId"`
	OperatorID string          `json:"operatorId"`
	BrandID    string          `json:"brandId"`
	PlayerID   string          `json:"playerId"`
	Type       string          `json:"type"` // "bet" | "win" | "refund"
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Summary agrega resultados por dia/escopo/jogo
type Summary struct {
	Date       string          `json:"date"`
	PlatformID string          `json:"platformId,omitempty"`
	OperatorID string          `json:"operatorId,omitempty"`
	BrandID    string          `json:"brandId,omitempty"`
	GameID     string          `json:"gameId,omitempty"`
	GameName   string          `json:"gameName,omitempty"`
	Bets       decimal.Decimal `json:"bets"`
	Wins       decimal.Decimal `json:"wins"`
	GGR        decimal.Decimal `json:"ggr"`
	Rounds     int64           `json:"rounds"`
	Players    int64           `json:"players"`
	Currency   string          `json:"currency,omitempty"`
}

// DashboardStats são os números do topo do dashboard
type DashboardStats struct {
	TotalBets     decimal.Decimal `json:"totalBets"`
	TotalWins     decimal.Decimal `json:"totalWins"`
	GGR           decimal.Decimal `json:"ggr"`
	ActivePlayers int64           `json:"activePlayers"`
	Rounds        int64           `json:"rounds"`
}

// RTP devolve wins/bets em porcentagem; zero quando não houve apostas
func (s Summary) RTP() decimal.Decimal {
	if s.Bets.IsZero() {
		return decimal.Zero
	}
	return s.Wins.Div(s.Bets).Mul(decimal.NewFromInt(100)).Round(2)
}
