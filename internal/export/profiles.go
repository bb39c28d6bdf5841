package export

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Formatadores nomeados usados nos perfis YAML
var formatters = map[string]Formatter{
	"money":    money,
	"date":     timeLayout("2006-01-02"),
	"datetime": timeLayout("2006-01-02 15:04:05"),
	"bool":     yesNo,
	"upper":    func(v any) string { return strings.ToUpper(Stringify(v)) },
}

// FormatterByName devolve o formatador registrado com esse nome
func FormatterByName(name string) (Formatter, bool) {
	f, ok := formatters[name]
	return f, ok
}

type fieldSpec struct {
	Key    string `yaml:"key"`
	Label  string `yaml:"label"`
	Format string `yaml:"format"`
}

type profileFile struct {
	Profiles map[string]struct {
		Filename string      `yaml:"filename"`
		Fields   []fieldSpec `yaml:"fields"`
	} `yaml:"profiles"`
}

// Profile define colunas e nome do arquivo de uma entidade
type Profile struct {
	Filename string
	Fields   []Field
}

// Profiles indexa os perfis por entidade
type Profiles map[string]Profile

// LoadProfiles lê o YAML de perfis; caminho vazio devolve os perfis padrão
func LoadProfiles(path string) (Profiles, error) {
	if path == "" {
		return DefaultProfiles(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export profiles: %w", err)
	}
	return ParseProfiles(b)
}

// ParseProfiles decodifica o YAML; perfis ausentes caem no padrão
func ParseProfiles(b []byte) (Profiles, error) {
	var pf profileFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("parse export profiles: %w", err)
	}
	out := DefaultProfiles()
	for entity, p := range pf.Profiles {
		if len(p.Fields) == 0 {
			return nil, fmt.Errorf("export profile %q: no fields", entity)
		}
		fields := make([]Field, 0, len(p.Fields))
		for _, fs := range p.Fields {
			if fs.Key == "" {
				return nil, fmt.Errorf("export profile %q: field without key", entity)
			}
			f := Field{Key: fs.Key, Label: fs.Label}
			if f.Label == "" {
				f.Label = fs.Key
			}
			if fs.Format != "" {
				fn, ok := FormatterByName(fs.Format)
				if !ok {
					return nil, fmt.Errorf("export profile %q: unknown format %q", entity, fs.Format)
				}
				f.Format = fn
			}
			fields = append(fields, f)
		}
		name := p.Filename
		if name == "" {
			name = entity
		}
		out[entity] = Profile{Filename: name, Fields: fields}
	}
	return out, nil
}

// DefaultProfiles cobre as entidades exportáveis do console
func DefaultProfiles() Profiles {
	return Profiles{
		"games": {Filename: "games", Fields: []Field{
			{Key: "name", Label: "Name"},
			{Key: "alias", Label: "Alias"},
			{Key: "type", Label: "Type", Format: formatters["upper"]},
			{Key: "minBet", Label: "Min Bet", Format: money},
			{Key: "maxBet", Label: "Max Bet", Format: money},
			{Key: "maxWin", Label: "Max Win", Format: money},
			{Key: "isActive", Label: "Active", Format: yesNo},
		}},
		"operator-games": {Filename: "operator_games", Fields: []Field{
			{Key: "gameName", Label: "Game"},
			{Key: "platformId", Label: "Platform"},
			{Key: "operatorId", Label: "Operator"},
			{Key: "brandId", Label: "Brand"},
			{Key: "minBet", Label: "Min Bet", Format: money},
			{Key: "maxBet", Label: "Max Bet", Format: money},
			{Key: "maxWin", Label: "Max Win", Format: money},
			{Key: "isActive", Label: "Active", Format: yesNo},
		}},
		"users": {Filename: "users", Fields: []Field{
			{Key: "email", Label: "Email"},
			{Key: "name", Label: "Name"},
			{Key: "role", Label: "Role", Format: formatters["upper"]},
			{Key: "isActive", Label: "Active", Format: yesNo},
		}},
		"brands": {Filename: "brands", Fields: []Field{
			{Key: "name", Label: "Name"},
			{Key: "platformId", Label: "Platform"},
			{Key: "operatorId", Label: "Operator"},
			{Key: "isActive", Label: "Active", Format: yesNo},
		}},
		"transactions": {Filename: "transactions", Fields: []Field{
			{Key: "createdAt", Label: "Date", Format: formatters["datetime"]},
			{Key: "roundId", Label: "Round"},
			{Key: "playerId", Label: "Player"},
			{Key: "gameId", Label: "Game"},
			{Key: "type", Label: "Type", Format: formatters["upper"]},
			{Key: "amount", Label: "Amount", Format: money},
			{Key: "currency", Label: "Currency"},
		}},
		"summaries": {Filename: "summaries", Fields: []Field{
			{Key: "date", Label: "Date", Format: formatters["date"]},
			{Key: "gameId", Label: "Game"},
			{Key: "bets", Label: "Bets", Format: money},
			{Key: "wins", Label: "Wins", Format: money},
			{Key: "ggr", Label: "GGR", Format: money},
			{Key: "rounds", Label: "Rounds"},
			{Key: "players", Label: "Players"},
			{Key: "currency", Label: "Currency"},
		}},
	}
}

// money formata com duas casas; valor não numérico sai como veio
func money(v any) string {
	s := Stringify(v)
	if s == "" {
		return ""
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.StringFixed(2)
}

func timeLayout(layout string) Formatter {
	return func(v any) string {
		s := Stringify(v)
		if s == "" {
			return ""
		}
		for _, in := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
			if t, err := time.Parse(in, s); err == nil {
				return t.Format(layout)
			}
		}
		return s
	}
}

func yesNo(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case nil:
		return ""
	default:
		return Stringify(v)
	}
}
