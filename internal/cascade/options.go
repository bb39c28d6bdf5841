// Package cascade deriva as opções dos selects Platform → Operator → Brand
// a partir das listas em cache e da seleção atual.
package cascade

import (
	"github.com/radieske/betops-admin/internal/resources/dto"
)

const (
	AllPlatforms = "All Platforms"
	AllOperators = "All Operators"
	AllBrands    = "All Brands"
)

// Lists são as três listas completas de referência
type Lists struct {
	Platforms []dto.Platform
	Operators []dto.Operator
	Brands    []dto.Brand
}

// Options são os três selects já filtrados
type Options struct {
	Platforms []dto.Option `json:"platforms"`
	Operators []dto.Option `json:"operators"`
	Brands    []dto.Option `json:"brands"`
}

// PlatformOptions devolve todas as plataformas, com o sentinela opcional
func PlatformOptions(platforms []dto.Platform, withAll bool) []dto.Option {
	out := make([]dto.Option, 0, len(platforms)+1)
	if withAll && len(platforms) > 0 {
		out = append(out, dto.Option{Value: dto.All, Label: AllPlatforms})
	}
	for _, p := range platforms {
		out = append(out, dto.Option{Value: p.ID, Label: p.Name})
	}
	return out
}

// FilterOperators: sem plataforma concreta, devolve a lista inteira
func FilterOperators(operators []dto.Operator, platformID string) []dto.Operator {
	if !dto.IsConcrete(platformID) {
		return operators
	}
	out := []dto.Operator{}
	for _, o := range operators {
		if o.PlatformID == platformID {
			out = append(out, o)
		}
	}
	return out
}

func OperatorOptions(operators []dto.Operator, platformID string) []dto.Option {
	filtered := FilterOperators(operators, platformID)
	if len(filtered) == 0 {
		return []dto.Option{}
	}
	out := make([]dto.Option, 0, len(filtered)+1)
	out = append(out, dto.Option{Value: dto.All, Label: AllOperators})
	for _, o := range filtered {
		out = append(out, dto.Option{Value: o.ID, Label: o.Name})
	}
	return out
}

// FilterBrands aplica a precedência:
//  1. plataforma e operador concretos: ambos
//  2. só plataforma
//  3. só operador
//  4. nenhum: lista inteira
func FilterBrands(brands []dto.Brand, platformID, operatorID string) []dto.Brand {
	byPlatform, byOperator := dto.IsConcrete(platformID), dto.IsConcrete(operatorID)
	if !byPlatform && !byOperator {
		return brands
	}
	out := []dto.Brand{}
	for _, b := range brands {
		if byPlatform && b.PlatformID != platformID {
			continue
		}
		if byOperator && b.OperatorID != operatorID {
			continue
		}
		out = append(out, b)
	}
	return out
}

func BrandOptions(brands []dto.Brand, platformID, operatorID string) []dto.Option {
	filtered := FilterBrands(brands, platformID, operatorID)
	if len(filtered) == 0 {
		return []dto.Option{}
	}
	out := make([]dto.Option, 0, len(filtered)+1)
	out = append(out, dto.Option{Value: dto.All, Label: AllBrands})
	for _, b := range filtered {
		out = append(out, dto.Option{Value: b.ID, Label: b.Name})
	}
	return out
}

// Derive calcula os três selects; função pura, sem estado
func Derive(l Lists, s Selection) Options {
	return Options{
		Platforms: PlatformOptions(l.Platforms, true),
		Operators: OperatorOptions(l.Operators, s.PlatformID),
		Brands:    BrandOptions(l.Brands, s.PlatformID, s.OperatorID),
	}
}
