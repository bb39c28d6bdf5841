package cascade

import (
	"slices"

	"github.com/radieske/betops-admin/internal/resources/dto"
)

// Selection é o estado dos três selects. Vazio ou "ALL" = sem filtro.
// Trocar a plataforma sempre limpa descendentes incompatíveis.
type Selection struct {
	PlatformID string `json:"platformId"`
	OperatorID string `json:"operatorId"`
	BrandID    string `json:"brandId"`
}

// SelectPlatform troca a plataforma e reseta operador/marca que não descendem dela
func (s Selection) SelectPlatform(id string, l Lists) Selection {
	s.PlatformID = id
	if dto.IsConcrete(id) && dto.IsConcrete(s.OperatorID) {
		if op, ok := findOperator(l.Operators, s.OperatorID); !ok || op.PlatformID != id {
			s.OperatorID = dto.All
		}
	}
	return s.dropBrandIfIncompatible(l)
}

// SelectOperator troca o operador e reseta a marca incompatível
func (s Selection) SelectOperator(id string, l Lists) Selection {
	s.OperatorID = id
	return s.dropBrandIfIncompatible(l)
}

func (s Selection) SelectBrand(id string) Selection {
	s.BrandID = id
	return s
}

// Reconcile limpa ids que não existem mais nas listas (ex.: entidade apagada)
func (s Selection) Reconcile(l Lists) Selection {
	if dto.IsConcrete(s.PlatformID) && !slices.ContainsFunc(l.Platforms, func(p dto.Platform) bool { return p.ID == s.PlatformID }) {
		s.PlatformID = dto.All
	}
	if dto.IsConcrete(s.OperatorID) {
		op, ok := findOperator(l.Operators, s.OperatorID)
		if !ok || (dto.IsConcrete(s.PlatformID) && op.PlatformID != s.PlatformID) {
			s.OperatorID = dto.All
		}
	}
	return s.dropBrandIfIncompatible(l)
}

// Filters devolve a seleção como filtros de listagem ("ALL" é omitido no upstream)
func (s Selection) Filters() map[string]any {
	return map[string]any{
		"platformId": s.PlatformID,
		"operatorId": s.OperatorID,
		"brandId":    s.BrandID,
	}
}

func (s Selection) dropBrandIfIncompatible(l Lists) Selection {
	if !dto.IsConcrete(s.BrandID) {
		return s
	}
	for _, b := range FilterBrands(l.Brands, s.PlatformID, s.OperatorID) {
		if b.ID == s.BrandID {
			return s
		}
	}
	s.BrandID = dto.All
	return s
}

func findOperator(ops []dto.Operator, id string) (dto.Operator, bool) {
	for _, o := range ops {
		if o.ID == id {
			return o, true
		}
	}
	return dto.Operator{}, false
}

// Scope restringe as listas ao escopo do usuário. Listas de ids vazias = sem restrição.
// Superadmin vê tudo.
func Scope(u dto.User, l Lists) Lists {
	if u.Role == dto.RoleSuperAdmin {
		return l
	}
	out := Lists{
		Platforms: keep(l.Platforms, u.PlatformIDs, func(p dto.Platform) string { return p.ID }),
		Operators: keep(l.Operators, u.OperatorIDs, func(o dto.Operator) string { return o.ID }),
		Brands:    keep(l.Brands, u.BrandIDs, func(b dto.Brand) string { return b.ID }),
	}
	// descendentes de plataformas fora do escopo também saem
	if len(u.PlatformIDs) > 0 {
		out.Operators = slices.DeleteFunc(slices.Clone(out.Operators), func(o dto.Operator) bool {
			return !slices.Contains(u.PlatformIDs, o.PlatformID)
		})
		out.Brands = slices.DeleteFunc(slices.Clone(out.Brands), func(b dto.Brand) bool {
			return !slices.Contains(u.PlatformIDs, b.PlatformID)
		})
	}
	if len(u.OperatorIDs) > 0 {
		out.Brands = slices.DeleteFunc(slices.Clone(out.Brands), func(b dto.Brand) bool {
			return !slices.Contains(u.OperatorIDs, b.OperatorID)
		})
	}
	return out
}

func keep[T any](items []T, allowed []string, id func(T) string) []T {
	if len(allowed) == 0 {
		return items
	}
	out := []T{}
	for _, it := range items {
		if slices.Contains(allowed, id(it)) {
			out = append(out, it)
		}
	}
	return out
}
