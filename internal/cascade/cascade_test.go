package cascade

import (
	"testing"

	"github.com/radieske/betops-admin/internal/resources/dto"
)

func fixture() Lists {
	return Lists{
		Platforms: []dto.Platform{{ID: "p1", Name: "Alpha"}, {ID: "p2", Name: "Beta"}},
		Operators: []dto.Operator{
			{ID: "o1", Name: "Op One", PlatformID: "p1"},
			{ID: "o2", Name: "Op Two", PlatformID: "p1"},
			{ID: "o3", Name: "Op Three", PlatformID: "p2"},
		},
		Brands: []dto.Brand{
			{ID: "b1", Name: "Lucky", PlatformID: "p1", OperatorID: "o1"},
			{ID: "b2", Name: "Spin", PlatformID: "p1", OperatorID: "o2"},
			{ID: "b3", Name: "Royal", PlatformID: "p2", OperatorID: "o3"},
			{ID: "b4", Name: "Ace", PlatformID: "p1", OperatorID: "o1"},
		},
	}
}

func values(opts []dto.Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBrandOptionsPrecedence(t *testing.T) {
	l := fixture()
	cases := []struct {
		name     string
		platform string
		operator string
		want     []string
	}{
		{"both selected", "p1", "o1", []string{dto.All, "b1", "b4"}},
		{"platform only", "p1", dto.All, []string{dto.All, "b1", "b2", "b4"}},
		{"operator only", dto.All, "o3", []string{dto.All, "b3"}},
		{"neither", dto.All, dto.All, []string{dto.All, "b1", "b2", "b3", "b4"}},
		{"unset treated as all", "", "", []string{dto.All, "b1", "b2", "b3", "b4"}},
		{"no match", "p2", "o1", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := values(BrandOptions(l.Brands, tc.platform, tc.operator))
			if !equal(got, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
		})
	}
}

// Para toda combinação P/O, as marcas devolvidas são exatamente as que casam
func TestBrandFilterExhaustive(t *testing.T) {
	l := fixture()
	for _, p := range []string{"p1", "p2", dto.All} {
		for _, o := range []string{"o1", "o2", "o3", dto.All} {
			got := FilterBrands(l.Brands, p, o)
			want := 0
			for _, b := range l.Brands {
				if (p == dto.All || b.PlatformID == p) && (o == dto.All || b.OperatorID == o) {
					want++
				}
			}
			if len(got) != want {
				t.Fatalf("P=%s O=%s: want %d brands, got %d", p, o, want, len(got))
			}
			for _, b := range got {
				if (p != dto.All && b.PlatformID != p) || (o != dto.All && b.OperatorID != o) {
					t.Fatalf("P=%s O=%s: unexpected brand %+v", p, o, b)
				}
			}
		}
	}
}

func TestOperatorOptions(t *testing.T) {
	l := fixture()
	if got := values(OperatorOptions(l.Operators, "p2")); !equal(got, []string{dto.All, "o3"}) {
		t.Fatalf("p2: got %v", got)
	}
	if got := OperatorOptions(l.Operators, dto.All); len(got) != 4 || got[0].Label != AllOperators {
		t.Fatalf("all: got %+v", got)
	}
	if got := OperatorOptions(l.Operators, "p9"); len(got) != 0 {
		t.Fatalf("unknown platform must yield no options, got %+v", got)
	}
}

func TestPlatformOptions(t *testing.T) {
	l := fixture()
	if got := PlatformOptions(l.Platforms, true); len(got) != 3 || got[0] != (dto.Option{Value: dto.All, Label: AllPlatforms}) {
		t.Fatalf("unexpected %+v", got)
	}
	if got := PlatformOptions(l.Platforms, false); len(got) != 2 {
		t.Fatalf("unexpected %+v", got)
	}
	if got := PlatformOptions(nil, true); len(got) != 0 {
		t.Fatalf("empty list must not carry the sentinel, got %+v", got)
	}
}

func TestSelectPlatformResetsDescendants(t *testing.T) {
	l := fixture()
	s := Selection{PlatformID: "p1", OperatorID: "o1", BrandID: "b1"}

	s = s.SelectPlatform("p2", l)
	if s.OperatorID != dto.All || s.BrandID != dto.All {
		t.Fatalf("incompatible descendants must reset, got %+v", s)
	}

	s = Selection{PlatformID: dto.All, OperatorID: "o1", BrandID: "b4"}.SelectPlatform("p1", l)
	if s.OperatorID != "o1" || s.BrandID != "b4" {
		t.Fatalf("compatible descendants must be kept, got %+v", s)
	}
}

func TestSelectOperatorResetsBrand(t *testing.T) {
	l := fixture()
	s := Selection{PlatformID: "p1", OperatorID: "o1", BrandID: "b1"}.SelectOperator("o2", l)
	if s.BrandID != dto.All {
		t.Fatalf("want brand reset, got %+v", s)
	}
	s = Selection{PlatformID: "p1", OperatorID: "o1", BrandID: "b1"}.SelectOperator(dto.All, l)
	if s.BrandID != "b1" {
		t.Fatalf("b1 still under p1, got %+v", s)
	}
}

func TestReconcileDropsDanglingIDs(t *testing.T) {
	l := fixture()
	l.Brands = l.Brands[1:] // b1 apagada
	s := Selection{PlatformID: "p1", OperatorID: "o1", BrandID: "b1"}.Reconcile(l)
	if s.PlatformID != "p1" || s.OperatorID != "o1" || s.BrandID != dto.All {
		t.Fatalf("unexpected %+v", s)
	}
	s = Selection{PlatformID: "p9", OperatorID: "o3"}.Reconcile(l)
	if s.PlatformID != dto.All || s.OperatorID != "o3" {
		t.Fatalf("unexpected %+v", s)
	}
}

func TestDerive(t *testing.T) {
	o := Derive(fixture(), Selection{PlatformID: "p2", OperatorID: dto.All})
	if len(o.Platforms) != 3 || !equal(values(o.Operators), []string{dto.All, "o3"}) || !equal(values(o.Brands), []string{dto.All, "b3"}) {
		t.Fatalf("unexpected %+v", o)
	}
}

func TestScope(t *testing.T) {
	l := fixture()
	u := dto.User{Role: dto.RoleOperator, PlatformIDs: []string{"p1"}, OperatorIDs: []string{"o2"}}
	got := Scope(u, l)
	if len(got.Platforms) != 1 || len(got.Operators) != 1 || got.Operators[0].ID != "o2" {
		t.Fatalf("unexpected scope %+v", got)
	}
	if len(got.Brands) != 1 || got.Brands[0].ID != "b2" {
		t.Fatalf("unexpected brands %+v", got.Brands)
	}
	if all := Scope(dto.User{Role: dto.RoleAdmin}, l); len(all.Brands) != 4 {
		t.Fatalf("empty scope lists must see everything")
	}
}
