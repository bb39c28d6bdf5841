package dto

// All é o sentinela "sem filtro" usado nos selects e nos filtros de listagem
const All = "ALL"

// Platform é a raiz da hierarquia
type Platform struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Operator pertence a uma Platform
type Operator struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PlatformID string `json:"platformId"`
}

// Brand pertence a um Operator (e transitivamente a uma Platform)
type Brand struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PlatformID string `json:"platformId"`
	OperatorID string `json:"operatorId"`
	IsActive   bool   `json:"isActive"`
}

// IsConcrete informa se o id selecionado aponta para uma entidade (nem vazio nem "ALL")
func IsConcrete(id string) bool { return id != "" && id != All }

func (p Platform) Validate() error {
	v := &ValidationError{}
	v.Required("name", p.Name)
	return v.OrNil()
}

func (o Operator) Validate() error {
	v := &ValidationError{}
	v.Required("name", o.Name)
	v.Required("platformId", o.PlatformID)
	return v.OrNil()
}

func (b Brand) Validate() error {
	v := &ValidationError{}
	v.Required("name", b.Name)
	v.Required("platformId", b.PlatformID)
	v.Required("operatorId", b.OperatorID)
	return v.OrNil()
}

// Option é um item de select (value/label)
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
