package dto

// Papéis de usuário do back-office
const (
	RoleSuperAdmin = "superadmin"
	RoleAdmin      = "admin"
	RoleOperator   = "operator"
	RoleViewer     = "viewer"
)

// User é um usuário do console; listas vazias de escopo = acesso a tudo
type User struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Role        string   `json:"role"`
	Password    string   `json:"password,omitempty"` // só em create/update
	PlatformIDs []string `json:"platformIds"`
	OperatorIDs []string `json:"operatorIds"`
	BrandIDs    []string `json:"brandIds"`
	IsActive    bool     `json:"isActive"`
}

func (u User) Validate() error {
	v := &ValidationError{}
	v.Required("email", u.Email)
	v.Email("email", u.Email)
	v.Required("role", u.Role)
	v.OneOf("role", u.Role, RoleSuperAdmin, RoleAdmin, RoleOperator, RoleViewer)
	if u.ID == "" {
		// criação exige senha; na edição é opcional
		v.Required("password", u.Password)
	}
	if u.Password != "" && len(u.Password) < 8 {
		v.add("password", "must have at least 8 characters")
	}
	return v.OrNil()
}
