package domain

import (
	"encoding/json"
	"strings"
)

const (
	RoleClient   = "client"
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u User) IsAdmin() bool    { return string(u.Role) == RoleAdmin }
func (u User) IsEmployee() bool { return string(u.Role) == RoleEmployee }

// Role arrives from the backend either as a bare string or as a nested
// object carrying a name-like field. It always unmarshals to a trimmed
// lowercase string so consumers never branch on shape.
type Role string

func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = normalizeRole(s)
		return nil
	}

	var obj struct {
		Name   string `json:"name"`
		Nombre string `json:"nombre"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	if obj.Name != "" {
		*r = normalizeRole(obj.Name)
	} else {
		*r = normalizeRole(obj.Nombre)
	}
	return nil
}

func normalizeRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}
