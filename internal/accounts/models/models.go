package models

import (
	"strings"

	"prospector/internal/docstore"
	id "prospector/pkg/domain"
)

// Role is the account role stored on a user record.
type Role string

const (
	RoleSuperAdmin  Role = "super_admin"
	RoleSalesperson Role = "salesperson"
)

const (
	UsersCollection       = "users"
	SalespeopleCollection = "salespeople"
)

func UserRef(userID id.UserID) docstore.Ref {
	return docstore.Ref{Collection: UsersCollection, Key: userID.String()}
}

func SalespersonRef(userID id.UserID) docstore.Ref {
	return docstore.Ref{Collection: SalespeopleCollection, Key: userID.String()}
}

// UserRecord is the users document. CreatedAt is assigned by the store.
type UserRecord struct {
	Name  string
	Email string
	Role  Role
}

func (u UserRecord) Document() docstore.Document {
	return docstore.Document{
		"name":      u.Name,
		"email":     u.Email,
		"role":      string(u.Role),
		"createdAt": docstore.ServerTimestamp,
	}
}

// RoleOf reads the role of a users document. Missing or non-string roles
// yield "".
func RoleOf(doc docstore.Document) Role {
	role, _ := doc["role"].(string)
	return Role(role)
}

// SalespersonProfile is the salespeople document; totals start at zero.
type SalespersonProfile struct {
	Name            string
	Email           string
	TotalSalesValue float64
	SalesCount      int
}

func NewSalespersonProfile(name, email string) SalespersonProfile {
	return SalespersonProfile{Name: name, Email: email}
}

func (p SalespersonProfile) Document() docstore.Document {
	return docstore.Document{
		"name":            p.Name,
		"email":           p.Email,
		"totalSalesValue": p.TotalSalesValue,
		"salesCount":      p.SalesCount,
	}
}

// CreateSalespersonRequest is the create operation input.
type CreateSalespersonRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Normalize trims the name and trims and lowercases the email, matching how
// the identity service stores it. The password is taken as given.
func (r *CreateSalespersonRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

type CreateSalespersonResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	ID      string `json:"id"`
	Name    string `json:"name"`
}

type DeleteSalespersonResult struct {
	Success bool `json:"success"`
}
