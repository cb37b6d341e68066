package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"prospector/internal/docstore"
	id "prospector/pkg/domain"
)

func TestDocuments(t *testing.T) {
	user := UserRecord{Name: "Ana", Email: "ana@x.com", Role: RoleSalesperson}.Document()
	assert.Equal(t, "salesperson", user["role"])
	assert.Equal(t, docstore.ServerTimestamp, user["createdAt"])

	profile := NewSalespersonProfile("Ana", "ana@x.com").Document()
	assert.Equal(t, 0.0, profile["totalSalesValue"])
	assert.Equal(t, 0, profile["salesCount"])
}

func TestRoleOf(t *testing.T) {
	assert.Equal(t, RoleSuperAdmin, RoleOf(docstore.Document{"role": "super_admin"}))
	assert.Equal(t, Role(""), RoleOf(docstore.Document{"role": 7.0}))
	assert.Equal(t, Role(""), RoleOf(nil))
}

func TestRefsShareTheUserID(t *testing.T) {
	userID := id.NewUserID()
	assert.Equal(t, UserRef(userID).Key, SalespersonRef(userID).Key)
	assert.Equal(t, "users", UserRef(userID).Collection)
	assert.Equal(t, "salespeople", SalespersonRef(userID).Collection)
}

func TestNormalize(t *testing.T) {
	req := CreateSalespersonRequest{Name: "  Ana ", Email: " Ana@X.com", Password: " pw "}
	req.Normalize()
	assert.Equal(t, "Ana", req.Name)
	assert.Equal(t, "ana@x.com", req.Email)
	assert.Equal(t, " pw ", req.Password)
}
