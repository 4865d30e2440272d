package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, RoleSuperAdmin.AtLeast(RoleTenantAdmin))
	assert.True(t, RoleTenantAdmin.AtLeast(RoleTenantAdmin))
	assert.True(t, RoleTenantAdmin.AtLeast(RoleUser))
	assert.False(t, RoleUser.AtLeast(RoleTenantAdmin))
	assert.False(t, Role("owner").AtLeast(RoleUser))
	assert.False(t, Role("").AtLeast(Role("")))
}

func TestEnumsValid(t *testing.T) {
	assert.True(t, RoleUser.Valid())
	assert.False(t, Role("admin").Valid())
	assert.True(t, TenantTrial.Valid())
	assert.False(t, TenantStatus("deleted").Valid())
	assert.True(t, PlanEnterprise.Valid())
	assert.False(t, SubscriptionPlan("gold").Valid())
	assert.True(t, ProjectArchived.Valid())
	assert.True(t, TaskInProgress.Valid())
	assert.False(t, TaskStatus("done").Valid())
	assert.True(t, PriorityHigh.Valid())
}

func TestOptionalTracksPresence(t *testing.T) {
	var body struct {
		Name        Optional[string] `json:"name"`
		Description Optional[string] `json:"description"`
		Status      Optional[string] `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Docs","description":null}`), &body))

	assert.True(t, body.Name.Set)
	require.NotNil(t, body.Name.Value)
	assert.Equal(t, "Docs", *body.Name.Value)

	assert.True(t, body.Description.Set)
	assert.True(t, body.Description.IsNull())

	assert.False(t, body.Status.Set)
	assert.False(t, body.Status.IsNull())
}

func TestUserNeverSerialisesHash(t *testing.T) {
	b, err := json.Marshal(User{ID: "u1", Email: "a@b.co", PasswordHash: "$2a$10$secret"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "secret")
	assert.NotContains(t, string(b), "passwordHash")
}
