package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/taskhub/internal/config"
	"github.com/iliyamo/taskhub/internal/handler"
	"github.com/iliyamo/taskhub/internal/metrics"
	"github.com/iliyamo/taskhub/internal/model"
	"github.com/iliyamo/taskhub/internal/service"
	"github.com/iliyamo/taskhub/internal/service/servicetest"
	"github.com/iliyamo/taskhub/internal/utils"
)

type pinger struct{ err error }

func (p *pinger) PingContext(context.Context) error { return p.err }

type app struct {
	e      *echo.Echo
	db     *servicetest.MemDB
	ping   *pinger
	m      *metrics.Metrics
	rootID string
}

func newApp(t *testing.T) *app {
	t.Helper()
	db := servicetest.NewMemDB()
	tokens := utils.NewTokenService("0123456789abcdef0123456789abcdef", time.Hour)
	m := metrics.New("taskhub")
	audit := service.NewAuditDispatcher(service.LogSink{}, 64, m)
	t.Cleanup(func() { _ = audit.Close(context.Background()) })

	ts, us, ps, tks := db.TenantStore(), db.UserStore(), db.ProjectStore(), db.TaskStore()
	const cost = 4
	a := &app{db: db, ping: &pinger{}, m: m, rootID: uuid.NewString()}
	a.e = New(Deps{
		Tokens:    tokens,
		Metrics:   m,
		RateLimit: config.RateLimitConfig{Enabled: false},
		DB:        a.ping,
		Auth:      handler.NewAuthHandler(service.NewAuthService(ts, us, tokens, cost, audit, m)),
		Tenants:   handler.NewTenantHandler(service.NewTenantService(ts, audit)),
		Users:     handler.NewUserHandler(service.NewUserService(ts, us, cost, audit, m)),
		Projects:  handler.NewProjectHandler(service.NewProjectService(ps, audit, m)),
		Tasks:     handler.NewTaskHandler(service.NewTaskService(ps, tks, us, audit)),
	})

	hash, err := utils.HashPassword("rootpassword", cost)
	require.NoError(t, err)
	db.SeedUser(model.User{ID: a.rootID, Email: "superadmin@system.com", PasswordHash: hash,
		FullName: "Super Admin", Role: model.RoleSuperAdmin, IsActive: true})
	return a
}

type reply struct {
	Code    int
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	raw     string
}

func (a *app) do(t *testing.T, method, path, token, body string) reply {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	r := reply{Code: rec.Code, raw: rec.Body.String()}
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &r), rec.Body.String())
	}
	return r
}

func (r reply) into(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, v), string(r.Data))
}

type session struct {
	token    string
	userID   string
	tenantID string
}

func (a *app) register(t *testing.T, sub string) session {
	t.Helper()
	r := a.do(t, http.MethodPost, "/api/auth/register-tenant", "", `{
		"tenantName":"Tenant `+sub+`","subdomain":"`+sub+`",
		"adminEmail":"admin@`+sub+`.io","adminPassword":"password123","adminFullName":"Admin"}`)
	require.Equal(t, http.StatusCreated, r.Code, r.raw)
	return a.login(t, "admin@"+sub+".io", "password123", sub)
}

func (a *app) login(t *testing.T, email, password, sub string) session {
	t.Helper()
	body := `{"email":"` + email + `","password":"` + password + `"`
	if sub != "" {
		body += `,"tenantSubdomain":"` + sub + `"`
	}
	r := a.do(t, http.MethodPost, "/api/auth/login", "", body+"}")
	require.Equal(t, http.StatusOK, r.Code, r.raw)
	var res struct {
		Token string `json:"token"`
		User  struct {
			ID       string  `json:"id"`
			TenantID *string `json:"tenantId"`
		} `json:"user"`
	}
	r.into(t, &res)
	s := session{token: res.Token, userID: res.User.ID}
	if res.User.TenantID != nil {
		s.tenantID = *res.User.TenantID
	}
	return s
}

func (a *app) addUser(t *testing.T, admin session, email string) session {
	t.Helper()
	r := a.do(t, http.MethodPost, "/api/tenants/"+admin.tenantID+"/users", admin.token,
		`{"email":"`+email+`","password":"password123","fullName":"Member"}`)
	require.Equal(t, http.StatusCreated, r.Code, r.raw)
	sub := a.db.Tenants[admin.tenantID].Subdomain
	return a.login(t, email, "password123", sub)
}

func (a *app) createProject(t *testing.T, s session, name string) string {
	t.Helper()
	r := a.do(t, http.MethodPost, "/api/projects", s.token, `{"name":"`+name+`"}`)
	require.Equal(t, http.StatusCreated, r.Code, r.raw)
	var p model.Project
	r.into(t, &p)
	return p.ID
}

func TestRegisterLoginMe(t *testing.T) {
	a := newApp(t)

	r := a.do(t, http.MethodPost, "/api/auth/register-tenant", "", `{"tenantName":"Acme","subdomain":"acme",
		"adminEmail":"admin@acme.io","adminPassword":"password123","adminFullName":"Alice"}`)
	require.Equal(t, http.StatusCreated, r.Code, r.raw)
	assert.True(t, r.Success)
	assert.Equal(t, "Tenant registered successfully", r.Message)
	var reg service.RegisterTenantResult
	r.into(t, &reg)
	assert.Equal(t, "acme", reg.Subdomain)
	assert.Equal(t, model.RoleTenantAdmin, reg.AdminUser.Role)
	assert.NotContains(t, r.raw, "password")

	s := a.login(t, "admin@acme.io", "password123", "acme")
	assert.Equal(t, reg.TenantID, s.tenantID)

	r = a.do(t, http.MethodGet, "/api/auth/me", s.token, "")
	require.Equal(t, http.StatusOK, r.Code, r.raw)
	var me service.Profile
	r.into(t, &me)
	assert.Equal(t, "Alice", me.FullName)
	require.NotNil(t, me.Tenant)
	assert.Equal(t, model.PlanFree, me.Tenant.SubscriptionPlan)

	r = a.do(t, http.MethodPost, "/api/auth/logout", s.token, "")
	assert.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "Logged out successfully", r.Message)
}

func TestAuthFailures(t *testing.T) {
	a := newApp(t)
	a.register(t, "acme")

	r := a.do(t, http.MethodPost, "/api/auth/login", "", `{"email":"admin@acme.io","password":"nope-nope","tenantSubdomain":"acme"}`)
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	assert.False(t, r.Success)
	assert.Equal(t, "Invalid credentials", r.Message)

	r = a.do(t, http.MethodGet, "/api/projects", "", "")
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	assert.Equal(t, "No token provided", r.Message)

	r = a.do(t, http.MethodGet, "/api/projects", "garbage", "")
	assert.Equal(t, http.StatusUnauthorized, r.Code)
	assert.Equal(t, "Invalid token", r.Message)
}

func TestSuperAdminLogin(t *testing.T) {
	a := newApp(t)
	root := a.login(t, "superadmin@system.com", "rootpassword", "")
	assert.Equal(t, a.rootID, root.userID)
	assert.Empty(t, root.tenantID)

	acme := a.register(t, "acme")
	a.register(t, "globex")

	r := a.do(t, http.MethodGet, "/api/tenants?limit=1", root.token, "")
	require.Equal(t, http.StatusOK, r.Code, r.raw)
	var list service.TenantList
	r.into(t, &list)
	assert.Len(t, list.Tenants, 2) // in-memory store does not paginate
	assert.Equal(t, 2, list.Pagination.TotalPages)

	r = a.do(t, http.MethodGet, "/api/tenants", acme.token, "")
	assert.Equal(t, http.StatusForbidden, r.Code)

	r = a.do(t, http.MethodGet, "/api/projects", root.token, "")
	assert.Equal(t, http.StatusForbidden, r.Code)
	assert.Equal(t, "Access denied. Super admin must specify a tenant", r.Message)

	r = a.do(t, http.MethodGet, "/api/projects?tenantId="+acme.tenantID, root.token, "")
	assert.Equal(t, http.StatusOK, r.Code, r.raw)
}

func TestMalformedInput(t *testing.T) {
	a := newApp(t)
	s := a.register(t, "acme")

	r := a.do(t, http.MethodPut, "/api/projects/not-a-uuid", s.token, `{"name":"x"}`)
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "Invalid project ID format", r.Message)

	r = a.do(t, http.MethodPost, "/api/projects", s.token, `{"name":"x","owner":"me"}`)
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Contains(t, r.Message, "owner")

	r = a.do(t, http.MethodPost, "/api/projects", s.token, `{"name":`)
	assert.Equal(t, http.StatusBadRequest, r.Code)

	r = a.do(t, http.MethodPost, "/api/projects", s.token, "")
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "Request body is required", r.Message)

	r = a.do(t, http.MethodGet, "/api/projects?limit=500", s.token, "")
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "limit must be between 1 and 100", r.Message)

	pid := a.createProject(t, s, "P")
	r = a.do(t, http.MethodPost, "/api/projects/"+pid+"/tasks", s.token, `{"title":"T","assignedTo":"1 OR 1=1"}`)
	assert.Equal(t, http.StatusBadRequest, r.Code)
	assert.Equal(t, "Invalid assignedTo user ID format", r.Message)

	r = a.do(t, http.MethodGet, "/api/nothing-here", s.token, "")
	assert.Equal(t, http.StatusNotFound, r.Code)
	assert.Equal(t, "Route not found", r.Message)
}

func TestCrossTenantRequestsAreNotFound(t *testing.T) {
	a := newApp(t)
	acme := a.register(t, "acme")
	globex := a.register(t, "globex")
	pid := a.createProject(t, acme, "Acme secret")

	foreign := a.do(t, http.MethodPut, "/api/projects/"+pid, globex.token, `{"name":"Pwned"}`)
	missing := a.do(t, http.MethodPut, "/api/projects/"+uuid.NewString(), globex.token, `{"name":"Pwned"}`)
	assert.Equal(t, http.StatusNotFound, foreign.Code)
	assert.Equal(t, missing.raw, foreign.raw)

	for _, path := range []string{
		"/api/tenants/" + acme.tenantID,
		"/api/tenants/" + acme.tenantID + "/users",
		"/api/projects/" + pid + "/tasks",
	} {
		r := a.do(t, http.MethodGet, path, globex.token, "")
		assert.Equal(t, http.StatusNotFound, r.Code, path)
	}
	r := a.do(t, http.MethodDelete, "/api/users/"+acme.userID, globex.token, "")
	assert.Equal(t, http.StatusNotFound, r.Code)

	// A plain member sees a foreign tenant as missing on write as well as read,
	// and is only refused outright on their own tenant.
	member := a.addUser(t, globex, "m@globex.io")
	get := a.do(t, http.MethodGet, "/api/tenants/"+acme.tenantID, member.token, "")
	put := a.do(t, http.MethodPut, "/api/tenants/"+acme.tenantID, member.token, `{"name":"Pwned"}`)
	assert.Equal(t, http.StatusNotFound, put.Code)
	assert.Equal(t, get.raw, put.raw)
	r = a.do(t, http.MethodPut, "/api/tenants/"+globex.tenantID, member.token, `{"name":"Pwned"}`)
	assert.Equal(t, http.StatusForbidden, r.Code)
	assert.Equal(t, "Access denied. Only tenant admins and super admins can update tenants", r.Message)

	assert.Equal(t, "Acme secret", a.db.Projects[pid].Name)
	assert.Contains(t, a.db.Users, acme.userID)
}

func TestTenantAdminCannotRaiseOwnCaps(t *testing.T) {
	a := newApp(t)
	s := a.register(t, "acme")

	r := a.do(t, http.MethodPut, "/api/tenants/"+s.tenantID, s.token, `{"name":"Acme Inc","maxUsers":1000}`)
	assert.Equal(t, http.StatusForbidden, r.Code)
	assert.Contains(t, r.Message, "maxUsers")

	r = a.do(t, http.MethodGet, "/api/tenants/"+s.tenantID, s.token, "")
	require.Equal(t, http.StatusOK, r.Code)
	var tenant model.Tenant
	r.into(t, &tenant)
	assert.Equal(t, "Tenant acme", tenant.Name)
	assert.Equal(t, model.DefaultMaxUsers, tenant.MaxUsers)

	r = a.do(t, http.MethodPut, "/api/tenants/"+s.tenantID, s.token, `{"name":"Acme Inc"}`)
	assert.Equal(t, http.StatusOK, r.Code, r.raw)
	assert.Equal(t, "Tenant updated successfully", r.Message)
}

func TestUserCannotPromoteSelf(t *testing.T) {
	a := newApp(t)
	admin := a.register(t, "acme")
	member := a.addUser(t, admin, "m@acme.io")

	r := a.do(t, http.MethodPut, "/api/users/"+member.userID, member.token, `{"role":"tenant_admin"}`)
	assert.Equal(t, http.StatusForbidden, r.Code)
	assert.Equal(t, model.RoleUser, a.db.Users[member.userID].Role)

	r = a.do(t, http.MethodPut, "/api/users/"+member.userID, member.token, `{"fullName":"Renamed"}`)
	assert.Equal(t, http.StatusOK, r.Code, r.raw)

	r = a.do(t, http.MethodPut, "/api/users/"+member.userID, admin.token, `{"role":"super_admin"}`)
	assert.Equal(t, http.StatusForbidden, r.Code)

	r = a.do(t, http.MethodDelete, "/api/users/"+admin.userID, admin.token, "")
	assert.Equal(t, http.StatusForbidden, r.Code)
	assert.Equal(t, "Cannot delete yourself", r.Message)

	r = a.do(t, http.MethodDelete, "/api/users/"+member.userID, admin.token, "")
	assert.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "User deleted successfully", r.Message)
}

func TestTaskFlow(t *testing.T) {
	a := newApp(t)
	admin := a.register(t, "acme")
	creator := a.addUser(t, admin, "c@acme.io")
	worker := a.addUser(t, admin, "w@acme.io")
	pid := a.createProject(t, creator, "Launch")

	r := a.do(t, http.MethodPost, "/api/projects/"+pid+"/tasks", worker.token,
		`{"title":"Write docs","priority":"high","assignedTo":"`+worker.userID+`","dueDate":"2026-11-01"}`)
	require.Equal(t, http.StatusCreated, r.Code, r.raw)
	var task model.Task
	r.into(t, &task)
	assert.Equal(t, model.TaskTodo, task.Status)

	for _, st := range []string{"completed", "todo"} {
		r = a.do(t, http.MethodPatch, "/api/tasks/"+task.ID+"/status", worker.token, `{"status":"`+st+`"}`)
		require.Equal(t, http.StatusOK, r.Code, r.raw)
	}
	assert.Equal(t, model.TaskTodo, a.db.Tasks[task.ID].Status)

	r = a.do(t, http.MethodPut, "/api/tasks/"+task.ID, worker.token, `{"dueDate":null,"description":"now with text"}`)
	require.Equal(t, http.StatusOK, r.Code, r.raw)
	assert.Nil(t, a.db.Tasks[task.ID].DueDate)

	r = a.do(t, http.MethodGet, "/api/projects/"+pid+"/tasks?status=todo", worker.token, "")
	require.Equal(t, http.StatusOK, r.Code, r.raw)
	var list service.TaskList
	r.into(t, &list)
	assert.Equal(t, 1, list.Total)

	r = a.do(t, http.MethodDelete, "/api/tasks/"+task.ID, worker.token, "")
	assert.Equal(t, http.StatusForbidden, r.Code)
	r = a.do(t, http.MethodDelete, "/api/tasks/"+task.ID, creator.token, "")
	assert.Equal(t, http.StatusOK, r.Code)

	r = a.do(t, http.MethodDelete, "/api/projects/"+pid, worker.token, "")
	assert.Equal(t, http.StatusForbidden, r.Code)
	r = a.do(t, http.MethodDelete, "/api/projects/"+pid, admin.token, "")
	assert.Equal(t, http.StatusOK, r.Code)
	assert.Equal(t, "Project deleted successfully", r.Message)
}

func TestCapsOverHTTP(t *testing.T) {
	a := newApp(t)
	s := a.register(t, "acme")
	for i := 0; i < model.DefaultMaxProjects; i++ {
		a.createProject(t, s, "P")
	}
	r := a.do(t, http.MethodPost, "/api/projects", s.token, `{"name":"Over"}`)
	assert.Equal(t, http.StatusForbidden, r.Code)
	assert.Equal(t, "Project limit reached. Cannot create more projects", r.Message)

	for i := 1; i < model.DefaultMaxUsers; i++ {
		a.addUser(t, s, "u"+string(rune('a'+i))+"@acme.io")
	}
	r = a.do(t, http.MethodPost, "/api/tenants/"+s.tenantID+"/users", s.token,
		`{"email":"late@acme.io","password":"password123","fullName":"Late"}`)
	assert.Equal(t, http.StatusForbidden, r.Code)
	assert.Equal(t, "Subscription limit reached. Cannot add more users", r.Message)

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `taskhub_limit_rejections_total{resource="project"} 1`)
	assert.Contains(t, body, `taskhub_limit_rejections_total{resource="user"} 1`)
}

func TestHealth(t *testing.T) {
	a := newApp(t)

	r := a.do(t, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, r.Code)
	assert.JSONEq(t, `{"status":"ok","database":"connected"}`, string(r.Data))

	a.ping.err = errors.New("connection refused")
	r = a.do(t, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, r.Code)
	assert.JSONEq(t, `{"status":"error","database":"disconnected"}`, r.raw)
}
