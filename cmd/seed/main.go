// Command seed loads a super admin and a demo tenant into an empty database.
// Running it twice leaves existing rows untouched.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/taskhub/internal/config"
	"github.com/iliyamo/taskhub/internal/database"
	"github.com/iliyamo/taskhub/internal/logger"
	"github.com/iliyamo/taskhub/internal/model"
	"github.com/iliyamo/taskhub/internal/repository"
	"github.com/iliyamo/taskhub/internal/utils"
)

type seeder struct {
	tenants  *repository.TenantRepo
	users    *repository.UserRepo
	projects *repository.ProjectRepo
	tasks    *repository.TaskRepo
	cost     int
	lg       *zap.Logger
}

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.Env, "taskhub-seed"); err != nil {
		log.Fatal(err)
	}
	lg := logger.L()
	defer func() { _ = lg.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		lg.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		lg.Fatal("schema migration failed", zap.Error(err))
	}

	s := seeder{
		tenants:  repository.NewTenantRepo(db),
		users:    repository.NewUserRepo(db),
		projects: repository.NewProjectRepo(db),
		tasks:    repository.NewTaskRepo(db),
		cost:     utils.ClampCost(cfg.BcryptCost),
		lg:       lg,
	}
	if err := s.run(ctx); err != nil {
		lg.Error("seed failed", zap.Error(err))
		os.Exit(1)
	}
	lg.Info("seed complete")
}

func (s seeder) run(ctx context.Context) error {
	if _, err := s.user(ctx, nil, "superadmin@system.com", "Admin@123", "Super Admin", model.RoleSuperAdmin); err != nil {
		return err
	}

	tenant, created, err := s.tenant(ctx)
	if err != nil {
		return err
	}
	admin, err := s.user(ctx, &tenant.ID, "admin@demo.com", "Demo@123", "Demo Admin", model.RoleTenantAdmin)
	if err != nil {
		return err
	}
	alice, err := s.user(ctx, &tenant.ID, "user1@demo.com", "User@123", "Alice Smith", model.RoleUser)
	if err != nil {
		return err
	}
	bob, err := s.user(ctx, &tenant.ID, "user2@demo.com", "User@123", "Bob Jones", model.RoleUser)
	if err != nil {
		return err
	}
	if !created {
		s.lg.Info("demo tenant already present, skipping projects")
		return nil
	}
	return s.projectsAndTasks(ctx, tenant.ID, admin.ID, alice.ID, bob.ID)
}

func (s seeder) tenant(ctx context.Context) (model.Tenant, bool, error) {
	t, err := s.tenants.GetBySubdomain(ctx, "demo")
	if err == nil {
		return t, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Tenant{}, false, err
	}
	t = model.Tenant{
		Name: "Demo Company", Subdomain: "demo", Status: model.TenantActive,
		SubscriptionPlan: model.PlanPro, MaxUsers: 25, MaxProjects: 15,
	}
	if err := s.tenants.Create(ctx, &t); err != nil {
		return model.Tenant{}, false, err
	}
	s.lg.Info("created tenant", zap.String("subdomain", t.Subdomain), zap.String("id", t.ID))
	return t, true, nil
}

// user returns the existing account for email in the tenant scope or
// creates it.
func (s seeder) user(ctx context.Context, tenantID *string, email, password, name string, role model.Role) (model.User, error) {
	u, err := s.users.FindForLogin(ctx, email, tenantID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.User{}, err
	}
	hash, err := utils.HashPassword(password, s.cost)
	if err != nil {
		return model.User{}, err
	}
	u = model.User{TenantID: tenantID, Email: email, PasswordHash: hash, FullName: name, Role: role, IsActive: true}
	if err := s.users.Create(ctx, &u); err != nil {
		return model.User{}, err
	}
	s.lg.Info("created user", zap.String("email", u.Email), zap.String("role", string(role)))
	return u, nil
}

func (s seeder) projectsAndTasks(ctx context.Context, tenantID, adminID, aliceID, bobID string) error {
	desc := func(v string) *string { return &v }
	website := model.Project{TenantID: tenantID, Name: "Website Redesign",
		Description: desc("Refresh the marketing site"), Status: model.ProjectActive, CreatedBy: adminID}
	mobile := model.Project{TenantID: tenantID, Name: "Mobile App Development",
		Description: desc("First release of the iOS and Android apps"), Status: model.ProjectActive, CreatedBy: aliceID}
	for _, p := range []*model.Project{&website, &mobile} {
		if err := s.projects.CreateWithinCap(ctx, p); err != nil {
			return err
		}
	}

	due := time.Now().UTC().AddDate(0, 0, 14).Truncate(24 * time.Hour)
	tasks := []model.Task{
		{ProjectID: website.ID, Title: "Design new homepage", Status: model.TaskInProgress, Priority: model.PriorityHigh, AssignedTo: &aliceID, DueDate: &due},
		{ProjectID: website.ID, Title: "Write copy for landing pages", Status: model.TaskTodo, Priority: model.PriorityMedium, AssignedTo: &bobID},
		{ProjectID: website.ID, Title: "Set up analytics", Status: model.TaskCompleted, Priority: model.PriorityLow},
		{ProjectID: mobile.ID, Title: "Build login screen", Status: model.TaskTodo, Priority: model.PriorityHigh, AssignedTo: &bobID, DueDate: &due},
		{ProjectID: mobile.ID, Title: "Configure push notifications", Status: model.TaskTodo, Priority: model.PriorityMedium},
	}
	for i := range tasks {
		tasks[i].TenantID = tenantID
		if err := s.tasks.Create(ctx, &tasks[i]); err != nil {
			return err
		}
	}
	s.lg.Info("created demo projects", zap.Int("projects", 2), zap.Int("tasks", len(tasks)))
	return nil
}
