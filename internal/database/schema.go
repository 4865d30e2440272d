package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; each statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id                CHAR(36)     NOT NULL PRIMARY KEY,
		name              VARCHAR(255) NOT NULL,
		subdomain         VARCHAR(63)  NOT NULL,
		status            ENUM('active','suspended','trial') NOT NULL DEFAULT 'active',
		subscription_plan ENUM('free','pro','enterprise')   NOT NULL DEFAULT 'free',
		max_users         INT UNSIGNED NOT NULL DEFAULT 5,
		max_projects      INT UNSIGNED NOT NULL DEFAULT 3,
		created_at        DATETIME(3)  NOT NULL,
		updated_at        DATETIME(3)  NOT NULL,
		UNIQUE KEY uq_tenants_subdomain (subdomain)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		tenant_id     CHAR(36)     NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		full_name     VARCHAR(255) NOT NULL,
		role          ENUM('super_admin','tenant_admin','user') NOT NULL DEFAULT 'user',
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME(3)  NOT NULL,
		updated_at    DATETIME(3)  NOT NULL,
		UNIQUE KEY uq_users_tenant_email (tenant_id, email),
		KEY idx_users_email (email),
		CONSTRAINT fk_users_tenant FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS projects (
		id          CHAR(36)     NOT NULL PRIMARY KEY,
		tenant_id   CHAR(36)     NOT NULL,
		name        VARCHAR(255) NOT NULL,
		description TEXT         NULL,
		status      ENUM('active','archived','completed') NOT NULL DEFAULT 'active',
		created_by  CHAR(36)     NOT NULL,
		created_at  DATETIME(3)  NOT NULL,
		updated_at  DATETIME(3)  NOT NULL,
		KEY idx_projects_tenant (tenant_id, created_at),
		CONSTRAINT fk_projects_tenant FOREIGN KEY (tenant_id) REFERENCES tenants(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id          CHAR(36)     NOT NULL PRIMARY KEY,
		project_id  CHAR(36)     NOT NULL,
		tenant_id   CHAR(36)     NOT NULL,
		title       VARCHAR(255) NOT NULL,
		description TEXT         NULL,
		status      ENUM('todo','in_progress','completed') NOT NULL DEFAULT 'todo',
		priority    ENUM('low','medium','high')            NOT NULL DEFAULT 'medium',
		assigned_to CHAR(36)     NULL,
		due_date    DATETIME(3)  NULL,
		created_at  DATETIME(3)  NOT NULL,
		updated_at  DATETIME(3)  NOT NULL,
		KEY idx_tasks_project (project_id),
		KEY idx_tasks_tenant (tenant_id),
		CONSTRAINT fk_tasks_project FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE,
		CONSTRAINT fk_tasks_assignee FOREIGN KEY (assigned_to) REFERENCES users(id) ON DELETE SET NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          CHAR(36)    NOT NULL PRIMARY KEY,
		tenant_id   CHAR(36)    NULL,
		user_id     CHAR(36)    NULL,
		action      VARCHAR(64) NOT NULL,
		entity_type VARCHAR(32) NOT NULL,
		entity_id   CHAR(36)    NOT NULL,
		ip_address  VARCHAR(64) NOT NULL DEFAULT '',
		created_at  DATETIME(3) NOT NULL,
		KEY idx_audit_tenant (tenant_id, created_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
