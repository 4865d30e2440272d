package model

import "time"

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectArchived  ProjectStatus = "archived"
	ProjectCompleted ProjectStatus = "completed"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectArchived, ProjectCompleted:
		return true
	}
	return false
}

// Project mirrors the `projects` table. TenantID and CreatedBy never change
// after creation.
type Project struct {
	ID          string        `json:"id"`
	TenantID    string        `json:"tenantId"`
	Name        string        `json:"name"`
	Description *string       `json:"description"`
	Status      ProjectStatus `json:"status"`
	CreatedBy   string        `json:"createdBy"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// ProjectSummary is a project row in a tenant listing.
type ProjectSummary struct {
	ID                 string        `json:"id"`
	Name               string        `json:"name"`
	Description        *string       `json:"description"`
	Status             ProjectStatus `json:"status"`
	CreatedBy          UserRef       `json:"createdBy"`
	TaskCount          int           `json:"taskCount"`
	CompletedTaskCount int           `json:"completedTaskCount"`
	CreatedAt          time.Time     `json:"createdAt"`
}
