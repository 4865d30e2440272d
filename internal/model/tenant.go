package model

import "time"

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
	TenantTrial     TenantStatus = "trial"
)

func (s TenantStatus) Valid() bool {
	switch s {
	case TenantActive, TenantSuspended, TenantTrial:
		return true
	}
	return false
}

// SubscriptionPlan names the billing tier of a tenant.
type SubscriptionPlan string

const (
	PlanFree       SubscriptionPlan = "free"
	PlanPro        SubscriptionPlan = "pro"
	PlanEnterprise SubscriptionPlan = "enterprise"
)

func (p SubscriptionPlan) Valid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// Defaults applied to tenants created through self-service registration.
const (
	DefaultMaxUsers    = 5
	DefaultMaxProjects = 3
)

// Tenant mirrors the `tenants` table.
type Tenant struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Subdomain        string           `json:"subdomain"`
	Status           TenantStatus     `json:"status"`
	SubscriptionPlan SubscriptionPlan `json:"subscriptionPlan"`
	MaxUsers         int              `json:"maxUsers"`
	MaxProjects      int              `json:"maxProjects"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// TenantSummary is a tenant row in the super-admin listing, with usage counts.
type TenantSummary struct {
	Tenant
	CurrentUsers    int `json:"currentUsers"`
	CurrentProjects int `json:"currentProjects"`
}

// TenantRef is the public part of a tenant attached to the current user.
type TenantRef struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Subdomain        string           `json:"subdomain"`
	SubscriptionPlan SubscriptionPlan `json:"subscriptionPlan"`
	MaxUsers         int              `json:"maxUsers"`
	MaxProjects      int              `json:"maxProjects"`
}
