package policy

import (
	"sort"
	"strings"

	"github.com/iliyamo/taskhub/internal/apperr"
	"github.com/iliyamo/taskhub/internal/model"
)

// Field names as they appear in request bodies.
const (
	FieldName             = "name"
	FieldStatus           = "status"
	FieldSubscriptionPlan = "subscriptionPlan"
	FieldMaxUsers         = "maxUsers"
	FieldMaxProjects      = "maxProjects"
	FieldFullName         = "fullName"
	FieldRole             = "role"
	FieldIsActive         = "isActive"
)

// TenantUpdateMask returns the fields a caller may change on a tenant. It
// assumes Decide already allowed the update.
func TenantUpdateMask(a Actor) []string {
	if a.IsSuperAdmin() {
		return []string{FieldName, FieldStatus, FieldSubscriptionPlan, FieldMaxUsers, FieldMaxProjects}
	}
	if a.Role == model.RoleTenantAdmin {
		return []string{FieldName}
	}
	return nil
}

// UserUpdateMask returns the fields a caller may change on a user. Editing
// one's own record is limited to fullName whatever the caller's role.
func UserUpdateMask(a Actor, targetUserID string) []string {
	if a.UserID == targetUserID {
		return []string{FieldFullName}
	}
	if a.Role.AtLeast(model.RoleTenantAdmin) {
		return []string{FieldFullName, FieldRole, FieldIsActive}
	}
	return nil
}

// CheckFields rejects the whole request when any present field is outside
// allowed. Nothing is applied partially.
func CheckFields(allowed, present []string, who string) error {
	ok := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		ok[f] = true
	}
	var denied []string
	for _, f := range present {
		if !ok[f] {
			denied = append(denied, f)
		}
	}
	if len(denied) == 0 {
		return nil
	}
	sort.Strings(denied)
	return apperr.Forbidden(who + " can only update " + quoteList(allowed) + ". Cannot update: " + strings.Join(denied, ", "))
}

func quoteList(fields []string) string {
	if len(fields) == 0 {
		return "no fields"
	}
	q := make([]string, len(fields))
	for i, f := range fields {
		q[i] = "'" + f + "'"
	}
	return strings.Join(q, ", ")
}
