// Package audit persists an append-only trail of authorized actions. The
// write path is asynchronous and best-effort: a failed audit write is
// logged and swallowed, never surfaced to the request it describes.
package audit

import (
	"fmt"
	"time"
)

// Severity grades a record. Numeric so dashboards can threshold on it.
type Severity int

const (
	SeverityLow Severity = iota + 1
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// Categories classify records for the read-side queries.
const (
	CategoryAuthentication   = "authentication"
	CategoryAuthorization    = "authorization"
	CategoryDataModification = "data_modification"
	CategoryDataAccess       = "data_access"
	CategorySystemOperation  = "system_operation"
	CategorySecurity         = "security"
	CategoryError            = "error"
)

// Actions. A closed set by convention; the read-side filters and CSV
// export only know these labels.
const (
	ActionCreateUser          = "CREATE_USER"
	ActionUpdateUser          = "UPDATE_USER"
	ActionUpdateProfile       = "UPDATE_PROFILE"
	ActionDeleteUser          = "DELETE_USER"
	ActionActivateUser        = "ACTIVATE_USER"
	ActionDeactivateUser      = "DEACTIVATE_USER"
	ActionRejectUser          = "REJECT_USER"
	ActionPermanentDeleteUser = "PERMANENT_DELETE_USER"
	ActionChangeUserRole      = "CHANGE_USER_ROLE"
	ActionResetUserPassword   = "RESET_USER_PASSWORD"
	ActionUserLogin           = "USER_LOGIN"
	ActionUserLogout          = "USER_LOGOUT"
	ActionFailedLoginAttempt  = "FAILED_LOGIN_ATTEMPT"

	ActionCreateProject = "CREATE_PROJECT"
	ActionUpdateProject = "UPDATE_PROJECT"
	ActionDeleteProject = "DELETE_PROJECT"
	ActionAssignUser    = "ASSIGN_USER_TO_PROJECT"
	ActionRemoveUser    = "REMOVE_USER_FROM_PROJECT"

	ActionSystemBackup      = "SYSTEM_BACKUP"
	ActionSystemMaintenance = "SYSTEM_MAINTENANCE"
	ActionBulkOperation     = "BULK_OPERATION"
	ActionExportData        = "EXPORT_DATA"

	ActionSecurityViolation  = "SECURITY_VIOLATION"
	ActionUnauthorizedAccess = "UNAUTHORIZED_ACCESS_ATTEMPT"
	ActionPasswordChange     = "PASSWORD_CHANGE"
)

// Resource labels.
const (
	ResourceUser     = "User"
	ResourceProject  = "Project"
	ResourceSystem   = "System"
	ResourceAuth     = "Auth"
	ResourceSecurity = "Security"
	ResourceReport   = "Report"
)

// Record is one audit trail entry. The actor fields are a denormalized
// snapshot taken at write time, so the record stays readable after the
// actor's role changes or the actor is deleted. Records are immutable
// once written; MarkAsError is the single sanctioned follow-up write.
type Record struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ActorID      string    `json:"actor_id,omitempty"`
	ActorEmail   string    `json:"actor_email"`
	ActorName    string    `json:"actor_name"`
	ActorRole    string    `json:"actor_role"`
	Action       string    `json:"action"`
	Resource     string    `json:"resource"`
	ResourceID   string    `json:"resource_id,omitempty"`
	Description  string    `json:"description"`
	OldValue     any       `json:"old_value,omitempty"`
	NewValue     any       `json:"new_value,omitempty"`
	Method       string    `json:"method,omitempty"`
	Path         string    `json:"path,omitempty"`
	StatusCode   int       `json:"status_code,omitempty"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	Severity     Severity  `json:"severity"`
	Category     string    `json:"category"`
	IsError      bool      `json:"is_error"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

var actionDescriptions = map[string]string{
	ActionCreateUser:          "Created new user",
	ActionUpdateUser:          "Updated user",
	ActionUpdateProfile:       "Updated own profile",
	ActionDeleteUser:          "Deactivated user",
	ActionPermanentDeleteUser: "Permanently deleted user",
	ActionActivateUser:        "Activated user account",
	ActionDeactivateUser:      "Deactivated user account",
	ActionRejectUser:          "Rejected user registration",
	ActionChangeUserRole:      "Changed user role",
	ActionResetUserPassword:   "Reset user password",
	ActionUserLogin:           "User logged in",
	ActionUserLogout:          "User logged out",
	ActionFailedLoginAttempt:  "Failed login attempt",
	ActionCreateProject:       "Created new project",
	ActionUpdateProject:       "Updated project",
	ActionDeleteProject:       "Deleted project",
	ActionSecurityViolation:   "Security violation detected",
	ActionUnauthorizedAccess:  "Unauthorized access attempt",
	ActionBulkOperation:       "Bulk operation executed",
	ActionExportData:          "Exported data",
}

// Describe returns the human-readable description for an action, falling
// back to a generic template for anything not in the table.
func Describe(action, resource string) string {
	if d, ok := actionDescriptions[action]; ok {
		return d
	}
	return fmt.Sprintf("%s on %s", action, resource)
}
