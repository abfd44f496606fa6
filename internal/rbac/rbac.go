package rbac

// Role is a project-scoped membership role.
type Role string

// Action is a gated operation class.
type Action string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

const (
	ActionView        Action = "view"
	ActionUpdateTasks Action = "update_tasks"
	// ActionDeleteTasks is intentionally stricter than ActionUpdateTasks:
	// only the editor membership role carries it. Project owners delete
	// through the ownership path in the service, not through this check.
	ActionDeleteTasks Action = "delete_tasks"
	ActionReport      Action = "report"
	ActionManage      Action = "manage"
)

func Can(role Role, action Action) bool {
	switch role {
	case RoleOwner:
		return action == ActionView || action == ActionUpdateTasks || action == ActionReport || action == ActionManage
	case RoleEditor:
		return action == ActionView || action == ActionUpdateTasks || action == ActionDeleteTasks || action == ActionReport
	case RoleViewer:
		return action == ActionView
	default:
		return false
	}
}

func Normalize(role string) Role {
	switch Role(role) {
	case RoleOwner, RoleEditor, RoleViewer:
		return Role(role)
	default:
		return RoleViewer
	}
}
