package app

// Work item statuses. Projects use active/archived instead.
const (
	statusTodo       = "todo"
	statusInProgress = "in_progress"
	statusDone       = "done"
)

const (
	projectActive   = "active"
	projectArchived = "archived"
)

const (
	priorityLow    = "low"
	priorityMedium = "medium"
	priorityHigh   = "high"
)

// Entity kinds as they appear in comments, attachments, activity entries and
// flattened view rows.
const (
	entityProject   = "project"
	entityTask      = "task"
	entitySubtask   = "subtask"
	entityWorkOrder = "work_order"
	entityNote      = "note"
	entityTemplate  = "template"
)

const (
	invitationPending  = "pending"
	invitationAccepted = "accepted"
	invitationDeclined = "declined"
	invitationRevoked  = "revoked"
)

// Notification kinds.
const (
	notifyInvited        = "invited"
	notifyInviteAccepted = "invite_accepted"
	notifyAssigned       = "assigned"
	notifyCommented      = "commented"
	notifyDueSoon        = "due_soon"
	notifyOverdue        = "overdue"
)

const defaultColor = "#6366f1"

func validStatus(status string) bool {
	return status == statusTodo || status == statusInProgress || status == statusDone
}

func validPriority(priority string) bool {
	return priority == priorityLow || priority == priorityMedium || priority == priorityHigh
}
