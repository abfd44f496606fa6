package store

import "time"

type User struct {
	ID           string
	Subject      string
	DisplayName  string
	Email        string
	AvatarURL    string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Project struct {
	ID          string
	Name        string
	Description string
	Status      string
	OwnerID     string
	StartDate   *time.Time
	EndDate     *time.Time
	Color       string
	CreatedAt   time.Time
}

type ProjectMember struct {
	ProjectID string
	UserID    string
	Role      string
	// Joined for API responses
	UserName  string
	UserEmail string
}

type Invitation struct {
	ID        string
	ProjectID string
	Email     string
	Role      string
	Status    string
	InvitedBy string
	CreatedAt time.Time
}

type Task struct {
	ID          string
	Title       string
	Description string
	Status      string
	Priority    string
	StartDate   *time.Time
	EndDate     *time.Time
	Color       string
	ProjectID   *string
	AssigneeID  *string
	OwnerID     string
	CreatedAt   time.Time
}

type Subtask struct {
	ID          string
	TaskID      string
	Title       string
	Description string
	Status      string
	AssigneeID  *string
	StartDate   *time.Time
	EndDate     *time.Time
	Order       int
	CreatedAt   time.Time
}

type WorkOrder struct {
	ID          string
	SubtaskID   string
	Title       string
	Description string
	Status      string
	AssigneeID  *string
	StartDate   *time.Time
	EndDate     *time.Time
	Order       int
	CreatedAt   time.Time
}

type Comment struct {
	ID         string
	EntityType string
	EntityID   string
	AuthorID   string
	Body       string
	CreatedAt  time.Time
	// Joined for API responses
	AuthorName string
}

type Note struct {
	ID        string
	ProjectID string
	AuthorID  string
	Title     string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Attachment struct {
	ID          string
	EntityType  string
	EntityID    string
	UploaderID  string
	FileName    string
	ObjectKey   string
	ContentType string
	Size        int64
	CreatedAt   time.Time
}

type Notification struct {
	ID        string
	UserID    string
	Kind      string
	RefID     string
	Detail    string
	ReadAt    *time.Time
	CreatedAt time.Time
}

type DailyReport struct {
	ID         string
	ProjectID  string
	AuthorID   string
	ReportDate time.Time
	Summary    string
	Blockers   string
	CreatedAt  time.Time
	// Joined for API responses
	AuthorName string
}

type ActivityEntry struct {
	ID         string
	ProjectID  *string
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	Detail     string
	CreatedAt  time.Time
}

type Template struct {
	ID              string
	Name            string
	Description     string
	OwnerID         string
	SourceProjectID *string
	Structure       string
	TaskCount       int
	SubtaskCount    int
	WorkOrderCount  int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
