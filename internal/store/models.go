package store

import "time"

type User struct {
	ID           string
	Email        string
	DisplayName  string
	AvatarURL    string
	PasswordHash string
	GitHubID     *int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Workspace struct {
	ID        string
	Name      string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type WorkspaceMember struct {
	WorkspaceID string
	UserID      string
	Role        string
	JoinedAt    time.Time
	// Joined fields for member listings
	Email       string
	DisplayName string
	AvatarURL   string
}

// BoardColumn is a value object embedded in Board.Columns. Columns are not a
// table of their own: a card's column_id is valid iff it matches the id of one
// of these entries.
type BoardColumn struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

type Board struct {
	ID          string
	WorkspaceID string
	Name        string
	Columns     []BoardColumn
	Archived    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasColumn reports whether columnID names one of the board's columns.
func (b Board) HasColumn(columnID string) bool {
	for _, col := range b.Columns {
		if col.ID == columnID {
			return true
		}
	}
	return false
}

// ColumnName returns the display name for columnID, or "Unknown" when the
// column is not (or no longer) part of the board.
func (b Board) ColumnName(columnID string) string {
	for _, col := range b.Columns {
		if col.ID == columnID {
			return col.Name
		}
	}
	return "Unknown"
}

const (
	PriorityNone   = "none"
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

type Card struct {
	ID          string
	BoardID     string
	ColumnID    string
	Title       string
	Description string
	Priority    string
	StoryPoints *int
	DueDate     *time.Time
	Position    int
	SprintID    *string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	// Loaded relations
	Assignees []User
	Labels    []Label
}

const (
	ActionCreated            = "created"
	ActionMoved              = "moved"
	ActionTitleChanged       = "title_changed"
	ActionDescriptionUpdated = "description_updated"
	ActionPriorityChanged    = "priority_changed"
	ActionDueDateSet         = "due_date_set"
	ActionDueDateCleared     = "due_date_cleared"
	ActionAssigned           = "assigned"
	ActionUnassigned         = "unassigned"
	ActionLabelAdded         = "label_added"
	ActionLabelRemoved       = "label_removed"
	ActionCommented          = "commented"
	ActionAttachmentAdded    = "attachment_added"
	ActionAttachmentRemoved  = "attachment_removed"
)

type CardActivity struct {
	ID        string
	CardID    string
	UserID    string
	Action    string
	Metadata  map[string]any
	CreatedAt time.Time
}

type CardComment struct {
	ID        string
	CardID    string
	UserID    string
	Text      string
	Mentions  []string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

type Label struct {
	ID          string
	WorkspaceID string
	Name        string
	Color       string
	CreatedAt   time.Time
}

type CardAttachment struct {
	ID          string
	CardID      string
	FileName    string
	Size        int64
	ContentType string
	ObjectKey   string
	UploadedBy  string
	CreatedAt   time.Time
}

const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

type Invitation struct {
	ID             string
	WorkspaceID    string
	Email          string
	Role           string
	Token          string
	InvitedBy      string
	DeliveryStatus string
	CreatedAt      time.Time
	ExpiresAt      time.Time
	AcceptedAt     *time.Time
}

func (i Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

func (i Invitation) IsAccepted() bool {
	return i.AcceptedAt != nil
}

const (
	NotifyCommentMention = "comment_mention"
	NotifyCardAssigned   = "card_assigned"
	NotifyCardDueSoon    = "card_due_soon"
)

type Notification struct {
	ID        string
	UserID    string
	Type      string
	CardID    *string
	CommentID *string
	Title     string
	Message   string
	ReadAt    *time.Time
	CreatedAt time.Time
}

type AuditLogEntry struct {
	ID          int64
	WorkspaceID string
	ActorID     string
	Action      string
	TargetType  string
	TargetID    string
	Detail      map[string]any
	CreatedAt   time.Time
}
