package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"time"

	"taskboard/api/internal/auth"
	"taskboard/api/internal/config"
	"taskboard/api/internal/email"
	"taskboard/api/internal/realtime"
	"taskboard/api/internal/search"
	"taskboard/api/internal/session"
	"taskboard/api/internal/store"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	JTI          string
	ExpiresAt    time.Time
}

type dataStore interface {
	InsertUser(context.Context, store.User) (store.User, error)
	GetUserByID(context.Context, string) (store.User, error)
	GetUserByEmail(context.Context, string) (store.User, error)
	GetUserByGitHubID(context.Context, int64) (store.User, error)
	UpdateUserProfile(context.Context, string, string, string) error

	InsertWorkspace(context.Context, store.Workspace) (store.Workspace, error)
	GetWorkspace(context.Context, string) (store.Workspace, error)
	ListUserWorkspaces(context.Context, string) ([]store.Workspace, error)
	RenameWorkspace(context.Context, string, string) error
	DeleteWorkspace(context.Context, string) error
	GetMemberRole(context.Context, string, string) (string, error)
	IsMember(context.Context, string, string) (bool, error)
	InsertMember(context.Context, store.WorkspaceMember) error
	ListMembers(context.Context, string) ([]store.WorkspaceMember, error)
	UpdateMemberRole(context.Context, string, string, string) (bool, error)
	RemoveMember(context.Context, string, string) (bool, error)
	AdminCount(context.Context, string) (int, error)

	InsertBoard(context.Context, store.Board) (store.Board, error)
	GetBoard(context.Context, string) (store.Board, error)
	ListWorkspaceBoards(context.Context, string, bool) ([]store.Board, error)
	UpdateBoard(context.Context, store.Board) error
	DeleteBoard(context.Context, string) error
	ColumnCardCount(context.Context, string, string) (int, error)

	GetCard(context.Context, string) (store.Card, error)
	ListBoardCards(context.Context, string, string) ([]store.Card, error)
	CreateCardAtHead(context.Context, store.Card, store.CardActivity) (store.Card, error)
	DeleteCardAndCompact(context.Context, string) (store.Card, error)
	MoveCard(context.Context, store.MoveCardParams, string) (store.MoveResult, error)
	UpdateCardFields(context.Context, store.Card) (store.Card, error)
	ListCardsWithWorkspace(context.Context) ([]store.CardWorkspace, error)

	InsertActivity(context.Context, store.CardActivity) error
	ListCardActivities(context.Context, string, int) ([]store.CardActivity, error)
	InsertAuditLog(context.Context, store.AuditLogEntry) error
	ListAuditLog(context.Context, string, int) ([]store.AuditLogEntry, error)

	InsertComment(context.Context, store.CardComment) (store.CardComment, error)
	GetComment(context.Context, string) (store.CardComment, error)
	ListCardComments(context.Context, string) ([]store.CardComment, error)
	UpdateCommentText(context.Context, string, string, []string) error
	SoftDeleteComment(context.Context, string) error

	InsertLabel(context.Context, store.Label) (store.Label, error)
	GetLabel(context.Context, string) (store.Label, error)
	ListWorkspaceLabels(context.Context, string) ([]store.Label, error)
	UpdateLabel(context.Context, store.Label) error
	DeleteLabel(context.Context, string) error
	AttachLabel(context.Context, string, string) (bool, error)
	DetachLabel(context.Context, string, string) (bool, error)
	ListCardLabels(context.Context, string) ([]store.Label, error)
	AssignUser(context.Context, string, string) (bool, error)
	UnassignUser(context.Context, string, string) (bool, error)
	ListCardAssignees(context.Context, string) ([]store.User, error)

	InsertInvitation(context.Context, store.Invitation) (store.Invitation, error)
	GetInvitation(context.Context, string) (store.Invitation, error)
	GetInvitationByToken(context.Context, string) (store.Invitation, error)
	GetPendingInvitation(context.Context, string, string) (store.Invitation, error)
	ListWorkspaceInvitations(context.Context, string) ([]store.Invitation, error)
	SetInvitationDelivery(context.Context, string, string) error
	MarkInvitationAccepted(context.Context, string) error
	DeleteInvitation(context.Context, string) error
	PurgeExpiredInvitations(context.Context) (int64, error)

	InsertNotification(context.Context, store.Notification) (store.Notification, error)
	ListNotifications(context.Context, string, bool, int) ([]store.Notification, error)
	UnreadNotificationCount(context.Context, string) (int, error)
	MarkNotificationRead(context.Context, string, string) (bool, error)
	MarkAllNotificationsRead(context.Context, string) (int64, error)
	ListDueSoonAssignments(context.Context, time.Duration) ([]store.DueSoonAssignment, error)
	HasDueSoonNotification(context.Context, string, string) (bool, error)

	InsertAttachment(context.Context, store.CardAttachment) (store.CardAttachment, error)
	GetAttachment(context.Context, string) (store.CardAttachment, error)
	ListCardAttachments(context.Context, string) ([]store.CardAttachment, error)
	DeleteAttachment(context.Context, string) error

	Ping(ctx context.Context) error
}

type sessionStore interface {
	Save(context.Context, string, session.Session, time.Duration) error
	Lookup(context.Context, string) (session.Session, error)
	Revoke(context.Context, string) error
}

type broadcaster interface {
	BroadcastBoard(boardID string, msg realtime.Message, excludeUserID string)
	BroadcastWorkspace(workspaceID string, msg realtime.Message, excludeUserID string)
}

type mailer interface {
	IsConfigured() bool
	SendInvitation(to string, data email.InvitationData) error
}

type blobStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

type Service struct {
	cfg      config.Config
	store    dataStore
	sessions sessionStore
	rt       broadcaster
	search   *search.Service
	mailer   mailer
	blobs    blobStore
	oauth    *auth.GitHubOAuth
	logger   *slog.Logger
	now      func() time.Time
}

type Deps struct {
	Store    *store.PostgresStore
	Sessions *session.RedisStore
	Realtime broadcaster
	Search   *search.Service
	Mailer   mailer
	Blobs    blobStore
	OAuth    *auth.GitHubOAuth
	Logger   *slog.Logger
}

func New(cfg config.Config, deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg,
		store:    deps.Store,
		sessions: deps.Sessions,
		rt:       deps.Realtime,
		search:   deps.Search,
		mailer:   deps.Mailer,
		blobs:    deps.Blobs,
		oauth:    deps.OAuth,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap sweeps expired invitations and reloads the search index so a
// fresh Meilisearch instance catches up with existing cards.
func (s *Service) Bootstrap(ctx context.Context) error {
	if purged, err := s.store.PurgeExpiredInvitations(ctx); err != nil {
		s.logger.Warn("purge expired invitations", "error", err)
	} else if purged > 0 {
		s.logger.Info("purged expired invitations", "count", purged)
	}

	if s.search == nil {
		return nil
	}
	entries, err := s.store.ListCardsWithWorkspace(ctx)
	if err != nil {
		return err
	}
	records := make([]search.CardRecord, 0, len(entries))
	for _, entry := range entries {
		records = append(records, cardRecord(entry.Card, entry.WorkspaceID))
	}
	s.search.ReindexCards(records)
	return nil
}

// RunMaintenance purges expired invitations and files due-date notifications
// until ctx is cancelled.
func (s *Service) RunMaintenance(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if purged, err := s.store.PurgeExpiredInvitations(ctx); err != nil {
				s.logger.Warn("purge expired invitations", "error", err)
			} else if purged > 0 {
				s.logger.Info("purged expired invitations", "count", purged)
			}
			if err := s.notifyDueSoonCards(ctx); err != nil {
				s.logger.Warn("due soon notifications", "error", err)
			}
		}
	}
}

// boardForMember loads a board and verifies the acting user can touch it.
// Board existence is checked before membership so outsiders cannot probe which
// board ids exist versus which they merely lack access to; a missing board and
// a foreign board both matter, but NotFound always wins.
func (s *Service) boardForMember(ctx context.Context, boardID, userID string) (store.Board, error) {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Board{}, notFound("Board not found")
		}
		return store.Board{}, err
	}
	member, err := s.store.IsMember(ctx, board.WorkspaceID, userID)
	if err != nil {
		return store.Board{}, err
	}
	if !member {
		return store.Board{}, permissionDenied("Not a member of this workspace")
	}
	return board, nil
}

// AuthorizeBoard verifies the user may read the board, for example before
// attaching an event stream.
func (s *Service) AuthorizeBoard(ctx context.Context, boardID, userID string) error {
	_, err := s.boardForMember(ctx, boardID, userID)
	return err
}

func (s *Service) AuthorizeWorkspace(ctx context.Context, workspaceID, userID string) error {
	_, _, err := s.workspaceForMember(ctx, workspaceID, userID)
	return err
}

func cardRecord(card store.Card, workspaceID string) search.CardRecord {
	return search.CardRecord{
		ID:          card.ID,
		BoardID:     card.BoardID,
		WorkspaceID: workspaceID,
		ColumnID:    card.ColumnID,
		Title:       card.Title,
		Description: card.Description,
		Priority:    card.Priority,
	}
}
