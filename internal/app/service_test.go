package app

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"taskboard/api/internal/config"
	"taskboard/api/internal/session"
	"taskboard/api/internal/store"
)

type fakeStore struct {
	insertUserFn        func(context.Context, store.User) (store.User, error)
	getUserByIDFn       func(context.Context, string) (store.User, error)
	getUserByEmailFn    func(context.Context, string) (store.User, error)
	getUserByGitHubIDFn func(context.Context, int64) (store.User, error)

	getWorkspaceFn     func(context.Context, string) (store.Workspace, error)
	getMemberRoleFn    func(context.Context, string, string) (string, error)
	isMemberFn         func(context.Context, string, string) (bool, error)
	insertMemberFn     func(context.Context, store.WorkspaceMember) error
	updateMemberRoleFn func(context.Context, string, string, string) (bool, error)
	removeMemberFn     func(context.Context, string, string) (bool, error)
	adminCountFn       func(context.Context, string) (int, error)

	getBoardFn         func(context.Context, string) (store.Board, error)
	updateBoardFn      func(context.Context, store.Board) error
	columnCardCountFn  func(context.Context, string, string) (int, error)
	listBoardCardsFn   func(context.Context, string, string) ([]store.Card, error)
	getCardFn          func(context.Context, string) (store.Card, error)
	createCardAtHeadFn func(context.Context, store.Card, store.CardActivity) (store.Card, error)
	deleteCardFn       func(context.Context, string) (store.Card, error)
	moveCardFn         func(context.Context, store.MoveCardParams, string) (store.MoveResult, error)
	updateCardFieldsFn func(context.Context, store.Card) (store.Card, error)

	insertActivityFn func(context.Context, store.CardActivity) error
	insertCommentFn  func(context.Context, store.CardComment) (store.CardComment, error)
	getCommentFn     func(context.Context, string) (store.CardComment, error)

	getLabelFn     func(context.Context, string) (store.Label, error)
	attachLabelFn  func(context.Context, string, string) (bool, error)
	assignUserFn   func(context.Context, string, string) (bool, error)
	unassignUserFn func(context.Context, string, string) (bool, error)

	insertInvitationFn     func(context.Context, store.Invitation) (store.Invitation, error)
	getInvitationFn        func(context.Context, string) (store.Invitation, error)
	getInvitationByTokenFn func(context.Context, string) (store.Invitation, error)
	getPendingInvitationFn func(context.Context, string, string) (store.Invitation, error)
	markAcceptedFn         func(context.Context, string) error

	insertNotificationFn func(context.Context, store.Notification) (store.Notification, error)
	markReadFn           func(context.Context, string, string) (bool, error)
	insertAuditLogFn     func(context.Context, store.AuditLogEntry) error
}

func (f *fakeStore) InsertUser(ctx context.Context, user store.User) (store.User, error) {
	if f.insertUserFn != nil {
		return f.insertUserFn(ctx, user)
	}
	return user, nil
}
func (f *fakeStore) GetUserByID(ctx context.Context, id string) (store.User, error) {
	if f.getUserByIDFn != nil {
		return f.getUserByIDFn(ctx, id)
	}
	return store.User{ID: id, DisplayName: "Someone"}, nil
}
func (f *fakeStore) GetUserByEmail(ctx context.Context, address string) (store.User, error) {
	if f.getUserByEmailFn != nil {
		return f.getUserByEmailFn(ctx, address)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) GetUserByGitHubID(ctx context.Context, id int64) (store.User, error) {
	if f.getUserByGitHubIDFn != nil {
		return f.getUserByGitHubIDFn(ctx, id)
	}
	return store.User{}, sql.ErrNoRows
}
func (f *fakeStore) UpdateUserProfile(context.Context, string, string, string) error { return nil }

func (f *fakeStore) InsertWorkspace(_ context.Context, workspace store.Workspace) (store.Workspace, error) {
	return workspace, nil
}
func (f *fakeStore) GetWorkspace(ctx context.Context, id string) (store.Workspace, error) {
	if f.getWorkspaceFn != nil {
		return f.getWorkspaceFn(ctx, id)
	}
	return store.Workspace{ID: id, Name: "Workspace"}, nil
}
func (f *fakeStore) ListUserWorkspaces(context.Context, string) ([]store.Workspace, error) {
	return nil, nil
}
func (f *fakeStore) RenameWorkspace(context.Context, string, string) error { return nil }
func (f *fakeStore) DeleteWorkspace(context.Context, string) error         { return nil }
func (f *fakeStore) GetMemberRole(ctx context.Context, workspaceID, userID string) (string, error) {
	if f.getMemberRoleFn != nil {
		return f.getMemberRoleFn(ctx, workspaceID, userID)
	}
	return "member", nil
}
func (f *fakeStore) IsMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	if f.isMemberFn != nil {
		return f.isMemberFn(ctx, workspaceID, userID)
	}
	return true, nil
}
func (f *fakeStore) InsertMember(ctx context.Context, member store.WorkspaceMember) error {
	if f.insertMemberFn != nil {
		return f.insertMemberFn(ctx, member)
	}
	return nil
}
func (f *fakeStore) ListMembers(context.Context, string) ([]store.WorkspaceMember, error) {
	return nil, nil
}
func (f *fakeStore) UpdateMemberRole(ctx context.Context, workspaceID, userID, role string) (bool, error) {
	if f.updateMemberRoleFn != nil {
		return f.updateMemberRoleFn(ctx, workspaceID, userID, role)
	}
	return true, nil
}
func (f *fakeStore) RemoveMember(ctx context.Context, workspaceID, userID string) (bool, error) {
	if f.removeMemberFn != nil {
		return f.removeMemberFn(ctx, workspaceID, userID)
	}
	return true, nil
}
func (f *fakeStore) AdminCount(ctx context.Context, workspaceID string) (int, error) {
	if f.adminCountFn != nil {
		return f.adminCountFn(ctx, workspaceID)
	}
	return 2, nil
}

func (f *fakeStore) InsertBoard(_ context.Context, board store.Board) (store.Board, error) {
	return board, nil
}
func (f *fakeStore) GetBoard(ctx context.Context, id string) (store.Board, error) {
	if f.getBoardFn != nil {
		return f.getBoardFn(ctx, id)
	}
	return store.Board{}, sql.ErrNoRows
}
func (f *fakeStore) ListWorkspaceBoards(context.Context, string, bool) ([]store.Board, error) {
	return nil, nil
}
func (f *fakeStore) UpdateBoard(ctx context.Context, board store.Board) error {
	if f.updateBoardFn != nil {
		return f.updateBoardFn(ctx, board)
	}
	return nil
}
func (f *fakeStore) DeleteBoard(context.Context, string) error { return nil }
func (f *fakeStore) ColumnCardCount(ctx context.Context, boardID, columnID string) (int, error) {
	if f.columnCardCountFn != nil {
		return f.columnCardCountFn(ctx, boardID, columnID)
	}
	return 0, nil
}

func (f *fakeStore) GetCard(ctx context.Context, id string) (store.Card, error) {
	if f.getCardFn != nil {
		return f.getCardFn(ctx, id)
	}
	return store.Card{}, sql.ErrNoRows
}
func (f *fakeStore) ListBoardCards(ctx context.Context, boardID, columnID string) ([]store.Card, error) {
	if f.listBoardCardsFn != nil {
		return f.listBoardCardsFn(ctx, boardID, columnID)
	}
	return nil, nil
}
func (f *fakeStore) CreateCardAtHead(ctx context.Context, card store.Card, activity store.CardActivity) (store.Card, error) {
	if f.createCardAtHeadFn != nil {
		return f.createCardAtHeadFn(ctx, card, activity)
	}
	return card, nil
}
func (f *fakeStore) DeleteCardAndCompact(ctx context.Context, id string) (store.Card, error) {
	if f.deleteCardFn != nil {
		return f.deleteCardFn(ctx, id)
	}
	return store.Card{}, sql.ErrNoRows
}
func (f *fakeStore) MoveCard(ctx context.Context, params store.MoveCardParams, activityID string) (store.MoveResult, error) {
	if f.moveCardFn != nil {
		return f.moveCardFn(ctx, params, activityID)
	}
	return store.MoveResult{}, sql.ErrNoRows
}
func (f *fakeStore) UpdateCardFields(ctx context.Context, card store.Card) (store.Card, error) {
	if f.updateCardFieldsFn != nil {
		return f.updateCardFieldsFn(ctx, card)
	}
	return card, nil
}
func (f *fakeStore) ListCardsWithWorkspace(context.Context) ([]store.CardWorkspace, error) {
	return nil, nil
}

func (f *fakeStore) InsertActivity(ctx context.Context, activity store.CardActivity) error {
	if f.insertActivityFn != nil {
		return f.insertActivityFn(ctx, activity)
	}
	return nil
}
func (f *fakeStore) ListCardActivities(context.Context, string, int) ([]store.CardActivity, error) {
	return nil, nil
}
func (f *fakeStore) InsertAuditLog(ctx context.Context, entry store.AuditLogEntry) error {
	if f.insertAuditLogFn != nil {
		return f.insertAuditLogFn(ctx, entry)
	}
	return nil
}
func (f *fakeStore) ListAuditLog(context.Context, string, int) ([]store.AuditLogEntry, error) {
	return nil, nil
}

func (f *fakeStore) InsertComment(ctx context.Context, comment store.CardComment) (store.CardComment, error) {
	if f.insertCommentFn != nil {
		return f.insertCommentFn(ctx, comment)
	}
	return comment, nil
}
func (f *fakeStore) GetComment(ctx context.Context, id string) (store.CardComment, error) {
	if f.getCommentFn != nil {
		return f.getCommentFn(ctx, id)
	}
	return store.CardComment{}, sql.ErrNoRows
}
func (f *fakeStore) ListCardComments(context.Context, string) ([]store.CardComment, error) {
	return nil, nil
}
func (f *fakeStore) UpdateCommentText(context.Context, string, string, []string) error { return nil }
func (f *fakeStore) SoftDeleteComment(context.Context, string) error                   { return nil }

func (f *fakeStore) InsertLabel(_ context.Context, label store.Label) (store.Label, error) {
	return label, nil
}
func (f *fakeStore) GetLabel(ctx context.Context, id string) (store.Label, error) {
	if f.getLabelFn != nil {
		return f.getLabelFn(ctx, id)
	}
	return store.Label{}, sql.ErrNoRows
}
func (f *fakeStore) ListWorkspaceLabels(context.Context, string) ([]store.Label, error) {
	return nil, nil
}
func (f *fakeStore) UpdateLabel(context.Context, store.Label) error { return nil }
func (f *fakeStore) DeleteLabel(context.Context, string) error      { return nil }
func (f *fakeStore) AttachLabel(ctx context.Context, cardID, labelID string) (bool, error) {
	if f.attachLabelFn != nil {
		return f.attachLabelFn(ctx, cardID, labelID)
	}
	return true, nil
}
func (f *fakeStore) DetachLabel(context.Context, string, string) (bool, error) { return true, nil }
func (f *fakeStore) ListCardLabels(context.Context, string) ([]store.Label, error) {
	return nil, nil
}
func (f *fakeStore) AssignUser(ctx context.Context, cardID, userID string) (bool, error) {
	if f.assignUserFn != nil {
		return f.assignUserFn(ctx, cardID, userID)
	}
	return true, nil
}
func (f *fakeStore) UnassignUser(ctx context.Context, cardID, userID string) (bool, error) {
	if f.unassignUserFn != nil {
		return f.unassignUserFn(ctx, cardID, userID)
	}
	return true, nil
}
func (f *fakeStore) ListCardAssignees(context.Context, string) ([]store.User, error) {
	return nil, nil
}

func (f *fakeStore) InsertInvitation(ctx context.Context, invitation store.Invitation) (store.Invitation, error) {
	if f.insertInvitationFn != nil {
		return f.insertInvitationFn(ctx, invitation)
	}
	return invitation, nil
}
func (f *fakeStore) GetInvitation(ctx context.Context, id string) (store.Invitation, error) {
	if f.getInvitationFn != nil {
		return f.getInvitationFn(ctx, id)
	}
	return store.Invitation{}, sql.ErrNoRows
}
func (f *fakeStore) GetInvitationByToken(ctx context.Context, token string) (store.Invitation, error) {
	if f.getInvitationByTokenFn != nil {
		return f.getInvitationByTokenFn(ctx, token)
	}
	return store.Invitation{}, sql.ErrNoRows
}
func (f *fakeStore) GetPendingInvitation(ctx context.Context, workspaceID, address string) (store.Invitation, error) {
	if f.getPendingInvitationFn != nil {
		return f.getPendingInvitationFn(ctx, workspaceID, address)
	}
	return store.Invitation{}, sql.ErrNoRows
}
func (f *fakeStore) ListWorkspaceInvitations(context.Context, string) ([]store.Invitation, error) {
	return nil, nil
}
func (f *fakeStore) SetInvitationDelivery(context.Context, string, string) error { return nil }
func (f *fakeStore) MarkInvitationAccepted(ctx context.Context, id string) error {
	if f.markAcceptedFn != nil {
		return f.markAcceptedFn(ctx, id)
	}
	return nil
}
func (f *fakeStore) DeleteInvitation(context.Context, string) error { return nil }
func (f *fakeStore) PurgeExpiredInvitations(context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeStore) InsertNotification(ctx context.Context, notification store.Notification) (store.Notification, error) {
	if f.insertNotificationFn != nil {
		return f.insertNotificationFn(ctx, notification)
	}
	return notification, nil
}
func (f *fakeStore) ListNotifications(context.Context, string, bool, int) ([]store.Notification, error) {
	return nil, nil
}
func (f *fakeStore) UnreadNotificationCount(context.Context, string) (int, error) { return 0, nil }
func (f *fakeStore) MarkNotificationRead(ctx context.Context, id, userID string) (bool, error) {
	if f.markReadFn != nil {
		return f.markReadFn(ctx, id, userID)
	}
	return true, nil
}
func (f *fakeStore) MarkAllNotificationsRead(context.Context, string) (int64, error) {
	return 0, nil
}
func (f *fakeStore) ListDueSoonAssignments(context.Context, time.Duration) ([]store.DueSoonAssignment, error) {
	return nil, nil
}
func (f *fakeStore) HasDueSoonNotification(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeStore) InsertAttachment(_ context.Context, attachment store.CardAttachment) (store.CardAttachment, error) {
	return attachment, nil
}
func (f *fakeStore) GetAttachment(context.Context, string) (store.CardAttachment, error) {
	return store.CardAttachment{}, sql.ErrNoRows
}
func (f *fakeStore) ListCardAttachments(context.Context, string) ([]store.CardAttachment, error) {
	return nil, nil
}
func (f *fakeStore) DeleteAttachment(context.Context, string) error { return nil }

func (f *fakeStore) Ping(context.Context) error { return nil }

type fakeSessions struct {
	saved map[string]session.Session
}

func (f *fakeSessions) Save(_ context.Context, hash string, record session.Session, _ time.Duration) error {
	if f.saved == nil {
		f.saved = make(map[string]session.Session)
	}
	f.saved[hash] = record
	return nil
}
func (f *fakeSessions) Lookup(_ context.Context, hash string) (session.Session, error) {
	record, ok := f.saved[hash]
	if !ok {
		return session.Session{}, session.ErrNotFound
	}
	return record, nil
}
func (f *fakeSessions) Revoke(_ context.Context, hash string) error {
	delete(f.saved, hash)
	return nil
}

func newTestService(fs dataStore) *Service {
	return &Service{
		cfg: config.Config{
			JWTSecret:  "test-secret",
			AccessTTL:  time.Hour,
			RefreshTTL: 24 * time.Hour,
			BaseURL:    "http://localhost:3000",
		},
		store:    fs,
		sessions: &fakeSessions{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
}

func testBoard() store.Board {
	return store.Board{
		ID:          "board-1",
		WorkspaceID: "ws-1",
		Name:        "Sprint Board",
		Columns: []store.BoardColumn{
			{ID: "col-todo", Name: "To Do", Position: 0},
			{ID: "col-doing", Name: "In Progress", Position: 1},
			{ID: "col-done", Name: "Done", Position: 2},
		},
	}
}

func TestBoardLookupPrefersNotFoundOverMembership(t *testing.T) {
	fs := &fakeStore{
		getBoardFn: func(context.Context, string) (store.Board, error) {
			return store.Board{}, sql.ErrNoRows
		},
		isMemberFn: func(context.Context, string, string) (bool, error) {
			t.Fatal("membership must not be checked for a missing board")
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.boardForMember(context.Background(), "missing", "user-1")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestBoardLookupRejectsNonMember(t *testing.T) {
	fs := &fakeStore{
		getBoardFn: func(_ context.Context, id string) (store.Board, error) {
			board := testBoard()
			board.ID = id
			return board, nil
		},
		isMemberFn: func(context.Context, string, string) (bool, error) {
			return false, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.boardForMember(context.Background(), "board-1", "outsider")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestSignInRejectsWrongPassword(t *testing.T) {
	fs := &fakeStore{
		getUserByEmailFn: func(context.Context, string) (store.User, error) {
			return store.User{
				ID:    "user-1",
				Email: "avery@example.com",
				PasswordHash: "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy",
			}, nil
		},
	}
	svc := newTestService(fs)

	_, err := svc.SignIn(context.Background(), SignInInput{Email: "avery@example.com", Password: "wrong"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 401 {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestSignInUniformErrorForUnknownAccount(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.SignIn(context.Background(), SignInInput{Email: "nobody@example.com", Password: "whatever"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 401 {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	fs := &fakeStore{
		getUserByIDFn: func(_ context.Context, id string) (store.User, error) {
			return store.User{ID: id, Email: "avery@example.com", DisplayName: "Avery"}, nil
		},
		insertUserFn: func(_ context.Context, user store.User) (store.User, error) {
			return user, nil
		},
	}
	svc := newTestService(fs)

	first, err := svc.openSession(context.Background(), store.User{ID: "user-1", DisplayName: "Avery"})
	if err != nil {
		t.Fatalf("open session: %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("refresh token was not rotated")
	}

	if _, err := svc.Refresh(context.Background(), first.RefreshToken); err == nil {
		t.Fatal("old refresh token should be revoked after rotation")
	}
}
