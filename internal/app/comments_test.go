package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskboard/api/internal/store"
)

func cardStore() *fakeStore {
	return &fakeStore{
		getCardFn: func(_ context.Context, id string) (store.Card, error) {
			return store.Card{ID: id, BoardID: "board-1", ColumnID: "col-todo", Title: "Fix login"}, nil
		},
		getBoardFn: func(_ context.Context, id string) (store.Board, error) {
			board := testBoard()
			board.ID = id
			return board, nil
		},
	}
}

func TestCreateCommentRejectsNonMemberMention(t *testing.T) {
	fs := cardStore()
	fs.isMemberFn = func(_ context.Context, _, userID string) (bool, error) {
		return userID != "stranger", nil
	}
	svc := newTestService(fs)

	_, err := svc.CreateComment(context.Background(), "card-1", "user-1", CommentInput{
		Text:     "see this",
		Mentions: []string{"stranger"},
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestCreateCommentNotifiesMentions(t *testing.T) {
	var notified []string
	fs := cardStore()
	fs.insertNotificationFn = func(_ context.Context, notification store.Notification) (store.Notification, error) {
		notified = append(notified, notification.UserID)
		return notification, nil
	}
	svc := newTestService(fs)

	_, err := svc.CreateComment(context.Background(), "card-1", "user-1", CommentInput{
		Text:     "looping you both in",
		Mentions: []string{"user-2", "user-2", "user-1"},
	})
	if err != nil {
		t.Fatalf("comment: %v", err)
	}
	// The author never gets a mention notification and duplicates collapse.
	if len(notified) != 1 || notified[0] != "user-2" {
		t.Fatalf("expected one notification for user-2, got %v", notified)
	}
}

func TestUpdateCommentRequiresAuthor(t *testing.T) {
	fs := cardStore()
	fs.getCommentFn = func(_ context.Context, id string) (store.CardComment, error) {
		return store.CardComment{ID: id, CardID: "card-1", UserID: "author", Text: "hi"}, nil
	}
	svc := newTestService(fs)

	_, err := svc.UpdateComment(context.Background(), "comment-1", "intruder", CommentInput{Text: "edited"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestDeletedCommentBehavesAsMissing(t *testing.T) {
	fs := cardStore()
	deletedAt := time.Now()
	fs.getCommentFn = func(_ context.Context, id string) (store.CardComment, error) {
		return store.CardComment{ID: id, CardID: "card-1", UserID: "author", DeletedAt: &deletedAt}, nil
	}
	svc := newTestService(fs)

	err := svc.DeleteComment(context.Background(), "comment-1", "author")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestCreateCommentValidatesText(t *testing.T) {
	svc := newTestService(cardStore())

	if _, err := svc.CreateComment(context.Background(), "card-1", "user-1", CommentInput{Text: "  "}); err == nil {
		t.Fatal("expected blank comment to be rejected")
	}
}
