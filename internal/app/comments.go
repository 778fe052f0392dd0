package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

const maxCommentLength = 5000

type CommentInput struct {
	Text     string   `json:"text"`
	Mentions []string `json:"mentions"`
}

// CreateComment adds a comment and notifies mentioned members. Mentions are
// user ids; anyone mentioned who is not a workspace member is rejected.
func (s *Service) CreateComment(ctx context.Context, cardID, userID string, input CommentInput) (store.CardComment, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" || len(text) > maxCommentLength {
		return store.CardComment{}, validationFailed("Comment must be 1-5000 characters", nil)
	}

	card, board, err := s.cardForMember(ctx, cardID, userID)
	if err != nil {
		return store.CardComment{}, err
	}

	mentions := dedupe(input.Mentions)
	for _, mentionedID := range mentions {
		member, err := s.store.IsMember(ctx, board.WorkspaceID, mentionedID)
		if err != nil {
			return store.CardComment{}, err
		}
		if !member {
			return store.CardComment{}, validationFailed("Mentioned user is not a workspace member", map[string]any{"user_id": mentionedID})
		}
	}

	comment, err := s.store.InsertComment(ctx, store.CardComment{
		ID:       util.NewID(),
		CardID:   cardID,
		UserID:   userID,
		Text:     text,
		Mentions: mentions,
	})
	if err != nil {
		return store.CardComment{}, err
	}

	if err := s.store.InsertActivity(ctx, store.CardActivity{
		ID:       util.NewID(),
		CardID:   cardID,
		UserID:   userID,
		Action:   store.ActionCommented,
		Metadata: map[string]any{"comment_id": comment.ID},
	}); err != nil {
		s.logger.Warn("record comment activity", "error", err)
	}

	author, authorErr := s.store.GetUserByID(ctx, userID)
	for _, mentionedID := range mentions {
		if mentionedID == userID || authorErr != nil {
			continue
		}
		s.notify(ctx, board.WorkspaceID, store.Notification{
			UserID:    mentionedID,
			Type:      store.NotifyCommentMention,
			CardID:    &card.ID,
			CommentID: &comment.ID,
			Title:     "You were mentioned",
			Message:   fmt.Sprintf("%s mentioned you on %q", author.DisplayName, card.Title),
		})
	}

	s.broadcastBoard(card.BoardID, userID, "comment_added", map[string]any{
		"card_id":    cardID,
		"comment_id": comment.ID,
	})
	return comment, nil
}

// UpdateComment edits a comment's text; only the author may edit.
func (s *Service) UpdateComment(ctx context.Context, commentID, userID string, input CommentInput) (store.CardComment, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" || len(text) > maxCommentLength {
		return store.CardComment{}, validationFailed("Comment must be 1-5000 characters", nil)
	}

	comment, err := s.commentForAuthor(ctx, commentID, userID)
	if err != nil {
		return store.CardComment{}, err
	}

	mentions := dedupe(input.Mentions)
	if err := s.store.UpdateCommentText(ctx, commentID, text, mentions); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.CardComment{}, notFound("Comment not found")
		}
		return store.CardComment{}, err
	}
	comment.Text = text
	comment.Mentions = mentions
	return comment, nil
}

// DeleteComment soft-deletes a comment, keeping its place in the thread.
func (s *Service) DeleteComment(ctx context.Context, commentID, userID string) error {
	if _, err := s.commentForAuthor(ctx, commentID, userID); err != nil {
		return err
	}
	if err := s.store.SoftDeleteComment(ctx, commentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("Comment not found")
		}
		return err
	}
	return nil
}

func (s *Service) commentForAuthor(ctx context.Context, commentID, userID string) (store.CardComment, error) {
	comment, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.CardComment{}, notFound("Comment not found")
		}
		return store.CardComment{}, err
	}
	if comment.DeletedAt != nil {
		return store.CardComment{}, notFound("Comment not found")
	}
	if comment.UserID != userID {
		return store.CardComment{}, permissionDenied("Only the author can modify a comment")
	}
	if _, _, err := s.cardForMember(ctx, comment.CardID, userID); err != nil {
		return store.CardComment{}, err
	}
	return comment, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
