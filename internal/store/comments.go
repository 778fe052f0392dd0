package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

func (s *PostgresStore) InsertComment(ctx context.Context, comment CardComment) (CardComment, error) {
	mentions, err := json.Marshal(comment.Mentions)
	if err != nil {
		return CardComment{}, fmt.Errorf("marshal comment mentions: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO card_comments (id, card_id, user_id, body, mentions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, comment.ID, comment.CardID, comment.UserID, comment.Text, mentions).
		Scan(&comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		return CardComment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func (s *PostgresStore) GetComment(ctx context.Context, commentID string) (CardComment, error) {
	var comment CardComment
	var mentions []byte
	var deletedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, card_id, COALESCE(user_id::text, ''), body, mentions, created_at, updated_at, deleted_at
		FROM card_comments WHERE id=$1
	`, commentID).Scan(&comment.ID, &comment.CardID, &comment.UserID, &comment.Text, &mentions,
		&comment.CreatedAt, &comment.UpdatedAt, &deletedAt)
	if err != nil {
		return CardComment{}, err
	}
	if err := json.Unmarshal(mentions, &comment.Mentions); err != nil {
		return CardComment{}, fmt.Errorf("unmarshal comment mentions: %w", err)
	}
	comment.DeletedAt = scanNullTime(deletedAt)
	return comment, nil
}

// ListCardComments returns the card's comments oldest first. Soft-deleted
// comments are kept in the thread with their body blanked by the service.
func (s *PostgresStore) ListCardComments(ctx context.Context, cardID string) ([]CardComment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_id, COALESCE(user_id::text, ''), body, mentions, created_at, updated_at, deleted_at
		FROM card_comments
		WHERE card_id=$1
		ORDER BY created_at ASC
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list card comments: %w", err)
	}
	defer rows.Close()

	items := make([]CardComment, 0)
	for rows.Next() {
		var comment CardComment
		var mentions []byte
		var deletedAt sql.NullTime
		if err := rows.Scan(&comment.ID, &comment.CardID, &comment.UserID, &comment.Text, &mentions,
			&comment.CreatedAt, &comment.UpdatedAt, &deletedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if err := json.Unmarshal(mentions, &comment.Mentions); err != nil {
			return nil, fmt.Errorf("unmarshal comment mentions: %w", err)
		}
		comment.DeletedAt = scanNullTime(deletedAt)
		items = append(items, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateCommentText(ctx context.Context, commentID, text string, mentions []string) error {
	encoded, err := json.Marshal(mentions)
	if err != nil {
		return fmt.Errorf("marshal comment mentions: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE card_comments SET body=$2, mentions=$3, updated_at=NOW()
		WHERE id=$1 AND deleted_at IS NULL
	`, commentID, text, encoded)
	if err != nil {
		return fmt.Errorf("update comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update comment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) SoftDeleteComment(ctx context.Context, commentID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE card_comments SET deleted_at=NOW(), updated_at=NOW()
		WHERE id=$1 AND deleted_at IS NULL
	`, commentID)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete comment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
