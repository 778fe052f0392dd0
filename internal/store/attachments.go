package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) InsertAttachment(ctx context.Context, attachment CardAttachment) (CardAttachment, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO card_attachments (id, card_id, file_name, size, content_type, object_key, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, attachment.ID, attachment.CardID, attachment.FileName, attachment.Size,
		attachment.ContentType, attachment.ObjectKey, attachment.UploadedBy).
		Scan(&attachment.CreatedAt)
	if err != nil {
		return CardAttachment{}, fmt.Errorf("insert attachment: %w", err)
	}
	return attachment, nil
}

func (s *PostgresStore) GetAttachment(ctx context.Context, attachmentID string) (CardAttachment, error) {
	var attachment CardAttachment
	err := s.db.QueryRowContext(ctx, `
		SELECT id, card_id, file_name, size, content_type, object_key, COALESCE(uploaded_by::text, ''), created_at
		FROM card_attachments WHERE id=$1
	`, attachmentID).Scan(&attachment.ID, &attachment.CardID, &attachment.FileName, &attachment.Size,
		&attachment.ContentType, &attachment.ObjectKey, &attachment.UploadedBy, &attachment.CreatedAt)
	if err != nil {
		return CardAttachment{}, err
	}
	return attachment, nil
}

func (s *PostgresStore) ListCardAttachments(ctx context.Context, cardID string) ([]CardAttachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_id, file_name, size, content_type, object_key, COALESCE(uploaded_by::text, ''), created_at
		FROM card_attachments
		WHERE card_id=$1
		ORDER BY created_at ASC
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	items := make([]CardAttachment, 0)
	for rows.Next() {
		var attachment CardAttachment
		if err := rows.Scan(&attachment.ID, &attachment.CardID, &attachment.FileName, &attachment.Size,
			&attachment.ContentType, &attachment.ObjectKey, &attachment.UploadedBy, &attachment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		items = append(items, attachment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) DeleteAttachment(ctx context.Context, attachmentID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM card_attachments WHERE id=$1`, attachmentID)
	if err != nil {
		return fmt.Errorf("delete attachment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete attachment rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
