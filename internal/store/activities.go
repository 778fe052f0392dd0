package store

import (
	"context"
	"encoding/json"
	"fmt"
)

func (s *PostgresStore) InsertActivity(ctx context.Context, activity CardActivity) error {
	metadata, err := json.Marshal(activity.Metadata)
	if err != nil {
		return fmt.Errorf("marshal activity metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO card_activities (id, card_id, user_id, action, metadata)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5)
	`, activity.ID, activity.CardID, activity.UserID, activity.Action, metadata)
	if err != nil {
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCardActivities(ctx context.Context, cardID string, limit int) ([]CardActivity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, card_id, COALESCE(user_id::text, ''), action, metadata, created_at
		FROM card_activities
		WHERE card_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, cardID, limit)
	if err != nil {
		return nil, fmt.Errorf("list card activities: %w", err)
	}
	defer rows.Close()

	items := make([]CardActivity, 0)
	for rows.Next() {
		var item CardActivity
		var metadata []byte
		if err := rows.Scan(&item.ID, &item.CardID, &item.UserID, &item.Action, &metadata, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal activity metadata: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activities: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) InsertAuditLog(ctx context.Context, entry AuditLogEntry) error {
	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workspace_audit_log (workspace_id, actor_id, action, target_type, target_id, detail)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6)
	`, entry.WorkspaceID, entry.ActorID, entry.Action, entry.TargetType, entry.TargetID, detail)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAuditLog(ctx context.Context, workspaceID string, limit int) ([]AuditLogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, COALESCE(actor_id::text, ''), action, target_type, target_id, detail, created_at
		FROM workspace_audit_log
		WHERE workspace_id=$1
		ORDER BY created_at DESC
		LIMIT $2
	`, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	defer rows.Close()

	items := make([]AuditLogEntry, 0)
	for rows.Next() {
		var item AuditLogEntry
		var detail []byte
		if err := rows.Scan(&item.ID, &item.WorkspaceID, &item.ActorID, &item.Action, &item.TargetType, &item.TargetID, &detail, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if err := json.Unmarshal(detail, &item.Detail); err != nil {
			return nil, fmt.Errorf("unmarshal audit detail: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit log: %w", err)
	}
	return items, nil
}
