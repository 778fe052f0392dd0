package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) InsertLabel(ctx context.Context, label Label) (Label, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO workspace_labels (id, workspace_id, name, color)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, label.ID, label.WorkspaceID, label.Name, label.Color).Scan(&label.CreatedAt)
	if err != nil {
		return Label{}, fmt.Errorf("insert label: %w", err)
	}
	return label, nil
}

func (s *PostgresStore) GetLabel(ctx context.Context, labelID string) (Label, error) {
	var label Label
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, color, created_at
		FROM workspace_labels WHERE id=$1
	`, labelID).Scan(&label.ID, &label.WorkspaceID, &label.Name, &label.Color, &label.CreatedAt)
	if err != nil {
		return Label{}, err
	}
	return label, nil
}

func (s *PostgresStore) ListWorkspaceLabels(ctx context.Context, workspaceID string) ([]Label, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workspace_id, name, color, created_at
		FROM workspace_labels
		WHERE workspace_id=$1
		ORDER BY name ASC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	defer rows.Close()

	items := make([]Label, 0)
	for rows.Next() {
		var label Label
		if err := rows.Scan(&label.ID, &label.WorkspaceID, &label.Name, &label.Color, &label.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan label: %w", err)
		}
		items = append(items, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labels: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateLabel(ctx context.Context, label Label) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE workspace_labels SET name=$2, color=$3 WHERE id=$1
	`, label.ID, label.Name, label.Color)
	if err != nil {
		return fmt.Errorf("update label: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update label rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteLabel(ctx context.Context, labelID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM workspace_labels WHERE id=$1`, labelID)
	if err != nil {
		return fmt.Errorf("delete label: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete label rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) AttachLabel(ctx context.Context, cardID, labelID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO card_labels (card_id, label_id) VALUES ($1, $2)
		ON CONFLICT (card_id, label_id) DO NOTHING
	`, cardID, labelID)
	if err != nil {
		return false, fmt.Errorf("attach label: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("attach label rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) DetachLabel(ctx context.Context, cardID, labelID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM card_labels WHERE card_id=$1 AND label_id=$2
	`, cardID, labelID)
	if err != nil {
		return false, fmt.Errorf("detach label: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("detach label rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListCardLabels(ctx context.Context, cardID string) ([]Label, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.workspace_id, l.name, l.color, l.created_at
		FROM workspace_labels l
		JOIN card_labels cl ON cl.label_id = l.id
		WHERE cl.card_id=$1
		ORDER BY l.name ASC
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list card labels: %w", err)
	}
	defer rows.Close()

	items := make([]Label, 0)
	for rows.Next() {
		var label Label
		if err := rows.Scan(&label.ID, &label.WorkspaceID, &label.Name, &label.Color, &label.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan card label: %w", err)
		}
		items = append(items, label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate card labels: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) AssignUser(ctx context.Context, cardID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO card_assignees (card_id, user_id) VALUES ($1, $2)
		ON CONFLICT (card_id, user_id) DO NOTHING
	`, cardID, userID)
	if err != nil {
		return false, fmt.Errorf("assign user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("assign user rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) UnassignUser(ctx context.Context, cardID, userID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM card_assignees WHERE card_id=$1 AND user_id=$2
	`, cardID, userID)
	if err != nil {
		return false, fmt.Errorf("unassign user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unassign user rows: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresStore) ListCardAssignees(ctx context.Context, cardID string) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.display_name, u.avatar_url
		FROM users u
		JOIN card_assignees ca ON ca.user_id = u.id
		WHERE ca.card_id=$1
		ORDER BY ca.assigned_at ASC
	`, cardID)
	if err != nil {
		return nil, fmt.Errorf("list card assignees: %w", err)
	}
	defer rows.Close()

	items := make([]User, 0)
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Email, &user.DisplayName, &user.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan assignee: %w", err)
		}
		items = append(items, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignees: %w", err)
	}
	return items, nil
}
