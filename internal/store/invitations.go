package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) InsertInvitation(ctx context.Context, invitation Invitation) (Invitation, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO workspace_invitations (id, workspace_id, email, role, token, invited_by, delivery_status, expires_at)
		VALUES ($1, $2, LOWER($3), $4, $5, $6, $7, $8)
		RETURNING created_at
	`, invitation.ID, invitation.WorkspaceID, invitation.Email, invitation.Role, invitation.Token,
		invitation.InvitedBy, invitation.DeliveryStatus, invitation.ExpiresAt).
		Scan(&invitation.CreatedAt)
	if err != nil {
		return Invitation{}, fmt.Errorf("insert invitation: %w", err)
	}
	return invitation, nil
}

const invitationColumns = `
	id, workspace_id, email, role, token, invited_by, delivery_status, created_at, expires_at, accepted_at
`

func scanInvitation(row rowScanner) (Invitation, error) {
	var invitation Invitation
	var acceptedAt sql.NullTime
	err := row.Scan(&invitation.ID, &invitation.WorkspaceID, &invitation.Email, &invitation.Role,
		&invitation.Token, &invitation.InvitedBy, &invitation.DeliveryStatus,
		&invitation.CreatedAt, &invitation.ExpiresAt, &acceptedAt)
	if err != nil {
		return Invitation{}, err
	}
	invitation.AcceptedAt = scanNullTime(acceptedAt)
	return invitation, nil
}

func (s *PostgresStore) GetInvitation(ctx context.Context, invitationID string) (Invitation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM workspace_invitations WHERE id=$1`, invitationID)
	return scanInvitation(row)
}

func (s *PostgresStore) GetInvitationByToken(ctx context.Context, token string) (Invitation, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+invitationColumns+` FROM workspace_invitations WHERE token=$1`, token)
	return scanInvitation(row)
}

func (s *PostgresStore) GetPendingInvitation(ctx context.Context, workspaceID, email string) (Invitation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+invitationColumns+`
		FROM workspace_invitations
		WHERE workspace_id=$1 AND email=LOWER($2)
	`, workspaceID, email)
	return scanInvitation(row)
}

func (s *PostgresStore) ListWorkspaceInvitations(ctx context.Context, workspaceID string) ([]Invitation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+invitationColumns+`
		FROM workspace_invitations
		WHERE workspace_id=$1
		ORDER BY created_at DESC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	defer rows.Close()

	items := make([]Invitation, 0)
	for rows.Next() {
		invitation, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invitation: %w", err)
		}
		items = append(items, invitation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invitations: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) SetInvitationDelivery(ctx context.Context, invitationID, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE workspace_invitations SET delivery_status=$2 WHERE id=$1
	`, invitationID, status)
	if err != nil {
		return fmt.Errorf("set invitation delivery: %w", err)
	}
	return nil
}

func (s *PostgresStore) MarkInvitationAccepted(ctx context.Context, invitationID string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE workspace_invitations SET accepted_at=NOW()
		WHERE id=$1 AND accepted_at IS NULL
	`, invitationID)
	if err != nil {
		return fmt.Errorf("mark invitation accepted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark invitation accepted rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteInvitation(ctx context.Context, invitationID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM workspace_invitations WHERE id=$1`, invitationID)
	if err != nil {
		return fmt.Errorf("delete invitation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete invitation rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// PurgeExpiredInvitations removes unaccepted invitations past their expiry.
// Called periodically from the maintenance loop.
func (s *PostgresStore) PurgeExpiredInvitations(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM workspace_invitations WHERE accepted_at IS NULL AND expires_at < NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("purge expired invitations: %w", err)
	}
	purged, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired invitations rows: %w", err)
	}
	return purged, nil
}
