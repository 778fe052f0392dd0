package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

func (s *PostgresStore) InsertBoard(ctx context.Context, board Board) (Board, error) {
	columns, err := json.Marshal(board.Columns)
	if err != nil {
		return Board{}, fmt.Errorf("marshal board columns: %w", err)
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO boards (id, workspace_id, name, columns)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`, board.ID, board.WorkspaceID, board.Name, columns).Scan(&board.CreatedAt, &board.UpdatedAt)
	if err != nil {
		return Board{}, fmt.Errorf("insert board: %w", err)
	}
	return board, nil
}

func (s *PostgresStore) GetBoard(ctx context.Context, boardID string) (Board, error) {
	var board Board
	var columns []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, name, columns, archived, created_at, updated_at
		FROM boards WHERE id=$1
	`, boardID).Scan(&board.ID, &board.WorkspaceID, &board.Name, &columns, &board.Archived, &board.CreatedAt, &board.UpdatedAt)
	if err != nil {
		return Board{}, err
	}
	if err := json.Unmarshal(columns, &board.Columns); err != nil {
		return Board{}, fmt.Errorf("unmarshal board columns: %w", err)
	}
	return board, nil
}

func (s *PostgresStore) ListWorkspaceBoards(ctx context.Context, workspaceID string, includeArchived bool) ([]Board, error) {
	query := `
		SELECT id, workspace_id, name, columns, archived, created_at, updated_at
		FROM boards WHERE workspace_id=$1
	`
	if !includeArchived {
		query += ` AND archived = FALSE`
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()

	items := make([]Board, 0)
	for rows.Next() {
		var board Board
		var columns []byte
		if err := rows.Scan(&board.ID, &board.WorkspaceID, &board.Name, &columns, &board.Archived, &board.CreatedAt, &board.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan board: %w", err)
		}
		if err := json.Unmarshal(columns, &board.Columns); err != nil {
			return nil, fmt.Errorf("unmarshal board columns: %w", err)
		}
		items = append(items, board)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boards: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) UpdateBoard(ctx context.Context, board Board) error {
	columns, err := json.Marshal(board.Columns)
	if err != nil {
		return fmt.Errorf("marshal board columns: %w", err)
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE boards SET name=$2, columns=$3, archived=$4, updated_at=NOW() WHERE id=$1
	`, board.ID, board.Name, columns, board.Archived)
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update board rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeleteBoard(ctx context.Context, boardID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM boards WHERE id=$1`, boardID)
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete board rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ColumnCardCount counts cards parked in one column. Used before a column is
// removed from a board so the caller can refuse to strand cards.
func (s *PostgresStore) ColumnCardCount(ctx context.Context, boardID, columnID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cards WHERE board_id=$1 AND column_id=$2
	`, boardID, columnID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count column cards: %w", err)
	}
	return count, nil
}
