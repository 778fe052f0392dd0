package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Card positions are dense per (board_id, column_id): always exactly
// 0..n-1 with no gaps and no duplicates. Every mutation below preserves that
// invariant with set-based UPDATEs inside a single transaction, serialized per
// board through a transaction-scoped advisory lock.

func lockBoard(ctx context.Context, tx *sql.Tx, boardID string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, boardID); err != nil {
		return fmt.Errorf("lock board: %w", err)
	}
	return nil
}

// shiftFrom moves every card at position >= from in the column by delta.
func shiftFrom(ctx context.Context, tx *sql.Tx, boardID, columnID string, from, delta int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE cards SET position = position + $4, updated_at = NOW()
		WHERE board_id=$1 AND column_id=$2 AND position >= $3
	`, boardID, columnID, from, delta)
	if err != nil {
		return fmt.Errorf("shift cards from %d: %w", from, err)
	}
	return nil
}

// shiftAfter moves every card at position > after in the column by delta.
func shiftAfter(ctx context.Context, tx *sql.Tx, boardID, columnID string, after, delta int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE cards SET position = position + $4, updated_at = NOW()
		WHERE board_id=$1 AND column_id=$2 AND position > $3
	`, boardID, columnID, after, delta)
	if err != nil {
		return fmt.Errorf("shift cards after %d: %w", after, err)
	}
	return nil
}

// shiftRange moves every card with lo <= position <= hi in the column by delta.
func shiftRange(ctx context.Context, tx *sql.Tx, boardID, columnID string, lo, hi, delta int) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE cards SET position = position + $5, updated_at = NOW()
		WHERE board_id=$1 AND column_id=$2 AND position >= $3 AND position <= $4
	`, boardID, columnID, lo, hi, delta)
	if err != nil {
		return fmt.Errorf("shift cards %d..%d: %w", lo, hi, err)
	}
	return nil
}

func columnCount(ctx context.Context, tx *sql.Tx, boardID, columnID string) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM cards WHERE board_id=$1 AND column_id=$2
	`, boardID, columnID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count column cards: %w", err)
	}
	return count, nil
}

const cardColumns = `
	id, board_id, column_id, title, description, priority, story_points,
	due_date, position, sprint_id, COALESCE(created_by::text, ''), created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (Card, error) {
	var card Card
	var storyPoints sql.NullInt64
	var dueDate sql.NullTime
	var sprintID sql.NullString
	err := row.Scan(&card.ID, &card.BoardID, &card.ColumnID, &card.Title, &card.Description,
		&card.Priority, &storyPoints, &dueDate, &card.Position, &sprintID,
		&card.CreatedBy, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return Card{}, err
	}
	if storyPoints.Valid {
		points := int(storyPoints.Int64)
		card.StoryPoints = &points
	}
	card.DueDate = scanNullTime(dueDate)
	if sprintID.Valid {
		card.SprintID = &sprintID.String
	}
	return card, nil
}

func (s *PostgresStore) GetCard(ctx context.Context, cardID string) (Card, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id=$1`, cardID)
	return scanCard(row)
}

// ListBoardCards returns every card on the board ordered by column then
// position. Pass a columnID to restrict to a single column.
func (s *PostgresStore) ListBoardCards(ctx context.Context, boardID, columnID string) ([]Card, error) {
	query := `SELECT ` + cardColumns + ` FROM cards WHERE board_id=$1`
	args := []any{boardID}
	if columnID != "" {
		query += ` AND column_id=$2`
		args = append(args, columnID)
	}
	query += ` ORDER BY column_id, position ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list board cards: %w", err)
	}
	defer rows.Close()

	items := make([]Card, 0)
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		items = append(items, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return items, nil
}

// CreateCardAtHead inserts card at position 0 of its column, pushing every
// existing card in the column down by one. The creation activity row is
// written in the same transaction.
func (s *PostgresStore) CreateCardAtHead(ctx context.Context, card Card, activity CardActivity) (Card, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Card{}, fmt.Errorf("begin create card: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := lockBoard(ctx, tx, card.BoardID); err != nil {
		return Card{}, err
	}
	if err := shiftFrom(ctx, tx, card.BoardID, card.ColumnID, 0, 1); err != nil {
		return Card{}, err
	}

	card.Position = 0
	err = tx.QueryRowContext(ctx, `
		INSERT INTO cards (id, board_id, column_id, title, description, priority, story_points, due_date, position, sprint_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10)
		RETURNING created_at, updated_at
	`, card.ID, card.BoardID, card.ColumnID, card.Title, card.Description, card.Priority,
		card.StoryPoints, card.DueDate, card.SprintID, card.CreatedBy).
		Scan(&card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		return Card{}, fmt.Errorf("insert card: %w", err)
	}

	activity.CardID = card.ID
	if err := insertActivityTx(ctx, tx, activity); err != nil {
		return Card{}, err
	}

	if err := tx.Commit(); err != nil {
		return Card{}, fmt.Errorf("commit create card: %w", err)
	}
	return card, nil
}

// DeleteCardAndCompact removes the card and closes the gap it leaves, so the
// column's positions stay dense. Returns the card as it was at deletion time.
func (s *PostgresStore) DeleteCardAndCompact(ctx context.Context, cardID string) (Card, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Card{}, fmt.Errorf("begin delete card: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var boardID string
	if err := tx.QueryRowContext(ctx, `SELECT board_id FROM cards WHERE id=$1`, cardID).Scan(&boardID); err != nil {
		return Card{}, err
	}
	if err := lockBoard(ctx, tx, boardID); err != nil {
		return Card{}, err
	}

	// Re-read under the lock: the position may have changed since the caller
	// looked at the card.
	card, err := scanCard(tx.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id=$1`, cardID))
	if err != nil {
		return Card{}, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE id=$1`, cardID); err != nil {
		return Card{}, fmt.Errorf("delete card: %w", err)
	}
	if err := shiftAfter(ctx, tx, card.BoardID, card.ColumnID, card.Position, -1); err != nil {
		return Card{}, err
	}

	if err := tx.Commit(); err != nil {
		return Card{}, fmt.Errorf("commit delete card: %w", err)
	}
	return card, nil
}

type MoveCardParams struct {
	CardID     string
	ToColumnID string
	ToPosition int
	ActorID    string
	// Board supplies column display names for the activity record.
	Board Board
}

type MoveResult struct {
	Card         Card
	FromColumnID string
	FromPosition int
	ToPosition   int
	Activity     CardActivity
}

// MoveCard relocates a card within its board, either reordering it inside its
// column or moving it to another column at a requested position. The target
// position is clamped to the valid range. All position shifts, the card update
// and the movement activity commit atomically.
func (s *PostgresStore) MoveCard(ctx context.Context, params MoveCardParams, activityID string) (MoveResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return MoveResult{}, fmt.Errorf("begin move card: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var boardID string
	if err := tx.QueryRowContext(ctx, `SELECT board_id FROM cards WHERE id=$1`, params.CardID).Scan(&boardID); err != nil {
		return MoveResult{}, err
	}
	if err := lockBoard(ctx, tx, boardID); err != nil {
		return MoveResult{}, err
	}

	card, err := scanCard(tx.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id=$1`, params.CardID))
	if err != nil {
		return MoveResult{}, err
	}
	fromColumnID, fromPosition := card.ColumnID, card.Position

	toPosition := params.ToPosition
	if fromColumnID == params.ToColumnID {
		count, err := columnCount(ctx, tx, card.BoardID, fromColumnID)
		if err != nil {
			return MoveResult{}, err
		}
		toPosition = clamp(toPosition, 0, count-1)

		switch {
		case fromPosition < toPosition:
			// Everything strictly between old and new slides up by one.
			if err := shiftRange(ctx, tx, card.BoardID, fromColumnID, fromPosition+1, toPosition, -1); err != nil {
				return MoveResult{}, err
			}
		case fromPosition > toPosition:
			if err := shiftRange(ctx, tx, card.BoardID, fromColumnID, toPosition, fromPosition-1, 1); err != nil {
				return MoveResult{}, err
			}
		}
	} else {
		count, err := columnCount(ctx, tx, card.BoardID, params.ToColumnID)
		if err != nil {
			return MoveResult{}, err
		}
		toPosition = clamp(toPosition, 0, count)

		if err := shiftAfter(ctx, tx, card.BoardID, fromColumnID, fromPosition, -1); err != nil {
			return MoveResult{}, err
		}
		if err := shiftFrom(ctx, tx, card.BoardID, params.ToColumnID, toPosition, 1); err != nil {
			return MoveResult{}, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE cards SET column_id=$2, position=$3, updated_at=NOW() WHERE id=$1
	`, params.CardID, params.ToColumnID, toPosition); err != nil {
		return MoveResult{}, fmt.Errorf("update moved card: %w", err)
	}
	card.ColumnID = params.ToColumnID
	card.Position = toPosition

	activity := CardActivity{
		ID:     activityID,
		CardID: params.CardID,
		UserID: params.ActorID,
		Action: ActionMoved,
		Metadata: map[string]any{
			"from_column":      fromColumnID,
			"from_column_name": params.Board.ColumnName(fromColumnID),
			"to_column":        params.ToColumnID,
			"to_column_name":   params.Board.ColumnName(params.ToColumnID),
			"from_position":    fromPosition,
			"to_position":      toPosition,
		},
	}
	if err := insertActivityTx(ctx, tx, activity); err != nil {
		return MoveResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return MoveResult{}, fmt.Errorf("commit move card: %w", err)
	}
	return MoveResult{
		Card:         card,
		FromColumnID: fromColumnID,
		FromPosition: fromPosition,
		ToPosition:   toPosition,
		Activity:     activity,
	}, nil
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// CardWorkspace pairs a card with its workspace, used to rebuild the search
// index.
type CardWorkspace struct {
	Card        Card
	WorkspaceID string
}

func (s *PostgresStore) ListCardsWithWorkspace(ctx context.Context) ([]CardWorkspace, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.board_id, c.column_id, c.title, c.description, c.priority, c.story_points,
			c.due_date, c.position, c.sprint_id, COALESCE(c.created_by::text, ''), c.created_at, c.updated_at,
			b.workspace_id
		FROM cards c
		JOIN boards b ON b.id = c.board_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list cards with workspace: %w", err)
	}
	defer rows.Close()

	items := make([]CardWorkspace, 0)
	for rows.Next() {
		var entry CardWorkspace
		var storyPoints sql.NullInt64
		var dueDate sql.NullTime
		var sprintID sql.NullString
		if err := rows.Scan(&entry.Card.ID, &entry.Card.BoardID, &entry.Card.ColumnID, &entry.Card.Title,
			&entry.Card.Description, &entry.Card.Priority, &storyPoints, &dueDate, &entry.Card.Position,
			&sprintID, &entry.Card.CreatedBy, &entry.Card.CreatedAt, &entry.Card.UpdatedAt,
			&entry.WorkspaceID); err != nil {
			return nil, fmt.Errorf("scan card with workspace: %w", err)
		}
		if storyPoints.Valid {
			points := int(storyPoints.Int64)
			entry.Card.StoryPoints = &points
		}
		entry.Card.DueDate = scanNullTime(dueDate)
		if sprintID.Valid {
			entry.Card.SprintID = &sprintID.String
		}
		items = append(items, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards with workspace: %w", err)
	}
	return items, nil
}

// UpdateCardFields persists edits to a card's descriptive fields. Position and
// column are owned by the movement operations and never change here.
func (s *PostgresStore) UpdateCardFields(ctx context.Context, card Card) (Card, error) {
	err := s.db.QueryRowContext(ctx, `
		UPDATE cards
		SET title=$2, description=$3, priority=$4, story_points=$5, due_date=$6, sprint_id=$7, updated_at=NOW()
		WHERE id=$1
		RETURNING updated_at
	`, card.ID, card.Title, card.Description, card.Priority, card.StoryPoints, card.DueDate, card.SprintID).
		Scan(&card.UpdatedAt)
	if err != nil {
		return Card{}, err
	}
	return card, nil
}

func insertActivityTx(ctx context.Context, tx *sql.Tx, activity CardActivity) error {
	metadata, err := json.Marshal(activity.Metadata)
	if err != nil {
		return fmt.Errorf("marshal activity metadata: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO card_activities (id, card_id, user_id, action, metadata)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5)
	`, activity.ID, activity.CardID, activity.UserID, activity.Action, metadata); err != nil {
		return fmt.Errorf("insert card activity: %w", err)
	}
	return nil
}
