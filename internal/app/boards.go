package app

import (
	"context"
	"strings"

	"taskboard/api/internal/realtime"
	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

var defaultColumnNames = []string{"To Do", "In Progress", "Done"}

type CreateBoardInput struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

func (s *Service) CreateBoard(ctx context.Context, workspaceID, userID string, input CreateBoardInput) (store.Board, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxNameLength {
		return store.Board{}, validationFailed("Board name must be 1-200 characters", nil)
	}
	if _, _, err := s.workspaceForMember(ctx, workspaceID, userID); err != nil {
		return store.Board{}, err
	}

	columnNames := input.Columns
	if len(columnNames) == 0 {
		columnNames = defaultColumnNames
	}
	columns := make([]store.BoardColumn, 0, len(columnNames))
	for i, columnName := range columnNames {
		columnName = strings.TrimSpace(columnName)
		if columnName == "" {
			return store.Board{}, validationFailed("Column names must not be empty", nil)
		}
		columns = append(columns, store.BoardColumn{ID: util.NewID(), Name: columnName, Position: i})
	}

	board, err := s.store.InsertBoard(ctx, store.Board{
		ID:          util.NewID(),
		WorkspaceID: workspaceID,
		Name:        name,
		Columns:     columns,
	})
	if err != nil {
		return store.Board{}, err
	}
	s.audit(ctx, workspaceID, userID, "board_created", "board", board.ID, map[string]any{"name": name})
	return board, nil
}

func (s *Service) ListBoards(ctx context.Context, workspaceID, userID string, includeArchived bool) ([]store.Board, error) {
	if _, _, err := s.workspaceForMember(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	return s.store.ListWorkspaceBoards(ctx, workspaceID, includeArchived)
}

type BoardDetail struct {
	Board store.Board
	Cards []store.Card
}

// GetBoard returns the board with all of its cards ordered by column and
// position.
func (s *Service) GetBoard(ctx context.Context, boardID, userID string) (BoardDetail, error) {
	board, err := s.boardForMember(ctx, boardID, userID)
	if err != nil {
		return BoardDetail{}, err
	}
	cards, err := s.store.ListBoardCards(ctx, boardID, "")
	if err != nil {
		return BoardDetail{}, err
	}
	for i := range cards {
		labels, err := s.store.ListCardLabels(ctx, cards[i].ID)
		if err != nil {
			return BoardDetail{}, err
		}
		assignees, err := s.store.ListCardAssignees(ctx, cards[i].ID)
		if err != nil {
			return BoardDetail{}, err
		}
		cards[i].Labels = labels
		cards[i].Assignees = assignees
	}
	return BoardDetail{Board: board, Cards: cards}, nil
}

type UpdateBoardInput struct {
	Name     *string `json:"name"`
	Archived *bool   `json:"archived"`
}

func (s *Service) UpdateBoard(ctx context.Context, boardID, userID string, input UpdateBoardInput) (store.Board, error) {
	board, err := s.boardForMember(ctx, boardID, userID)
	if err != nil {
		return store.Board{}, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || len(name) > maxNameLength {
			return store.Board{}, validationFailed("Board name must be 1-200 characters", nil)
		}
		board.Name = name
	}
	if input.Archived != nil {
		board.Archived = *input.Archived
	}

	if err := s.store.UpdateBoard(ctx, board); err != nil {
		return store.Board{}, err
	}
	s.broadcastBoard(board.ID, userID, "board_updated", map[string]any{
		"name":     board.Name,
		"archived": board.Archived,
	})
	return board, nil
}

func (s *Service) DeleteBoard(ctx context.Context, boardID, userID string) error {
	board, err := s.boardForMember(ctx, boardID, userID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	s.audit(ctx, board.WorkspaceID, userID, "board_deleted", "board", boardID, map[string]any{"name": board.Name})
	return nil
}

func (s *Service) AddColumn(ctx context.Context, boardID, userID, name string) (store.Board, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return store.Board{}, validationFailed("Column name must be 1-200 characters", nil)
	}
	board, err := s.boardForMember(ctx, boardID, userID)
	if err != nil {
		return store.Board{}, err
	}

	board.Columns = append(board.Columns, store.BoardColumn{
		ID:       util.NewID(),
		Name:     name,
		Position: len(board.Columns),
	})
	if err := s.store.UpdateBoard(ctx, board); err != nil {
		return store.Board{}, err
	}
	s.broadcastBoard(board.ID, userID, "column_added", map[string]any{"column_name": name})
	return board, nil
}

func (s *Service) RenameColumn(ctx context.Context, boardID, userID, columnID, name string) (store.Board, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLength {
		return store.Board{}, validationFailed("Column name must be 1-200 characters", nil)
	}
	board, err := s.boardForMember(ctx, boardID, userID)
	if err != nil {
		return store.Board{}, err
	}

	found := false
	for i := range board.Columns {
		if board.Columns[i].ID == columnID {
			board.Columns[i].Name = name
			found = true
			break
		}
	}
	if !found {
		return store.Board{}, validationFailed("Column does not exist on this board", nil)
	}

	if err := s.store.UpdateBoard(ctx, board); err != nil {
		return store.Board{}, err
	}
	s.broadcastBoard(board.ID, userID, "column_renamed", map[string]any{
		"column_id":   columnID,
		"column_name": name,
	})
	return board, nil
}

// RemoveColumn deletes an empty column. Columns still holding cards are
// refused so no card is left pointing at a missing column.
func (s *Service) RemoveColumn(ctx context.Context, boardID, userID, columnID string) (store.Board, error) {
	board, err := s.boardForMember(ctx, boardID, userID)
	if err != nil {
		return store.Board{}, err
	}
	if !board.HasColumn(columnID) {
		return store.Board{}, validationFailed("Column does not exist on this board", nil)
	}

	count, err := s.store.ColumnCardCount(ctx, boardID, columnID)
	if err != nil {
		return store.Board{}, err
	}
	if count > 0 {
		return store.Board{}, validationFailed("Column still contains cards", map[string]any{"card_count": count})
	}

	columns := make([]store.BoardColumn, 0, len(board.Columns)-1)
	for _, col := range board.Columns {
		if col.ID == columnID {
			continue
		}
		col.Position = len(columns)
		columns = append(columns, col)
	}
	board.Columns = columns

	if err := s.store.UpdateBoard(ctx, board); err != nil {
		return store.Board{}, err
	}
	s.broadcastBoard(board.ID, userID, "column_removed", map[string]any{"column_id": columnID})
	return board, nil
}

// ReorderColumns takes the complete set of column ids in their new order.
func (s *Service) ReorderColumns(ctx context.Context, boardID, userID string, columnIDs []string) (store.Board, error) {
	board, err := s.boardForMember(ctx, boardID, userID)
	if err != nil {
		return store.Board{}, err
	}
	if len(columnIDs) != len(board.Columns) {
		return store.Board{}, validationFailed("Column order must include every column exactly once", nil)
	}

	byID := make(map[string]store.BoardColumn, len(board.Columns))
	for _, col := range board.Columns {
		byID[col.ID] = col
	}
	columns := make([]store.BoardColumn, 0, len(columnIDs))
	for i, id := range columnIDs {
		col, ok := byID[id]
		if !ok {
			return store.Board{}, validationFailed("Column does not exist on this board", nil)
		}
		delete(byID, id)
		col.Position = i
		columns = append(columns, col)
	}
	board.Columns = columns

	if err := s.store.UpdateBoard(ctx, board); err != nil {
		return store.Board{}, err
	}
	s.broadcastBoard(board.ID, userID, "columns_reordered", map[string]any{"column_ids": columnIDs})
	return board, nil
}

func (s *Service) broadcastBoard(boardID, userID, eventType string, payload map[string]any) {
	if s.rt == nil {
		return
	}
	s.rt.BroadcastBoard(boardID, realtime.Message{
		EventType: eventType,
		UserID:    userID,
		Payload:   payload,
	}, userID)
}
