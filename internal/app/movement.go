package app

import (
	"context"
	"database/sql"
	"errors"

	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

type MoveCardInput struct {
	ToColumnID string `json:"toColumnId"`
	ToPosition int    `json:"toPosition"`
}

// MoveCard relocates a card within its board. Within a column the cards
// between the old and new slot shift by one; across columns the old column
// compacts and the target column opens a gap. Requested positions outside the
// valid range are clamped, so the two ends of a column can always be targeted
// with 0 and a large number.
func (s *Service) MoveCard(ctx context.Context, cardID, userID string, input MoveCardInput) (store.Card, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Card{}, notFound("Card not found")
		}
		return store.Card{}, err
	}
	board, err := s.boardForMember(ctx, card.BoardID, userID)
	if err != nil {
		return store.Card{}, err
	}
	if board.Archived {
		return store.Card{}, validationFailed("Board is archived", nil)
	}
	if !board.HasColumn(input.ToColumnID) {
		return store.Card{}, validationFailed("Column does not exist on this board", nil)
	}
	if input.ToPosition < 0 {
		return store.Card{}, validationFailed("Position must not be negative", nil)
	}

	result, err := s.store.MoveCard(ctx, store.MoveCardParams{
		CardID:     cardID,
		ToColumnID: input.ToColumnID,
		ToPosition: input.ToPosition,
		ActorID:    userID,
		Board:      board,
	}, util.NewID())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Card{}, notFound("Card not found")
		}
		return store.Card{}, err
	}

	s.broadcastBoard(board.ID, userID, "card_moved", map[string]any{
		"card_id":          cardID,
		"title":            result.Card.Title,
		"from_column":      result.FromColumnID,
		"from_column_name": board.ColumnName(result.FromColumnID),
		"to_column":        result.Card.ColumnID,
		"to_column_name":   board.ColumnName(result.Card.ColumnID),
		"from_position":    result.FromPosition,
		"to_position":      result.ToPosition,
	})
	if s.search != nil {
		s.search.IndexCard(cardRecord(result.Card, board.WorkspaceID))
	}
	return result.Card, nil
}

type BulkMoveItem struct {
	CardID     string `json:"cardId"`
	ToColumnID string `json:"toColumnId"`
	ToPosition int    `json:"toPosition"`
}

type BulkMoveResult struct {
	CardID string `json:"card_id"`
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
}

// BulkMoveCards applies moves one at a time in request order; each move is its
// own transaction. A failed item is reported and does not stop or roll back
// the rest.
func (s *Service) BulkMoveCards(ctx context.Context, userID string, items []BulkMoveItem) ([]BulkMoveResult, error) {
	if len(items) == 0 {
		return nil, validationFailed("No moves supplied", nil)
	}
	if len(items) > 100 {
		return nil, validationFailed("At most 100 moves per request", nil)
	}

	results := make([]BulkMoveResult, 0, len(items))
	for _, item := range items {
		_, err := s.MoveCard(ctx, item.CardID, userID, MoveCardInput{
			ToColumnID: item.ToColumnID,
			ToPosition: item.ToPosition,
		})
		result := BulkMoveResult{CardID: item.CardID, OK: err == nil}
		if err != nil {
			var domainErr *DomainError
			if errors.As(err, &domainErr) {
				result.Error = domainErr.Message
			} else {
				return nil, err
			}
		}
		results = append(results, result)
	}
	return results, nil
}
