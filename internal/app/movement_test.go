package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"testing"

	"taskboard/api/internal/store"
)

// memStore keeps one board's cards in memory with the same dense-position
// contract the real store enforces: every column's positions are always
// exactly 0..n-1.
type memStore struct {
	fakeStore
	board      store.Board
	cards      map[string]*store.Card
	activities []store.CardActivity
}

func newMemStore(board store.Board) *memStore {
	return &memStore{board: board, cards: make(map[string]*store.Card)}
}

func (m *memStore) addCard(id, columnID string, position int) {
	m.cards[id] = &store.Card{
		ID:       id,
		BoardID:  m.board.ID,
		ColumnID: columnID,
		Title:    "Card " + id,
		Priority: store.PriorityNone,
		Position: position,
	}
}

func (m *memStore) column(columnID string) []*store.Card {
	var cards []*store.Card
	for _, card := range m.cards {
		if card.ColumnID == columnID {
			cards = append(cards, card)
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].Position < cards[j].Position })
	return cards
}

func (m *memStore) GetBoard(_ context.Context, id string) (store.Board, error) {
	if id != m.board.ID {
		return store.Board{}, sql.ErrNoRows
	}
	return m.board, nil
}

func (m *memStore) IsMember(_ context.Context, _, userID string) (bool, error) {
	return userID != "outsider", nil
}

func (m *memStore) GetCard(_ context.Context, id string) (store.Card, error) {
	card, ok := m.cards[id]
	if !ok {
		return store.Card{}, sql.ErrNoRows
	}
	return *card, nil
}

func (m *memStore) CreateCardAtHead(_ context.Context, card store.Card, activity store.CardActivity) (store.Card, error) {
	for _, other := range m.column(card.ColumnID) {
		other.Position++
	}
	card.Position = 0
	m.cards[card.ID] = &card
	m.activities = append(m.activities, activity)
	return card, nil
}

func (m *memStore) DeleteCardAndCompact(_ context.Context, id string) (store.Card, error) {
	card, ok := m.cards[id]
	if !ok {
		return store.Card{}, sql.ErrNoRows
	}
	deleted := *card
	delete(m.cards, id)
	for _, other := range m.column(deleted.ColumnID) {
		if other.Position > deleted.Position {
			other.Position--
		}
	}
	return deleted, nil
}

func (m *memStore) MoveCard(_ context.Context, params store.MoveCardParams, activityID string) (store.MoveResult, error) {
	card, ok := m.cards[params.CardID]
	if !ok {
		return store.MoveResult{}, sql.ErrNoRows
	}
	fromColumn, fromPosition := card.ColumnID, card.Position

	target := params.ToPosition
	if params.ToColumnID == fromColumn {
		count := len(m.column(fromColumn))
		if target > count-1 {
			target = count - 1
		}
		if target > fromPosition {
			for _, other := range m.column(fromColumn) {
				if other.Position > fromPosition && other.Position <= target {
					other.Position--
				}
			}
		} else if target < fromPosition {
			for _, other := range m.column(fromColumn) {
				if other.Position >= target && other.Position < fromPosition {
					other.Position++
				}
			}
		}
	} else {
		count := len(m.column(params.ToColumnID))
		if target > count {
			target = count
		}
		for _, other := range m.column(fromColumn) {
			if other.Position > fromPosition {
				other.Position--
			}
		}
		for _, other := range m.column(params.ToColumnID) {
			if other.Position >= target {
				other.Position++
			}
		}
	}

	card.ColumnID = params.ToColumnID
	card.Position = target

	activity := store.CardActivity{
		ID:     activityID,
		CardID: card.ID,
		UserID: params.ActorID,
		Action: store.ActionMoved,
		Metadata: map[string]any{
			"from_column":      fromColumn,
			"from_column_name": params.Board.ColumnName(fromColumn),
			"to_column":        card.ColumnID,
			"to_column_name":   params.Board.ColumnName(card.ColumnID),
			"from_position":    fromPosition,
			"to_position":      target,
		},
	}
	m.activities = append(m.activities, activity)

	return store.MoveResult{
		Card:         *card,
		FromColumnID: fromColumn,
		FromPosition: fromPosition,
		ToPosition:   target,
		Activity:     activity,
	}, nil
}

// assertColumn checks a column holds exactly the given card ids in order, with
// dense positions 0..n-1.
func assertColumn(t *testing.T, m *memStore, columnID string, want []string) {
	t.Helper()
	cards := m.column(columnID)
	if len(cards) != len(want) {
		t.Fatalf("column %s: expected %d cards, got %d", columnID, len(want), len(cards))
	}
	for i, card := range cards {
		if card.ID != want[i] {
			t.Errorf("column %s position %d: expected %s, got %s", columnID, i, want[i], card.ID)
		}
		if card.Position != i {
			t.Errorf("column %s: card %s has position %d, expected %d", columnID, card.ID, card.Position, i)
		}
	}
}

func newMovementService(m *memStore) *Service {
	return newTestService(m)
}

func TestMoveCardAcrossColumns(t *testing.T) {
	m := newMemStore(testBoard())
	m.addCard("X", "col-todo", 0)
	m.addCard("Y", "col-todo", 1)
	m.addCard("Z", "col-todo", 2)
	m.addCard("A", "col-doing", 0)
	svc := newMovementService(m)

	card, err := svc.MoveCard(context.Background(), "Y", "user-1", MoveCardInput{ToColumnID: "col-doing", ToPosition: 0})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if card.ColumnID != "col-doing" || card.Position != 0 {
		t.Fatalf("expected Y at col-doing position 0, got %s position %d", card.ColumnID, card.Position)
	}
	assertColumn(t, m, "col-todo", []string{"X", "Z"})
	assertColumn(t, m, "col-doing", []string{"Y", "A"})

	activity := m.activities[len(m.activities)-1]
	if activity.Action != store.ActionMoved {
		t.Fatalf("expected moved activity, got %s", activity.Action)
	}
	if activity.Metadata["from_column_name"] != "To Do" || activity.Metadata["to_column_name"] != "In Progress" {
		t.Errorf("unexpected column names in activity metadata: %v", activity.Metadata)
	}
	if activity.Metadata["from_position"] != 1 || activity.Metadata["to_position"] != 0 {
		t.Errorf("unexpected positions in activity metadata: %v", activity.Metadata)
	}
}

func TestMoveCardDownWithinColumn(t *testing.T) {
	m := newMemStore(testBoard())
	for i, id := range []string{"a", "b", "c", "d"} {
		m.addCard(id, "col-todo", i)
	}
	svc := newMovementService(m)

	if _, err := svc.MoveCard(context.Background(), "a", "user-1", MoveCardInput{ToColumnID: "col-todo", ToPosition: 2}); err != nil {
		t.Fatalf("move: %v", err)
	}
	assertColumn(t, m, "col-todo", []string{"b", "c", "a", "d"})
}

func TestMoveCardUpWithinColumn(t *testing.T) {
	m := newMemStore(testBoard())
	for i, id := range []string{"a", "b", "c", "d"} {
		m.addCard(id, "col-todo", i)
	}
	svc := newMovementService(m)

	if _, err := svc.MoveCard(context.Background(), "d", "user-1", MoveCardInput{ToColumnID: "col-todo", ToPosition: 1}); err != nil {
		t.Fatalf("move: %v", err)
	}
	assertColumn(t, m, "col-todo", []string{"a", "d", "b", "c"})
}

func TestMoveCardClampsWithinColumn(t *testing.T) {
	m := newMemStore(testBoard())
	for i, id := range []string{"a", "b", "c"} {
		m.addCard(id, "col-todo", i)
	}
	svc := newMovementService(m)

	card, err := svc.MoveCard(context.Background(), "a", "user-1", MoveCardInput{ToColumnID: "col-todo", ToPosition: 50})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if card.Position != 2 {
		t.Fatalf("expected clamp to last slot 2, got %d", card.Position)
	}
	assertColumn(t, m, "col-todo", []string{"b", "c", "a"})
}

func TestMoveCardClampsAcrossColumns(t *testing.T) {
	m := newMemStore(testBoard())
	m.addCard("a", "col-todo", 0)
	m.addCard("b", "col-doing", 0)
	m.addCard("c", "col-doing", 1)
	svc := newMovementService(m)

	card, err := svc.MoveCard(context.Background(), "a", "user-1", MoveCardInput{ToColumnID: "col-doing", ToPosition: 50})
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	// Appending past the end lands after the existing cards.
	if card.Position != 2 {
		t.Fatalf("expected clamp to append slot 2, got %d", card.Position)
	}
	assertColumn(t, m, "col-todo", nil)
	assertColumn(t, m, "col-doing", []string{"b", "c", "a"})
}

func TestMoveCardToOwnPositionKeepsOrder(t *testing.T) {
	m := newMemStore(testBoard())
	for i, id := range []string{"a", "b", "c"} {
		m.addCard(id, "col-todo", i)
	}
	svc := newMovementService(m)

	if _, err := svc.MoveCard(context.Background(), "b", "user-1", MoveCardInput{ToColumnID: "col-todo", ToPosition: 1}); err != nil {
		t.Fatalf("move: %v", err)
	}
	assertColumn(t, m, "col-todo", []string{"a", "b", "c"})
}

func TestMoveCardRejectsArchivedBoard(t *testing.T) {
	board := testBoard()
	board.Archived = true
	m := newMemStore(board)
	m.addCard("a", "col-todo", 0)
	svc := newMovementService(m)

	_, err := svc.MoveCard(context.Background(), "a", "user-1", MoveCardInput{ToColumnID: "col-doing", ToPosition: 0})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestMoveCardRejectsUnknownColumn(t *testing.T) {
	m := newMemStore(testBoard())
	m.addCard("a", "col-todo", 0)
	svc := newMovementService(m)

	_, err := svc.MoveCard(context.Background(), "a", "user-1", MoveCardInput{ToColumnID: "col-nope", ToPosition: 0})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestMoveCardRejectsNegativePosition(t *testing.T) {
	m := newMemStore(testBoard())
	m.addCard("a", "col-todo", 0)
	svc := newMovementService(m)

	_, err := svc.MoveCard(context.Background(), "a", "user-1", MoveCardInput{ToColumnID: "col-doing", ToPosition: -1})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 422 {
		t.Fatalf("expected 422, got %v", err)
	}
}

func TestMoveCardRejectsNonMember(t *testing.T) {
	m := newMemStore(testBoard())
	m.addCard("a", "col-todo", 0)
	svc := newMovementService(m)

	_, err := svc.MoveCard(context.Background(), "a", "outsider", MoveCardInput{ToColumnID: "col-doing", ToPosition: 0})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 403 {
		t.Fatalf("expected 403, got %v", err)
	}
}

func TestMoveCardMissing(t *testing.T) {
	m := newMemStore(testBoard())
	svc := newMovementService(m)

	_, err := svc.MoveCard(context.Background(), "ghost", "user-1", MoveCardInput{ToColumnID: "col-doing", ToPosition: 0})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Status != 404 {
		t.Fatalf("expected 404, got %v", err)
	}
}

func TestCreateCardInsertsAtHead(t *testing.T) {
	m := newMemStore(testBoard())
	m.addCard("old", "col-todo", 0)
	svc := newMovementService(m)

	card, err := svc.CreateCard(context.Background(), "board-1", "user-1", CreateCardInput{
		ColumnID: "col-todo",
		Title:    "Newest work",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if card.Position != 0 {
		t.Fatalf("expected new card at position 0, got %d", card.Position)
	}
	assertColumn(t, m, "col-todo", []string{card.ID, "old"})
}

func TestDeleteCardCompactsColumn(t *testing.T) {
	m := newMemStore(testBoard())
	for i, id := range []string{"a", "b", "c"} {
		m.addCard(id, "col-todo", i)
	}
	svc := newMovementService(m)

	if err := svc.DeleteCard(context.Background(), "b", "user-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	assertColumn(t, m, "col-todo", []string{"a", "c"})
}

func TestBulkMoveAppliesSequentially(t *testing.T) {
	m := newMemStore(testBoard())
	for i, id := range []string{"a", "b", "c"} {
		m.addCard(id, "col-todo", i)
	}
	svc := newMovementService(m)

	results, err := svc.BulkMoveCards(context.Background(), "user-1", []BulkMoveItem{
		{CardID: "a", ToColumnID: "col-doing", ToPosition: 0},
		{CardID: "b", ToColumnID: "col-doing", ToPosition: 0},
		{CardID: "c", ToColumnID: "col-doing", ToPosition: 99},
	})
	if err != nil {
		t.Fatalf("bulk move: %v", err)
	}
	for _, result := range results {
		if !result.OK {
			t.Fatalf("move of %s failed: %s", result.CardID, result.Error)
		}
	}
	// b moved second, taking the head from a; c appended last.
	assertColumn(t, m, "col-todo", nil)
	assertColumn(t, m, "col-doing", []string{"b", "a", "c"})
}

func TestBulkMoveReportsPerItemFailures(t *testing.T) {
	m := newMemStore(testBoard())
	m.addCard("a", "col-todo", 0)
	svc := newMovementService(m)

	results, err := svc.BulkMoveCards(context.Background(), "user-1", []BulkMoveItem{
		{CardID: "ghost", ToColumnID: "col-doing", ToPosition: 0},
		{CardID: "a", ToColumnID: "col-doing", ToPosition: 0},
	})
	if err != nil {
		t.Fatalf("bulk move: %v", err)
	}
	if results[0].OK || results[0].Error == "" {
		t.Errorf("expected first item to fail with a message, got %+v", results[0])
	}
	if !results[1].OK {
		t.Errorf("expected second item to succeed despite the first failing, got %+v", results[1])
	}
	assertColumn(t, m, "col-doing", []string{"a"})
}

func TestBulkMoveRejectsEmptyAndOversizedBatches(t *testing.T) {
	svc := newMovementService(newMemStore(testBoard()))

	if _, err := svc.BulkMoveCards(context.Background(), "user-1", nil); err == nil {
		t.Fatal("expected empty batch to be rejected")
	}

	items := make([]BulkMoveItem, 101)
	for i := range items {
		items[i] = BulkMoveItem{CardID: fmt.Sprintf("card-%d", i), ToColumnID: "col-todo"}
	}
	if _, err := svc.BulkMoveCards(context.Background(), "user-1", items); err == nil {
		t.Fatal("expected oversized batch to be rejected")
	}
}
