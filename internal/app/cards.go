package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

const maxTitleLength = 500

var validPriorities = map[string]struct{}{
	store.PriorityNone:   {},
	store.PriorityLow:    {},
	store.PriorityMedium: {},
	store.PriorityHigh:   {},
	store.PriorityUrgent: {},
}

type CreateCardInput struct {
	ColumnID    string     `json:"columnId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	StoryPoints *int       `json:"storyPoints"`
	DueDate     *time.Time `json:"dueDate"`
}

// CreateCard inserts a new card at the head of its column; every other card
// in the column moves down one position.
func (s *Service) CreateCard(ctx context.Context, boardID, userID string, input CreateCardInput) (store.Card, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > maxTitleLength {
		return store.Card{}, validationFailed("Card title must be 1-500 characters", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = store.PriorityNone
	}
	if _, ok := validPriorities[priority]; !ok {
		return store.Card{}, validationFailed("Invalid priority", nil)
	}
	if input.StoryPoints != nil && (*input.StoryPoints < 0 || *input.StoryPoints > 99) {
		return store.Card{}, validationFailed("Story points must be between 0 and 99", nil)
	}

	board, err := s.boardForMember(ctx, boardID, userID)
	if err != nil {
		return store.Card{}, err
	}
	if !board.HasColumn(input.ColumnID) {
		return store.Card{}, validationFailed("Column does not exist on this board", nil)
	}

	card, err := s.store.CreateCardAtHead(ctx, store.Card{
		ID:          util.NewID(),
		BoardID:     boardID,
		ColumnID:    input.ColumnID,
		Title:       title,
		Description: input.Description,
		Priority:    priority,
		StoryPoints: input.StoryPoints,
		DueDate:     input.DueDate,
		CreatedBy:   userID,
	}, store.CardActivity{
		ID:     util.NewID(),
		UserID: userID,
		Action: store.ActionCreated,
		Metadata: map[string]any{
			"column_name": board.ColumnName(input.ColumnID),
		},
	})
	if err != nil {
		return store.Card{}, err
	}

	s.broadcastBoard(boardID, userID, "card_created", map[string]any{
		"card_id":     card.ID,
		"title":       card.Title,
		"column_id":   card.ColumnID,
		"column_name": board.ColumnName(card.ColumnID),
		"position":    card.Position,
	})
	if s.search != nil {
		s.search.IndexCard(cardRecord(card, board.WorkspaceID))
	}
	return card, nil
}

type CardDetail struct {
	Card        store.Card
	Comments    []store.CardComment
	Activities  []store.CardActivity
	Attachments []store.CardAttachment
}

func (s *Service) GetCard(ctx context.Context, cardID, userID string) (CardDetail, error) {
	card, _, err := s.cardForMember(ctx, cardID, userID)
	if err != nil {
		return CardDetail{}, err
	}

	labels, err := s.store.ListCardLabels(ctx, cardID)
	if err != nil {
		return CardDetail{}, err
	}
	assignees, err := s.store.ListCardAssignees(ctx, cardID)
	if err != nil {
		return CardDetail{}, err
	}
	card.Labels = labels
	card.Assignees = assignees

	comments, err := s.store.ListCardComments(ctx, cardID)
	if err != nil {
		return CardDetail{}, err
	}
	for i := range comments {
		if comments[i].DeletedAt != nil {
			comments[i].Text = ""
			comments[i].Mentions = nil
		}
	}

	activities, err := s.store.ListCardActivities(ctx, cardID, 50)
	if err != nil {
		return CardDetail{}, err
	}
	attachments, err := s.store.ListCardAttachments(ctx, cardID)
	if err != nil {
		return CardDetail{}, err
	}

	return CardDetail{Card: card, Comments: comments, Activities: activities, Attachments: attachments}, nil
}

type UpdateCardInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Priority    *string    `json:"priority"`
	StoryPoints *int       `json:"storyPoints"`
	DueDate     *time.Time `json:"dueDate"`
	ClearDue    bool       `json:"clearDueDate"`
}

// UpdateCard edits descriptive fields and records one activity per changed
// field. Column and position are owned by MoveCard.
func (s *Service) UpdateCard(ctx context.Context, cardID, userID string, input UpdateCardInput) (store.Card, error) {
	card, board, err := s.cardForMember(ctx, cardID, userID)
	if err != nil {
		return store.Card{}, err
	}

	var activities []store.CardActivity
	record := func(action string, metadata map[string]any) {
		activities = append(activities, store.CardActivity{
			ID:       util.NewID(),
			CardID:   cardID,
			UserID:   userID,
			Action:   action,
			Metadata: metadata,
		})
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" || len(title) > maxTitleLength {
			return store.Card{}, validationFailed("Card title must be 1-500 characters", nil)
		}
		if title != card.Title {
			record(store.ActionTitleChanged, map[string]any{"from": card.Title, "to": title})
			card.Title = title
		}
	}
	if input.Description != nil && *input.Description != card.Description {
		record(store.ActionDescriptionUpdated, nil)
		card.Description = *input.Description
	}
	if input.Priority != nil {
		if _, ok := validPriorities[*input.Priority]; !ok {
			return store.Card{}, validationFailed("Invalid priority", nil)
		}
		if *input.Priority != card.Priority {
			record(store.ActionPriorityChanged, map[string]any{"from": card.Priority, "to": *input.Priority})
			card.Priority = *input.Priority
		}
	}
	if input.StoryPoints != nil {
		if *input.StoryPoints < 0 || *input.StoryPoints > 99 {
			return store.Card{}, validationFailed("Story points must be between 0 and 99", nil)
		}
		card.StoryPoints = input.StoryPoints
	}
	if input.ClearDue {
		if card.DueDate != nil {
			record(store.ActionDueDateCleared, nil)
		}
		card.DueDate = nil
	} else if input.DueDate != nil {
		record(store.ActionDueDateSet, map[string]any{"due_date": input.DueDate.Format("2006-01-02")})
		card.DueDate = input.DueDate
	}

	updated, err := s.store.UpdateCardFields(ctx, card)
	if err != nil {
		return store.Card{}, err
	}
	for _, activity := range activities {
		if err := s.store.InsertActivity(ctx, activity); err != nil {
			s.logger.Warn("record card activity", "action", activity.Action, "error", err)
		}
	}

	s.broadcastBoard(card.BoardID, userID, "card_updated", map[string]any{
		"card_id": card.ID,
		"title":   card.Title,
	})
	if s.search != nil {
		s.search.IndexCard(cardRecord(updated, board.WorkspaceID))
	}
	return updated, nil
}

// DeleteCard removes a card; the cards below it in the column shift up so
// positions stay dense.
func (s *Service) DeleteCard(ctx context.Context, cardID, userID string) error {
	_, _, err := s.cardForMember(ctx, cardID, userID)
	if err != nil {
		return err
	}

	deleted, err := s.store.DeleteCardAndCompact(ctx, cardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("Card not found")
		}
		return err
	}

	s.broadcastBoard(deleted.BoardID, userID, "card_deleted", map[string]any{
		"card_id":   deleted.ID,
		"column_id": deleted.ColumnID,
		"position":  deleted.Position,
	})
	if s.search != nil {
		s.search.DeleteCard(cardID)
	}
	return nil
}

func (s *Service) AssignCard(ctx context.Context, cardID, userID, assigneeID string) error {
	card, board, err := s.cardForMember(ctx, cardID, userID)
	if err != nil {
		return err
	}
	member, err := s.store.IsMember(ctx, board.WorkspaceID, assigneeID)
	if err != nil {
		return err
	}
	if !member {
		return validationFailed("Assignee is not a member of this workspace", nil)
	}

	added, err := s.store.AssignUser(ctx, cardID, assigneeID)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}

	if err := s.store.InsertActivity(ctx, store.CardActivity{
		ID:       util.NewID(),
		CardID:   cardID,
		UserID:   userID,
		Action:   store.ActionAssigned,
		Metadata: map[string]any{"assignee_id": assigneeID},
	}); err != nil {
		s.logger.Warn("record assign activity", "error", err)
	}

	if assigneeID != userID {
		actor, err := s.store.GetUserByID(ctx, userID)
		if err == nil {
			s.notify(ctx, board.WorkspaceID, store.Notification{
				UserID:  assigneeID,
				Type:    store.NotifyCardAssigned,
				CardID:  &card.ID,
				Title:   "You were assigned a card",
				Message: fmt.Sprintf("%s assigned you to %q", actor.DisplayName, card.Title),
			})
		}
	}

	s.broadcastBoard(card.BoardID, userID, "card_assigned", map[string]any{
		"card_id":     cardID,
		"assignee_id": assigneeID,
	})
	return nil
}

func (s *Service) UnassignCard(ctx context.Context, cardID, userID, assigneeID string) error {
	card, _, err := s.cardForMember(ctx, cardID, userID)
	if err != nil {
		return err
	}

	removed, err := s.store.UnassignUser(ctx, cardID, assigneeID)
	if err != nil {
		return err
	}
	if !removed {
		return nil
	}

	if err := s.store.InsertActivity(ctx, store.CardActivity{
		ID:       util.NewID(),
		CardID:   cardID,
		UserID:   userID,
		Action:   store.ActionUnassigned,
		Metadata: map[string]any{"assignee_id": assigneeID},
	}); err != nil {
		s.logger.Warn("record unassign activity", "error", err)
	}

	s.broadcastBoard(card.BoardID, userID, "card_unassigned", map[string]any{
		"card_id":     cardID,
		"assignee_id": assigneeID,
	})
	return nil
}

func (s *Service) cardForMember(ctx context.Context, cardID, userID string) (store.Card, store.Board, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Card{}, store.Board{}, notFound("Card not found")
		}
		return store.Card{}, store.Board{}, err
	}
	board, err := s.boardForMember(ctx, card.BoardID, userID)
	if err != nil {
		return store.Card{}, store.Board{}, err
	}
	return card, board, nil
}

func (s *Service) notifyDueSoonCards(ctx context.Context) error {
	assignments, err := s.store.ListDueSoonAssignments(ctx, 24*time.Hour)
	if err != nil {
		return err
	}
	for _, assignment := range assignments {
		already, err := s.store.HasDueSoonNotification(ctx, assignment.AssigneeID, assignment.CardID)
		if err != nil {
			return err
		}
		if already {
			continue
		}
		cardID := assignment.CardID
		if _, err := s.store.InsertNotification(ctx, store.Notification{
			ID:      util.NewID(),
			UserID:  assignment.AssigneeID,
			Type:    store.NotifyCardDueSoon,
			CardID:  &cardID,
			Title:   "Card due soon",
			Message: fmt.Sprintf("%q is due on %s", assignment.CardTitle, assignment.DueDate.Format("Jan 2")),
		}); err != nil {
			return err
		}
	}
	return nil
}
