package app

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"taskboard/api/internal/store"
	"taskboard/api/internal/util"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type LabelInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Service) CreateLabel(ctx context.Context, workspaceID, userID string, input LabelInput) (store.Label, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > 100 {
		return store.Label{}, validationFailed("Label name must be 1-100 characters", nil)
	}
	if !colorPattern.MatchString(input.Color) {
		return store.Label{}, validationFailed("Color must be a #RRGGBB value", nil)
	}
	if _, _, err := s.workspaceForMember(ctx, workspaceID, userID); err != nil {
		return store.Label{}, err
	}

	return s.store.InsertLabel(ctx, store.Label{
		ID:          util.NewID(),
		WorkspaceID: workspaceID,
		Name:        name,
		Color:       input.Color,
	})
}

func (s *Service) ListLabels(ctx context.Context, workspaceID, userID string) ([]store.Label, error) {
	if _, _, err := s.workspaceForMember(ctx, workspaceID, userID); err != nil {
		return nil, err
	}
	return s.store.ListWorkspaceLabels(ctx, workspaceID)
}

func (s *Service) UpdateLabel(ctx context.Context, labelID, userID string, input LabelInput) (store.Label, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > 100 {
		return store.Label{}, validationFailed("Label name must be 1-100 characters", nil)
	}
	if !colorPattern.MatchString(input.Color) {
		return store.Label{}, validationFailed("Color must be a #RRGGBB value", nil)
	}

	label, err := s.labelForMember(ctx, labelID, userID)
	if err != nil {
		return store.Label{}, err
	}
	label.Name = name
	label.Color = input.Color
	if err := s.store.UpdateLabel(ctx, label); err != nil {
		return store.Label{}, err
	}
	return label, nil
}

func (s *Service) DeleteLabel(ctx context.Context, labelID, userID string) error {
	if _, err := s.labelForMember(ctx, labelID, userID); err != nil {
		return err
	}
	return s.store.DeleteLabel(ctx, labelID)
}

// AttachLabel puts a workspace label on a card. The label must belong to the
// card's workspace.
func (s *Service) AttachLabel(ctx context.Context, cardID, labelID, userID string) error {
	card, board, err := s.cardForMember(ctx, cardID, userID)
	if err != nil {
		return err
	}
	label, err := s.store.GetLabel(ctx, labelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("Label not found")
		}
		return err
	}
	if label.WorkspaceID != board.WorkspaceID {
		return validationFailed("Label belongs to a different workspace", nil)
	}

	added, err := s.store.AttachLabel(ctx, cardID, labelID)
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
		Action:   store.ActionLabelAdded,
		Metadata: map[string]any{"label_id": labelID, "label_name": label.Name},
	}); err != nil {
		s.logger.Warn("record label activity", "error", err)
	}

	s.broadcastBoard(card.BoardID, userID, "label_attached", map[string]any{
		"card_id":  cardID,
		"label_id": labelID,
	})
	return nil
}

func (s *Service) DetachLabel(ctx context.Context, cardID, labelID, userID string) error {
	card, _, err := s.cardForMember(ctx, cardID, userID)
	if err != nil {
		return err
	}

	removed, err := s.store.DetachLabel(ctx, cardID, labelID)
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
		Action:   store.ActionLabelRemoved,
		Metadata: map[string]any{"label_id": labelID},
	}); err != nil {
		s.logger.Warn("record label activity", "error", err)
	}

	s.broadcastBoard(card.BoardID, userID, "label_detached", map[string]any{
		"card_id":  cardID,
		"label_id": labelID,
	})
	return nil
}

func (s *Service) labelForMember(ctx context.Context, labelID, userID string) (store.Label, error) {
	label, err := s.store.GetLabel(ctx, labelID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Label{}, notFound("Label not found")
		}
		return store.Label{}, err
	}
	if _, _, err := s.workspaceForMember(ctx, label.WorkspaceID, userID); err != nil {
		return store.Label{}, err
	}
	return label, nil
}
