package app

import (
	"context"

	"taskboard/api/internal/search"
)

// SearchCards searches a workspace's cards. Results never cross the caller's
// workspace boundary.
func (s *Service) SearchCards(ctx context.Context, workspaceID, userID, text string, limit, offset int) (search.Response, error) {
	if _, _, err := s.workspaceForMember(ctx, workspaceID, userID); err != nil {
		return search.Response{}, err
	}
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: text}, nil
	}
	return s.search.Search(ctx, search.Query{
		Text:        text,
		WorkspaceID: workspaceID,
		Limit:       limit,
		Offset:      offset,
	}), nil
}
