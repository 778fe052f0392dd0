package search

import (
	"context"
	"log/slog"
)

// Service tries Meilisearch first and falls back to Postgres.
type Service struct {
	meili  *Meili
	pgfts  *PgFTS
	logger *slog.Logger
}

// NewService creates a search service. meili may be nil when Meilisearch is
// not configured.
func NewService(meili *Meili, pgfts *PgFTS, logger *slog.Logger) *Service {
	return &Service{meili: meili, pgfts: pgfts, logger: logger}
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		s.logger.Warn("meilisearch error, falling back to postgres", "error", err)
	}

	results, total, err := s.pgfts.Search(ctx, q)
	if err != nil {
		s.logger.Error("postgres search", "error", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexCard pushes one card to Meilisearch, fire and forget.
func (s *Service) IndexCard(record CardRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexCard(record); err != nil {
			s.logger.Warn("index card", "card_id", record.ID, "error", err)
		}
	}()
}

// DeleteCard removes a card from the index, fire and forget.
func (s *Service) DeleteCard(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeleteCard(id); err != nil {
			s.logger.Warn("delete card from index", "card_id", id, "error", err)
		}
	}()
}

// ReindexCards bulk-loads the index, used at startup.
func (s *Service) ReindexCards(records []CardRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexCards(records); err != nil {
		s.logger.Warn("reindex cards", "error", err)
	}
}

func nonNil(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	return results
}
