package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS searches cards with PostgreSQL full-text search when Meilisearch is
// unavailable.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; if Postgres is down the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	where := `to_tsvector('english', c.title || ' ' || c.description) @@ plainto_tsquery('english', $1)`
	args := []any{q.Text}
	argN := 2
	if q.WorkspaceID != "" {
		where += fmt.Sprintf(" AND b.workspace_id = $%d", argN)
		args = append(args, q.WorkspaceID)
		argN++
	}
	if q.BoardID != "" {
		where += fmt.Sprintf(" AND c.board_id = $%d", argN)
		args = append(args, q.BoardID)
		argN++
	}

	countQuery := `
		SELECT COUNT(*)
		FROM cards c
		JOIN boards b ON b.id = c.board_id
		WHERE ` + where
	var total int
	if err := p.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count card matches: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.board_id, c.column_id, c.title,
			ts_headline('english', c.description, plainto_tsquery('english', $1), 'MaxFragments=1,MaxWords=30') AS snippet,
			c.priority
		FROM cards c
		JOIN boards b ON b.id = c.board_id
		WHERE %s
		ORDER BY ts_rank(to_tsvector('english', c.title || ' ' || c.description), plainto_tsquery('english', $1)) DESC
		LIMIT $%d OFFSET $%d
	`, where, argN, argN+1)
	args = append(args, limit, offset)

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search cards: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.BoardID, &r.ColumnID, &r.Title, &r.Snippet, &r.Priority); err != nil {
			return nil, 0, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate search results: %w", err)
	}
	return results, total, nil
}
