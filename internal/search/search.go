// Package search indexes and queries cards, preferring Meilisearch with a
// Postgres fallback when it is unreachable.
package search

// CardRecord is the denormalized card document kept in the search index.
type CardRecord struct {
	ID          string `json:"id"`
	BoardID     string `json:"boardId"`
	WorkspaceID string `json:"workspaceId"`
	ColumnID    string `json:"columnId"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

type Query struct {
	Text        string
	WorkspaceID string
	BoardID     string
	Limit       int
	Offset      int
}

type Result struct {
	ID       string `json:"id"`
	BoardID  string `json:"board_id"`
	ColumnID string `json:"column_id"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	Priority string `json:"priority"`
}

type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}
