package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PopularBook is one row of the popularity aggregate.
type PopularBook struct {
	BookID   int64   `json:"book_id"`
	Title    string  `json:"title"`
	Category *string `json:"category,omitempty"`
	Views    int64   `json:"views"`
}

// StatsRepository runs read-only aggregates over the raw pgx pool. The pool
// is optional at startup, so callers must tolerate a nil repository.
type StatsRepository struct {
	pool *pgxpool.Pool
}

func NewStatsRepository(pool *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{pool: pool}
}

// PopularBooks returns the most-viewed catalog items from browse history.
func (r *StatsRepository) PopularBooks(ctx context.Context, limit int) ([]PopularBook, error) {
	if r == nil || r.pool == nil {
		return nil, fmt.Errorf("stats pool not configured")
	}

	query := `
		SELECT b.id, b.title, b.category, COUNT(h.id) AS views
		FROM browse_history h
		JOIN books b ON b.id = h.book_id
		GROUP BY b.id, b.title, b.category
		ORDER BY views DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query popular books: %w", err)
	}
	defer rows.Close()

	var out []PopularBook
	for rows.Next() {
		var p PopularBook
		if err := rows.Scan(&p.BookID, &p.Title, &p.Category, &p.Views); err != nil {
			return nil, fmt.Errorf("scan popular book: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
