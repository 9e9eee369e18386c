package postgres

import (
	"context"

	"github.com/hongminglow/mess-be/internal/models"
)

// ListMenu returns the weekly menu from Monday to Sunday.
func (s *Store) ListMenu(ctx context.Context) ([]models.MenuEntry, error) {
	const query = `
		SELECT day, breakfast, dinner FROM menu
		ORDER BY array_position(ARRAY['Monday','Tuesday','Wednesday','Thursday','Friday','Saturday','Sunday'], day)`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MenuEntry
	for rows.Next() {
		var m models.MenuEntry
		if err := rows.Scan(&m.Day, &m.Breakfast, &m.Dinner); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
