package catalog

import (
	"fmt"

	"bookrec/internal/tabular"
)

// LoadItems reads the book metadata CSV
// (item_id,title,author,year,publisher,avg_rating). Row order is preserved.
func LoadItems(path string) ([]Item, error) {
	var items []Item
	err := tabular.ReadFile(path, []string{"item_id", "title"}, func(_ int, row tabular.Row) error {
		id, err := row.Int("item_id")
		if err != nil {
			return err
		}
		avg, err := row.Float("avg_rating")
		if err != nil {
			return err
		}
		year := 0
		if row.String("year") != "" {
			if year, err = row.Int("year"); err != nil {
				return err
			}
		}
		items = append(items, Item{
			ID:        id,
			Title:     row.String("title"),
			Author:    row.String("author"),
			Year:      year,
			Publisher: row.String("publisher"),
			AvgRating: avg,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: no items", path)
	}
	return items, nil
}

// LoadUsers reads the user directory CSV (user_id,name).
func LoadUsers(path string) ([]User, error) {
	var users []User
	err := tabular.ReadFile(path, []string{"user_id", "name"}, func(_ int, row tabular.Row) error {
		id, err := row.Int("user_id")
		if err != nil {
			return err
		}
		users = append(users, User{ID: id, Name: row.String("name")})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Load reads both CSVs and builds the Catalog.
func Load(itemsPath, usersPath string) (*Catalog, error) {
	items, err := LoadItems(itemsPath)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	users, err := LoadUsers(usersPath)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	return New(items, users)
}
