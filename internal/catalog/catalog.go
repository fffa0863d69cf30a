// Package catalog holds item metadata and the user directory.
//
// A Catalog is built once at startup and never mutated afterwards, so it is
// safe for concurrent readers. Item rows keep their file order: the
// similarity index addresses items by that row number.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a title, row, item or user does not resolve.
var ErrNotFound = errors.New("not found")

// Item is one book of the catalog.
type Item struct {
	ID        int     `json:"item_id"`
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	Year      int     `json:"year"`
	Publisher string  `json:"publisher"`
	AvgRating float64 `json:"avg_rating"`
}

// User is one entry of the user directory.
type User struct {
	ID   int    `json:"user_id"`
	Name string `json:"name"`
}

// Catalog is the read-only item and user store.
type Catalog struct {
	items    []Item
	byID     map[int]int // item id -> row
	titleRow map[string]int
	users    []User
	byName   map[string]int // user name -> id
}

// New builds a Catalog. Duplicate item ids are rejected. Duplicate titles
// resolve to their first row, duplicate user names to their first id.
func New(items []Item, users []User) (*Catalog, error) {
	c := &Catalog{
		items:    make([]Item, len(items)),
		byID:     make(map[int]int, len(items)),
		titleRow: make(map[string]int, len(items)),
		users:    make([]User, len(users)),
		byName:   make(map[string]int, len(users)),
	}
	copy(c.items, items)
	copy(c.users, users)

	for row, it := range c.items {
		if _, dup := c.byID[it.ID]; dup {
			return nil, fmt.Errorf("duplicate item id %d at row %d", it.ID, row)
		}
		c.byID[it.ID] = row
		if _, seen := c.titleRow[it.Title]; !seen {
			c.titleRow[it.Title] = row
		}
	}
	for _, u := range c.users {
		if _, seen := c.byName[u.Name]; !seen {
			c.byName[u.Name] = u.ID
		}
	}
	return c, nil
}

// Len returns the number of item rows.
func (c *Catalog) Len() int { return len(c.items) }

// Item returns the item with the given id.
func (c *Catalog) Item(id int) (Item, bool) {
	row, ok := c.byID[id]
	if !ok {
		return Item{}, false
	}
	return c.items[row], true
}

// ItemAt returns the item stored at row.
func (c *Catalog) ItemAt(row int) (Item, error) {
	if row < 0 || row >= len(c.items) {
		return Item{}, fmt.Errorf("row %d: %w", row, ErrNotFound)
	}
	return c.items[row], nil
}

// RowOf returns the first row whose title equals title exactly.
func (c *Catalog) RowOf(title string) (int, error) {
	row, ok := c.titleRow[title]
	if !ok {
		return 0, fmt.Errorf("title %q: %w", title, ErrNotFound)
	}
	return row, nil
}

// ItemIDs returns every item id in row order. The slice is a copy.
func (c *Catalog) ItemIDs() []int {
	ids := make([]int, len(c.items))
	for i, it := range c.items {
		ids[i] = it.ID
	}
	return ids
}

// UserID resolves a display name to its user id.
func (c *Catalog) UserID(name string) (int, error) {
	id, ok := c.byName[name]
	if !ok {
		return 0, fmt.Errorf("user %q: %w", name, ErrNotFound)
	}
	return id, nil
}

// Users returns users whose name contains query (case-insensitive), in
// directory order, up to limit entries. An empty query matches everyone.
func (c *Catalog) Users(query string, limit int) []User {
	if limit <= 0 {
		return nil
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]User, 0, min(limit, len(c.users)))
	for _, u := range c.users {
		if len(out) >= limit {
			break
		}
		if q == "" || strings.Contains(strings.ToLower(u.Name), q) {
			out = append(out, u)
		}
	}
	return out
}

// SearchTitles returns items whose title matches query. Prefix matches rank
// ahead of substring matches; ties keep row order.
func (c *Catalog) SearchTitles(query string, limit int) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil
	}

	type scored struct {
		row   int
		score int
	}
	var hits []scored
	for row, it := range c.items {
		title := strings.ToLower(it.Title)
		switch {
		case strings.HasPrefix(title, q):
			hits = append(hits, scored{row, 2})
		case strings.Contains(title, q):
			hits = append(hits, scored{row, 1})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].score > hits[j].score
	})

	if limit > len(hits) {
		limit = len(hits)
	}
	out := make([]Item, 0, limit)
	for _, h := range hits[:limit] {
		out = append(out, c.items[h.row])
	}
	return out
}
