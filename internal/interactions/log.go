// Package interactions holds the historical user-item rating events.
package interactions

import (
	"fmt"
	"sort"

	"bookrec/internal/tabular"
)

// Event is a single rating of an item by a user.
type Event struct {
	UserID int
	ItemID int
	Rating float64
}

// Log is the read-only interaction log, indexed by user.
type Log struct {
	byUser map[int]map[int]float64
	items  map[int]struct{}
	events int
}

// New indexes events. When a user rated the same item twice the last event wins.
func New(events []Event) *Log {
	l := &Log{
		byUser: make(map[int]map[int]float64),
		items:  make(map[int]struct{}),
	}
	for _, e := range events {
		ratings, ok := l.byUser[e.UserID]
		if !ok {
			ratings = make(map[int]float64)
			l.byUser[e.UserID] = ratings
		}
		if _, dup := ratings[e.ItemID]; !dup {
			l.events++
		}
		ratings[e.ItemID] = e.Rating
		l.items[e.ItemID] = struct{}{}
	}
	return l
}

// HasUser reports whether the user has at least one rating.
func (l *Log) HasUser(userID int) bool {
	_, ok := l.byUser[userID]
	return ok
}

// Seen reports whether the user already rated the item.
func (l *Log) Seen(userID, itemID int) bool {
	_, ok := l.byUser[userID][itemID]
	return ok
}

// SeenCount returns how many distinct items the user rated.
func (l *Log) SeenCount(userID int) int {
	return len(l.byUser[userID])
}

// UserIDs returns every user with at least one rating, ascending.
func (l *Log) UserIDs() []int {
	ids := make([]int, 0, len(l.byUser))
	for id := range l.byUser {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of distinct (user, item) events.
func (l *Log) Len() int { return l.events }

// LoadCSV reads a ratings CSV (user_id,item_id,rating).
func LoadCSV(path string) (*Log, error) {
	var events []Event
	err := tabular.ReadFile(path, []string{"user_id", "item_id", "rating"}, func(_ int, row tabular.Row) error {
		u, err := row.Int("user_id")
		if err != nil {
			return err
		}
		i, err := row.Int("item_id")
		if err != nil {
			return err
		}
		r, err := row.Float("rating")
		if err != nil {
			return err
		}
		events = append(events, Event{UserID: u, ItemID: i, Rating: r})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	return New(events), nil
}
