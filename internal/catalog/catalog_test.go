package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(
		[]Item{
			{ID: 10, Title: "Dune", Author: "Frank Herbert", Year: 1965},
			{ID: 11, Title: "Dune Messiah", Author: "Frank Herbert", Year: 1969},
			{ID: 12, Title: "Children of Dune", Author: "Frank Herbert", Year: 1976},
			{ID: 13, Title: "Dune", Author: "Someone Else", Year: 2001},
		},
		[]User{{ID: 1, Name: "alice"}, {ID: 2, Name: "bob"}, {ID: 3, Name: "alicia"}},
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestCatalogRowOf(t *testing.T) {
	c := testCatalog(t)

	row, err := c.RowOf("Dune")
	if err != nil {
		t.Fatalf("RowOf() error = %v", err)
	}
	if row != 0 {
		t.Errorf("RowOf(Dune) = %d, want first match 0", row)
	}

	if _, err := c.RowOf("Neuromancer"); !errors.Is(err, ErrNotFound) {
		t.Errorf("RowOf(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestCatalogItemAt(t *testing.T) {
	c := testCatalog(t)

	it, err := c.ItemAt(2)
	if err != nil || it.ID != 12 {
		t.Errorf("ItemAt(2) = %+v, %v; want id 12", it, err)
	}
	for _, row := range []int{-1, 4} {
		if _, err := c.ItemAt(row); !errors.Is(err, ErrNotFound) {
			t.Errorf("ItemAt(%d) error = %v, want ErrNotFound", row, err)
		}
	}
}

func TestCatalogDuplicateID(t *testing.T) {
	_, err := New([]Item{{ID: 1, Title: "a"}, {ID: 1, Title: "b"}}, nil)
	if err == nil {
		t.Fatal("New() with duplicate ids succeeded")
	}
}

func TestCatalogUsers(t *testing.T) {
	c := testCatalog(t)

	if id, err := c.UserID("bob"); err != nil || id != 2 {
		t.Errorf("UserID(bob) = %d, %v", id, err)
	}
	if _, err := c.UserID("mallory"); !errors.Is(err, ErrNotFound) {
		t.Errorf("UserID(unknown) error = %v, want ErrNotFound", err)
	}

	tests := []struct {
		query string
		limit int
		want  []int
	}{
		{"", 10, []int{1, 2, 3}},
		{"ALI", 10, []int{1, 3}},
		{"", 1, []int{1}},
		{"", 0, nil},
	}
	for _, tt := range tests {
		got := c.Users(tt.query, tt.limit)
		if len(got) != len(tt.want) {
			t.Errorf("Users(%q, %d) = %v, want ids %v", tt.query, tt.limit, got, tt.want)
			continue
		}
		for i, u := range got {
			if u.ID != tt.want[i] {
				t.Errorf("Users(%q, %d)[%d] = %d, want %d", tt.query, tt.limit, i, u.ID, tt.want[i])
			}
		}
	}
}

func TestCatalogSearchTitles(t *testing.T) {
	c := testCatalog(t)

	got := c.SearchTitles("dune", 10)
	want := []int{10, 11, 13, 12} // prefix matches first, then substring
	if len(got) != len(want) {
		t.Fatalf("SearchTitles() returned %d items, want %d", len(got), len(want))
	}
	for i, it := range got {
		if it.ID != want[i] {
			t.Errorf("SearchTitles()[%d] = %d, want %d", i, it.ID, want[i])
		}
	}

	if got := c.SearchTitles("dune", 2); len(got) != 2 {
		t.Errorf("SearchTitles(limit 2) returned %d items", len(got))
	}
	if got := c.SearchTitles("  ", 5); got != nil {
		t.Errorf("SearchTitles(blank) = %v, want nil", got)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	items := filepath.Join(dir, "book_meta.csv")
	users := filepath.Join(dir, "users.csv")

	writeFile(t, items, "item_id,title,author,year,publisher,avg_rating\n"+
		"1,Emma,Jane Austen,1815,John Murray,4.1\n"+
		"2,\"Persuasion, Revised\",Jane Austen,,John Murray,\n")
	writeFile(t, users, "user_id,name\n7,Ann\n")

	c, err := Load(items, users)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	emma, _ := c.Item(1)
	if emma.Year != 1815 || emma.AvgRating != 4.1 || emma.Publisher != "John Murray" {
		t.Errorf("Item(1) = %+v", emma)
	}
	if row, err := c.RowOf("Persuasion, Revised"); err != nil || row != 1 {
		t.Errorf("RowOf(quoted title) = %d, %v", row, err)
	}
	if id, err := c.UserID("Ann"); err != nil || id != 7 {
		t.Errorf("UserID(Ann) = %d, %v", id, err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.csv"), "x.csv"); err == nil {
		t.Fatal("Load() of missing file succeeded")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}
