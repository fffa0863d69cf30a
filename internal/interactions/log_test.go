package interactions

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLogSeen(t *testing.T) {
	l := New([]Event{
		{UserID: 1, ItemID: 10, Rating: 4},
		{UserID: 1, ItemID: 11, Rating: 2},
		{UserID: 1, ItemID: 10, Rating: 5}, // re-rating replaces
		{UserID: 2, ItemID: 12, Rating: 3},
	})

	if !l.HasUser(1) || l.HasUser(3) {
		t.Errorf("HasUser mismatch")
	}
	if !l.Seen(1, 10) || l.Seen(1, 12) || l.Seen(3, 10) {
		t.Errorf("Seen mismatch")
	}
	if got := l.SeenCount(1); got != 2 {
		t.Errorf("SeenCount(1) = %d, want 2", got)
	}
	if l.Len() != 3 {
		t.Errorf("Len() = %d, want 3", l.Len())
	}
	for _, it := range l.Summarize(3).TopItems {
		if it.ItemID == 10 && it.MeanRating != 5 {
			t.Errorf("item 10 mean = %v, want the replacing rating 5", it.MeanRating)
		}
	}

	ids := l.UserIDs()
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("UserIDs() = %v", ids)
	}
}

func TestSummarize(t *testing.T) {
	l := New([]Event{
		{UserID: 1, ItemID: 10, Rating: 4},
		{UserID: 1, ItemID: 11, Rating: 2},
		{UserID: 2, ItemID: 10, Rating: 5},
		{UserID: 2, ItemID: 12, Rating: 4},
	})

	s := l.Summarize(2)
	if s.Users != 2 || s.Items != 3 || s.Events != 4 {
		t.Errorf("totals = %d/%d/%d", s.Users, s.Items, s.Events)
	}
	if s.MeanRating != 3.75 {
		t.Errorf("MeanRating = %v, want 3.75", s.MeanRating)
	}
	if len(s.Distribution) != 3 || s.Distribution[0].Rating != 2 || s.Distribution[1].Count != 2 {
		t.Errorf("Distribution = %+v", s.Distribution)
	}
	if len(s.TopItems) != 2 || s.TopItems[0].ItemID != 10 || s.TopItems[1].ItemID != 11 {
		t.Errorf("TopItems = %+v", s.TopItems)
	}
	if s.TopItems[0].MeanRating != 4.5 {
		t.Errorf("TopItems[0].MeanRating = %v, want 4.5", s.TopItems[0].MeanRating)
	}
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ratings.csv")
	data := "user_id,item_id,rating,title\n1,10,4.0,Emma\n1,11,3.5,Persuasion\n2,10,5,Emma\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	l, err := LoadCSV(path)
	if err != nil {
		t.Fatalf("LoadCSV() error = %v", err)
	}
	if l.Len() != 3 || !l.Seen(1, 11) {
		t.Errorf("unexpected log contents")
	}
	if top := l.Summarize(1).TopItems; len(top) != 1 || top[0].ItemID != 10 || top[0].MeanRating != 4.5 {
		t.Errorf("TopItems = %+v, want item 10 with mean 4.5", top)
	}

	if err := os.WriteFile(path, []byte("user_id,item_id\n1,2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCSV(path); err == nil {
		t.Error("LoadCSV() without rating column succeeded")
	}
}
