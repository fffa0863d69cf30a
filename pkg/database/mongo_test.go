//go:build integration

package database

import (
	"context"
	"testing"

	"bookrec/internal/testinfra"
)

func TestStoreHistory(t *testing.T) {
	uri := testinfra.StartMongo(t)
	ctx := context.Background()
	store, err := Connect(ctx, uri, "bookrec_test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() {
		_ = store.db.Drop(context.Background())
		_ = store.Close(context.Background())
	})

	for i, ts := range []int64{100, 300, 200} {
		doc := RecommendationDocument{
			Strategy:      "by_user",
			Subject:       "ana",
			N:             i + 1,
			TimestampUnix: ts,
		}
		if err := store.SaveRecommendation(ctx, doc); err != nil {
			t.Fatalf("SaveRecommendation() error = %v", err)
		}
	}
	if err := store.SaveRecommendation(ctx, RecommendationDocument{Subject: "bo"}); err != nil {
		t.Fatal(err)
	}

	docs, err := store.History(ctx, "ana", 2)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(docs) != 2 || docs[0].TimestampUnix != 300 || docs[1].TimestampUnix != 200 {
		t.Errorf("History() = %+v", docs)
	}
	if docs[0].ID == "" {
		t.Error("document ID not assigned")
	}
}

func TestStoreLog(t *testing.T) {
	uri := testinfra.StartMongo(t)
	ctx := context.Background()
	store, err := Connect(ctx, uri, "bookrec_test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })

	if err := store.SaveLog(ctx, LogDocument{Subject: "ana", Candidates: 40, NodeCount: 2}); err != nil {
		t.Fatalf("SaveLog() error = %v", err)
	}
	n, err := store.logs().CountDocuments(ctx, map[string]any{"subject": "ana"})
	if err != nil || n != 1 {
		t.Errorf("CountDocuments() = %d, %v", n, err)
	}
}
