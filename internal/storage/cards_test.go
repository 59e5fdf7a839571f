package storage

import (
	"context"
	"testing"
)

func TestSearchCards(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.SaveCards(ctx, testCards()); err != nil {
		t.Fatalf("SaveCards: %v", err)
	}

	tests := []struct {
		name      string
		query     string
		wantFirst string
		wantCount int
	}{
		{name: "too short", query: "p", wantCount: 0},
		{name: "whitespace padded short", query: "  c ", wantCount: 0},
		{name: "name prefix", query: "char", wantFirst: "base1-4", wantCount: 2},
		{name: "case insensitive", query: "PIKA", wantCount: 2},
		{name: "name and number", query: "pikachu 60", wantFirst: "jungle-60", wantCount: 1},
		{name: "set code and number", query: "bs 58", wantFirst: "base1-58", wantCount: 1},
		{name: "wildcards are literal", query: "%_", wantCount: 0},
		{name: "no match", query: "zubat", wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.SearchCards(ctx, tt.query)
			if err != nil {
				t.Fatalf("SearchCards(%q): %v", tt.query, err)
			}
			if len(got) != tt.wantCount {
				t.Fatalf("SearchCards(%q) returned %d results, want %d: %+v", tt.query, len(got), tt.wantCount, got)
			}
			if tt.wantFirst != "" && got[0].Card.ID != tt.wantFirst {
				t.Errorf("first result = %s, want %s", got[0].Card.ID, tt.wantFirst)
			}
			for i := 1; i < len(got); i++ {
				if got[i].Score > got[i-1].Score {
					t.Errorf("results not ranked by score at %d", i)
				}
			}
		})
	}
}

func TestSaveCards_Upsert(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	cards := testCards()
	if err := store.SaveCards(ctx, cards); err != nil {
		t.Fatalf("SaveCards: %v", err)
	}

	price := 310.0
	cards[2].MarketPrice = &price
	if err := store.SaveCards(ctx, cards[2:3]); err != nil {
		t.Fatalf("SaveCards update: %v", err)
	}

	card, err := store.GetCard(ctx, "base1-4")
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if card.MarketPrice == nil || *card.MarketPrice != 310.0 {
		t.Errorf("market price not updated: %+v", card.MarketPrice)
	}
}
