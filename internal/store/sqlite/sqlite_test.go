package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vovakirdan/dialogline/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	s, err := NewWithSetup(":memory:", ApplySchema)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndGetExchange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created := time.Date(2025, 3, 1, 8, 30, 0, 0, time.FixedZone("ICT", 7*3600))
	ex := &store.Exchange{
		RequestID:     "req-1",
		EventID:       "evt-1",
		Source:        "group",
		ChatID:        "C1",
		SenderID:      "U123",
		InboundText:   "@น้องสวพ. สวัสดี",
		ForwardedText: "สวัสดี",
		ReplyText:     "สวัสดีค่ะ",
		ReplyKind:     "fulfillment",
		Delivered:     true,
		CreatedAt:     created,
	}
	if err := s.SaveExchange(ctx, ex); err != nil {
		t.Fatalf("SaveExchange: %v", err)
	}
	if ex.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	got, err := s.GetExchange(ctx, ex.ID)
	if err != nil {
		t.Fatalf("GetExchange: %v", err)
	}
	if got.ForwardedText != "สวัสดี" || got.SenderID != "U123" || !got.Delivered {
		t.Fatalf("unexpected exchange: %+v", got)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, created)
	}
}

func TestGetExchangeNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetExchange(context.Background(), 42)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListExchangesPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		ex := &store.Exchange{
			RequestID:     fmt.Sprintf("req-%d", i),
			Source:        "user",
			SenderID:      "U1",
			InboundText:   fmt.Sprintf("q%d", i),
			ForwardedText: fmt.Sprintf("q%d", i),
			ReplyText:     "a",
			ReplyKind:     "fulfillment",
		}
		if err := s.SaveExchange(ctx, ex); err != nil {
			t.Fatalf("SaveExchange %d: %v", i, err)
		}
	}

	tests := []struct {
		name     string
		limit    int
		beforeID *int64
		wantIDs  []int64
	}{
		{name: "newest first", limit: 3, wantIDs: []int64{5, 4, 3}},
		{name: "before cursor", limit: 3, beforeID: ptr(3), wantIDs: []int64{2, 1}},
		{name: "default limit", limit: 0, wantIDs: []int64{5, 4, 3, 2, 1}},
		{name: "nothing older", limit: 10, beforeID: ptr(1), wantIDs: []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListExchanges(ctx, tt.limit, tt.beforeID)
			if err != nil {
				t.Fatalf("ListExchanges: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d exchanges, want %d", len(got), len(tt.wantIDs))
			}
			for i, ex := range got {
				if ex.ID != tt.wantIDs[i] {
					t.Errorf("index %d: id = %d, want %d", i, ex.ID, tt.wantIDs[i])
				}
			}
		})
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

func ptr(v int64) *int64 { return &v }
