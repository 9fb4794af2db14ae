package risk

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbd888/riskops/internal/pagination"
)

func TestService_AssessRecordsAssessment(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil)

	score := svc.Assess(context.Background(), KindCompany, "aapl", map[string]Signal{
		SignalNewsSentiment: Available(SignalNewsSentiment, "nyt", 0.5),
	})
	svc.Wait()

	history, next, err := svc.History(context.Background(), "AAPL", 0, "")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || next != "" {
		t.Fatalf("expected 1 assessment and no next page, got %d %q", len(history), next)
	}
	if history[0].Score != score.Value || history[0].Kind != KindCompany {
		t.Errorf("unexpected assessment %+v", history[0])
	}
}

func TestService_AssessPortfolio(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, nil)

	svc.AssessPortfolio(context.Background(), "tech-book", []Holding{
		{Ticker: "AAPL", Industry: "Technology", Shares: 1, Closes: []float64{1, 2, 3}},
	})
	svc.Wait()

	history, _, _ := svc.History(context.Background(), "tech-book", 5, "")
	if len(history) != 1 || history[0].Kind != KindPortfolio {
		t.Fatalf("expected one portfolio assessment, got %+v", history)
	}
}

func TestService_NilStore(t *testing.T) {
	svc := NewService(nil, nil)
	svc.Assess(context.Background(), KindIndustry, "technology", nil)
	history, _, err := svc.History(context.Background(), "technology", 5, "")
	if err != nil || history != nil {
		t.Errorf("expected empty history without a store, got %v %v", history, err)
	}
}

func TestMemoryStore_NewestFirstAndLimit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		_ = store.Record(ctx, &Assessment{ID: id, Subject: "JNJ", Factors: []Factor{{Name: "x"}}})
	}

	got, _ := store.ListBySubject(ctx, "jnj", 2, nil)
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Fatalf("unexpected order: %+v", got)
	}

	got[0].Factors[0].Name = "mutated"
	again, _ := store.ListBySubject(ctx, "JNJ", 1, nil)
	if again[0].Factors[0].Name != "x" {
		t.Error("store returned shared factor slice")
	}
}

func TestService_HistoryPages(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil)
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ctx := context.Background()
	for range 5 {
		svc.Assess(ctx, KindCompany, "MSFT", nil)
		svc.Wait()
	}

	var seen []time.Time
	cursor := ""
	for page := 0; ; page++ {
		items, next, err := svc.History(ctx, "MSFT", 2, cursor)
		if err != nil {
			t.Fatalf("History: %v", err)
		}
		for _, a := range items {
			seen = append(seen, a.EvaluatedAt)
		}
		if next == "" {
			break
		}
		if page > 5 {
			t.Fatal("pagination did not terminate")
		}
		cursor = next
	}

	if len(seen) != 5 {
		t.Fatalf("expected 5 assessments across pages, got %d", len(seen))
	}
	for i := 1; i < len(seen); i++ {
		if !seen[i].Before(seen[i-1]) {
			t.Errorf("page order broken at %d: %v then %v", i, seen[i-1], seen[i])
		}
	}

	if _, _, err := svc.History(ctx, "MSFT", 2, "garbage!"); !errors.Is(err, pagination.ErrInvalidCursor) {
		t.Errorf("expected ErrInvalidCursor, got %v", err)
	}
}
