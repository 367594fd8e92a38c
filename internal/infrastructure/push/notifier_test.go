package push

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"NewsPulse/internal/domain"
)

type fakeSubscribers struct {
	tokens    []string
	gotTiers  []domain.Tier
	callCount int
}

func (f *fakeSubscribers) TokensForTiers(_ context.Context, tiers []domain.Tier) ([]string, error) {
	f.gotTiers = tiers
	f.callCount++
	return f.tokens, nil
}

func TestNotifyTiersDelivers(t *testing.T) {
	t.Parallel()

	var messages []pushMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg pushMessage
		if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
			t.Errorf("decode push: %v", err)
		}
		messages = append(messages, msg)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	subs := &fakeSubscribers{tokens: []string{"tok1", "tok2", "tok3"}}
	notifier := NewNotifier(server.URL, subs, nil)

	delivered, err := notifier.NotifyTiers(context.Background(),
		domain.TiersFor(8), "Regular story", "article-1")
	if err != nil {
		t.Fatalf("NotifyTiers error: %v", err)
	}

	if delivered != 3 {
		t.Fatalf("expected 3 delivered, got %d", delivered)
	}
	if len(subs.gotTiers) != 1 || subs.gotTiers[0] != domain.TierAll {
		t.Fatalf("importance 8 must hit only the all tier, got %v", subs.gotTiers)
	}
	if len(messages) != 1 {
		t.Fatalf("expected one chunk, got %d", len(messages))
	}
	if messages[0].Title != "New in AI" || messages[0].Body != "Regular story" {
		t.Fatalf("unexpected message: %+v", messages[0])
	}
	if messages[0].Data["isBreaking"] != false {
		t.Fatalf("regular story must not be flagged breaking")
	}
}

func TestNotifyTiersBreaking(t *testing.T) {
	t.Parallel()

	var msg pushMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&msg)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	subs := &fakeSubscribers{tokens: []string{"tok1"}}
	notifier := NewNotifier(server.URL, subs, nil)

	if _, err := notifier.NotifyTiers(context.Background(),
		domain.TiersFor(9), "Huge story", "article-2"); err != nil {
		t.Fatalf("NotifyTiers error: %v", err)
	}

	wantTiers := []domain.Tier{domain.TierBreaking, domain.TierAll}
	if len(subs.gotTiers) != 2 || subs.gotTiers[0] != wantTiers[0] || subs.gotTiers[1] != wantTiers[1] {
		t.Fatalf("importance 9 must hit breaking and all, got %v", subs.gotTiers)
	}
	if msg.Title != "Breaking AI News" {
		t.Fatalf("unexpected breaking title: %q", msg.Title)
	}
	if msg.Data["isBreaking"] != true {
		t.Fatalf("breaking story must be flagged")
	}
}

func TestNotifyTiersChunks(t *testing.T) {
	t.Parallel()

	var chunkSizes []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var msg pushMessage
		_ = json.NewDecoder(r.Body).Decode(&msg)
		chunkSizes = append(chunkSizes, len(msg.To))
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	tokens := make([]string, 0, 250)
	for i := 0; i < 250; i++ {
		tokens = append(tokens, fmt.Sprintf("tok-%d", i))
	}

	notifier := NewNotifier(server.URL, &fakeSubscribers{tokens: tokens}, nil)
	delivered, err := notifier.NotifyTiers(context.Background(),
		domain.TiersFor(5), "Story", "article-3")
	if err != nil {
		t.Fatalf("NotifyTiers error: %v", err)
	}

	if delivered != 250 {
		t.Fatalf("expected 250 delivered, got %d", delivered)
	}
	want := []int{100, 100, 50}
	if len(chunkSizes) != 3 || chunkSizes[0] != want[0] || chunkSizes[1] != want[1] || chunkSizes[2] != want[2] {
		t.Fatalf("unexpected chunk sizes: %v", chunkSizes)
	}
}

func TestNotifyTiersNoSubscribers(t *testing.T) {
	t.Parallel()

	notifier := NewNotifier("https://push.example", &fakeSubscribers{}, nil)
	delivered, err := notifier.NotifyTiers(context.Background(),
		domain.TiersFor(5), "Story", "article-4")
	if err != nil {
		t.Fatalf("NotifyTiers error: %v", err)
	}
	if delivered != 0 {
		t.Fatalf("expected no deliveries, got %d", delivered)
	}
}

func TestNotifyTiersGatewayFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := NewNotifier(server.URL, &fakeSubscribers{tokens: []string{"tok1"}}, nil)
	delivered, err := notifier.NotifyTiers(context.Background(),
		domain.TiersFor(5), "Story", "article-5")
	if err == nil {
		t.Fatalf("expected gateway error")
	}
	if delivered != 0 {
		t.Fatalf("expected 0 delivered on failure, got %d", delivered)
	}
}
