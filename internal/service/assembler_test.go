package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/swarmworks/hivemind/internal/config"
	"github.com/swarmworks/hivemind/internal/domain/event"
	"github.com/swarmworks/hivemind/internal/domain/memory"
	"github.com/swarmworks/hivemind/internal/port/memorystore"
	"github.com/swarmworks/hivemind/internal/port/social"
)

func assemblerConfig() config.Context {
	return config.Context{
		FeedLimit:           10,
		FeedItemMaxChars:    400,
		EventCardLimit:      5,
		KnowledgeLimit:      3,
		MemoryLimit:         3,
		SimilarityThreshold: 0.5,
		EventCardCacheTTL:   time.Minute,
	}
}

func TestAssembleSectionOrder(t *testing.T) {
	platform := &fakePlatform{feed: []social.FeedItem{
		{ID: "p1", Author: "Ada", Title: "Hello", Content: "first post"},
	}}
	eventStore := &fakeEvents{cards: []event.Card{
		{Title: "Surge", Summary: "lots of posts"},
	}}
	memories := &fakeMemories{
		chunks:   []memorystore.Chunk{{Content: "background fact"}},
		recalled: []memory.Scored{{Memory: memory.Memory{Kind: memory.KindPosition, Content: "I like tabs"}}},
	}

	a := NewAssembler(platform, eventStore, memories, &fakeVectorizer{}, newFakeCache(), assemblerConfig())
	ag := testAgent("a1", 100)
	ag.KnowledgeBaseID = "kb1"

	asm, err := a.Assemble(context.Background(), ag)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	sections := []string{"## Recent activity", "## Platform events", "## Background knowledge", "## Your memories"}
	last := -1
	for _, sec := range sections {
		idx := strings.Index(asm.Text, sec)
		if idx < 0 {
			t.Fatalf("section %q missing from context:\n%s", sec, asm.Text)
		}
		if idx < last {
			t.Errorf("section %q out of order", sec)
		}
		last = idx
	}
	if len(asm.Degraded) != 0 {
		t.Errorf("degraded = %v, want none", asm.Degraded)
	}
}

func TestAssembleFingerprintDeterministic(t *testing.T) {
	platform := &fakePlatform{feed: []social.FeedItem{
		{ID: "p1", Author: "Ada", Title: "Hello", Content: "first post"},
	}}
	a := NewAssembler(platform, &fakeEvents{}, &fakeMemories{}, &fakeVectorizer{}, newFakeCache(), assemblerConfig())
	ag := testAgent("a1", 100)

	first, err := a.Assemble(context.Background(), ag)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	second, err := a.Assemble(context.Background(), ag)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if first.Fingerprint != second.Fingerprint {
		t.Errorf("fingerprints differ: %s vs %s", first.Fingerprint, second.Fingerprint)
	}
	if len(first.Fingerprint) != 64 {
		t.Errorf("fingerprint length = %d, want 64 hex chars", len(first.Fingerprint))
	}
}

func TestAssembleDegradesOnFeedFailure(t *testing.T) {
	platform := &fakePlatform{feedErr: errors.New("db down")}
	eventStore := &fakeEvents{cards: []event.Card{{Title: "Surge", Summary: "busy"}}}

	a := NewAssembler(platform, eventStore, &fakeMemories{}, &fakeVectorizer{}, newFakeCache(), assemblerConfig())

	asm, err := a.Assemble(context.Background(), testAgent("a1", 100))
	if err != nil {
		t.Fatalf("Assemble must not fail on a degraded source: %v", err)
	}
	if !strings.Contains(asm.Text, "## Platform events") {
		t.Error("surviving sections must still be assembled")
	}
	found := false
	for _, d := range asm.Degraded {
		if d == "feed" {
			found = true
		}
	}
	if !found {
		t.Errorf("degraded = %v, want to include feed", asm.Degraded)
	}
}

func TestAssembleDegradesOnEmbeddingFailure(t *testing.T) {
	platform := &fakePlatform{feed: []social.FeedItem{
		{ID: "p1", Author: "Ada", Content: "post"},
	}}
	a := NewAssembler(platform, &fakeEvents{}, &fakeMemories{}, &fakeVectorizer{err: errors.New("quota")}, newFakeCache(), assemblerConfig())

	asm, err := a.Assemble(context.Background(), testAgent("a1", 100))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !strings.Contains(asm.Text, "## Recent activity") {
		t.Error("feed section must survive an embedding failure")
	}
	if len(asm.Degraded) != 2 {
		t.Errorf("degraded = %v, want knowledge and memories", asm.Degraded)
	}
}

func TestAssembleTruncatesFeedItems(t *testing.T) {
	long := strings.Repeat("x", 1000)
	platform := &fakePlatform{feed: []social.FeedItem{
		{ID: "p1", Author: "Ada", Content: long},
	}}
	cfg := assemblerConfig()
	cfg.FeedItemMaxChars = 50

	a := NewAssembler(platform, &fakeEvents{}, &fakeMemories{}, &fakeVectorizer{}, newFakeCache(), cfg)
	asm, err := a.Assemble(context.Background(), testAgent("a1", 100))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if strings.Contains(asm.Text, long) {
		t.Error("feed item was not truncated")
	}
	if !strings.Contains(asm.Text, strings.Repeat("x", 50)+"...") {
		t.Error("truncated item missing ellipsis marker")
	}
}

func TestAssembleCachesEventCards(t *testing.T) {
	eventStore := &fakeEvents{cards: []event.Card{{Title: "Surge", Summary: "busy"}}}
	c := newFakeCache()
	a := NewAssembler(&fakePlatform{}, eventStore, &fakeMemories{}, &fakeVectorizer{}, c, assemblerConfig())

	if _, err := a.Assemble(context.Background(), testAgent("a1", 100)); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	// Poison the store; the cached copy must serve the second call.
	eventStore.cardsErr = errors.New("db down")
	asm, err := a.Assemble(context.Background(), testAgent("a2", 100))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !strings.Contains(asm.Text, "Surge") {
		t.Error("second call did not serve event cards from cache")
	}
	if len(asm.Degraded) != 0 {
		t.Errorf("degraded = %v, want none", asm.Degraded)
	}
}
