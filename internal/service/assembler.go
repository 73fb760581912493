package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/swarmworks/hivemind/internal/config"
	"github.com/swarmworks/hivemind/internal/domain/agent"
	"github.com/swarmworks/hivemind/internal/domain/event"
	"github.com/swarmworks/hivemind/internal/port/cache"
	"github.com/swarmworks/hivemind/internal/port/events"
	"github.com/swarmworks/hivemind/internal/port/memorystore"
	"github.com/swarmworks/hivemind/internal/port/social"
)

const eventCardsCacheKey = "context:event_cards"

// Assembled is the context package handed to the prompt builder. The
// fingerprint is stable for identical inputs so replayed runs can be
// compared.
type Assembled struct {
	Text        string
	Fingerprint string
	// Degraded lists the sources that failed and were skipped.
	Degraded []string
}

// Assembler builds the situational context for a cognition cycle in a fixed
// section order: recent feed, event cards, knowledge snippets, memories.
// A failing source degrades to an empty section instead of failing the run.
type Assembler struct {
	platform   social.Platform
	eventStore events.Store
	memories   memorystore.Store
	vectorizer memorystore.Vectorizer
	cache      cache.Cache
	cfg        config.Context
}

// NewAssembler creates a context assembler.
func NewAssembler(platform social.Platform, eventStore events.Store, memories memorystore.Store, vectorizer memorystore.Vectorizer, c cache.Cache, cfg config.Context) *Assembler {
	return &Assembler{
		platform:   platform,
		eventStore: eventStore,
		memories:   memories,
		vectorizer: vectorizer,
		cache:      c,
		cfg:        cfg,
	}
}

// Assemble builds the context text and its SHA-256 fingerprint.
func (a *Assembler) Assemble(ctx context.Context, ag *agent.Agent) (*Assembled, error) {
	var b strings.Builder
	var degraded []string

	feedText := a.feedSection(ctx, &b, &degraded)
	a.eventSection(ctx, &b, &degraded)
	a.retrievalSections(ctx, ag, feedText, &b, &degraded)

	text := b.String()
	sum := sha256.Sum256([]byte(text))

	return &Assembled{
		Text:        text,
		Fingerprint: hex.EncodeToString(sum[:]),
		Degraded:    degraded,
	}, nil
}

// feedSection writes the recent feed and returns its raw text for use as the
// retrieval query.
func (a *Assembler) feedSection(ctx context.Context, b *strings.Builder, degraded *[]string) string {
	items, err := a.platform.RecentFeed(ctx, a.cfg.FeedLimit)
	if err != nil {
		slog.Warn("context: feed unavailable", "error", err)
		*degraded = append(*degraded, "feed")
		return ""
	}
	if len(items) == 0 {
		return ""
	}

	b.WriteString("## Recent activity\n")
	var query strings.Builder
	for _, it := range items {
		content := truncate(it.Content, a.cfg.FeedItemMaxChars)
		if it.Title != "" {
			fmt.Fprintf(b, "- [%s] %s (%s): %s\n", it.ID, it.Title, it.Author, content)
		} else {
			fmt.Fprintf(b, "- [%s] %s: %s\n", it.ID, it.Author, content)
		}
		query.WriteString(it.Title)
		query.WriteByte(' ')
		query.WriteString(content)
		query.WriteByte(' ')
	}
	b.WriteByte('\n')
	return query.String()
}

func (a *Assembler) eventSection(ctx context.Context, b *strings.Builder, degraded *[]string) {
	cards, err := a.cachedEventCards(ctx)
	if err != nil {
		slog.Warn("context: event cards unavailable", "error", err)
		*degraded = append(*degraded, "event_cards")
		return
	}
	if len(cards) == 0 {
		return
	}

	b.WriteString("## Platform events\n")
	for _, c := range cards {
		fmt.Fprintf(b, "- %s: %s\n", c.Title, c.Summary)
	}
	b.WriteByte('\n')
}

func (a *Assembler) retrievalSections(ctx context.Context, ag *agent.Agent, query string, b *strings.Builder, degraded *[]string) {
	if query == "" {
		return
	}

	vec, err := a.vectorizer.Vector(ctx, query)
	if err != nil {
		slog.Warn("context: embedding unavailable", "error", err)
		*degraded = append(*degraded, "knowledge", "memories")
		return
	}

	if ag.KnowledgeBaseID != "" {
		chunks, err := a.memories.SearchKnowledge(ctx, ag.KnowledgeBaseID, vec, a.cfg.KnowledgeLimit, a.cfg.SimilarityThreshold)
		if err != nil {
			slog.Warn("context: knowledge base unavailable", "kb_id", ag.KnowledgeBaseID, "error", err)
			*degraded = append(*degraded, "knowledge")
		} else if len(chunks) > 0 {
			b.WriteString("## Background knowledge\n")
			for _, c := range chunks {
				fmt.Fprintf(b, "- %s\n", c.Content)
			}
			b.WriteByte('\n')
		}
	}

	recalled, err := a.memories.RecallMemories(ctx, ag.ID, vec, a.cfg.MemoryLimit, a.cfg.SimilarityThreshold)
	if err != nil {
		slog.Warn("context: memories unavailable", "agent_id", ag.ID, "error", err)
		*degraded = append(*degraded, "memories")
		return
	}
	if len(recalled) > 0 {
		b.WriteString("## Your memories\n")
		for _, m := range recalled {
			fmt.Fprintf(b, "- (%s) %s\n", m.Kind, m.Content)
		}
		b.WriteByte('\n')
	}
}

// cachedEventCards serves active cards through the L1 cache so every agent in
// a tick shares one query.
func (a *Assembler) cachedEventCards(ctx context.Context) ([]event.Card, error) {
	if data, ok, err := a.cache.Get(ctx, eventCardsCacheKey); err == nil && ok {
		var cards []event.Card
		if err := json.Unmarshal(data, &cards); err == nil {
			return cards, nil
		}
	}

	cards, err := a.eventStore.ActiveEventCards(ctx, a.cfg.EventCardLimit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(cards); err == nil {
		_ = a.cache.Set(ctx, eventCardsCacheKey, data, a.cfg.EventCardCacheTTL)
	}
	return cards, nil
}

func truncate(s string, maxChars int) string {
	if maxChars <= 0 || len(s) <= maxChars {
		return s
	}
	return s[:maxChars] + "..."
}
