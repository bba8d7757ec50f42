package services

import (
	"context"
	"strings"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

const (
	lyricQueryMaxTokens = 50
	lyricMatchMaxTokens = 10
	lyricMatchRunes     = 1200
	lyricHitsPerQuery   = 3

	instantIDPrefix  = "genius-"
	instantMetadata  = "Found by a direct lyrics lookup for the search."
	instantReasoning = "Instant match: the lyrics of this song contain the words you searched for."
)

// lyricQueryPrompt holds the fields of the lyric_query and lyric_match templates.
type lyricQueryPrompt struct {
	Query  string
	Lyrics string
}

// InstantMatcher answers lyric-quoting queries directly from the lyrics
// provider, before any library search.
type InstantMatcher struct {
	llm     driven.TextCompletionClient
	lyrics  driven.LyricsProvider
	prompts promptRenderer
}

// NewInstantMatcher creates an instant matcher.
func NewInstantMatcher(llm driven.TextCompletionClient, lyrics driven.LyricsProvider) *InstantMatcher {
	return &InstantMatcher{llm: llm, lyrics: lyrics}
}

// SetPromptStore sets the store for user-edited prompt templates.
func (m *InstantMatcher) SetPromptStore(store driven.PromptStore) {
	m.prompts = promptRenderer{store: store}
}

// Match returns the song whose lyrics contain the fragment quoted by query,
// or nil. Failures along the way mean no match.
func (m *InstantMatcher) Match(ctx context.Context, query string) (*domain.EnrichedItem, domain.TokenUsage) {
	var usage domain.TokenUsage
	if m.llm == nil || m.lyrics == nil {
		return nil, usage
	}

	logger.Section("Instant Match")

	answer, u, ok := m.ask(ctx, driven.PromptLyricQuery, lyricQueryPrompt{Query: query}, lyricQueryMaxTokens)
	usage = usage.Add(u)
	if !ok {
		return nil, usage
	}
	fragment, isLyric := parseLyricQuery(answer)
	if !isLyric {
		logger.Debug("Query is not lyric-heavy")
		return nil, usage
	}
	logger.Debug("Extracted lyrics: %q", fragment)

	seen := make(map[string]bool)
	for _, q := range []string{fragment, fragment + " song", fragment + " original"} {
		hits, err := m.lyrics.Search(ctx, q, lyricHitsPerQuery)
		if err != nil {
			logger.Warn("Lyrics search %q failed: %v", q, err)
			continue
		}

		for _, hit := range hits {
			if seen[hit.ID] {
				continue
			}
			seen[hit.ID] = true

			text, err := m.lyrics.LyricsByID(ctx, hit.ID)
			if err != nil || strings.TrimSpace(text) == "" {
				continue
			}

			answer, u, ok := m.ask(ctx, driven.PromptLyricMatch, lyricQueryPrompt{
				Query:  fragment,
				Lyrics: domain.TruncateRunes(text, lyricMatchRunes),
			}, lyricMatchMaxTokens)
			usage = usage.Add(u)
			if !ok {
				continue
			}
			if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(answer)), "YES") {
				logger.Info("Instant match: %s by %s", hit.Title, hit.Artist)
				return instantItem(hit, text), usage
			}
			logger.Debug("Rejected candidate %s by %s", hit.Title, hit.Artist)
		}
	}

	return nil, usage
}

func (m *InstantMatcher) ask(
	ctx context.Context, name string, data lyricQueryPrompt, maxTokens int,
) (string, domain.TokenUsage, bool) {
	prompt, err := m.prompts.render(name, data)
	if err != nil {
		logger.Warn("Prompt %s: %v", name, err)
		return "", domain.TokenUsage{}, false
	}
	resp, err := m.llm.Generate(ctx, driven.Prompt(prompt), driven.GenerateOptions{MaxTokens: maxTokens})
	if err != nil {
		logger.Warn("Instant match call failed: %v", err)
		return "", domain.TokenUsage{}, false
	}
	return resp.Text(), resp.Usage, true
}

// parseLyricQuery reads a "YES|lyrics" or "NO" classification.
func parseLyricQuery(answer string) (string, bool) {
	answer = strings.TrimSpace(answer)
	verdict, fragment, found := strings.Cut(answer, "|")
	if !found || !strings.EqualFold(strings.TrimSpace(verdict), "YES") {
		return "", false
	}
	fragment = strings.Trim(strings.TrimSpace(fragment), `"'`)
	if fragment == "" {
		return "", false
	}
	return fragment, true
}

func instantItem(hit driven.LyricsHit, lyrics string) *domain.EnrichedItem {
	item := &domain.EnrichedItem{
		RawItem: domain.RawItem{
			ID:           instantIDPrefix + hit.ID,
			Title:        hit.Title,
			ExternalLink: hit.URL,
		},
		DescriptiveText: lyrics,
		Metadata:        instantMetadata,
		Reasoning:       instantReasoning,
	}
	if hit.Artist != "" {
		item.Contributors = []string{hit.Artist}
	}
	return item
}
