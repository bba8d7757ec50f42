package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-music/internal/core/domain"
)

func TestReductionEngine_PicksLyricMatch(t *testing.T) {
	llm := newMockLLM(func(string) (string, error) {
		return "<song_id>2</song_id><reason>lyric match</reason>", nil
	})
	engine := NewReductionEngine(llm)

	ranked, usage, err := engine.Search(context.Background(), testItems("1", "2", "3"),
		testQuery("hello darkness", 1, 10, true))

	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "2", ranked[0].ID)
	assert.Equal(t, "lyric match", ranked[0].Reasoning)
	assert.Equal(t, stubUsage, usage)
	assert.Equal(t, 1, llm.calls())
}

func TestReductionEngine_DropsUnknownIDs(t *testing.T) {
	llm := newMockLLM(func(string) (string, error) {
		return songTags("99", "1", "not-an-id", "3"), nil
	})
	engine := NewReductionEngine(llm)

	ranked, _, err := engine.Search(context.Background(), testItems("1", "2", "3"),
		testQuery("anything", 5, 10, false))

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, domain.ItemIDs(ranked))
}

func TestReductionEngine_NeverReturnsIDsOutsideChunk(t *testing.T) {
	// The model answers every chunk with ids from the whole library; only
	// the ids of the chunk it was shown may survive the chunk's pass.
	all := []string{"a", "b", "c", "d", "e", "f"}
	llm := newMockLLM(func(prompt string) (string, error) {
		return songTags(all...), nil
	})
	engine := NewReductionEngine(llm)
	items := testItems(all...)

	for _, chunk := range chunkItems(items, 2) {
		picked, _, err := engine.recursiveSearch(context.Background(), chunk, testQuery("q", 10, 2, false))
		require.NoError(t, err)
		assert.ElementsMatch(t, domain.ItemIDs(chunk), domain.ItemIDs(picked))
	}
}

func TestReductionEngine_ChunkCoverage(t *testing.T) {
	tests := []struct {
		items, chunk, wantChunks int
	}{
		{25, 10, 3},
		{20, 10, 2},
		{1, 10, 1},
		{7, 1, 7},
		{0, 5, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d items by %d", tt.items, tt.chunk), func(t *testing.T) {
			llm := newMockLLM(func(string) (string, error) { return "", nil })
			engine := NewReductionEngine(llm)

			ids := make([]string, tt.items)
			for i := range ids {
				ids[i] = fmt.Sprintf("id-%02d", i)
			}

			ranked, _, err := engine.Search(context.Background(), testItems(ids...), testQuery("q", 3, tt.chunk, false))
			require.NoError(t, err)
			assert.Empty(t, ranked)

			prompts := llm.recordedPrompts()
			require.Len(t, prompts, tt.wantChunks)

			seen := make(map[string]int)
			for _, p := range prompts {
				chunkIDs := promptIDs(p)
				assert.LessOrEqual(t, len(chunkIDs), tt.chunk)
				for _, id := range chunkIDs {
					seen[id]++
				}
			}
			assert.Len(t, seen, tt.items)
			for id, n := range seen {
				assert.Equal(t, 1, n, "id %s appeared in %d chunks", id, n)
			}
		})
	}
}

func TestReductionEngine_FinalPassBoundsResultCount(t *testing.T) {
	// A well-behaved model returns exactly the requested number of ids.
	llm := newMockLLM(func(prompt string) (string, error) {
		ids := promptIDs(prompt)
		return songTags(ids[:min(3, len(ids))]...), nil
	})
	engine := NewReductionEngine(llm)

	ids := make([]string, 25)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", i)
	}

	ranked, usage, err := engine.Search(context.Background(), testItems(ids...), testQuery("q", 3, 10, false))

	require.NoError(t, err)
	assert.Len(t, ranked, 3)
	// Three chunks of picks (9 items) exceed the count, so one final pass runs.
	assert.Equal(t, 4, llm.calls())
	assert.Equal(t, 4, usage.RequestCount)
	assert.Equal(t, []string{"0", "1", "2"}, promptIDs(llm.recordedPrompts()[3])[:3])
	assert.Len(t, promptIDs(llm.recordedPrompts()[3]), 9)
}

func TestReductionEngine_NoFinalPassWhenWithinCount(t *testing.T) {
	llm := newMockLLM(func(prompt string) (string, error) {
		return songTags(promptIDs(prompt)[0]), nil
	})
	engine := NewReductionEngine(llm)

	ranked, _, err := engine.Search(context.Background(), testItems("1", "2", "3", "4"), testQuery("q", 2, 2, false))

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, domain.ItemIDs(ranked))
	assert.Equal(t, 2, llm.calls())
}

func TestReductionEngine_FewerThanRequested(t *testing.T) {
	llm := newMockLLM(func(string) (string, error) { return songTags("2"), nil })
	engine := NewReductionEngine(llm)

	ranked, _, err := engine.Search(context.Background(), testItems("1", "2", "3"), testQuery("q", 5, 10, false))

	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, domain.ItemIDs(ranked))
}

func TestReductionEngine_KeepsModelOrder(t *testing.T) {
	llm := newMockLLM(func(string) (string, error) { return songTags("3", "1", "2"), nil })
	engine := NewReductionEngine(llm)

	ranked, _, err := engine.Search(context.Background(), testItems("1", "2", "3"), testQuery("q", 3, 10, false))

	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1", "2"}, domain.ItemIDs(ranked))
}

func TestReductionEngine_DuplicateIDsKeptOnce(t *testing.T) {
	llm := newMockLLM(func(string) (string, error) {
		return "<song_id>1</song_id><reason>first</reason>\n<song_id>1</song_id><reason>again</reason>", nil
	})
	engine := NewReductionEngine(llm)

	ranked, _, err := engine.Search(context.Background(), testItems("1", "2"), testQuery("q", 2, 10, true))

	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "first", ranked[0].Reasoning)
}

func TestReductionEngine_IgnoresReasonsWhenDisabled(t *testing.T) {
	llm := newMockLLM(func(string) (string, error) {
		return "<song_id>1</song_id><reason>should not appear</reason>", nil
	})
	engine := NewReductionEngine(llm)

	ranked, _, err := engine.Search(context.Background(), testItems("1"), testQuery("q", 1, 10, false))

	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Empty(t, ranked[0].Reasoning)
	assert.NotContains(t, llm.recordedPrompts()[0], "<reason>")
}

func TestReductionEngine_FinalPassReasonsReplaceChunkReasons(t *testing.T) {
	llm := newMockLLM(func(prompt string) (string, error) {
		ids := promptIDs(prompt)
		if len(ids) == 2 && ids[0] == "1" && ids[1] == "3" {
			return "<song_id>3</song_id><reason>final</reason>", nil
		}
		return fmt.Sprintf("<song_id>%s</song_id><reason>chunk</reason>", ids[0]), nil
	})
	engine := NewReductionEngine(llm)

	ranked, _, err := engine.Search(context.Background(), testItems("1", "2", "3", "4"), testQuery("q", 1, 2, true))

	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "3", ranked[0].ID)
	assert.Equal(t, "final", ranked[0].Reasoning)
}

func TestReductionEngine_ModelFailureIsFatal(t *testing.T) {
	calls := 0
	llm := newMockLLM(func(string) (string, error) {
		calls++
		if calls == 2 {
			return "", errProvider
		}
		return songTags("1"), nil
	})
	engine := NewReductionEngine(llm)

	ranked, usage, err := engine.Search(context.Background(), testItems("1", "2", "3"), testQuery("q", 1, 1, false))

	require.Error(t, err)
	assert.Nil(t, ranked)
	assert.True(t, errors.Is(err, domain.ErrProviderFailure))
	assert.Contains(t, err.Error(), "reduce chunk 2/3")
	assert.Equal(t, stubUsage, usage)
}

func TestReductionEngine_EmptyLibrary(t *testing.T) {
	llm := newMockLLM(func(string) (string, error) { return "", nil })
	engine := NewReductionEngine(llm)

	ranked, usage, err := engine.Search(context.Background(), nil, testQuery("q", 1, 10, true))

	require.NoError(t, err)
	assert.Empty(t, ranked)
	assert.True(t, usage.IsZero())
	assert.Equal(t, 0, llm.calls())
}

func TestReductionEngine_EmptySublibraryPromptIsWellFormed(t *testing.T) {
	llm := newMockLLM(func(string) (string, error) { return "", nil })
	engine := NewReductionEngine(llm)

	picked, _, err := engine.recursiveSearch(context.Background(), nil, testQuery("q", 1, 10, true))

	require.NoError(t, err)
	assert.Empty(t, picked)
	require.Equal(t, 1, llm.calls())
	assert.True(t, strings.Contains(llm.recordedPrompts()[0], "Here is the listener's query:"))
}

func TestReductionEngine_ResultsDoNotAliasInput(t *testing.T) {
	llm := newMockLLM(func(string) (string, error) { return songTags("1"), nil })
	engine := NewReductionEngine(llm)
	items := testItems("1")
	items[0].Embedding = []float32{1, 2}

	ranked, _, err := engine.Search(context.Background(), items, testQuery("q", 1, 10, false))
	require.NoError(t, err)

	ranked[0].Contributors[0] = "changed"
	ranked[0].Embedding[0] = 42
	assert.Equal(t, "Artist 1", items[0].Contributors[0])
	assert.Equal(t, float32(1), items[0].Embedding[0])
}

func TestReductionEngine_Unavailable(t *testing.T) {
	engine := NewReductionEngine(nil)

	_, _, err := engine.Search(context.Background(), testItems("1"), testQuery("q", 1, 10, false))

	assert.ErrorIs(t, err, domain.ErrLLMUnavailable)
}

func TestReductionEngine_InvalidQuery(t *testing.T) {
	engine := NewReductionEngine(newMockLLM(func(string) (string, error) { return "", nil }))

	_, _, err := engine.Search(context.Background(), testItems("1"), testQuery("q", 0, 10, false))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReductionMaxTokens(t *testing.T) {
	assert.Equal(t, reductionMinTokens, reductionMaxTokens(10, true))
	assert.Equal(t, 100*(reductionTokensPerID+reductionTokensPerReason), reductionMaxTokens(100, true))
	assert.Equal(t, reductionMinTokens, reductionMaxTokens(50, false))
}
