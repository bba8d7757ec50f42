package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
// Templates use Go text/template syntax; the fields available to each are
// listed below.
const (
	// PromptLibrarySearch selects the best matches from a library chunk.
	// Fields: .Library, .Query, .Count, .WithReasons.
	PromptLibrarySearch = "library_search"

	// PromptSongBackground asks for background on a song.
	// Fields: .Title, .Contributors.
	PromptSongBackground = "song_background"

	// PromptWebBackground asks for background grounded on web documents.
	// Fields: .Title, .Contributors, .Documents.
	PromptWebBackground = "web_background"

	// PromptMatchReasoning decides whether an item fits a query and explains why.
	// Fields: .Item, .Query, .Similarity.
	PromptMatchReasoning = "match_reasoning"

	// PromptLyricQuery classifies a query as lyric-heavy.
	// Fields: .Query.
	PromptLyricQuery = "lyric_query"

	// PromptLyricMatch checks a lyric fragment against candidate lyrics.
	// Fields: .Query, .Lyrics.
	PromptLyricMatch = "lyric_match"
)

// DefaultPrompts returns the built-in prompt templates keyed by prompt name.
// They are used when no PromptStore is configured and as the initial content
// of user-editable prompt files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
func DefaultPrompts() map[string]string {
	return map[string]string{
		PromptLibrarySearch: `You are a music library assistant helping a listener find songs in their own library.

Here is the library:
{{.Library}}
Here is the listener's query:
{{.Query}}

Pick the {{.Count}} songs from the library that best match the query.
Rank songs whose lyrics or title contain the exact query phrase, or a very close variant of it, above songs that only match the theme or mood. If a song contains the exact phrase, list it first.
Only use song ids that appear in the library above. Never invent an id.
{{if .WithReasons}}For each song, give a brief explanation of why it matches, considering the lyrics, title, artist and background.
{{end}}
Answer with one tag per line, most relevant first:
<song_id>id of the song</song_id>
{{if .WithReasons}}<reason>brief explanation of why this song matches the query</reason>
{{end}}`,

		PromptSongBackground: `Here is a song: "{{.Title}}" by {{.Contributors}}.

Give background on this song and its artist. What is the genre? When was it written? Which musical movement does it come from? What does it reference, and what is its cultural significance?
Answer in one or two short paragraphs.`,

		PromptWebBackground: `Here is a song: "{{.Title}}" by {{.Contributors}}.

The following excerpts were found on the web:
{{range .Documents}}
Source: {{.URL}}
{{.Text}}
---
{{end}}
Using these excerpts, give background on this song and its artist: genre, era, musical movement, references and cultural significance.
Answer in one or two short paragraphs. If the excerpts say nothing about the song, answer with an empty line.`,

		PromptMatchReasoning: `A listener searched their music library for:
{{.Query}}

Candidate song{{if .HasSimilarity}} (vector similarity {{printf "%.2f" .Similarity}}){{end}}:
{{.Item}}
Decide whether this song genuinely fits the search.
Answer on separate lines:
<filter_out>true</filter_out> if the song does not fit, or <filter_out>false</filter_out> if it does
<reason>one concise sentence explaining the match</reason> only when the song fits
Do not repeat the song title or the artist name in the reason.`,

		PromptLyricQuery: `You are analysing a music search query to decide whether it quotes song lyrics.

A lyric-heavy query contains direct or partial lyrics, a memorable line from a song, or lyrics wrapped in a few words of context.
Examples of lyric-heavy queries:
- "that song that goes 'i insist it wasn't always' with the beats" -> i insist it wasn't always
- "song with lyrics 'hello darkness my old friend'" -> hello darkness my old friend
- "the one that goes 'imagine all the people'" -> imagine all the people
Examples of queries that are not lyric-heavy:
- "sad songs about breakups"
- "upbeat dance music"
- "rock music from the 80s"

Query: "{{.Query}}"

If the query is lyric-heavy, answer: YES|extracted lyrics
Otherwise answer: NO`,

		PromptLyricMatch: `A listener is looking for a song using this query:
"{{.Query}}"

Here are the lyrics of a candidate song:
---
{{.Lyrics}}
---

Do the lyrics contain the query, or a very close match of it? Be strict.
Answer with only YES or NO.`,
	}
}
