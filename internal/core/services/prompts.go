package services

import (
	"bytes"
	"regexp"
	"strings"
	"text/template"

	"github.com/custodia-labs/sercha-music/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-music/internal/logger"
)

// promptRenderer renders named prompt templates.
// User templates from the store take precedence over the built-in defaults;
// a user template that fails to parse or execute falls back to the default.
type promptRenderer struct {
	store driven.PromptStore
}

func (r promptRenderer) render(name string, data any) (string, error) {
	defaultText := driven.DefaultPrompts()[name]

	if r.store != nil {
		if custom, err := r.store.Load(name); err == nil && strings.TrimSpace(custom) != "" && custom != defaultText {
			out, err := executeTemplate(name, custom, data)
			if err == nil {
				return out, nil
			}
			logger.Warn("Custom prompt %q is invalid, using default: %v", name, err)
		}
	}

	return executeTemplate(name, defaultText, data)
}

func executeTemplate(name, text string, data any) (string, error) {
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Model response micro-protocol.
var tagPattern = regexp.MustCompile(
	`<song_id>(.*?)</song_id>|<reason>(.*?)</reason>|<filter_out>(.*?)</filter_out>`,
)

// Submatch group numbers of tagPattern.
const (
	groupSongID    = 1
	groupReason    = 2
	groupFilterOut = 3
)

// protocolTag is one tag found in a model response.
type protocolTag struct {
	group int
	value string
}

// scanTags returns the protocol tags of a response in order of appearance.
// Lines without tags are ignored.
func scanTags(text string) []protocolTag {
	var tags []protocolTag
	for _, line := range strings.Split(text, "\n") {
		for _, m := range tagPattern.FindAllStringSubmatchIndex(line, -1) {
			for g := groupSongID; g <= groupFilterOut; g++ {
				if m[2*g] >= 0 {
					tags = append(tags, protocolTag{
						group: g,
						value: strings.TrimSpace(line[m[2*g]:m[2*g+1]]),
					})
					break
				}
			}
		}
	}
	return tags
}

// selection is one id picked by the model, with its optional justification.
type selection struct {
	id     string
	reason string
}

// parseSelections extracts the ranked ids of a reduction response.
// A reason attaches to the song id directly before it; a reason with no
// pending id is ignored.
func parseSelections(text string) []selection {
	var out []selection
	pending := false
	for _, tag := range scanTags(text) {
		switch tag.group {
		case groupSongID:
			if tag.value == "" {
				pending = false
				continue
			}
			out = append(out, selection{id: tag.value})
			pending = true
		case groupReason:
			if pending {
				out[len(out)-1].reason = tag.value
			}
			pending = false
		}
	}
	return out
}

// verdict is the parsed answer of a reasoning call.
type verdict struct {
	exclude bool
	reason  string
}

// parseVerdict extracts the filter decision and reason of a reasoning response.
// A missing filter tag keeps the item.
func parseVerdict(text string) verdict {
	var v verdict
	seenFilter, seenReason := false, false
	for _, tag := range scanTags(text) {
		switch tag.group {
		case groupFilterOut:
			if !seenFilter {
				v.exclude = strings.EqualFold(tag.value, "true")
				seenFilter = true
			}
		case groupReason:
			if !seenReason && tag.value != "" {
				v.reason = tag.value
				seenReason = true
			}
		}
	}
	return v
}
