// Package minutes turns a raw transcript into a short Markdown minutes
// document. Selection is extractive: sentences are ranked by how many
// content words they carry and the best ones are echoed back as key points
// and as an unowned action-item checklist.
package minutes

import (
	"sort"
	"strings"
)

const (
	// FallbackText is returned when the transcript has nothing to select.
	FallbackText = "No content to summarise."

	// DefaultMaxSentences is the selection size used by the CLI and as the
	// HTTP default.
	DefaultMaxSentences = 6

	// MaxSentencesLimit bounds max_sentences on the HTTP surface.
	MaxSentencesLimit = 20
)

const (
	titleHeading   = "# Meeting minutes"
	pointsHeading  = "## Key points"
	actionsHeading = "## Action items (heuristic)"
	actionsNote    = "_Auto-generated from important sentences; add owners/dates manually._"
	actionPrefix   = "- [ ] (Owner?) "
	pointPrefix    = "- "

	tokenTrimSet = ".,!?;:()[]"
)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "a": {}, "an": {}, "of": {}, "to": {}, "in": {}, "is": {},
	"it": {}, "that": {}, "for": {}, "on": {}, "with": {}, "as": {}, "this": {},
	"by": {}, "at": {}, "from": {}, "or": {}, "be": {}, "are": {}, "was": {},
	"were": {}, "has": {}, "have": {}, "had": {}, "we": {}, "you": {}, "they": {},
	"i": {},
}

// IsStopword reports whether the lowercased token is ignored by the scorer.
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}

// SplitSentences breaks text after every '.', '?' or '!'. The terminator
// stays with its sentence. Whitespace-only fragments are dropped, so runs
// like "..." never produce empty sentences.
func SplitSentences(text string) []string {
	var out []string
	var buf strings.Builder

	flush := func() {
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, s)
		}
		buf.Reset()
	}

	for _, r := range text {
		buf.WriteRune(r)
		switch r {
		case '.', '?', '!':
			flush()
		}
	}
	flush()

	return out
}

// ScoreSentence counts whitespace-delimited tokens that remain after
// trimming edge punctuation, lowercasing and dropping stop words.
func ScoreSentence(sentence string) float64 {
	n := 0
	for _, tok := range strings.Fields(sentence) {
		tok = strings.ToLower(strings.Trim(tok, tokenTrimSet))
		if tok == "" || IsStopword(tok) {
			continue
		}
		n++
	}
	return float64(n)
}

type scored struct {
	pos      int
	sentence string
	score    float64
}

// Highlights returns up to maxSentences of the highest scoring sentences
// in transcript order. Equal scores keep their transcript order. A
// non-positive maxSentences selects nothing.
func Highlights(transcript string, maxSentences int) []string {
	sentences := SplitSentences(transcript)
	if len(sentences) == 0 || maxSentences <= 0 {
		return nil
	}

	ranked := make([]scored, len(sentences))
	for i, s := range sentences {
		ranked[i] = scored{pos: i, sentence: s, score: ScoreSentence(s)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if maxSentences > len(ranked) {
		maxSentences = len(ranked)
	}
	top := ranked[:maxSentences]

	sort.Slice(top, func(i, j int) bool {
		return top[i].pos < top[j].pos
	})

	out := make([]string, len(top))
	for i, s := range top {
		out[i] = s.sentence
	}
	return out
}

// Format renders the minutes document for transcript. It never fails: when
// nothing can be selected it returns FallbackText.
func Format(transcript string, maxSentences int) string {
	return Render(Highlights(transcript, maxSentences))
}

// Render lays out already selected sentences. An empty selection renders
// as FallbackText. The result has no trailing newline.
func Render(highlights []string) string {
	if len(highlights) == 0 {
		return FallbackText
	}

	var b strings.Builder
	b.WriteString(titleHeading)
	b.WriteString("\n\n")
	b.WriteString(pointsHeading)
	b.WriteString("\n\n")
	for _, s := range highlights {
		b.WriteString(pointPrefix)
		b.WriteString(s)
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(actionsHeading)
	b.WriteString("\n\n")
	b.WriteString(actionsNote)
	b.WriteString("\n\n")
	for i, s := range highlights {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(actionPrefix)
		b.WriteString(s)
	}

	return b.String()
}
