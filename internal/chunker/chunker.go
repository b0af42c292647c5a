package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"activity-rag/internal/models"
)

const (
	DefaultChunkSize     = 800
	DefaultMaxTokens     = 320
	DefaultOverlapTokens = 40

	paragraphSeparator = "\n\n"
)

var paragraphRe = regexp.MustCompile(models.ParagraphRegex)

// Paragraphs splits text on blank lines and drops empty paragraphs.
func Paragraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range paragraphRe.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ChunkByBudget packs consecutive paragraphs into chunks of at most maxChars
// characters. A paragraph that cannot fit even in an empty chunk is sliced
// into maxChars pieces.
func ChunkByBudget(text string, maxChars int) ([]string, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("%w: maxChars must be positive, got %d", models.ErrInvalidInput, maxChars)
	}

	var chunks []string
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		if bufLen > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
	}

	for _, p := range Paragraphs(text) {
		pLen := utf8.RuneCountInString(p)

		overhead := 0
		if bufLen > 0 {
			overhead = len(paragraphSeparator)
		}
		if bufLen+overhead+pLen <= maxChars {
			if bufLen > 0 {
				buf.WriteString(paragraphSeparator)
			}
			buf.WriteString(p)
			bufLen += overhead + pLen
			continue
		}

		flush()
		if pLen <= maxChars {
			buf.WriteString(p)
			bufLen = pLen
			continue
		}
		chunks = append(chunks, hardSplit(p, maxChars)...)
	}
	flush()

	return chunks, nil
}

// hardSplit slices s into non-overlapping pieces of maxChars runes.
// Whitespace-only pieces carry no content and are dropped.
func hardSplit(s string, maxChars int) []string {
	runes := []rune(s)
	out := make([]string, 0, len(runes)/maxChars+1)
	for start := 0; start < len(runes); start += maxChars {
		end := min(start+maxChars, len(runes))
		piece := string(runes[start:end])
		if strings.TrimSpace(piece) == "" {
			continue
		}
		out = append(out, piece)
	}
	return out
}

// ChunkByTokenBudget emits windows of whitespace-delimited words holding at
// most maxTokens tokens. Each window after the first starts with the trailing
// words of the previous one worth overlapTokens tokens, and the cursor always
// moves forward by at least one word. A nil counter counts one token per word.
func ChunkByTokenBudget(text string, maxTokens, overlapTokens int, counter TokenCounter) ([]string, error) {
	if maxTokens <= 0 {
		return nil, fmt.Errorf("%w: maxTokens must be positive, got %d", models.ErrInvalidInput, maxTokens)
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	if counter == nil {
		counter = WordCounter
	}
	count := func(w string) int {
		return max(1, counter(w))
	}

	words := strings.Fields(text)
	var chunks []string

	for i := 0; i < len(words); {
		take, tokens := 0, 0
		for i+take < len(words) {
			n := count(words[i+take])
			if tokens+n > maxTokens {
				break
			}
			tokens += n
			take++
		}
		// a single word over budget still forms its own window
		if take == 0 {
			take = 1
		}
		chunks = append(chunks, strings.Join(words[i:i+take], " "))
		if i+take >= len(words) {
			break
		}

		back, kept := 0, 0
		for kept < overlapTokens && back < take {
			kept += count(words[i+take-1-back])
			back++
		}
		i += max(1, take-back)
	}

	return chunks, nil
}

// Classify returns the label of the first section rule whose prefix opens text.
func Classify(text string) models.Section {
	for _, rule := range models.SectionRules {
		if strings.HasPrefix(text, rule.Prefix) {
			return rule.Label
		}
	}
	return models.SectionGeneral
}
