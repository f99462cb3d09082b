package processing

import (
	"cmp"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"html"
	"regexp"
	"slices"
	"strings"
	"unicode"
)

var (
	urlPattern   = regexp.MustCompile(`https?://[^\s<>"]+`)
	spaces       = regexp.MustCompile(`\s+`)
	nonWordRunes = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	markupTags   = regexp.MustCompile(`(?s)<[^>]*>`)
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "in": true, "for": true, "of": true,
	"and": true, "that": true, "with": true, "this": true, "from": true, "your": true,
	"have": true, "are": true, "was": true, "were": true, "into": true, "about": true,
	"over": true, "than": true, "more": true, "their": true, "they": true, "will": true,
}

const wordsPerMinute = 200

// ExtractURLs returns the distinct HTTP(S) URLs in input in order of first
// appearance, or nil when there are none.
func ExtractURLs(input string) []string {
	var urls []string
	for _, u := range urlPattern.FindAllString(input, -1) {
		if !slices.Contains(urls, u) {
			urls = append(urls, u)
		}
	}
	return urls
}

// RemoveURLs replaces every URL in input with a single space.
func RemoveURLs(input string) string {
	return urlPattern.ReplaceAllLiteralString(input, " ")
}

func squeeze(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllLiteralString(s, " "))
}

// StripMarkup drops HTML tags and entities but keeps punctuation. Feed
// descriptions pass through it before becoming previews.
func StripMarkup(input string) string {
	return squeeze(html.UnescapeString(markupTags.ReplaceAllLiteralString(input, " ")))
}

// CleanText reduces input to bare words: no markup, URLs or punctuation.
func CleanText(input string) string {
	text := RemoveURLs(StripMarkup(input))
	return squeeze(nonWordRunes.ReplaceAllLiteralString(text, " "))
}

// ExtractKeywords returns up to limit of the most frequent words in text
// that are at least minLen runes long and not stop-words. Ties go
// alphabetically.
func ExtractKeywords(text string, limit, minLen int) []string {
	counts := map[string]int{}
	for _, word := range strings.Fields(strings.ToLower(CleanText(text))) {
		word = strings.TrimFunc(word, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsNumber(r)
		})
		if len([]rune(word)) < minLen || stopwords[word] {
			continue
		}
		counts[word]++
	}
	if len(counts) == 0 {
		return nil
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	slices.SortFunc(words, func(a, b string) int {
		if c := cmp.Compare(counts[b], counts[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})

	if limit > 0 && limit < len(words) {
		words = words[:limit]
	}
	return words
}

// BuildItemID is a deterministic id for items that arrive without one.
func BuildItemID(kind, title, text string) string {
	sum := sha1.Sum([]byte(strings.Join([]string{kind, title, text}, "|")))
	return hex.EncodeToString(sum[:])
}

// GenerateTitleFromText titles text after its first sentence, cut to
// maxWords. URLs never count as part of the sentence.
func GenerateTitleFromText(text string, maxWords int) string {
	text = RemoveURLs(text)
	if end := strings.IndexAny(text, ".!?"); end > 0 {
		text = text[:end]
	}
	return TruncateWords(text, maxWords)
}

// TruncateWords keeps the first maxWords words of text, marking a cut with
// an ellipsis. maxWords <= 0 keeps everything.
func TruncateWords(text string, maxWords int) string {
	words := strings.Fields(text)
	if maxWords > 0 && len(words) > maxWords {
		return strings.Join(words[:maxWords], " ") + "..."
	}
	return strings.Join(words, " ")
}

// ReadTime estimates the reading time of text, e.g. "3 min read".
func ReadTime(text string) string {
	n := len(strings.Fields(text))
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d min read", (n+wordsPerMinute-1)/wordsPerMinute)
}
