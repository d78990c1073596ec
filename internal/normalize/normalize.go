// Package normalize prepares raw article text for analysis: markup and
// boilerplate removal, whitespace collapse, length bounding, and a stable
// fingerprint used as the cache key.
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxChars bounds the normalized text length to cap downstream model and
// search cost. Articles longer than this are truncated, not rejected.
const MaxChars = 50000

// Normalized is the output of Normalize. Snippet indexes produced by the
// analyzer refer to positions in Text.
type Normalized struct {
	Text        string
	Title       string
	Fingerprint string
	Truncated   bool
}

var (
	blockRe  = regexp.MustCompile(`(?is)<(script|style|nav|footer|aside)[^>]*>.*?</(script|style|nav|footer|aside)>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	urlRe    = regexp.MustCompile(`https?://\S+|www\.\S+`)
	emailRe  = regexp.MustCompile(`\S+@\S+\.\S+`)
	spaceRe  = regexp.MustCompile(`[ \t\r\f]+`)
	manyNLRe = regexp.MustCompile(`\n{3,}`)
)

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&apos;", "'",
	"&nbsp;", " ",
)

// Normalize cleans text and title and computes their fingerprint. It is a
// pure function: identical inputs always produce identical output, so the
// fingerprint is a stable cache key.
func Normalize(text, title string) Normalized {
	cleaned := Clean(text)

	truncated := false
	if len(cleaned) > MaxChars {
		cleaned = truncateOnRune(cleaned, MaxChars)
		truncated = true
	}

	cleanTitle := Clean(title)

	return Normalized{
		Text:        cleaned,
		Title:       cleanTitle,
		Fingerprint: Fingerprint(cleaned, cleanTitle),
		Truncated:   truncated,
	}
}

// Clean strips markup, URLs, and emails, decodes common entities, and
// collapses whitespace. Casing and punctuation are preserved; downstream
// consumers that need lexical features do their own folding.
func Clean(s string) string {
	if s == "" {
		return ""
	}

	s = norm.NFC.String(s)
	s = blockRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = entityReplacer.Replace(s)
	s = urlRe.ReplaceAllString(s, " ")
	s = emailRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	s = manyNLRe.ReplaceAllString(s, "\n\n")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// Fingerprint returns the stable hash of (text, title) used as the cache
// and dedup key. The request URL is deliberately excluded: identical content
// served from different URLs is the same analysis.
func Fingerprint(text, title string) string {
	h := sha256.New()
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(title))
	return hex.EncodeToString(h.Sum(nil))
}

// truncateOnRune cuts s to at most max bytes without splitting a UTF-8
// sequence.
func truncateOnRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut]
}
