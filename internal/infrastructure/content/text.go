package content

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

const wordsPerMinute = 200

// PlainText strips markup from an HTML fragment and collapses whitespace.
func PlainText(html string) (string, error) {
	if strings.TrimSpace(html) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style").Remove()

	// Block elements carry no whitespace of their own in Text().
	doc.Find("p, li, h1, h2, h3, h4, h5, h6, br, div, blockquote, pre, td").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// Excerpt returns at most maxRunes runes of the fragment's text, cut at a
// word boundary and suffixed with an ellipsis when shortened.
func Excerpt(html string, maxRunes int) (string, error) {
	text, err := PlainText(html)
	if err != nil {
		return "", err
	}
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text, nil
	}

	runes := []rune(text)
	cut := string(runes[:maxRunes-1])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…", nil
}

// ReadingTime estimates minutes needed to read the fragment, never less than one.
func ReadingTime(html string) (int, error) {
	text, err := PlainText(html)
	if err != nil {
		return 0, err
	}

	words := len(strings.Fields(text))
	minutes := int(math.RoundToEven(float64(words) / wordsPerMinute))
	return max(1, minutes), nil
}
