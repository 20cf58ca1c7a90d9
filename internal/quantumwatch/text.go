package quantumwatch

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	LanguageEnglish = "en"
	LanguageFrench  = "fr"

	// TruncationMarker is appended to text cut down to a character budget.
	TruncationMarker = "... (truncated)"
)

var (
	frenchMarkers  = markerPatterns("le", "la", "les", "un", "une", "des", "et", "est", "sont", "dans")
	englishMarkers = markerPatterns("the", "a", "an", "and", "is", "are", "in", "on", "with", "for")
)

func markerPatterns(words ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(words))
	for _, w := range words {
		patterns = append(patterns, regexp.MustCompile(`\b`+w+`\b`))
	}
	return patterns
}

func countMarkers(text string, patterns []*regexp.Regexp) int {
	count := 0
	for _, p := range patterns {
		count += len(p.FindAllStringIndex(text, -1))
	}
	return count
}

// DetectLanguage classifies text as french or english by counting common
// function words. French has to win outright, everything else is english.
func DetectLanguage(text string) string {
	lower := strings.ToLower(text)
	if countMarkers(lower, frenchMarkers) > countMarkers(lower, englishMarkers) {
		return LanguageFrench
	}

	return LanguageEnglish
}

// EstimateDuration guesses the spoken length of text in seconds at fifteen
// characters a second.
func EstimateDuration(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + 14) / 15
}

// Truncate cuts text to limit characters and appends the truncation marker.
// Text within the limit is returned unchanged.
func Truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	return string(runes[:limit]) + TruncationMarker
}
