package discovery

import "strings"

// fallbackTag is used when no mood keyword matches.
const fallbackTag = "chill"

// moodKeywords maps free-text mood words to Last.fm tags. First match wins,
// scanned in the order the words appear in the input.
var moodKeywords = map[string]string{
	"happy":      "happy",
	"joy":        "happy",
	"upbeat":     "happy",
	"sad":        "sad",
	"melancholy": "melancholic",
	"blue":       "sad",
	"heartbreak": "sad",
	"chill":      "chill",
	"relax":      "chill",
	"calm":       "ambient",
	"sleep":      "ambient",
	"study":      "instrumental",
	"focus":      "instrumental",
	"work":       "instrumental",
	"party":      "dance",
	"dance":      "dance",
	"club":       "dance",
	"workout":    "electronic",
	"gym":        "electronic",
	"run":        "electronic",
	"angry":      "metal",
	"rage":       "metal",
	"energetic":  "rock",
	"drive":      "rock",
	"road":       "rock",
	"romantic":   "romantic",
	"love":       "romantic",
	"date":       "romantic",
	"rain":       "jazz",
	"cozy":       "jazz",
	"coffee":     "jazz",
	"nostalgic":  "80s",
	"retro":      "80s",
	"summer":     "pop",
	"sunny":      "pop",
}

// MoodToTag maps a free-text mood description to a genre tag. Unknown text
// that looks like a single word is treated as a tag itself; anything else
// falls back to a safe default.
func MoodToTag(text string) string {
	cleaned := strings.ToLower(strings.TrimSpace(text))
	if cleaned == "" {
		return fallbackTag
	}

	for _, word := range strings.Fields(cleaned) {
		word = strings.Trim(word, ".,!?;:'\"")
		if tag, ok := moodKeywords[word]; ok {
			return tag
		}
	}

	// A short single token is probably already a genre tag.
	if len(strings.Fields(cleaned)) == 1 && len(cleaned) <= 24 {
		return cleaned
	}
	return fallbackTag
}
