package reply

import (
	"strings"
	"time"
	"unicode"
)

// SearchTrigger decides whether a message warrants a web search.
type SearchTrigger func(text string) bool

// LocalePolicy renders the current time for the context fragment,
// choosing a timezone from hints in the user's text.
type LocalePolicy func(text string, now time.Time) string

var searchKeywords = map[string]bool{
	"who": true, "what": true, "where": true, "when": true, "why": true,
	"how": true, "weather": true, "price": true, "news": true, "search": true,
}

// KeywordTrigger fires when any whole word of text is a question or lookup keyword.
// "show" does not match "how"; "What's" matches "what".
func KeywordTrigger(text string) bool {
	for _, w := range words(text) {
		if searchKeywords[w] {
			return true
		}
	}
	return false
}

// NeverSearch disables the search step.
func NeverSearch(string) bool { return false }

var hinglishWords = map[string]bool{
	"kya": true, "kab": true, "hai": true, "bhai": true, "samay": true, "baj": true, "baje": true,
}

var (
	istZone = loadZone("Asia/Kolkata", 5*60*60+30*60)
	jstZone = loadZone("Asia/Tokyo", 9*60*60)
)

// loadZone falls back to a fixed offset when the tz database is unavailable.
func loadZone(name string, offsetSeconds int) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone(name, offsetSeconds)
}

// SmartTime picks IST for Indic scripts and Hinglish, JST for kana, IST with the
// full date otherwise.
func SmartTime(text string, now time.Time) string {
	switch detectLocale(text) {
	case localeIndic:
		return now.In(istZone).Format("03:04 PM") + " (IST)"
	case localeJapanese:
		return now.In(jstZone).Format("03:04 PM") + " (JST)"
	default:
		return now.In(istZone).Format("Monday, January 02, 03:04 PM") + " (IST)"
	}
}

type locale int

const (
	localeDefault locale = iota
	localeIndic
	localeJapanese
)

func detectLocale(text string) locale {
	for _, r := range text {
		switch {
		case r >= 0x0900 && r <= 0x09FF:
			// Devanagari and Bengali
			return localeIndic
		case unicode.In(r, unicode.Hiragana, unicode.Katakana):
			return localeJapanese
		}
	}
	for _, w := range words(text) {
		if hinglishWords[w] {
			return localeIndic
		}
	}
	return localeDefault
}

// words lowercases text and splits it on anything that is not a letter or digit.
func words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
