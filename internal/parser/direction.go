package parser

import (
	"regexp"
	"strings"

	"signal_trader/internal/models"
)

var (
	callRe = regexp.MustCompile(`(?i)\b(?:UP|CALL)\b`)
	putRe  = regexp.MustCompile(`(?i)\b(?:DOWN|PUT)\b`)

	callGlyphs = []string{"▲", "🔼", "⬆"}
	putGlyphs  = []string{"▼", "🔽", "⬇"}
)

// ParseDirection ищет направление по целым словам и стрелкам.
// Если в тексте есть и call, и put, сигнал неоднозначный и не распознаётся.
func ParseDirection(text string) (models.Direction, bool) {
	call := callRe.MatchString(text) || containsAny(text, callGlyphs)
	put := putRe.MatchString(text) || containsAny(text, putGlyphs)

	switch {
	case call && !put:
		return models.DirectionCall, true
	case put && !call:
		return models.DirectionPut, true
	}
	return models.DirectionNone, false
}

func containsAny(text string, subs []string) bool {
	for _, s := range subs {
		if strings.Contains(text, s) {
			return true
		}
	}
	return false
}
