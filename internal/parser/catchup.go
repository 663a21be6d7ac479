package parser

import (
	"regexp"
	"strings"

	"signal_trader/internal/models"
)

var catchUpRe = regexp.MustCompile(`(?i)\bCATCH[\s-]*UP\b`)

// CatchUp: разобранная команда догона.
type CatchUp struct {
	Direction models.Direction
	// Seconds == 0, если длительность в сообщении не указана
	Seconds int
}

func (c CatchUp) HasDirection() bool { return c.Direction.Valid() }

// IsCatchUp проверяет маркер догона по границам слов.
func IsCatchUp(text string) bool {
	return catchUpRe.MatchString(text)
}

// ParseCatchUp вырезает маркер и разбирает остаток. ok=false: маркера нет.
func ParseCatchUp(text string) (CatchUp, bool) {
	if !IsCatchUp(text) {
		return CatchUp{}, false
	}
	rest := strings.TrimSpace(catchUpRe.ReplaceAllString(text, " "))

	var c CatchUp
	if dir, ok := ParseDirection(rest); ok {
		c.Direction = dir
	}
	if sec, ok := ParseTimeframe(rest); ok {
		c.Seconds = sec
	}
	return c, true
}
