package parser

import "regexp"

var (
	resultWordsRe = regexp.MustCompile(`(?i)\b(?:WIN(?:S|NERS?|NING)?|WON|PROFITS?|ITM|OTM|ATM|RESULTS?|LOSS|LOSSES|LOST)\b`)
	moneyPhraseRe = regexp.MustCompile(`(?i)\b(?:IN|OUT[\s-]+OF|AT)[\s-]+THE[\s-]+MONEY\b`)

	resultGlyphs = []string{"✅", "❌", "✔", "✖"}
)

// IsResult: сообщение про исход сделки, а не команда.
func IsResult(text string) bool {
	return resultWordsRe.MatchString(text) ||
		moneyPhraseRe.MatchString(text) ||
		containsAny(text, resultGlyphs)
}
