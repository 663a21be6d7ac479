package parser

import (
	"regexp"
	"strconv"
)

var (
	// "Candles M1" описывает график, а не экспирацию
	candlesRe = regexp.MustCompile(`(?i)\bCANDLES?\s*:?\s*M\d+\b`)

	colonRe   = regexp.MustCompile(`(\d+):(\d+)`)
	minutesRe = regexp.MustCompile(`(?i)\b(\d+)\s*(?:MINUTES?|MINS?|M)\b`)
	mPrefixRe = regexp.MustCompile(`(?i)\bM(\d+)\b`)
	secondsRe = regexp.MustCompile(`(?i)\b(\d+)\s*(?:SECONDS?|SECS?|S)\b`)
)

// MaxTimeframe: самая длинная экспирация, которую принимаем (сутки).
const MaxTimeframe = 24 * 60 * 60

// ParseTimeframe достаёт длительность экспирации в секундах.
// Порядок форм: MM:SS, "<N> min", "M<N>", "<N> sec"; первая сработавшая выигрывает.
// Значения вне (0, MaxTimeframe] отбрасываются.
func ParseTimeframe(text string) (int, bool) {
	msg := candlesRe.ReplaceAllString(text, " ")

	if m := colonRe.FindStringSubmatch(msg); m != nil {
		minutes, err1 := strconv.Atoi(m[1])
		seconds, err2 := strconv.Atoi(m[2])
		if err1 == nil && err2 == nil && minutes <= MaxTimeframe/60 && seconds <= MaxTimeframe {
			if total, ok := bounded(minutes*60 + seconds); ok {
				return total, true
			}
		}
	}

	if n, ok := firstPositive(minutesRe, msg); ok {
		return scaled(n, 60)
	}
	if n, ok := firstPositive(mPrefixRe, msg); ok {
		return scaled(n, 60)
	}
	if n, ok := firstPositive(secondsRe, msg); ok {
		return bounded(n)
	}
	return 0, false
}

// scaled умножает без переполнения.
func scaled(n, mult int) (int, bool) {
	if n > MaxTimeframe/mult {
		return 0, false
	}
	return bounded(n * mult)
}

func bounded(total int) (int, bool) {
	if total <= 0 || total > MaxTimeframe {
		return 0, false
	}
	return total, true
}

func firstPositive(re *regexp.Regexp, msg string) (int, bool) {
	m := re.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
