package service

import (
	"math"
	"sort"
	"strings"

	"signal_trader/internal/models"
)

const (
	atrPeriod = 14
	rocPeriod = 24
	// меньше свечей не считаем
	minCandles = rocPeriod
)

// Score: оценка актива для скальпинга.
type Score struct {
	Candidate  string
	Ticker     string
	Asset      string
	Price      float64
	ATRPercent float64
	Momentum   float64
	Value      float64
}

// ScoreCandles считает ATR(14)% и ROC за 24 свечи. ok=false, если данных мало
// или результат не число.
func ScoreCandles(candles []models.Candle) (Score, bool) {
	if len(candles) < minCandles {
		return Score{}, false
	}

	n := len(candles)
	// ATR: среднее true range по последним 14 свечам
	var sum float64
	for i := n - atrPeriod; i < n; i++ {
		c, prev := candles[i], candles[i-1].Close
		tr := math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prev), math.Abs(c.Low-prev)))
		sum += tr
	}
	atr := sum / atrPeriod

	current := candles[n-1].Close
	previous := candles[n-rocPeriod].Close
	if current == 0 || previous == 0 {
		return Score{}, false
	}

	s := Score{
		Price:      current,
		ATRPercent: atr / current * 100,
		Momentum:   (current - previous) / previous * 100,
	}
	s.Value = s.ATRPercent*10 + math.Abs(s.Momentum)
	if math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return Score{}, false
	}
	return s, true
}

// Ticker: "EUR/USD OTC" -> "EURUSD=X".
func Ticker(candidate string) string {
	t := strings.ReplaceAll(candidate, "/", "")
	t = strings.ReplaceAll(t, " OTC", "")
	return strings.TrimSpace(t) + "=X"
}

// TradingName: "EUR/USD OTC" -> "EURUSD_otc", "CHF/JPY" -> "CHFJPY".
func TradingName(candidate string) string {
	name := strings.TrimSuffix(Ticker(candidate), "=X")
	if strings.Contains(candidate, "OTC") {
		name += "_otc"
	}
	return name
}

// Rank сортирует по убыванию оценки и отдаёт торговые имена.
func Rank(scores []Score) []string {
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].Value > scores[j].Value })
	out := make([]string, 0, len(scores))
	for _, s := range scores {
		out = append(out, s.Asset)
	}
	return out
}

// cleanCandles отбрасывает свечи с пропусками (null у Yahoo).
func cleanCandles(ts []int64, high, low, cls []*float64) []models.Candle {
	n := min(len(ts), len(high), len(low), len(cls))
	out := make([]models.Candle, 0, n)
	for i := 0; i < n; i++ {
		if high[i] == nil || low[i] == nil || cls[i] == nil {
			continue
		}
		h, l, c := *high[i], *low[i], *cls[i]
		if math.IsNaN(h) || math.IsNaN(l) || math.IsNaN(c) {
			continue
		}
		out = append(out, models.Candle{Time: ts[i], High: h, Low: l, Close: c})
	}
	return out
}
