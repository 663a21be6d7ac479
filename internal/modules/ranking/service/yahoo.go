package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"
	"signal_trader/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

var ErrNoData = errors.New("no ranking data")

// DefaultCandidates: список пар, если в конфиге не задан.
var DefaultCandidates = []string{
	"AUD/CAD OTC",
	"AUD/USD OTC",
	"CAD/JPY OTC",
	"CHF/JPY OTC",
	"EUR/GBP OTC",
	"EUR/JPY OTC",
	"EUR/USD OTC",
	"AUD/NZD OTC",
	"CHF/JPY",
	"USD/CAD OTC",
	"USD/JPY OTC",
	"USD/CNH OTC",
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					High  []*float64 `json:"high"`
					Low   []*float64 `json:"low"`
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// Yahoo ранжирует кандидатов по свечам из chart API.
type Yahoo struct {
	http       *http.Client
	baseURL    string
	interval   string
	rng        string
	candidates []string
	workers    int
}

func NewYahoo(cfg *config.Config) *Yahoo {
	rc := cfg.Ranking
	timeout := rc.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	workers := rc.Workers
	if workers <= 0 {
		workers = 4
	}
	candidates := rc.Candidates
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	base := rc.URL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Yahoo{
		http:       &http.Client{Timeout: timeout},
		baseURL:    base,
		interval:   rc.Interval,
		rng:        rc.Range,
		candidates: candidates,
		workers:    workers,
	}
}

// RankAssets качает свечи по всем кандидатам и отдаёт торговые имена от лучшего к худшему.
// Кандидат с ошибкой или без данных пропускается.
func (y *Yahoo) RankAssets(ctx context.Context) ([]string, error) {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		scores []Score
		sem    = make(chan struct{}, y.workers)
	)

	for _, cand := range y.candidates {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			ticker := Ticker(cand)
			candles, err := y.Candles(ctx, ticker)
			if err != nil {
				logger.Warn("[RANK] %s: %v", ticker, err)
				return
			}
			s, ok := ScoreCandles(candles)
			if !ok {
				logger.Info("[RANK] skip %s: not enough valid data (%d candles)", ticker, len(candles))
				return
			}
			s.Candidate, s.Ticker, s.Asset = cand, ticker, TradingName(cand)

			mu.Lock()
			scores = append(scores, s)
			mu.Unlock()
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, ErrNoData
	}

	ranked := Rank(scores)
	for i, s := range scores {
		logger.Debug("[RANK] %d. %s atr%%=%.4f roc=%.4f score=%.4f", i+1, s.Asset, s.ATRPercent, s.Momentum, s.Value)
	}
	return ranked, nil
}

// Candles отдаёт свечи тикера без пропусков.
func (y *Yahoo) Candles(ctx context.Context, ticker string) ([]models.Candle, error) {
	q := url.Values{}
	if y.interval != "" {
		q.Set("interval", y.interval)
	}
	if y.rng != "" {
		q.Set("range", y.rng)
	}
	u := y.baseURL + url.PathEscape(ticker)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := y.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "chart request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read chart body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart status %d", resp.StatusCode)
	}

	var out chartResponse
	if err := sonic.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrap(err, "decode chart")
	}
	if e := out.Chart.Error; e != nil {
		return nil, fmt.Errorf("chart error %s: %s", e.Code, e.Description)
	}
	if len(out.Chart.Result) == 0 || len(out.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrNoData
	}
	r := out.Chart.Result[0]
	qt := r.Indicators.Quote[0]
	return cleanCandles(r.Timestamp, qt.High, qt.Low, qt.Close), nil
}
