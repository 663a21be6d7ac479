package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"signal_trader/internal/modules/config"
)

// chartJSON: n свечей с заданным разбросом high-low вокруг цены 1.
func chartJSON(n int, spread float64) string {
	var ts, hi, lo, cl []string
	for i := 0; i < n; i++ {
		ts = append(ts, fmt.Sprint(1700000000+i*120))
		hi = append(hi, fmt.Sprint(1+spread/2))
		lo = append(lo, fmt.Sprint(1-spread/2))
		cl = append(cl, "1")
	}
	return fmt.Sprintf(`{"chart":{"result":[{"timestamp":[%s],"indicators":{"quote":[{"high":[%s],"low":[%s],"close":[%s]}]}}],"error":null}}`,
		strings.Join(ts, ","), strings.Join(hi, ","), strings.Join(lo, ","), strings.Join(cl, ","))
}

func newTestYahoo(t *testing.T, h http.HandlerFunc, candidates ...string) *Yahoo {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Ranking = config.RankingConfig{
		URL:        srv.URL + "/chart",
		Interval:   "2m",
		Range:      "1d",
		Timeout:    time.Second,
		Workers:    2,
		Candidates: candidates,
	}
	return NewYahoo(cfg)
}

func TestYahooRankAssets(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") != "2m" || r.URL.Query().Get("range") != "1d" {
			http.Error(w, "bad query", http.StatusBadRequest)
			return
		}
		switch strings.TrimPrefix(r.URL.Path, "/chart/") {
		case "EURUSD=X":
			fmt.Fprint(w, chartJSON(30, 0.02))
		case "AUDCAD=X":
			fmt.Fprint(w, chartJSON(30, 0.05))
		case "CHFJPY=X":
			fmt.Fprint(w, chartJSON(10, 0.5)) // мало данных
		default:
			http.NotFound(w, r)
		}
	}, "EUR/USD OTC", "AUD/CAD OTC", "CHF/JPY", "USD/JPY OTC")

	got, err := y.RankAssets(context.Background())
	if err != nil {
		t.Fatalf("RankAssets: %v", err)
	}
	if want := []string{"AUDCAD_otc", "EURUSD_otc"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("ranking = %v, want %v", got, want)
	}
}

func TestYahooNoData(t *testing.T) {
	y := newTestYahoo(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found"}}}`)
	}, "EUR/USD OTC")

	if _, err := y.RankAssets(context.Background()); err != ErrNoData {
		t.Fatalf("err = %v, want ErrNoData", err)
	}
}
