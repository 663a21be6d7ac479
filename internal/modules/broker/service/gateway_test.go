package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// fakeGateway отвечает на запросы шлюза; handler возвращает data или ошибку.
func fakeGateway(t *testing.T, ssid string, handler func(action string, data map[string]any) (any, string)) string {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var req frame
			if err := sonic.Unmarshal(msg, &req); err != nil {
				return
			}
			var data map[string]any
			_ = sonic.Unmarshal(req.Data, &data)

			resp := frame{ID: req.ID, OK: true}
			if req.Action == actionAuth {
				if data["ssid"] != ssid {
					resp.OK, resp.Error = false, "bad ssid"
				}
			} else {
				out, errMsg := handler(req.Action, data)
				if errMsg != "" {
					resp.OK, resp.Error = false, errMsg
				} else if out != nil {
					resp.Data, _ = sonic.Marshal(out)
				}
			}
			raw, _ := sonic.Marshal(resp)
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestGatewayRoundTrip(t *testing.T) {
	var gotPlace map[string]any
	url := fakeGateway(t, "secret", func(action string, data map[string]any) (any, string) {
		switch action {
		case actionBalance:
			return map[string]any{"balance": "1234.56"}, ""
		case actionOpenOrder:
			gotPlace = data
			return map[string]any{"trade_id": "T-1", "open_price": 1.0842}, ""
		case actionCheckResult:
			return map[string]any{"status": "win", "profit": "8.5"}, ""
		case actionHistory:
			return map[string]any{"candles": []models.Candle{{Time: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5}}}, ""
		}
		return nil, "unknown action"
	})

	g := NewGateway(config.BrokerAccount{Identity: "gw", URL: url, SSID: "secret", RateLimit: 100})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := g.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer g.Disconnect(ctx)

	bal, err := g.Balance(ctx)
	if err != nil || !bal.Equal(decimal.RequireFromString("1234.56")) {
		t.Fatalf("Balance = %s, %v", bal, err)
	}

	res, err := g.Place(ctx, models.PlaceRequest{
		Direction: models.DirectionPut,
		Asset:     "EURUSD_otc",
		Amount:    decimal.NewFromInt(12),
		Duration:  2 * time.Minute,
	})
	if err != nil || res.TradeID != "T-1" {
		t.Fatalf("Place = %+v, %v", res, err)
	}
	if gotPlace["action"] != "put" || gotPlace["asset"] != "EURUSD_otc" || gotPlace["expiration"] != float64(120) {
		t.Fatalf("place payload = %v", gotPlace)
	}

	st, err := g.CheckResult(ctx, "T-1")
	if err != nil || st.Result != models.ResultWin || !st.Profit.Decimal.Equal(decimal.RequireFromString("8.5")) {
		t.Fatalf("CheckResult = %+v, %v", st, err)
	}

	candles, err := g.History(ctx, "EURUSD_otc", 2*time.Minute, 1)
	if err != nil || len(candles) != 1 || candles[0].Close != 1.5 {
		t.Fatalf("History = %+v, %v", candles, err)
	}
}

func TestGatewayAuthRejected(t *testing.T) {
	url := fakeGateway(t, "secret", func(string, map[string]any) (any, string) { return nil, "" })

	g := NewGateway(config.BrokerAccount{Identity: "gw", URL: url, SSID: "wrong"})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := g.Connect(ctx); err == nil || !strings.Contains(err.Error(), "bad ssid") {
		t.Fatalf("Connect err = %v, want auth rejection", err)
	}
}

func TestGatewayErrorResponse(t *testing.T) {
	url := fakeGateway(t, "s", func(action string, _ map[string]any) (any, string) {
		return nil, "not enough money"
	})

	g := NewGateway(config.BrokerAccount{Identity: "gw", URL: url, SSID: "s", RateLimit: 100})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	defer g.Disconnect(ctx)

	_, err := g.Place(ctx, models.PlaceRequest{Direction: models.DirectionCall, Amount: decimal.NewFromInt(1), Duration: time.Minute})
	if err == nil || !strings.Contains(err.Error(), "not enough money") {
		t.Fatalf("err = %v", err)
	}
}

func TestGatewayReconnectsAfterDisconnect(t *testing.T) {
	url := fakeGateway(t, "s", func(string, map[string]any) (any, string) {
		return map[string]any{"balance": "5"}, ""
	})
	g := NewGateway(config.BrokerAccount{Identity: "gw", URL: url, SSID: "s", RateLimit: 100})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := g.Balance(ctx); err != nil {
		t.Fatalf("first Balance: %v", err)
	}
	if err := g.Disconnect(ctx); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		t.Fatalf("Disconnect: %v", err)
	}
	if _, err := g.Balance(ctx); err != nil {
		t.Fatalf("Balance after reconnect: %v", err)
	}
	_ = g.Disconnect(ctx)
}
