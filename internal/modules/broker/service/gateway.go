package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"
	"signal_trader/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const (
	actionAuth        = "auth"
	actionBalance     = "balance"
	actionOpenOrder   = "open_order"
	actionCheckResult = "check_result"
	actionHistory     = "history"

	authTimeout = 10 * time.Second
)

var ErrConnectionClosed = errors.New("gateway connection closed")

// frame: общий конверт запроса/ответа шлюза. Ответ связывается с запросом по ID.
type frame struct {
	ID     string          `json:"id"`
	Action string          `json:"action,omitempty"`
	OK     bool            `json:"ok"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Gateway: клиент брокерского websocket-шлюза, авторизация по SSID.
type Gateway struct {
	acc     config.BrokerAccount
	dialer  *websocket.Dialer
	limiter *rate.Limiter

	dialMu  sync.Mutex
	writeMu sync.Mutex

	mu      sync.Mutex // conn + pending
	conn    *websocket.Conn
	pending map[string]chan frame
}

func NewGateway(acc config.BrokerAccount) *Gateway {
	rps := acc.RateLimit
	if rps <= 0 {
		rps = 5
	}
	return &Gateway{
		acc:     acc,
		dialer:  &websocket.Dialer{HandshakeTimeout: authTimeout},
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		pending: make(map[string]chan frame),
	}
}

func (g *Gateway) Connect(ctx context.Context) error {
	_, err := g.ensureConn(ctx)
	return err
}

func (g *Gateway) Disconnect(_ context.Context) error {
	g.mu.Lock()
	conn := g.conn
	g.conn = nil
	g.failPendingLocked()
	g.mu.Unlock()

	if conn == nil {
		return nil
	}
	g.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second))
	g.writeMu.Unlock()
	return conn.Close()
}

func (g *Gateway) Balance(ctx context.Context) (decimal.Decimal, error) {
	var out struct {
		Balance decimal.Decimal `json:"balance"`
	}
	if err := g.call(ctx, actionBalance, map[string]any{"demo": g.acc.Demo}, &out); err != nil {
		return decimal.Zero, err
	}
	return out.Balance, nil
}

// Place: шлюз называет направления call/put; buy/sell старых API сводятся сюда же.
func (g *Gateway) Place(ctx context.Context, req models.PlaceRequest) (models.PlaceResult, error) {
	var action string
	switch req.Direction {
	case models.DirectionCall:
		action = "call"
	case models.DirectionPut:
		action = "put"
	default:
		return models.PlaceResult{}, errors.Errorf("unsupported direction %q", req.Direction)
	}

	in := map[string]any{
		"asset":      req.Asset,
		"amount":     req.Amount,
		"action":     action,
		"expiration": int64(req.Duration / time.Second),
		"demo":       g.acc.Demo,
	}
	var info map[string]any
	if err := g.call(ctx, actionOpenOrder, in, &info); err != nil {
		return models.PlaceResult{}, err
	}

	id, _ := info["trade_id"].(string)
	if id == "" {
		id, _ = info["id"].(string)
	}
	if id == "" {
		return models.PlaceResult{}, errors.New("open_order: response without trade id")
	}
	return models.PlaceResult{TradeID: id, Info: info}, nil
}

func (g *Gateway) CheckResult(ctx context.Context, tradeID string) (models.Settlement, error) {
	var out struct {
		Status string              `json:"status"`
		Profit decimal.NullDecimal `json:"profit"`
	}
	if err := g.call(ctx, actionCheckResult, map[string]any{"trade_id": tradeID}, &out); err != nil {
		return models.Settlement{}, err
	}
	res, err := models.ParseResult(out.Status)
	if err != nil {
		return models.Settlement{}, errors.Wrap(err, "check_result")
	}
	return models.Settlement{Result: res, Profit: out.Profit}, nil
}

func (g *Gateway) History(ctx context.Context, asset string, period time.Duration, count int) ([]models.Candle, error) {
	var out struct {
		Candles []models.Candle `json:"candles"`
	}
	in := map[string]any{
		"asset":  asset,
		"period": int64(period / time.Second),
		"count":  count,
	}
	if err := g.call(ctx, actionHistory, in, &out); err != nil {
		return nil, err
	}
	return out.Candles, nil
}

func (g *Gateway) call(ctx context.Context, action string, in, out any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "%s: rate limit", action)
	}

	conn, err := g.ensureConn(ctx)
	if err != nil {
		return err
	}

	payload, err := sonic.Marshal(in)
	if err != nil {
		return errors.Wrapf(err, "%s: encode", action)
	}
	id := uuid.NewString()
	raw, err := sonic.Marshal(frame{ID: id, Action: action, Data: payload})
	if err != nil {
		return errors.Wrapf(err, "%s: encode frame", action)
	}

	ch := make(chan frame, 1)
	g.mu.Lock()
	g.pending[id] = ch
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.pending, id)
		g.mu.Unlock()
	}()

	if err := g.write(ctx, conn, raw); err != nil {
		g.dropConn(conn, err)
		return errors.Wrapf(err, "%s: write", action)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return errors.Wrap(ErrConnectionClosed, action)
		}
		if !resp.OK {
			return errors.Errorf("%s: %s", action, resp.Error)
		}
		if out != nil && len(resp.Data) > 0 {
			if err := sonic.Unmarshal(resp.Data, out); err != nil {
				return errors.Wrapf(err, "%s: decode", action)
			}
		}
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), action)
	}
}

func (g *Gateway) write(ctx context.Context, conn *websocket.Conn, raw []byte) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()

	deadline := time.Now().Add(authTimeout)
	if dl, ok := ctx.Deadline(); ok {
		deadline = dl
	}
	_ = conn.SetWriteDeadline(deadline)
	return conn.WriteMessage(websocket.TextMessage, raw)
}

// ensureConn отдаёт живое соединение, при необходимости переподключается и авторизуется.
func (g *Gateway) ensureConn(ctx context.Context) (*websocket.Conn, error) {
	g.mu.Lock()
	conn := g.conn
	g.mu.Unlock()
	if conn != nil {
		return conn, nil
	}

	g.dialMu.Lock()
	defer g.dialMu.Unlock()

	g.mu.Lock()
	conn = g.conn
	g.mu.Unlock()
	if conn != nil {
		return conn, nil
	}

	header := http.Header{}
	header.Set("User-Agent", "signal_trader")
	conn, _, err := g.dialer.DialContext(ctx, g.acc.URL, header)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", g.acc.Identity)
	}

	if err := g.auth(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}

	g.mu.Lock()
	g.conn = conn
	g.mu.Unlock()

	go g.readLoop(conn)
	logger.Info("[GATEWAY] %s connected", g.acc.Identity)
	return conn, nil
}

func (g *Gateway) auth(conn *websocket.Conn) error {
	data, err := sonic.Marshal(map[string]any{"ssid": g.acc.SSID, "demo": g.acc.Demo})
	if err != nil {
		return errors.Wrap(err, "auth: encode")
	}
	raw, err := sonic.Marshal(frame{ID: uuid.NewString(), Action: actionAuth, Data: data})
	if err != nil {
		return errors.Wrap(err, "auth: encode frame")
	}

	_ = conn.SetWriteDeadline(time.Now().Add(authTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		return errors.Wrap(err, "auth: write")
	}

	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return errors.Wrap(err, "auth: read")
	}
	_ = conn.SetReadDeadline(time.Time{})

	var resp frame
	if err := sonic.Unmarshal(msg, &resp); err != nil {
		return errors.Wrap(err, "auth: decode")
	}
	if !resp.OK {
		return errors.Errorf("auth rejected: %s", resp.Error)
	}
	return nil
}

func (g *Gateway) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			g.dropConn(conn, err)
			return
		}

		var f frame
		if err := sonic.Unmarshal(msg, &f); err != nil || f.ID == "" {
			continue
		}

		g.mu.Lock()
		if ch, ok := g.pending[f.ID]; ok {
			select {
			case ch <- f:
			default:
			}
		}
		g.mu.Unlock()
	}
}

// dropConn забывает соединение и будит всех, кто ждёт ответа.
func (g *Gateway) dropConn(conn *websocket.Conn, cause error) {
	g.mu.Lock()
	current := g.conn == conn
	if current {
		g.conn = nil
		g.failPendingLocked()
	}
	g.mu.Unlock()

	if current {
		logger.Warn("[GATEWAY] %s connection lost: %v", g.acc.Identity, cause)
	}
	_ = conn.Close()
}

func (g *Gateway) failPendingLocked() {
	for id, ch := range g.pending {
		close(ch)
		delete(g.pending, id)
	}
}
