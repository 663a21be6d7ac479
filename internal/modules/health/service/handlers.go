package service

import (
	"context"
	"net/http"
	"strconv"

	"signal_trader/internal/models"
	"signal_trader/pkg/logger"

	"github.com/bytedance/sonic"
)

// Control: то, что HTTP-ручки делают с движком.
type Control interface {
	Status() models.Status
	SetTradingActive(active bool)
	ToggleAutoSelect(ctx context.Context, enabled bool) error
}

func NewMux(parent context.Context, state *State, ctl Control) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: сервис стартовал и есть хотя бы один брокер
		if !state.Ready() || len(ctl.Status().Brokers) == 0 {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		st := ctl.Status()
		var lastMessage int64
		if n := len(st.RecentMessages); n > 0 {
			lastMessage = st.RecentMessages[n-1].Time.Unix()
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ready":           state.Ready(),
			"uptimeSec":       int64(state.Uptime().Seconds()),
			"brokers":         len(st.Brokers),
			"inFlight":        st.InFlightMonitors,
			"lastMessageUnix": lastMessage,
		})
	})

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ctl.Status())
	})

	mux.HandleFunc("POST /control/trading", func(w http.ResponseWriter, r *http.Request) {
		active, err := strconv.ParseBool(r.URL.Query().Get("active"))
		if err != nil {
			http.Error(w, "active must be a bool", http.StatusBadRequest)
			return
		}
		ctl.SetTradingActive(active)
		writeJSON(w, http.StatusOK, map[string]any{"trading_active": active})
	})

	mux.HandleFunc("POST /control/auto-select", func(w http.ResponseWriter, r *http.Request) {
		enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
		if err != nil {
			http.Error(w, "enabled must be a bool", http.StatusBadRequest)
			return
		}
		if !enabled {
			_ = ctl.ToggleAutoSelect(r.Context(), false)
			writeJSON(w, http.StatusOK, map[string]any{"auto_select_enabled": false})
			return
		}
		// рейтинг считается долго, отвечаем сразу
		go func() {
			if err := ctl.ToggleAutoSelect(parent, true); err != nil {
				logger.Warn("[HTTP] auto-select: %v", err)
			}
		}()
		writeJSON(w, http.StatusAccepted, map[string]any{"auto_select_enabled": true})
	})

	return mux
}

// BrokerSwitch включает и выключает брокеров по identity.
type BrokerSwitch interface {
	SetEnabled(ctx context.Context, identity string, enabled bool) error
}

// HandleBrokerSwitch вешает POST /control/brokers/{id}?enabled=.
func HandleBrokerSwitch(mux *http.ServeMux, sw BrokerSwitch) {
	mux.HandleFunc("POST /control/brokers/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
		if err != nil {
			http.Error(w, "enabled must be a bool", http.StatusBadRequest)
			return
		}
		if err := sw.SetEnabled(r.Context(), id, enabled); err != nil {
			logger.Warn("[HTTP] broker %s enabled=%v: %v", id, enabled, err)
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"broker": id, "enabled": enabled})
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
