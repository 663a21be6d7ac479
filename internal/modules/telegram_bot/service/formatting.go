package service

import (
	"fmt"
	"strings"

	"signal_trader/internal/models"

	"github.com/shopspring/decimal"
)

func formatStatus(st models.Status) string {
	var b strings.Builder
	b.WriteString("📊 Статус\n\n")
	fmt.Fprintf(&b, "Торговля: %s\n", onOff(st.TradingActive))
	fmt.Fprintf(&b, "Автовыбор: %s\n", onOff(st.AutoSelectEnabled))
	fmt.Fprintf(&b, "Актив: %s\n", orDash(st.CurrentAsset))
	fmt.Fprintf(&b, "Таймфрейм: %s\n", formatTimeframe(st.CurrentTimeframe))
	if st.AutoSelectEnabled {
		fmt.Fprintf(&b, "Рейтинг: %d, позиция %d\n", len(st.RankedAssets), st.AssetIndex+1)
		fmt.Fprintf(&b, "Проигрышей подряд: %d\n", st.ConsecutiveLosses)
	}
	fmt.Fprintf(&b, "Мониторов в работе: %d\n", st.InFlightMonitors)
	fmt.Fprintf(&b, "Брокеров: %d\n", len(st.Brokers))
	return b.String()
}

func formatBrokers(brokers []models.BrokerStatus) string {
	if len(brokers) == 0 {
		return "📭 Брокеры не подключены"
	}
	var b strings.Builder
	b.WriteString("🏦 Брокеры\n")
	for _, br := range brokers {
		fmt.Fprintf(&b, "\n%s (%s)\n", br.Identity, br.Sizing)
		fmt.Fprintf(&b, "  баланс: %s\n", money(br.LastBalance))
		fmt.Fprintf(&b, "  последняя ставка: %s, итог: %s\n", money(br.LastTradeAmount), br.LastResult)
		if br.LastTradeID != "" {
			fmt.Fprintf(&b, "  сделка: %s\n", br.LastTradeID)
		}
	}
	return b.String()
}

func formatRecent(msgs []models.RecentMessage) string {
	if len(msgs) == 0 {
		return "📭 Сообщений ещё не было"
	}
	var b strings.Builder
	b.WriteString("🕑 Последние сообщения\n")
	for _, m := range msgs {
		fmt.Fprintf(&b, "\n%s [%s] %s", m.Time.Format("15:04:05"), m.Kind, oneLine(m.Text, 60))
	}
	return b.String()
}

func formatTimeframe(sec int) string {
	switch {
	case sec <= 0:
		return "-"
	case sec%60 == 0:
		return fmt.Sprintf("%dm", sec/60)
	default:
		return fmt.Sprintf("%ds", sec)
	}
}

func money(d decimal.NullDecimal) string {
	if !d.Valid {
		return "-"
	}
	return d.Decimal.StringFixed(2)
}

func onOff(v bool) string {
	if v {
		return "вкл"
	}
	return "выкл"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "…"
	}
	return s
}
