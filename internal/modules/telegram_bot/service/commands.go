package service

import (
	"context"
	"strings"

	"signal_trader/pkg/logger"
)

const helpText = "Команды:\n" +
	"/status - состояние движка\n" +
	"/brokers - брокеры и мартингейл\n" +
	"/recent - последние сообщения канала\n" +
	"/trade_on, /trade_off - торговая сессия\n" +
	"/auto_on, /auto_off - автовыбор актива\n" +
	"/next - следующий актив рейтинга\n" +
	"/broker_on <id>, /broker_off <id> - включить или выключить брокера\n" +
	"/reload - перечитать брокеров из конфига"

func (t *Telegram) handleCommand(ctx context.Context, chatID int64, cmd, args string) {
	logger.Info("[TG] command /%s %s", cmd, strings.TrimSpace(args))

	switch cmd {
	case "start", "help":
		t.reply(ctx, chatID, helpText)

	case "status":
		t.reply(ctx, chatID, formatStatus(t.control.Status()))

	case "brokers":
		t.reply(ctx, chatID, formatBrokers(t.control.Status().Brokers))

	case "recent":
		t.reply(ctx, chatID, formatRecent(t.control.Status().RecentMessages))

	case "trade_on":
		t.control.SetTradingActive(true)
		t.reply(ctx, chatID, "▶️ Торговля включена")

	case "trade_off":
		t.control.SetTradingActive(false)
		t.reply(ctx, chatID, "⏹ Торговля выключена")

	case "auto_on":
		t.reply(ctx, chatID, "⏳ Обновляю рейтинг активов...")
		// рейтинг может считаться долго, цикл апдейтов не блокируем
		go func() {
			if err := t.control.ToggleAutoSelect(ctx, true); err != nil {
				t.replyF(ctx, chatID, "⚠️ Автовыбор включён, но рейтинг не обновился: %v", err)
				return
			}
			st := t.control.Status()
			t.replyF(ctx, chatID, "🎯 Автовыбор включён, актив: %s", orDash(st.CurrentAsset))
		}()

	case "auto_off":
		_ = t.control.ToggleAutoSelect(ctx, false)
		t.reply(ctx, chatID, "✋ Автовыбор выключен")

	case "next":
		go func() {
			t.control.SwitchToNextAsset(ctx)
			t.replyF(ctx, chatID, "🔄 Текущий актив: %s", orDash(t.control.Status().CurrentAsset))
		}()

	case "broker_on", "broker_off":
		t.switchBroker(ctx, chatID, strings.TrimSpace(args), cmd == "broker_on")

	case "reload":
		if t.reload == nil {
			t.reply(ctx, chatID, "⚠️ Перечитывание конфига недоступно")
			return
		}
		if err := t.reload(); err != nil {
			t.replyF(ctx, chatID, "❌ Конфиг не применён: %v", err)
			return
		}
		t.reply(ctx, chatID, "✅ Конфиг перечитан")

	default:
		t.reply(ctx, chatID, "Неизвестная команда. /help")
	}
}

func (t *Telegram) switchBroker(ctx context.Context, chatID int64, identity string, enabled bool) {
	if t.brokers == nil {
		t.reply(ctx, chatID, "⚠️ Управление брокерами недоступно")
		return
	}
	if identity == "" {
		t.reply(ctx, chatID, "Укажите брокера: /broker_on <id>")
		return
	}
	if err := t.brokers.SetEnabled(ctx, identity, enabled); err != nil {
		t.replyF(ctx, chatID, "❌ %s: %v", identity, err)
		return
	}
	if enabled {
		t.replyF(ctx, chatID, "🟢 Брокер %s включён", identity)
		return
	}
	t.replyF(ctx, chatID, "🔴 Брокер %s выключен", identity)
}

func (t *Telegram) reply(ctx context.Context, chatID int64, text string) {
	if _, err := t.Send(ctx, chatID, text); err != nil {
		logger.Warn("[TG] reply to %d: %v", chatID, err)
	}
}

func (t *Telegram) replyF(ctx context.Context, chatID int64, format string, args ...any) {
	if _, err := t.SendF(ctx, chatID, format, args...); err != nil {
		logger.Warn("[TG] reply to %d: %v", chatID, err)
	}
}
