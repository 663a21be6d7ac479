package service

import (
	"context"
	"strconv"
	"time"

	"signal_trader/internal/models"
	"signal_trader/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (t *Telegram) handleUpdate(ctx context.Context, update tgbot.Update) {
	// 1) Посты канала сигналов
	if post := update.ChannelPost; post != nil {
		if post.Chat != nil && post.Chat.ID == t.cfg.Telegram.ChannelID {
			t.forward(ctx, post)
		}
		return
	}

	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	// 2) Сигналы могут идти и из группы
	if msg.Chat.ID == t.cfg.Telegram.ChannelID {
		t.forward(ctx, msg)
		return
	}

	// 3) Команды только из админ-чата
	if msg.IsCommand() && t.isAdmin(msg.Chat.ID) {
		t.handleCommand(ctx, msg.Chat.ID, msg.Command(), msg.CommandArguments())
	}
}

func (t *Telegram) isAdmin(chatID int64) bool {
	return t.cfg.Telegram.AdminChatID != 0 && chatID == t.cfg.Telegram.AdminChatID
}

// forward кладёт сообщение в очередь движка. Порядок сообщений сохраняется.
func (t *Telegram) forward(ctx context.Context, msg *tgbot.Message) {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return
	}

	in := models.InboundMessage{
		Text: text,
		ID:   strconv.Itoa(msg.MessageID),
	}
	if msg.Date > 0 {
		in.Timestamp = time.Unix(int64(msg.Date), 0)
	}
	select {
	case t.inbox <- in:
	case <-t.stop:
		logger.Warn("[TG] message %s dropped: stopping", in.ID)
	case <-ctx.Done():
		logger.Warn("[TG] message %s dropped: %v", in.ID, ctx.Err())
	}
}
