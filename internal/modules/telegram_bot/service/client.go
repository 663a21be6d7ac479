package service

import (
	"context"
	"fmt"
	"sync"

	"signal_trader/internal/models"
	"signal_trader/internal/modules/config"
	"signal_trader/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// botAPI: то, что нужно от *tgbot.BotAPI.
type botAPI interface {
	Send(c tgbot.Chattable) (tgbot.Message, error)
	GetUpdatesChan(config tgbot.UpdateConfig) tgbot.UpdatesChannel
	StopReceivingUpdates()
}

// Control: операции движка, доступные из админ-чата.
type Control interface {
	Status() models.Status
	SetTradingActive(active bool)
	ToggleAutoSelect(ctx context.Context, enabled bool) error
	SwitchToNextAsset(ctx context.Context)
}

// BrokerSwitch включает и выключает брокеров по identity.
type BrokerSwitch interface {
	SetEnabled(ctx context.Context, identity string, enabled bool) error
}

// Telegram читает канал сигналов, принимает команды админа и шлёт уведомления.
type Telegram struct {
	bot     botAPI
	cfg     *config.Config
	inbox   chan<- models.InboundMessage
	control Control
	reload  func() error
	brokers BrokerSwitch

	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

func NewTelegram(cfg *config.Config, inbox chan<- models.InboundMessage, control Control, reload func() error) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot api: %w", err)
	}
	logger.Info("[TG] authorized as @%s", b.Self.UserName)
	return newTelegram(b, cfg, inbox, control, reload), nil
}

func newTelegram(b botAPI, cfg *config.Config, inbox chan<- models.InboundMessage, control Control, reload func() error) *Telegram {
	return &Telegram{
		bot:     b,
		cfg:     cfg,
		inbox:   inbox,
		control: control,
		reload:  reload,
		stop:    make(chan struct{}),
	}
}

// SetBrokerSwitch подключает команды /broker_on и /broker_off.
func (t *Telegram) SetBrokerSwitch(s BrokerSwitch) { t.brokers = s }

func (t *Telegram) Send(_ context.Context, chatID int64, msg string) (tgbot.Message, error) {
	return t.bot.Send(tgbot.NewMessage(chatID, msg))
}

func (t *Telegram) SendF(ctx context.Context, chatID int64, format string, args ...any) (tgbot.Message, error) {
	return t.Send(ctx, chatID, fmt.Sprintf(format, args...))
}

// Notify пишет в админ-чат; без admin_chat_id только логирует.
func (t *Telegram) Notify(ctx context.Context, format string, args ...any) {
	chatID := t.cfg.Telegram.AdminChatID
	if chatID == 0 {
		logger.Debug("[TG] notify (no admin chat): "+format, args...)
		return
	}
	if _, err := t.SendF(ctx, chatID, format, args...); err != nil {
		logger.Warn("[TG] notify: %v", err)
	}
}

// Start запускает long polling в отдельной горутине.
func (t *Telegram) Start(ctx context.Context) {
	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	updates := t.bot.GetUpdatesChan(u)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.stop:
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.handleUpdate(ctx, update)
			}
		}
	}()
}

func (t *Telegram) Stop() {
	t.once.Do(func() {
		close(t.stop)
		t.bot.StopReceivingUpdates()
	})
	t.wg.Wait()
}
