package notify

import (
	"context"

	"sora-batch-studio/internal/domain/ports/adapter"
	"sora-batch-studio/internal/infra/i18n"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

var _ adapter.NotificationSink = (*TelegramSink)(nil)

// TelegramSink pushes events to a single Telegram chat. Delivery is
// fire-and-forget; failures are logged and dropped so the queue engine is
// never blocked on the messenger.
type TelegramSink struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	tr     *i18n.Translator
	log    *zerolog.Logger
}

func NewTelegramSink(token string, chatID int64, tr *i18n.Translator, logger *zerolog.Logger) (*TelegramSink, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramSink{bot: bot, chatID: chatID, tr: tr, log: logger}, nil
}

func (s *TelegramSink) Notify(ctx context.Context, ev adapter.Event) {
	text := Render(s.tr, ev)
	if ev.URL != "" && ev.Type == adapter.EventTaskCompleted {
		text += "\n" + ev.URL
	}
	msg := tgbotapi.NewMessage(s.chatID, text)
	if _, err := s.bot.Send(msg); err != nil {
		s.log.Warn().Err(err).Str("event", string(ev.Type)).Msg("telegram notify failed")
	}
}
