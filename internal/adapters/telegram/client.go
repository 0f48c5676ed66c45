package telegram

import (
	"context"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tg-channel-stats/internal/domain"
	"tg-channel-stats/internal/infra/metrics"
)

// ClientFactory создаёт Bot API клиент по требованию.
// Пустой токен означает выключенную интеграцию: CreateClient вернёт nil без ошибки.
type ClientFactory struct {
	token string
}

var _ domain.SenderFactory = (*ClientFactory)(nil)

// NewClientFactory создаёт фабрику клиентов.
func NewClientFactory(token string) *ClientFactory {
	return &ClientFactory{token: token}
}

// CreateClient создаёт клиент отправки сообщений.
func (f *ClientFactory) CreateClient(ctx context.Context) (domain.MessageSender, error) {
	if f.token == "" {
		return nil, nil
	}
	start := time.Now()
	bot, err := tgbotapi.NewBotAPI(f.token)
	metrics.ObserveNetworkRequest("telegram_bot", "get_me", "bot_api", start, err)
	if err != nil {
		return nil, err
	}
	return &Client{bot: bot}, nil
}

// Client отправляет сообщения через Bot API.
type Client struct {
	bot *tgbotapi.BotAPI
}

// SendText отправляет HTML-текст в чат, разбивая его по лимиту Telegram.
func (c *Client) SendText(ctx context.Context, chatID int64, text string) error {
	parts := SplitMessage(text)
	for _, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		start := time.Now()
		_, err := c.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			return err
		}
	}
	return nil
}
