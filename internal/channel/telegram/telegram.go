package telegram

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/inexasli/automation-gateway/internal/channel"
	"github.com/inexasli/automation-gateway/internal/pipeline"
)

// TelegramAdapter bridges a tenant's Telegram bot into the pipeline. Chat id
// doubles as the session id so the rate limiter keys per conversation.
type TelegramAdapter struct {
	bot      *tgbotapi.BotAPI
	token    string
	tenant   string
	incoming chan *channel.Message
}

func NewTelegramAdapter(token, tenantID string) *TelegramAdapter {
	return &TelegramAdapter{
		token:    token,
		tenant:   tenantID,
		incoming: make(chan *channel.Message, 100),
	}
}

func (t *TelegramAdapter) Name() string {
	return "telegram"
}

func (t *TelegramAdapter) IsEnabled() bool {
	return t.token != ""
}

func (t *TelegramAdapter) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return err
	}
	t.bot = bot
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for update := range updates {
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			chatID := strconv.FormatInt(update.Message.Chat.ID, 10)
			t.incoming <- &channel.Message{
				ID:        strconv.Itoa(update.Message.MessageID),
				Channel:   "telegram",
				UserID:    chatID,
				SessionID: chatID,
				Content:   update.Message.Text,
				InputType: pipeline.InputDM,
				Metadata: map[string]string{
					"tenant":  t.tenant,
					"from_id": strconv.FormatInt(update.Message.From.ID, 10),
				},
				Timestamp: int64(update.Message.Date),
			}
		}
	}()
	return nil
}

func (t *TelegramAdapter) Stop() error {
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	close(t.incoming)
	return nil
}

func (t *TelegramAdapter) SendMessage(userID string, resp *channel.Response) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return err
	}
	reply := tgbotapi.NewMessage(chatID, resp.Content)
	_, err = t.bot.Send(reply)
	return err
}

func (t *TelegramAdapter) Incoming() <-chan *channel.Message {
	return t.incoming
}
