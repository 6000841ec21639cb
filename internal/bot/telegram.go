package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot sends messages to the one pre-configured chat. Messages carry
// light HTML markup.
type Bot struct {
	API    *tgbotapi.BotAPI
	chatID int64
}

func New(token string, chatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %v", err)
	}

	return &Bot{
		API:    api,
		chatID: chatID,
	}, nil
}

func (b *Bot) Send(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	if _, err := b.API.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %v", err)
	}

	return nil
}
