package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mdemirtas/tgtg-notifier/internal/store"
)

// CycleFunc runs one poll cycle on demand and returns a short result line.
type CycleFunc func(ctx context.Context) (string, error)

// Handler answers maintenance commands in the notification chat.
type Handler struct {
	Bot      *Bot
	store    store.Store
	runCycle CycleFunc
	location *time.Location
}

func NewHandler(bot *Bot, store store.Store, runCycle CycleFunc, location *time.Location) *Handler {
	return &Handler{
		Bot:      bot,
		store:    store,
		runCycle: runCycle,
		location: location,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.Message == nil || !update.Message.IsCommand() {
		return nil
	}
	if update.Message.Chat.ID != h.Bot.chatID {
		// One recipient only; ignore strangers.
		return nil
	}

	var err error
	switch update.Message.Command() {
	case "check":
		err = h.handleCheck(ctx)
	case "stats":
		err = h.handleStats()
	case "recent":
		err = h.handleRecent(update.Message)
	case "help", "start":
		err = h.handleHelp()
	default:
		err = h.handleUnknown()
	}

	if err != nil {
		_ = h.Bot.Send(fmt.Sprintf("Error: %v", err))
	}

	return err
}

func (h *Handler) handleCheck(ctx context.Context) error {
	result, err := h.runCycle(ctx)
	if err != nil {
		return err
	}
	return h.Bot.Send("🔍 <b>Check complete</b>\n\n" + result)
}

func (h *Handler) handleStats() error {
	stats, err := h.store.Stats()
	if err != nil {
		return err
	}

	var text strings.Builder
	text.WriteString("📊 <b>Notification records</b>\n\n")
	text.WriteString(fmt.Sprintf("Total: %d\n", stats.TotalRecords))
	text.WriteString(fmt.Sprintf("Last 24 hours: %d\n", stats.Records24h))
	if stats.TotalRecords > 0 {
		text.WriteString(fmt.Sprintf("Oldest: %s\n", stats.OldestSentAt.In(h.location).Format("2006-01-02 15:04")))
		text.WriteString(fmt.Sprintf("Newest: %s\n", stats.NewestSentAt.In(h.location).Format("2006-01-02 15:04")))
	}

	return h.Bot.Send(text.String())
}

func (h *Handler) handleRecent(message *tgbotapi.Message) error {
	hours := 24
	if arg := strings.TrimSpace(message.CommandArguments()); arg != "" {
		parsed, err := strconv.Atoi(arg)
		if err != nil || parsed <= 0 {
			return fmt.Errorf("usage: /recent [hours]")
		}
		hours = parsed
	}

	records, err := h.store.Recent(time.Duration(hours) * time.Hour)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return h.Bot.Send(fmt.Sprintf("📭 No notifications in the last %d hours.", hours))
	}

	var text strings.Builder
	text.WriteString(fmt.Sprintf("📱 <b>Notifications in the last %d hours</b>\n\n", hours))
	for _, rec := range records {
		text.WriteString(fmt.Sprintf("🍽️ %s — %s (%d bags)\n", rec.StoreName, rec.DisplayName, rec.ItemsAvailable))
		text.WriteString(fmt.Sprintf("    sent %s\n", rec.SentAt.In(h.location).Format("2006-01-02 15:04")))
	}

	return h.Bot.Send(text.String())
}

func (h *Handler) handleHelp() error {
	return h.Bot.Send(`Available commands:
/check - Check favorites for offers right now
/stats - Show notification record counts
/recent [hours] - List recently sent notifications
/help - Show this help message`)
}

func (h *Handler) handleUnknown() error {
	return h.Bot.Send("Unknown command. Use /help to see available commands.")
}
