// Package telegram delivers alert messages to a Telegram chat.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/couchcryptid/marine-alert-service/internal/domain"
)

// sender is the subset of the bot API the notifier uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends alerts with a bounded, linearly backed-off retry.
type Notifier struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	logger         *slog.Logger
}

// NewNotifier connects to the bot API and validates the chat id.
func NewNotifier(botToken, chatID string, logger *slog.Logger) (*Notifier, error) {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newNotifier(bot, id, 3, time.Second, logger), nil
}

func newNotifier(bot sender, chatID int64, maxRetries int, retryDelayBase time.Duration, logger *slog.Logger) *Notifier {
	return &Notifier{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		logger:         logger,
	}
}

// Notify sends the alert, retrying up to maxRetries times or until ctx is done.
func (n *Notifier) Notify(ctx context.Context, alert domain.AlertMessage) error {
	msg := tgbotapi.NewMessage(n.chatID, formatMessage(alert))
	msg.DisableWebPagePreview = true

	var lastErr error
	for attempt := 1; attempt <= n.maxRetries; attempt++ {
		_, err := n.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		n.logger.Warn("telegram send failed", "attempt", attempt, "error", lastErr)
		if attempt == n.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("send telegram message: %w", ctx.Err())
		case <-time.After(n.retryDelayBase * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("send telegram message after %d attempts: %w", n.maxRetries, lastErr)
}

var levelIcons = map[domain.Level]string{
	domain.LevelInformational: "ℹ️",
	domain.LevelAdvisory:      "⚠️",
	domain.LevelWarning:       "🟠",
	domain.LevelUrgent:        "🚨",
}

// formatMessage prefixes the alert text with a level marker. Plain text is used so
// the alert body never needs Markdown escaping.
func formatMessage(alert domain.AlertMessage) string {
	var b strings.Builder
	if icon, ok := levelIcons[alert.Level]; ok {
		b.WriteString(icon + " ")
	}
	b.WriteString(alert.Text)
	return strings.TrimRight(b.String(), "\n")
}
