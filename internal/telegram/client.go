// Package telegram sends the daily energy summary to a Telegram chat.
//
// Messages use MarkdownV2; every piece of user text (activity names, the
// profile name, formatted numbers) is escaped before it is embedded.
// Delivery is retried with a linearly growing delay.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/humanbattery/internal/logger"
	"github.com/rewired-gh/humanbattery/internal/report"
)

// sender is the part of the bot API the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	precision      int
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration, precision int) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase, precision)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration, precision int) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		precision:      precision,
	}, nil
}

// Send delivers the summary, retrying failed attempts.
func (c *Client) Send(ctx context.Context, summary report.Summary) error {
	msg := tgbotapi.NewMessage(c.chatID, c.formatMessage(summary))
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			logger.Debug("Telegram summary delivered on attempt %d", i+1)
			return nil
		}
		lastErr = err
		logger.Warn("Telegram send attempt %d/%d failed: %v", i+1, c.maxRetries, err)

		if i == c.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatMessage formats a summary into a Telegram message
func (c *Client) formatMessage(s report.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔋 *Energy summary for %s*\n\n", escapeMarkdownV2(s.Profile))
	fmt.Fprintf(&b, "☀️ Expected start: *%s*\n", c.number(s.EstimatedStart, false))
	if s.SleepEstimate != nil {
		fmt.Fprintf(&b, "😴 Sleep: %s\n", c.number(*s.SleepEstimate, true))
	}

	c.writeEntries(&b, "📉 *Biggest drains*", s.Drains)
	c.writeEntries(&b, "📈 *Best boosts*", s.Boosts)

	if len(s.Pending) > 0 {
		names := make([]string, len(s.Pending))
		for i, n := range s.Pending {
			names[i] = escapeMarkdownV2(n)
		}
		fmt.Fprintf(&b, "\n❓ Needs a value: %s\n", strings.Join(names, ", "))
	}
	if s.Backlog > 0 {
		fmt.Fprintf(&b, "🗂 Days pending: %d\n", s.Backlog)
	}
	return b.String()
}

func (c *Client) writeEntries(b *strings.Builder, title string, entries []report.Entry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s\n", title)
	for i, e := range entries {
		fmt.Fprintf(b, "%d\\. %s %s\n", i+1, escapeMarkdownV2(e.Name), c.number(e.Estimate, true))
	}
}

func (c *Client) number(v float64, signed bool) string {
	format := "%.*f"
	if signed {
		format = "%+.*f"
	}
	return escapeMarkdownV2(fmt.Sprintf(format, c.precision, v))
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . ! and the escape character itself
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '\\', '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteRune('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
