package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/humanbattery/internal/report"
)

type fakeBot struct {
	failures int
	calls    int
	sent     []tgbotapi.MessageConfig
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.calls++
	if f.calls <= f.failures {
		return tgbotapi.Message{}, errors.New("network down")
	}
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func sampleSummary() report.Summary {
	sleep := 22.5
	return report.Summary{
		Profile:        "Ada_L.",
		Drains:         []report.Entry{{Name: "Work (office)", Estimate: -20}},
		Boosts:         []report.Entry{{Name: "Walk", Estimate: 4.5}},
		Pending:        []string{"Gym"},
		Backlog:        2,
		SleepEstimate:  &sleep,
		EstimatedStart: 72,
	}
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"a.b", "a\\.b"},
		{"-5", "\\-5"},
		{"(x)", "\\(x\\)"},
		{"back\\slash", "back\\\\slash"},
		{"snake_case!", "snake\\_case\\!"},
	}

	for _, tt := range tests {
		if got := escapeMarkdownV2(tt.input); got != tt.want {
			t.Errorf("escapeMarkdownV2(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatMessage(t *testing.T) {
	c, err := newClient(&fakeBot{}, "42", 1, time.Millisecond, 1)
	if err != nil {
		t.Fatalf("newClient failed: %v", err)
	}

	msg := c.formatMessage(sampleSummary())
	for _, want := range []string{
		"*Energy summary for Ada\\_L\\.*",
		"Expected start: *72\\.0*",
		"Sleep: \\+22\\.5",
		"1\\. Work \\(office\\) \\-20\\.0",
		"1\\. Walk \\+4\\.5",
		"Needs a value: Gym",
		"Days pending: 2",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestFormatMessageOmitsEmptySections(t *testing.T) {
	c, _ := newClient(&fakeBot{}, "42", 1, time.Millisecond, 0)
	msg := c.formatMessage(report.Summary{Profile: "Ada", EstimatedStart: 50})

	for _, unwanted := range []string{"Sleep", "drains", "boosts", "Needs a value", "Days pending"} {
		if strings.Contains(msg, unwanted) {
			t.Errorf("message should not mention %q:\n%s", unwanted, msg)
		}
	}
}

func TestSendRetries(t *testing.T) {
	bot := &fakeBot{failures: 2}
	c, _ := newClient(bot, "42", 3, time.Millisecond, 0)

	if err := c.Send(context.Background(), sampleSummary()); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if bot.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", bot.calls)
	}
	if len(bot.sent) != 1 || bot.sent[0].ParseMode != "MarkdownV2" || bot.sent[0].ChatID != 42 {
		t.Errorf("unexpected message: %+v", bot.sent)
	}
}

func TestSendGivesUp(t *testing.T) {
	bot := &fakeBot{failures: 10}
	c, _ := newClient(bot, "42", 2, time.Millisecond, 0)

	err := c.Send(context.Background(), sampleSummary())
	if err == nil {
		t.Fatal("expected an error")
	}
	if bot.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", bot.calls)
	}
}

func TestSendStopsOnCancel(t *testing.T) {
	bot := &fakeBot{failures: 10}
	c, _ := newClient(bot, "42", 5, time.Hour, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Send(ctx, sampleSummary()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if bot.calls != 1 {
		t.Errorf("expected 1 attempt, got %d", bot.calls)
	}
}

func TestNewClientRejectsBadChatID(t *testing.T) {
	if _, err := newClient(&fakeBot{}, "not-a-number", 1, time.Second, 0); err == nil {
		t.Error("expected an error for a non-numeric chat ID")
	}
}
