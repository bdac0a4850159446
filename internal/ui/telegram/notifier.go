// Package telegram pushes run summaries to the agent owner. Best effort: a
// delivery failure never affects the run outcome.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/phdargen/xoninAgent/internal/core/domain"
	"github.com/phdargen/xoninAgent/internal/core/ports"
)

type Notifier struct {
	Bot    *tgbotapi.BotAPI
	ChatID int64
}

func NewNotifier(token, chatIDStr string) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id: %w", err)
	}

	return &Notifier{Bot: bot, ChatID: chatID}, nil
}

var _ ports.Notifier = (*Notifier)(nil)

func (n *Notifier) NotifyRunReport(ctx context.Context, report domain.RunReport) error {
	text := fmt.Sprintf(
		"🌱 Xonin run finished\n\nMentions fetched: %d\nMinted: %d\nSkipped: %d\nFailed: %d\nTook: %s",
		report.Fetched, report.Minted, report.Skipped, report.Failed,
		report.Finished.Sub(report.Started).Round(time.Second))

	msg := tgbotapi.NewMessage(n.ChatID, text)
	_, err := n.Bot.Send(msg)
	return err
}
