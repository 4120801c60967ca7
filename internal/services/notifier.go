package services

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"

	"github.com/dealpulse/ma-health-go/internal/config"
)

// RegimeNotifier pushes regime-change alerts to a Telegram chat. With no bot
// token configured the notifier is disabled and every call is a no-op.
type RegimeNotifier struct {
	bot    *bot.Bot
	chatID int64
	logger *logrus.Logger
}

// NewRegimeNotifier creates the notifier. An empty token disables it.
func NewRegimeNotifier(cfg config.TelegramConfig, logger *logrus.Logger) *RegimeNotifier {
	var telegramBot *bot.Bot
	if cfg.BotToken != "" {
		var err error
		telegramBot, err = bot.New(cfg.BotToken)
		if err != nil {
			logger.WithError(err).Warn("Telegram bot initialization failed, notifications disabled")
			telegramBot = nil
		}
	}
	return &RegimeNotifier{
		bot:    telegramBot,
		chatID: cfg.ChatID,
		logger: logger,
	}
}

// Enabled reports whether alerts will actually be sent.
func (r *RegimeNotifier) Enabled() bool {
	return r.bot != nil && r.chatID != 0
}

// NotifyRegime sends the current regime and health score. Previous regime
// may be empty on a first run.
func (r *RegimeNotifier) NotifyRegime(ctx context.Context, regime, previousRegime, healthScore string, indexValue float64) error {
	if !r.Enabled() {
		return nil
	}

	text := fmt.Sprintf("M&A Health Index: %.1f (%s)\nForecast health score: %s", indexValue, regime, healthScore)
	if previousRegime != "" && previousRegime != regime {
		text = fmt.Sprintf("Regime change: %s -> %s\n%s", previousRegime, regime, text)
	}

	_, err := r.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: r.chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"regime":  regime,
		"chat_id": r.chatID,
	}).Info("Regime alert sent")
	return nil
}
