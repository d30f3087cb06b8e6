// Package notify delivers evaluations and trade decisions to a Telegram chat.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/RiskAgent/internal/model"
)

// Notifier sends a message about an evaluation or a decision
type Notifier interface {
	NotifyEvaluation(ctx context.Context, r *model.RiskManagementResult) error
	NotifyDecision(ctx context.Context, trade model.OpenTradeContext, d model.TradeManagementDecision) error
}

// Sender is the part of tgbotapi.BotAPI the notifier uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram posts Markdown messages to one chat
type Telegram struct {
	sender Sender
	chatID int64
	logger zerolog.Logger
}

// NewTelegram connects a bot with the given token
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing Telegram bot: %w", err)
	}
	return NewTelegramWithSender(bot, chatID), nil
}

// NewTelegramWithSender wraps an existing sender
func NewTelegramWithSender(sender Sender, chatID int64) *Telegram {
	return &Telegram{
		sender: sender,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}
}

// NotifyEvaluation sends the risk plan summary
func (t *Telegram) NotifyEvaluation(ctx context.Context, r *model.RiskManagementResult) error {
	return t.send(ctx, FormatEvaluation(r))
}

// NotifyDecision sends a trade manager recommendation
func (t *Telegram) NotifyDecision(ctx context.Context, trade model.OpenTradeContext, d model.TradeManagementDecision) error {
	return t.send(ctx, FormatDecision(trade, d))
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := t.sender.Send(msg); err != nil {
		t.logger.Error().Err(err).Int64("chat_id", t.chatID).Msg("Failed to send message")
		return fmt.Errorf("sending Telegram message: %w", err)
	}
	return nil
}

// Log writes notifications to the logger when Telegram is not configured
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a logging notifier
func NewLog() *Log {
	return &Log{logger: log.With().Str("component", "log_notifier").Logger()}
}

// NotifyEvaluation logs the plan
func (l *Log) NotifyEvaluation(_ context.Context, r *model.RiskManagementResult) error {
	l.logger.Info().Str("id", r.ID).Str("symbol", r.Symbol).Msg(FormatEvaluation(r))
	return nil
}

// NotifyDecision logs the decision
func (l *Log) NotifyDecision(_ context.Context, trade model.OpenTradeContext, d model.TradeManagementDecision) error {
	l.logger.Info().Str("trade_id", trade.ID).Str("action", string(d.Action)).Msg(FormatDecision(trade, d))
	return nil
}

// FormatEvaluation renders a risk plan for chat
func FormatEvaluation(r *model.RiskManagementResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s %s* %s\n", esc(r.Symbol), esc(r.Timeframe), r.Direction)
	fmt.Fprintf(&b, "Entry: %.5f\n", r.EntryPrice)
	fmt.Fprintf(&b, "SL: %.5f\nTP: %.5f\n", r.StopLoss, r.TakeProfit)
	fmt.Fprintf(&b, "Size: %.4f (risk %.2f)\n", r.PositionSize, r.MaxRiskAmount)
	fmt.Fprintf(&b, "R:R %.2f, confidence %.0f%%\n", r.RiskRewardRatio, r.Confidence*100)
	fmt.Fprintf(&b, "Regime: %s / %s\n", esc(string(r.Regime.PrimaryRegime)), esc(r.Regime.SubRegime))
	if r.FallbackUsed {
		b.WriteString("⚠️ fallback levels used\n")
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "• %s\n", esc(w))
	}
	return b.String()
}

// FormatDecision renders a trade manager recommendation for chat
func FormatDecision(trade model.OpenTradeContext, d model.TradeManagementDecision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 *%s* %s %s\n", esc(string(d.Action)), esc(trade.Symbol), trade.Direction)
	if trade.ID != "" {
		fmt.Fprintf(&b, "Trade: %s\n", esc(trade.ID))
	}
	fmt.Fprintf(&b, "P&L: %+.2f%%\n", d.PnLPercent)
	if d.NewStopLoss != nil {
		fmt.Fprintf(&b, "New SL: %.5f\n", *d.NewStopLoss)
	}
	if d.NewTakeProfit != nil {
		fmt.Fprintf(&b, "New TP: %.5f\n", *d.NewTakeProfit)
	}
	if d.ClosePercentage != nil {
		fmt.Fprintf(&b, "Close: %.0f%%\n", *d.ClosePercentage)
	}
	fmt.Fprintf(&b, "Urgency: %s, confidence %.0f%%\n", d.Urgency, d.Confidence*100)
	b.WriteString(esc(d.Reasoning))
	return b.String()
}

func esc(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
