// Package notification implements core.Notifier: a Telegram bot (grounded
// on the teacher's notification.telegram, trimmed to this engine's
// read-only signal/position reporting — no order commands, since trading
// is always simulated here) and a log-only fallback.
package notification

import (
	"fmt"
	"slices"
	"strings"
	"time"

	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/raykavin/signalengine/internal/core"
	"github.com/raykavin/signalengine/internal/metric"
)

// StatusProvider supplies the live engine state the /status, /profit and
// /stats commands report.
type StatusProvider interface {
	CurrentPosition() core.Position
	DailyLoss() (loss, limit float64)
	Trades() []core.TradeRecord
}

const bootstrapSamples = 1000

// Telegram implements core.Notifier over gopkg.in/tucnak/telebot.v2.
type Telegram struct {
	client *tb.Bot
	users  []int
	status StatusProvider
}

// NewTelegram creates and starts a Telegram notifier authorized only for
// the configured user IDs.
func NewTelegram(token string, users []int, status StatusProvider) (*Telegram, error) {
	poller := &tb.LongPoller{Timeout: 10 * time.Second}
	auth := tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		return u.Message != nil && u.Message.Sender != nil && slices.Contains(users, int(u.Message.Sender.ID))
	})

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     token,
		Poller:    auth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	t := &Telegram{client: client, users: users, status: status}
	client.Handle("/status", t.statusHandle)
	client.Handle("/profit", t.profitHandle)
	client.Handle("/stats", t.statsHandle)
	client.Handle("/help", t.helpHandle)
	go client.Start()

	return t, nil
}

// Notify sends text to every authorized user.
func (t *Telegram) Notify(message string) {
	for _, user := range t.users {
		_, _ = t.client.Send(&tb.User{ID: int64(user)}, message)
	}
}

// OnEvent formats and sends a lifecycle event.
func (t *Telegram) OnEvent(event core.Event) {
	payload, ok := event.Payload.(core.PositionEventPayload)
	if !ok {
		return
	}
	title := eventTitle(event.Type)
	t.Notify(fmt.Sprintf("%s - %s\n-----\nside: %s size: %.4f price: %.2f",
		title, event.Symbol, payload.Position.Side, payload.Position.Size, payload.Position.CurrentPrice))
}

// OnError sends an error notification.
func (t *Telegram) OnError(err error) {
	t.Notify("\U0001F6D1 ERROR\n-----\n" + err.Error())
}

func eventTitle(eventType core.EventType) string {
	switch eventType {
	case core.EventPositionOpened:
		return "\U0001F195 POSITION OPENED"
	case core.EventPositionReduced:
		return "⚖️ POSITION REDUCED"
	case core.EventPositionTP1:
		return "✅ TP1 HIT"
	case core.EventPositionTP2:
		return "✅ TP2 HIT"
	case core.EventPositionClosed:
		return "\U0001F3C1 POSITION CLOSED"
	default:
		return string(eventType)
	}
}

func (t *Telegram) statusHandle(m *tb.Message) {
	pos := t.status.CurrentPosition()
	loss, limit := t.status.DailyLoss()
	msg := fmt.Sprintf("State: `%s`\nDaily loss: `%.2f%%` / limit `%.2f%%`", pos.State, loss*100, limit*100)
	if pos.State != core.StateFlat {
		msg += fmt.Sprintf("\nSide: `%s` Size: `%s` Entry: `%s`",
			pos.Side, core.FormatWithOptimalPrecision(pos.Size), core.FormatWithOptimalPrecision(pos.EntryPrice))
	}
	t.send(m, msg)
}

func (t *Telegram) profitHandle(m *tb.Message) {
	pos := t.status.CurrentPosition()
	if pos.State == core.StateFlat {
		t.send(m, "No position open.")
		return
	}
	t.send(m, fmt.Sprintf("Unrealized PnL: `%.4f`", pos.UnrealizedPnL))
}

// statsHandle reports payoff ratio, profit factor and a bootstrap
// confidence interval on the mean realized PnL of closed trades.
func (t *Telegram) statsHandle(m *tb.Message) {
	trades := t.status.Trades()
	summary := metric.Summarize(trades)
	if summary.TradeCount == 0 {
		t.send(m, "No trades yet.")
		return
	}

	pnl := realizedPnL(trades)
	ci := metric.Bootstrap(pnl, metric.Mean, bootstrapSamples, 0.95)

	t.send(m, fmt.Sprintf(
		"Trades: `%d`\nTotal PnL: `%.4f`\nPayoff: `%.2f`\nProfit factor: `%.2f`\nMean PnL 95%% CI: `%.4f` [`%.4f`, `%.4f`]",
		summary.TradeCount, summary.TotalPnL, summary.Payoff, summary.ProfitFactor, ci.Mean, ci.Lower, ci.Upper))
}

func realizedPnL(trades []core.TradeRecord) []float64 {
	var pnl []float64
	for _, tr := range trades {
		if tr.Action != "OPEN" {
			pnl = append(pnl, tr.RealizedPnL)
		}
	}
	return pnl
}

func (t *Telegram) helpHandle(m *tb.Message) {
	t.send(m, strings.Join([]string{
		"/status - current position and daily loss",
		"/profit - unrealized PnL",
		"/stats - payoff, profit factor and PnL confidence interval over closed trades",
	}, "\n"))
}

func (t *Telegram) send(m *tb.Message, text string) {
	_, _ = t.client.Send(m.Sender, text)
}

var _ core.Notifier = (*Telegram)(nil)
