// Package telegram sends monthly standing digests via the Telegram Bot API.
// A digest summarizes one viewing actor's dashboard: provincial rank, the top
// of the leaderboard, the peer comparison and the recent rank trend.
//
// Messages are MarkdownV2 formatted and delivery is retried with a linear
// backoff.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rewired-gh/fishrank/internal/dashboard"
	"github.com/rewired-gh/fishrank/internal/models"
)

// sender is the part of tgbotapi.BotAPI the client uses
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram digests
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	topEntries     int
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration, topEntries int) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newClient(bot, chatID, maxRetries, retryDelayBase, topEntries)
}

func newClient(bot sender, chatID string, maxRetries int, retryDelayBase time.Duration, topEntries int) (*Client, error) {
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
	if topEntries <= 0 {
		topEntries = 5
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		topEntries:     topEntries,
	}, nil
}

// SendDigest sends the standing digest for a built dashboard
func (c *Client) SendDigest(d *dashboard.Dashboard) error {
	if d == nil {
		return fmt.Errorf("nothing to send: dashboard is nil")
	}

	msg := tgbotapi.NewMessage(c.chatID, c.formatDigest(d))
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelayBase * time.Duration(i+1))
		}
	}

	return fmt.Errorf("failed to send digest after %d retries: %w", c.maxRetries, lastErr)
}

// formatDigest renders a dashboard as a MarkdownV2 message
func (c *Client) formatDigest(d *dashboard.Dashboard) string {
	var b strings.Builder

	name := d.Viewer.DisplayName
	if name == "" {
		name = d.Viewer.ActorID
	}
	fmt.Fprintf(&b, "🎣 *%s* %s\n", escapeMarkdownV2(name), escapeMarkdownV2(d.Period.String()))
	fmt.Fprintf(&b, "📍 %s\n\n", escapeMarkdownV2(d.Viewer.Province))

	own, ok := viewerEntry(d.Leaderboard)
	switch {
	case ok:
		fmt.Fprintf(&b, "🏅 Rank: *%d/%d*\n", own.Rank, d.Leaderboard.TotalPeers)
		fmt.Fprintf(&b, "⚖️ Catch: %s kg\n\n", escapeMarkdownV2(fmt.Sprintf("%.1f", own.TotalWeightKg)))
	case d.Leaderboard != nil:
		b.WriteString("🏅 Rank: no declarations this month\n\n")
	default:
		b.WriteString("🏅 Rank: not enough reporting actors\n\n")
	}

	if d.Leaderboard != nil {
		b.WriteString("*Top*\n")
		for i, e := range d.Leaderboard.Entries {
			if i >= c.topEntries {
				break
			}
			line := fmt.Sprintf("%d\\. %s %s kg", e.Rank, escapeMarkdownV2(e.DisplayName),
				escapeMarkdownV2(fmt.Sprintf("%.1f", e.TotalWeightKg)))
			if e.IsViewingActor {
				line = "*" + line + "*"
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if cmp := d.Comparison; cmp != nil {
		fmt.Fprintf(&b, "👥 vs %d peers\n", cmp.PeerCount)
		if cmp.DeltaWeightLabel != "" {
			fmt.Fprintf(&b, "   Catch: %s\n", escapeMarkdownV2(cmp.DeltaWeightLabel))
		}
		if cmp.DeltaCpueLabel != "" {
			fmt.Fprintf(&b, "   CPUE: %s\n", escapeMarkdownV2(cmp.DeltaCpueLabel))
		}
		b.WriteString("\n")
	}

	if len(d.Trend) > 0 {
		b.WriteString("📈 *Trend*\n")
		for _, p := range d.Trend {
			fmt.Fprintf(&b, "%s  \\#%d %s\n", escapeMarkdownV2(p.Period().String()), p.Rank,
				escapeMarkdownV2(formatChange(p.Change)))
		}
	}

	if len(d.Errors) > 0 {
		sections := make([]string, 0, len(d.Errors))
		for _, se := range d.Errors {
			sections = append(sections, se.Section)
		}
		fmt.Fprintf(&b, "\n⚠️ Unavailable: %s\n", escapeMarkdownV2(strings.Join(sections, ", ")))
	}

	return b.String()
}

// viewerEntry finds the viewing actor's row, if it reported
func viewerEntry(lb *models.Leaderboard) (models.RankedEntry, bool) {
	if lb == nil {
		return models.RankedEntry{}, false
	}
	for _, e := range lb.Entries {
		if e.IsViewingActor {
			return e, true
		}
	}
	return models.RankedEntry{}, false
}

// formatChange renders a rank change as an arrow with magnitude
func formatChange(rc *models.RankChange) string {
	if rc == nil {
		return ""
	}
	switch rc.Direction {
	case models.DirectionUp:
		return fmt.Sprintf("▲%d", rc.Magnitude)
	case models.DirectionDown:
		return fmt.Sprintf("▼%d", rc.Magnitude)
	default:
		return "•"
	}
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
