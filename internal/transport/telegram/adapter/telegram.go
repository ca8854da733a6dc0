package adapter

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

// Config configures the outbound-only Telegram adapter.
type Config struct {
	Token string
	// APIURL overrides https://api.telegram.org (tests, local bot API servers).
	APIURL string
	// Timeout bounds a single Bot API call.
	Timeout time.Duration
	// Offline skips the getMe handshake on construction.
	Offline bool
}

// Adapter sends messages through the Telegram Bot API. It never polls for
// updates: the bot only talks, it does not listen.
type Adapter struct {
	cfg Config
	log logx.Logger
	bot *tele.Bot
}

func New(cfg Config, log logx.Logger) (*Adapter, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		Client:  &http.Client{Timeout: timeout},
		Offline: cfg.Offline,
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	a := &Adapter{cfg: cfg, log: log, bot: b}
	if b.Me != nil && b.Me.Username != "" {
		log.Debug("telegram bot ready", logx.String("username", b.Me.Username))
	}
	return a, nil
}

// recipient implements tele.Recipient for both numeric ids and @usernames.
type recipient string

func (r recipient) Recipient() string { return string(r) }

const telegramTextLimit = 4000

// clipTelegramText shortens s to at most limit runes, marking the cut with "…".
func clipTelegramText(s string, limit int) (string, bool) {
	if limit <= 0 {
		limit = telegramTextLimit
	}
	rs := []rune(s)
	if len(rs) <= limit {
		return s, false
	}
	return string(rs[:limit-1]) + "…", true
}

// SendText sends exactly one message. Text over Telegram's limit is clipped.
func (a *Adapter) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	if strings.TrimSpace(to.ChatID) == "" {
		return kit.MessageRef{}, errors.New("telegram chat id is empty")
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return kit.MessageRef{}, err
		}
	}

	body, clipped := clipTelegramText(text, telegramTextLimit)
	if clipped {
		a.log.Warn("telegram message clipped", logx.Int("runes", utf8.RuneCountInString(text)))
	}

	msg, err := a.bot.Send(recipient(to.ChatID), body, &tele.SendOptions{
		ParseMode:             opt.ParseMode,
		DisableWebPagePreview: opt.DisablePreview,
		ThreadID:              to.ThreadID,
	})
	if err != nil {
		return kit.MessageRef{}, err
	}

	a.log.Debug("telegram message sent", logx.String("chat_id", to.ChatID))
	return kit.MessageRef{ChatID: to.ChatID, ThreadID: to.ThreadID, MessageID: msg.ID}, nil
}
