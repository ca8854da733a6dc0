package notifier

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"homeworkbot/internal/apperr"
	kit "homeworkbot/internal/transport"
	logx "homeworkbot/pkg/logx"
)

// Service sends text to a single fixed chat.
//
// It is safe for concurrent use, although the poller calls it from one goroutine.
type Service struct {
	log    logx.Logger
	sender kit.Sender
	target kit.ChatTarget

	cfg     Config
	limiter *rate.Limiter

	hmu     sync.Mutex
	history []HistoryItem
	now     func() time.Time
}

func New(cfg Config, sender kit.Sender, log logx.Logger) (*Service, error) {
	if sender == nil {
		return nil, errors.New("notifier: sender is nil")
	}
	if strings.TrimSpace(cfg.ChatID) == "" {
		return nil, errors.New("notifier: chat id is empty")
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 50
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:     log,
		sender:  sender,
		target:  kit.ChatTarget{ChatID: strings.TrimSpace(cfg.ChatID)},
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		now:     time.Now,
	}, nil
}

// Notify sends text once. Any failure, including a cancelled wait on the
// rate limiter, is returned as an apperr.KindTelegram error.
func (s *Service) Notify(ctx context.Context, text string) error {
	s.log.Info("sending notification", logx.String("chat_id", s.target.ChatID))

	if err := s.limiter.Wait(ctx); err != nil {
		return apperr.Wrap(apperr.KindTelegram, "Не удалось отправить сообщение", err)
	}

	sendCtx := ctx
	if s.cfg.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.cfg.SendTimeout)
		defer cancel()
	}

	if _, err := s.sender.SendText(sendCtx, s.target, text, &kit.SendOptions{DisablePreview: true}); err != nil {
		return apperr.Wrap(apperr.KindTelegram, "Не удалось отправить сообщение", err)
	}

	s.remember(text)
	s.log.Debug("notification sent", logx.String("text", text))
	return nil
}

func (s *Service) remember(text string) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.history = append(s.history, HistoryItem{At: s.now(), Text: text})
	if over := len(s.history) - s.cfg.HistorySize; over > 0 {
		s.history = append([]HistoryItem(nil), s.history[over:]...)
	}
}

// History returns recently delivered notifications, oldest first.
func (s *Service) History() []HistoryItem {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	return append([]HistoryItem(nil), s.history...)
}
