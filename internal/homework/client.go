package homework

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"homeworkbot/internal/apperr"
	logx "homeworkbot/pkg/logx"
)

// DefaultEndpoint is the homework status API.
const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

// DefaultTimeout bounds a single fetch when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// quotedBodyRunes caps the body text quoted in error messages.
// apperr.Error.Body keeps the whole body.
const quotedBodyRunes = 512

type Config struct {
	Endpoint string
	Token    string
	Timeout  time.Duration
}

// Client fetches homework statuses. It never retries.
type Client struct {
	cfg  Config
	http *http.Client
	log  logx.Logger
	now  func() time.Time
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithClock overrides the clock used for the default window.
func WithClock(now func() time.Time) Option { return func(c *Client) { c.now = now } }

func NewClient(cfg Config, log logx.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("practicum token is empty")
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if _, err := url.Parse(cfg.Endpoint); err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", cfg.Endpoint, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  log,
		now:  time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// FetchStatuses returns the decoded JSON body of the status endpoint for
// homeworks changed since the given unix timestamp (0 means now).
//
// JSON numbers are kept as json.Number.
func (c *Client) FetchStatuses(ctx context.Context, since int64) (any, error) {
	if since == 0 {
		since = c.now().Unix()
	}

	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConnection, "Ошибка соединения", err)
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(since, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConnection, "Ошибка соединения", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	// Never log the token.
	c.log.Info("requesting homework statuses", logx.String("url", c.cfg.Endpoint), logx.Int64("from_date", since))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConnection, "Ошибка соединения", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindConnection, "Ошибка соединения", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &apperr.Error{
			Kind: apperr.KindInvalidResponseCode,
			Msg: fmt.Sprintf("Не удалось получить ответ API, ошибка: %d, причина: %s, текст: %s",
				resp.StatusCode, reasonPhrase(resp), clipRunes(strings.TrimSpace(string(body)), quotedBodyRunes)),
			StatusCode: resp.StatusCode,
			Reason:     reasonPhrase(resp),
			Body:       string(body),
		}
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, apperr.Wrap(apperr.KindConnection, "Не удалось преобразовать ответ в JSON", err)
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			err = errors.New("trailing data")
		}
		return nil, apperr.Wrap(apperr.KindConnection, "Не удалось преобразовать ответ в JSON", err)
	}
	return out, nil
}

// reasonPhrase extracts "Service Unavailable" from "503 Service Unavailable".
func reasonPhrase(resp *http.Response) string {
	if _, reason, ok := strings.Cut(resp.Status, " "); ok && reason != "" {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

func clipRunes(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n]) + "…"
}
