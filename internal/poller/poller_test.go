package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"homeworkbot/internal/apperr"
	"homeworkbot/internal/storage"
	logx "homeworkbot/pkg/logx"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const approvedMsg = `diplom, Изменился статус проверки работы "diplom" Работа проверена: ревьюеру всё понравилось. Ура!`

type step struct {
	body string
	err  error
}

type scriptedFetcher struct {
	mu      sync.Mutex
	steps   []step
	windows []int64
	onFetch func(n int)
}

func (f *scriptedFetcher) FetchStatuses(_ context.Context, since int64) (any, error) {
	f.mu.Lock()
	f.windows = append(f.windows, since)
	n := len(f.windows)
	var s step
	if n <= len(f.steps) {
		s = f.steps[n-1]
	} else if len(f.steps) > 0 {
		s = f.steps[len(f.steps)-1]
	}
	cb := f.onFetch
	f.mu.Unlock()
	if cb != nil {
		cb(n)
	}
	if s.err != nil {
		return nil, s.err
	}
	dec := json.NewDecoder(strings.NewReader(s.body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, apperr.Wrap(apperr.KindConnection, "Не удалось преобразовать ответ в JSON", err)
	}
	return v, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *fakeNotifier) Notify(ctx context.Context, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return apperr.Wrap(apperr.KindTelegram, "Не удалось отправить сообщение", err)
	}
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, text)
	return nil
}

func (n *fakeNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sent...)
}

type memStore struct {
	mu      sync.Mutex
	entries []storage.AuditEntry
}

func (m *memStore) AppendAudit(_ context.Context, e storage.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) Close() error { return nil }

func newPoller(t *testing.T, f Fetcher, n Notifier, opts ...Option) *Poller {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return time.Unix(500, 0) })}, opts...)
	p, err := New(f, n, logx.Nop(), opts...)
	require.NoError(t, err)
	return p
}

func TestScenarioApprovedThenEmpty(t *testing.T) {
	f := &scriptedFetcher{steps: []step{
		{body: `{"homeworks": [{"homework_name": "diplom", "status": "approved"}], "current_date": 1000}`},
		{body: `{"homeworks": [], "current_date": 2000}`},
	}}
	n := &fakeNotifier{}
	p := newPoller(t, f, n)

	st := p.RunOnce(context.Background(), p.InitialState())
	assert.Equal(t, int64(1000), st.Window)
	assert.Equal(t, []string{approvedMsg}, n.messages())
	assert.Equal(t, st.Current, st.Prev)

	st = p.RunOnce(context.Background(), st)
	assert.Equal(t, int64(2000), st.Window)
	assert.Equal(t, "diplom", st.Current.Name)
	assert.Equal(t, "Нет новых статусов работ.", st.Current.Output)
	assert.Equal(t, []string{approvedMsg, "diplom, Нет новых статусов работ."}, n.messages())

	assert.Equal(t, []int64{500, 1000}, f.windows)
}

func TestUnchangedReportIsNotResent(t *testing.T) {
	body := `{"homeworks": [{"homework_name": "diplom", "status": "approved"}], "current_date": 1000}`
	f := &scriptedFetcher{steps: []step{{body: body}, {body: body}}}
	n := &fakeNotifier{}
	p := newPoller(t, f, n)

	st := p.RunOnce(context.Background(), p.InitialState())
	st = p.RunOnce(context.Background(), st)
	assert.Equal(t, []string{approvedMsg}, n.messages())
	assert.Equal(t, int64(1000), st.Window)
}

func TestAnnounceIsIdempotent(t *testing.T) {
	n := &fakeNotifier{}
	p := newPoller(t, &scriptedFetcher{}, n)
	st := State{Current: Report{Name: "hw", Output: "out"}}

	sent, err := p.announce(context.Background(), &st, st.Current.Message())
	require.NoError(t, err)
	assert.True(t, sent)
	sent, err = p.announce(context.Background(), &st, st.Current.Message())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Equal(t, []string{"hw, out"}, n.messages())
}

func TestScenarioServiceUnavailable(t *testing.T) {
	apiErr := &apperr.Error{
		Kind:       apperr.KindInvalidResponseCode,
		Msg:        "Не удалось получить ответ API, ошибка: 503, причина: Service Unavailable, текст: ",
		StatusCode: 503,
	}
	f := &scriptedFetcher{steps: []step{{err: apiErr}, {err: apiErr}}}
	n := &fakeNotifier{}
	store := &memStore{}
	p := newPoller(t, f, n, WithStore(store))

	st := p.RunOnce(context.Background(), p.InitialState())
	want := FailurePrefix + apiErr.Error()
	assert.Equal(t, want, st.Current.Output)
	assert.Equal(t, int64(500), st.Window, "window unchanged on failure")
	assert.Equal(t, []string{want}, n.messages())

	// Same failure again: report unchanged, no second message.
	st = p.RunOnce(context.Background(), st)
	assert.Equal(t, []string{want}, n.messages())

	require.Len(t, store.entries, 3)
	assert.Equal(t, storage.ActionError, store.entries[0].Action)
	assert.Equal(t, "invalid_response_code", store.entries[0].Kind)
	assert.Equal(t, storage.ActionNotify, store.entries[1].Action)
	assert.True(t, store.entries[1].OK)
	assert.Equal(t, storage.ActionError, store.entries[2].Action)
}

func TestScenarioMissingHomeworksIsSuppressed(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{body: `{"current_date": 3000}`}}}
	n := &fakeNotifier{}
	p := newPoller(t, f, n)

	st := p.RunOnce(context.Background(), p.InitialState())
	assert.Empty(t, n.messages())
	assert.Equal(t, int64(3000), st.Window)
	assert.Equal(t, Report{}, st.Current)
}

func TestUnknownStatusIsReported(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{body: `{"homeworks": [{"homework_name": "hw", "status": "lost"}], "current_date": 10}`}}}
	n := &fakeNotifier{}
	p := newPoller(t, f, n)

	st := p.RunOnce(context.Background(), p.InitialState())
	msgs := n.messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0], FailurePrefix))
	assert.Contains(t, msgs[0], "lost")
	assert.Equal(t, int64(10), st.Window)
}

func TestDeliveryFailureIsRetriedNextIteration(t *testing.T) {
	body := `{"homeworks": [{"homework_name": "diplom", "status": "approved"}], "current_date": 1000}`
	f := &scriptedFetcher{steps: []step{{body: body}, {body: body}}}
	n := &fakeNotifier{err: apperr.Wrap(apperr.KindTelegram, "Не удалось отправить сообщение", errors.New("timeout"))}
	p := newPoller(t, f, n)

	st := p.RunOnce(context.Background(), p.InitialState())
	assert.Equal(t, Report{}, st.Prev, "previous report only advances on delivery")
	assert.Equal(t, "diplom", st.Current.Name)
	assert.NotContains(t, st.Current.Output, FailurePrefix, "telegram failures are not folded into the report")

	n.mu.Lock()
	n.err = nil
	n.mu.Unlock()
	st = p.RunOnce(context.Background(), st)
	assert.Equal(t, []string{approvedMsg}, n.messages())
	assert.Equal(t, st.Current, st.Prev)
}

func TestFailureNotificationErrorIsSwallowed(t *testing.T) {
	f := &scriptedFetcher{steps: []step{{err: apperr.New(apperr.KindConnection, "Ошибка соединения")}}}
	n := &fakeNotifier{err: apperr.New(apperr.KindTelegram, "Не удалось отправить сообщение")}
	p := newPoller(t, f, n)

	require.NotPanics(t, func() {
		st := p.RunOnce(context.Background(), p.InitialState())
		assert.Equal(t, FailurePrefix+"Ошибка соединения", st.Current.Output)
		assert.Equal(t, Report{}, st.Prev)
	})
}

func TestCancelledIterationIsNotReported(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &scriptedFetcher{steps: []step{{err: apperr.Wrap(apperr.KindConnection, "Ошибка соединения", context.Canceled)}}}
	n := &fakeNotifier{}
	p := newPoller(t, f, n)

	st := p.RunOnce(ctx, p.InitialState())
	assert.Empty(t, n.messages())
	assert.Equal(t, Report{}, st.Current)
}

func TestLookbackMovesInitialWindow(t *testing.T) {
	p := newPoller(t, &scriptedFetcher{}, &fakeNotifier{}, WithLookback(100*time.Second))
	assert.Equal(t, int64(400), p.InitialState().Window)
}

func TestIterationLogLevels(t *testing.T) {
	body := `{"homeworks": [{"homework_name": "diplom", "status": "approved"}], "current_date": 1000}`
	f := &scriptedFetcher{steps: []step{{body: body}, {body: body}, {body: `{"homeworks": 1, "current_date": 1}`}}}
	var buf bytes.Buffer
	p, err := New(f, &fakeNotifier{}, logx.NewJSON(&buf, "debug"))
	require.NoError(t, err)

	st := p.RunOnce(context.Background(), p.InitialState())
	st = p.RunOnce(context.Background(), st)
	_ = p.RunOnce(context.Background(), st)

	levels := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		levels[m["message"].(string)] = m["level"].(string)
	}
	assert.Equal(t, "info", levels["notification delivered"])
	assert.Equal(t, "debug", levels["status unchanged"])
	assert.Equal(t, "error", levels["iteration failed"])
}

type stepSchedule struct{ d time.Duration }

func (s stepSchedule) Next(t time.Time) time.Time { return t.Add(s.d) }

func TestRunPollsUntilCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &scriptedFetcher{
		steps: []step{
			{body: `{"homeworks": [{"homework_name": "diplom", "status": "reviewing"}], "current_date": 100}`},
			{body: `{"homeworks": [{"homework_name": "diplom", "status": "approved"}], "current_date": 200}`},
			{body: `{"homeworks": [], "current_date": 300}`},
		},
		onFetch: func(n int) {
			if n == 3 {
				cancel()
			}
		},
	}
	n := &fakeNotifier{}
	var observed []int64
	p, err := New(f, n, logx.Nop(),
		WithSchedule(stepSchedule{d: time.Millisecond}),
		WithObserver(func(st State) { observed = append(observed, st.Window) }),
	)
	require.NoError(t, err)

	err = p.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.GreaterOrEqual(t, len(observed), 2)
	assert.Equal(t, []int64{100, 200}, observed[:2])

	msgs := n.messages()
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0], "Работа взята на проверку ревьюером.")
	assert.Equal(t, approvedMsg, msgs[1])
	assert.Equal(t, []int64{f.windows[0], 100, 200}, f.windows)
}

func TestNewValidates(t *testing.T) {
	_, err := New(nil, &fakeNotifier{}, logx.Nop())
	require.Error(t, err)
	_, err = New(&scriptedFetcher{}, nil, logx.Nop())
	require.Error(t, err)
}
