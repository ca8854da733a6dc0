package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"homeworkbot/internal/config"
	"homeworkbot/internal/homework"
	"homeworkbot/internal/notifier"
	"homeworkbot/internal/poller"
	"homeworkbot/internal/runtime/supervisor"
	"homeworkbot/internal/storage"
	"homeworkbot/internal/transport/telegram/adapter"
	logx "homeworkbot/pkg/logx"
	"homeworkbot/pkg/systemd"
)

func main() {
	os.Exit(run(os.Args[1:], os.LookupEnv))
}

// run is the whole daemon. lookup resolves environment variables.
func run(args []string, lookup func(string) (string, bool)) int {
	fs := flag.NewFlagSet("homeworkbot", flag.ContinueOnError)
	cfgPath := fs.String("config", "./config.yaml", "path to config json/yaml (optional)")
	envPath := fs.String("env", ".env", "dotenv file with credentials (optional)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	boot := logx.NewConsole("info")

	mgr := config.NewConfigManager(*cfgPath)
	cfg, err := mgr.Load()
	if err != nil {
		return fatal(boot, "config load failed", err)
	}
	settings, err := cfg.Resolve()
	if err != nil {
		return fatal(boot, "config invalid", err)
	}

	logSvc, log := logx.New(cfg.LogConfig())
	defer logSvc.Close()

	// Credentials are checked before anything touches the network.
	if err := config.LoadDotEnv(*envPath); err != nil {
		log.Warn("dotenv load failed", logx.String("path", *envPath), logx.Err(err))
	}
	creds, err := config.LoadCredentials(lookup)
	if err != nil {
		return fatal(log, "required environment variable missing", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := storage.Open(storage.Config{
		Driver:      settings.StorageDriver,
		Path:        settings.StoragePath,
		BusyTimeout: settings.StorageBusyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return fatal(log, "storage open failed", err)
	}
	if store != nil {
		defer store.Close()
	}

	p, err := newPoller(settings, creds, store, log)
	if err != nil {
		return fatal(log, "poller init failed", err)
	}

	sup := supervisor.NewSupervisor(ctx,
		supervisor.WithLogger(log.With(logx.String("comp", "supervisor"))),
		// A defect escaping the poll loop takes the process down.
		supervisor.WithCancelOnError(true),
	)

	mgr.SetLogger(log.With(logx.String("comp", "config")))
	mgr.SetValidator(func(_ context.Context, c *config.Config) error {
		if _, err := c.Resolve(); err != nil {
			return err
		}
		_, err := poller.ParseSchedule(c.Poller.Schedule)
		return err
	})
	updates := mgr.Subscribe(1)
	defer mgr.Unsubscribe(updates)

	sup.Go("poller", p.Run)
	sup.Go("config.watch", mgr.Watch)
	sup.Go0("config.apply", func(ctx context.Context) {
		applyConfigUpdates(ctx, updates, cfg, logSvc, log)
	})

	log.Info("homework bot started", logx.String("schedule", settings.Schedule), logx.Duration("request_timeout", settings.RequestTimeout))
	if _, err := systemd.Ready(); err != nil {
		log.Warn("systemd notify failed", logx.Err(err))
	}

	<-sup.Done()
	_, _ = systemd.Stopping()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer stopCancel()
	err = sup.Stop(stopCtx)
	c := sup.Counters()
	if err != nil {
		log.Error("stopped with error", logx.Err(err), logx.Int64("goroutines_active", c.Active))
		return 1
	}
	log.Info("homework bot stopped", logx.Int64("goroutines_started", int64(c.Started)), logx.Int64("goroutines_active", c.Active))
	return 0
}

// newPoller wires API client, Telegram adapter and notifier into a poller.
// It makes no network calls.
func newPoller(settings config.Settings, creds config.Credentials, store storage.Store, log logx.Logger) (*poller.Poller, error) {
	schedule, err := poller.ParseSchedule(settings.Schedule)
	if err != nil {
		return nil, fmt.Errorf("poller.schedule: %w", err)
	}

	client, err := homework.NewClient(homework.Config{
		Endpoint: settings.Endpoint,
		Token:    creds.PracticumToken,
		Timeout:  settings.RequestTimeout,
	}, log.With(logx.String("comp", "homework")))
	if err != nil {
		return nil, err
	}

	tg, err := adapter.New(adapter.Config{
		Token:   creds.TelegramToken,
		APIURL:  settings.TelegramAPIURL,
		Timeout: settings.SendTimeout,
		// getMe is skipped so startup makes no network call.
		Offline: true,
	}, log.With(logx.String("comp", "telegram")))
	if err != nil {
		return nil, err
	}

	notif, err := notifier.New(notifier.Config{
		ChatID:      creds.TelegramChatID,
		RatePerSec:  settings.RatePerSec,
		SendTimeout: settings.SendTimeout,
	}, tg, log.With(logx.String("comp", "notifier")))
	if err != nil {
		return nil, err
	}

	opts := []poller.Option{
		poller.WithSchedule(schedule),
		poller.WithLookback(settings.Lookback),
		poller.WithObserver(func(st poller.State) {
			_, _ = systemd.Status("window=" + strconv.FormatInt(st.Window, 10))
		}),
	}
	if store != nil {
		opts = append(opts, poller.WithStore(store))
	}
	return poller.New(client, notif, log.With(logx.String("comp", "poller")), opts...)
}

// applyConfigUpdates re-applies logging on config change; other sections
// only take effect after a restart.
func applyConfigUpdates(ctx context.Context, updates <-chan *config.Config, current *config.Config, logSvc *logx.Service, log logx.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-updates:
			if !ok {
				return
			}
			changed, attrs, restart := config.SummarizeConfigChange(current, next)
			if len(changed) == 0 {
				continue
			}
			if next.Logging != current.Logging {
				logSvc.Apply(next.LogConfig())
			}
			log.Info("config change applied", append(attrs, logx.Any("sections", changed))...)
			if len(restart) > 0 {
				log.Warn("config change needs restart", logx.Any("sections", restart))
			}
			current = next
		}
	}
}

func fatal(log logx.Logger, msg string, err error) int {
	log.Critical(msg, logx.Err(err))
	fmt.Fprintln(os.Stderr, "fatal:", err)
	return 1
}
