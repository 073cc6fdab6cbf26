package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	flag "github.com/spf13/pflag"

	"github.com/nhle/task-tracker/internal/app"
	"github.com/nhle/task-tracker/internal/attachment"
	"github.com/nhle/task-tracker/internal/auth"
	"github.com/nhle/task-tracker/internal/credential"
	"github.com/nhle/task-tracker/internal/logger"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/notify"
	"github.com/nhle/task-tracker/internal/seed"
	"github.com/nhle/task-tracker/internal/server"
	"github.com/nhle/task-tracker/internal/store"
	"github.com/nhle/task-tracker/internal/tracker"
)

// runtime holds what every command opens from the configuration.
type runtime struct {
	cfg     *model.AppConfig
	log     *logrus.Entry
	store   *store.SQLStore
	closers []io.Closer
}

func (r *runtime) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i].Close(); err != nil {
			fmt.Fprintf(os.Stderr, "closing: %v\n", err)
		}
	}
}

func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfgPath := fs.StringP("config", "c", model.DefaultConfigPath(), "path to the configuration file")
	return fs, cfgPath
}

// open loads configuration, builds the logger, and opens the store.
// logFile, when non-empty and not configured, redirects logs away from the
// terminal.
func open(cfgPath, service, logFile string) (*runtime, error) {
	cfg, err := model.LoadConfig(cfgPath)
	if err != nil {
		return nil, err
	}
	if logFile != "" && cfg.Log.File == "" {
		cfg.Log.File = logFile
	}

	log, logCloser, err := logger.New(cfg.Log, service)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg, log: log, closers: []io.Closer{logCloser}}

	if cfg.Database.Driver == store.DriverSQLite || cfg.Database.Driver == "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0o755); err != nil {
			rt.Close()
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.store = st
	rt.closers = append(rt.closers, st)

	log.WithFields(logrus.Fields{
		"driver": cfg.Database.Driver,
		"config": cfgPath,
	}).Debug("store opened")
	return rt, nil
}

func (r *runtime) service() *tracker.Service {
	files := attachment.NewOS(r.cfg.Attachments.Dir, r.cfg.Attachments.MaxBytes)
	return tracker.New(r.store, files, tracker.WithLogger(r.log))
}

// seedAdmin runs the bootstrap seed. A missing password is only a warning
// so the server can start against an existing database.
func (r *runtime) seedAdmin(ctx context.Context) (bool, error) {
	cfg := r.cfg.Seed
	cfg.AdminPassword = credential.Resolve(credential.KeyAdminPassword, cfg.AdminPassword)
	return seed.Admin(ctx, r.store, cfg, r.log)
}

func (r *runtime) dispatcher() *notify.Dispatcher {
	n := r.cfg.Notify
	password := credential.Resolve(credential.KeyIMAPPassword, n.Password)
	mailer := notify.NewIMAPMailer(n.Host, n.Port, n.Username, password, n.TLS, n.Mailbox)
	return notify.NewDispatcher(r.store, mailer, n.From,
		time.Duration(n.PollIntervalSec)*time.Second, 50, r.log.WithField("component", "dispatcher"))
}

func runServe(args []string) error {
	fs, cfgPath := newFlagSet("serve")
	addr := fs.String("addr", "", "listen address (overrides server.addr)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := open(*cfgPath, "tasktracker-api", "")
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := rt.seedAdmin(ctx); err != nil {
		if !errors.Is(err, seed.ErrNoPassword) {
			return err
		}
		rt.log.WithError(err).Warn("bootstrap admin not created")
	}

	key := credential.Resolve(credential.KeySigningKey, rt.cfg.Auth.SigningKey)
	if key == "" {
		return errors.New("no token signing key: set auth.signing_key, TASKTRACKER_AUTH_SIGNING_KEY, or run 'tasktracker secret set auth-signing-key'")
	}
	tokens := auth.NewTokens([]byte(key), rt.cfg.Server.TokenTTL)

	if rt.cfg.Notify.Enabled {
		d := rt.dispatcher()
		d.Start()
		defer d.Stop()
	}

	srv := server.New(rt.service(), tokens, rt.log)
	listen := rt.cfg.Server.Addr
	if *addr != "" {
		listen = *addr
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	rt.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

func runTUI(args []string) error {
	fs, cfgPath := newFlagSet("tui")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logFile := filepath.Join(filepath.Dir(*cfgPath), "tasktracker.log")
	rt, err := open(*cfgPath, "tasktracker-tui", logFile)
	if err != nil {
		return err
	}
	defer rt.Close()

	if _, err := rt.seedAdmin(context.Background()); err != nil && !errors.Is(err, seed.ErrNoPassword) {
		return err
	}

	m := app.New(rt.service(), afero.NewOsFs(), rt.log)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("running console: %w", err)
	}
	return nil
}

func runSeed(args []string) error {
	fs, cfgPath := newFlagSet("seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := open(*cfgPath, "tasktracker-seed", "")
	if err != nil {
		return err
	}
	defer rt.Close()

	created, err := rt.seedAdmin(context.Background())
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Created administrator %s\n", rt.cfg.Seed.AdminEmail)
	} else {
		fmt.Println("An administrator already exists; nothing to do.")
	}
	return nil
}

func runDispatch(args []string) error {
	fs, cfgPath := newFlagSet("dispatch")
	watch := fs.BoolP("watch", "w", false, "keep polling until interrupted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := open(*cfgPath, "tasktracker-dispatch", "")
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.cfg.Notify.Host == "" {
		return errors.New("notify.host is not configured")
	}
	d := rt.dispatcher()

	if !*watch {
		n, err := d.RunOnce(context.Background())
		fmt.Printf("Delivered %d notice(s)\n", n)
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	d.Start()
	<-ctx.Done()
	d.Stop()
	fmt.Printf("Delivered %d notice(s) in the last pass\n", d.Status().Delivered)
	return nil
}

func runInitConfig(args []string) error {
	fs, cfgPath := newFlagSet("init-config")
	force := fs.BoolP("force", "f", false, "overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if _, err := os.Stat(*cfgPath); err == nil && !*force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", *cfgPath)
	}

	if err := model.SaveConfig(*cfgPath, model.DefaultAppConfig()); err != nil {
		return err
	}
	fmt.Printf("Wrote %s\n", *cfgPath)
	return nil
}

func runSecret(args []string) error {
	fs := flag.NewFlagSet("secret", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: tasktracker secret set|delete <key>\nKeys: %s\n",
			strings.Join(credential.Keys, ", "))
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 || !credential.Known(fs.Arg(1)) {
		fs.Usage()
		return errors.New("expected an action and a known key")
	}

	action, key := fs.Arg(0), fs.Arg(1)
	switch action {
	case "set":
		fmt.Fprintf(os.Stderr, "Value for %s: ", key)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("reading value: %w", err)
		}
		value := strings.TrimRight(line, "\r\n")
		if value == "" {
			return errors.New("empty value")
		}
		if err := credential.Set(key, value); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Saved.")
	case "delete":
		if err := credential.Delete(key); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Deleted.")
	default:
		fs.Usage()
		return fmt.Errorf("unknown action %q", action)
	}
	return nil
}
