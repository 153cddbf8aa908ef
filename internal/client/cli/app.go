package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/bottlemail/internal/client/cache"
	"github.com/dmitrijs2005/bottlemail/internal/client/client"
	"github.com/dmitrijs2005/bottlemail/internal/client/config"
	"github.com/dmitrijs2005/bottlemail/internal/client/identity"
	"github.com/dmitrijs2005/bottlemail/internal/client/metrics"
	"github.com/dmitrijs2005/bottlemail/internal/client/models"
	"github.com/dmitrijs2005/bottlemail/internal/client/services"
	"github.com/dmitrijs2005/bottlemail/internal/logging"

	_ "modernc.org/sqlite"
)

type App struct {
	config  *config.Config
	session *services.Session
	metrics *metrics.Metrics
	logger  logging.Logger
	db      *sql.DB

	reader *bufio.Reader
	out    io.Writer
	prompt bool

	mu         sync.Mutex
	runCtx     context.Context
	stopPoller context.CancelFunc
	pollerDone chan struct{}
}

// NewApp opens the local cache, resolves the device identity and builds the
// session. The caller must Run the app, which releases the database.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", c.DBPath, "error", err)
		return nil, err
	}

	ident := identity.Resolve(ctx, identity.NewMachineIDSource(c.DeviceIDFile), identity.Options{Logger: logger})

	m := metrics.New()
	api := client.NewHTTPClient(c.ServerURL,
		client.WithTimeout(c.RequestTimeout),
		client.WithFetchAttempts(c.FetchAttempts),
		client.WithLogger(logger),
		client.WithMetrics(m),
	)

	session := services.NewSession(services.SessionDeps{
		Identity:     ident,
		Client:       api,
		Cache:        cache.New(db, logger),
		Logger:       logger,
		Metrics:      m,
		SendTimeout:  c.SendTimeout,
		RequiredTaps: c.OpenTaps,
	})

	a := newApp(c, session, logger, bufio.NewReader(os.Stdin), os.Stdout)
	a.db = db
	a.metrics = m
	a.prompt = stdinIsTerminal()
	return a, nil
}

func newApp(c *config.Config, s *services.Session, logger logging.Logger, r *bufio.Reader, w io.Writer) *App {
	if logger == nil {
		logger = logging.Discard()
	}
	a := &App{config: c, session: s, logger: logger, reader: r, out: w}
	s.Delivery.OnArrival(a.announceArrival)
	return a
}

// Run reconciles the session, starts the background poller and the metrics
// endpoint and serves the REPL until the user quits or ctx is done.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.shutdown()

	printlnFn("Welcome to bottlemail (type 'help' for commands)")

	rep := a.session.Start(ctx)
	for _, n := range rep.Notices {
		printlnFn("Notice:", n)
	}
	a.logger.Info(ctx, "session started",
		"preferences_source", rep.Preferences, "letterbox_source", rep.Letterbox, "letters", a.session.Letterbox.Len())

	if a.config.MetricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, a.config.MetricsAddr); err != nil {
				a.logger.Error(ctx, "metrics endpoint failed", "addr", a.config.MetricsAddr, "error", err)
			}
		}()
	}

	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()
	a.startPoller()

	var promptFn func() string
	if a.prompt {
		promptFn = func() string { return fmt.Sprintf("bottle %s> ", a.getStatus()) }
	}
	runREPL(ctx, a, promptFn, a.reader)
}

func (a *App) shutdown() {
	a.stopPollerAndWait()
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn(context.Background(), "closing database", "error", err)
		}
	}
}

// startPoller runs the delivery loop in its own goroutine.
func (a *App) startPoller() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runCtx == nil || a.stopPoller != nil {
		return
	}

	ctx, cancel := context.WithCancel(a.runCtx)
	done := make(chan struct{})
	a.stopPoller = cancel
	a.pollerDone = done

	interval := a.config.PollInterval
	go func() {
		defer close(done)
		a.session.Delivery.Run(ctx, interval)
	}()
}

func (a *App) stopPollerAndWait() {
	a.mu.Lock()
	cancel, done := a.stopPoller, a.pollerDone
	a.stopPoller, a.pollerDone = nil, nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (a *App) restartPoller() {
	a.stopPollerAndWait()
	a.startPoller()
}

func (a *App) announceArrival(l models.Letter) {
	printlnFn(fmt.Sprintf("A bottle has washed ashore: %q. Type 'tap' %d times or 'open' to read it.",
		l.DisplayTitle(), a.session.Opener.RequiredTaps()))
}

func (a *App) getStatus() string {
	s := a.session.UserID()
	if a.session.Identity.Degraded() {
		s += " offline-id"
	}
	if _, ok := a.session.Delivery.Pending(); ok {
		s += " new letter"
	} else if left := a.session.Delivery.Cooldown().Remaining(time.Now()); left > 0 {
		s += " cooldown " + left.Round(time.Second).String()
	}
	return "(" + s + ")"
}
