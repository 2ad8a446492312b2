package app

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/felixbrock/promptstudio/internal/diff"
	"github.com/felixbrock/promptstudio/internal/domain"
	"github.com/felixbrock/promptstudio/internal/history"
	"github.com/felixbrock/promptstudio/internal/logger"
	"github.com/felixbrock/promptstudio/internal/pipeline"
)

// Completer is the external completion service: prompt text and system
// instructions in, raw completion text out.
type Completer interface {
	Complete(ctx context.Context, prompt string, systemInstruction string) (string, error)
}

type Analytics interface {
	Capture(ctx context.Context, eventType string, distinctId string, properties map[string]any) error
}

type Archive interface {
	Insert(ctx context.Context, optimization domain.Optimization) error
}

type Config struct {
	Limits            pipeline.Limits
	DiffMode          diff.Mode
	HistoryKey        string
	MaxEntries        int
	RatePerSecond     float64
	Burst             int
	CompletionTimeout time.Duration
	StaticDir         string
}

type App struct {
	cfg       Config
	completer Completer
	store     history.Store
	analytics Analytics
	archive   Archive
	pipeline  *pipeline.Pipeline
	diff      *diff.Engine
	tracker   *Tracker
	log       *logger.Logger

	mu       sync.Mutex
	logs     map[string]*history.Log
	limiters map[string]*rate.Limiter

	now func() time.Time
}

type Option func(*App)

func WithAnalytics(a Analytics) Option {
	return func(app *App) { app.analytics = a }
}

func WithArchive(a Archive) Option {
	return func(app *App) { app.archive = a }
}

func New(cfg Config, completer Completer, store history.Store, log *logger.Logger, opts ...Option) *App {
	if log == nil {
		log = logger.NewNop()
	}
	if cfg.HistoryKey == "" {
		cfg.HistoryKey = history.DefaultKey
	}
	if cfg.CompletionTimeout <= 0 {
		cfg.CompletionTimeout = 60 * time.Second
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "static"
	}

	a := &App{
		cfg:       cfg,
		completer: completer,
		store:     store,
		pipeline:  pipeline.New(cfg.Limits, log),
		diff:      diff.NewEngine(cfg.DiffMode),
		tracker:   NewTracker(),
		log:       log.With("component", "app"),
		logs:      map[string]*history.Log{},
		limiters:  map[string]*rate.Limiter{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *App) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/static/",
		http.StripPrefix("/static/", http.FileServer(http.Dir(a.cfg.StaticDir))))
	mux.Handle("/", ComponentHandler(a.index))
	mux.Handle("/optimize", ComponentHandler(a.optimize))
	mux.Handle("/diff", ComponentHandler(a.diffTexts))
	mux.Handle("/history", ComponentHandler(a.historyList))
	mux.Handle("/history/{id}", ComponentHandler(a.historyEntry))

	return mux
}

func (a *App) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           a.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// history returns the log of one client, creating it on first use.
func (a *App) history(client string) *history.Log {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.logs[client]
	if !ok {
		l = history.New(a.store, a.cfg.HistoryKey+":"+client, a.cfg.MaxEntries, a.log)
		a.logs[client] = l
	}

	return l
}

func (a *App) limiter(client string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.limiters[client]
	if !ok {
		limit := rate.Inf
		if a.cfg.RatePerSecond > 0 {
			limit = rate.Limit(a.cfg.RatePerSecond)
		}
		burst := a.cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		l = rate.NewLimiter(limit, burst)
		a.limiters[client] = l
	}

	return l
}
