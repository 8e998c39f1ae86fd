package portal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jobmatch/jobmatch-portal/internal/apiclient"
	"github.com/jobmatch/jobmatch-portal/internal/metrics"
	"github.com/jobmatch/jobmatch-portal/internal/session"
	"github.com/jobmatch/jobmatch-portal/internal/tokenstore"
)

const maxNotices = 20

// Entry is the portal-side state of one browser session.
type Entry struct {
	ID      string
	Manager *session.Manager
	API     *apiclient.Client

	mu       sync.Mutex
	notices  []session.Event
	lastSeen time.Time
}

func (e *Entry) push(ev session.Event) {
	if ev.Notice == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.notices) == maxNotices {
		e.notices = e.notices[1:]
	}
	e.notices = append(e.notices, ev)
}

// Drain returns and forgets the pending notices.
func (e *Entry) Drain() []session.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.notices
	e.notices = nil
	if out == nil {
		out = []session.Event{}
	}
	return out
}

func (e *Entry) touch(now time.Time) {
	e.mu.Lock()
	e.lastSeen = now
	e.mu.Unlock()
}

func (e *Entry) idleSince(now time.Time) time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return now.Sub(e.lastSeen)
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Backend     tokenstore.Backend
	Client      *apiclient.Client
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	IdleTimeout time.Duration
	// KeepTokenOnTransientError is passed to every session manager.
	KeepTokenOnTransientError bool
}

// Registry owns one session manager per browser session id. Evicting an
// entry closes its manager but leaves the stored token, so a later request
// with the same id bootstraps a fresh manager from it.
type Registry struct {
	cfg    RegistryConfig
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*Entry
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		cfg:     cfg,
		logger:  cfg.Logger,
		now:     time.Now,
		entries: make(map[string]*Entry),
	}
}

// Get returns the entry for sid, creating it on first use.
func (r *Registry) Get(sid string) *Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.entries[sid]; ok {
		e.touch(now)
		return e
	}

	e := r.newEntry(sid)
	e.lastSeen = now
	r.entries[sid] = e
	r.reportSize()
	return e
}

func (r *Registry) newEntry(sid string) *Entry {
	logger := r.logger.With("sid", sid)
	store := tokenstore.New(r.cfg.Backend, sid, logger)

	var mgr *session.Manager
	api := r.cfg.Client.WithAuth(store, func(ctx context.Context, rejected string) {
		mgr.HandleUnauthorized(ctx, rejected)
	})
	mgr = session.NewManager(store, api, session.Options{
		Logger:                    logger,
		KeepTokenOnTransientError: r.cfg.KeepTokenOnTransientError,
	})

	e := &Entry{ID: sid, Manager: mgr, API: api}
	mgr.Subscribe(e.push)
	if r.cfg.Metrics != nil {
		mgr.Subscribe(r.cfg.Metrics.ObserveSession)
	}
	return e
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep closes and forgets entries idle longer than the idle timeout.
func (r *Registry) Sweep(ctx context.Context) int {
	now := r.now()

	r.mu.Lock()
	var evicted []*Entry
	for sid, e := range r.entries {
		if e.idleSince(now) > r.cfg.IdleTimeout {
			evicted = append(evicted, e)
			delete(r.entries, sid)
		}
	}
	r.reportSize()
	r.mu.Unlock()

	for _, e := range evicted {
		e.Manager.Close()
	}
	if len(evicted) > 0 {
		r.logger.Info("evicted idle sessions", "count", len(evicted))
	}

	if p, ok := r.cfg.Backend.(tokenstore.Pruner); ok {
		n, err := p.Prune(ctx)
		if err != nil {
			r.logger.Warn("token store prune failed", "error", err)
		} else if n > 0 {
			r.logger.Info("pruned expired token store values", "count", n)
		}
	}
	return len(evicted)
}

// Run sweeps periodically until ctx ends, then closes every manager.
func (r *Registry) Run(ctx context.Context) {
	interval := r.cfg.IdleTimeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*Entry)
	r.reportSize()
	r.mu.Unlock()

	for _, e := range entries {
		e.Manager.Close()
	}
}

// reportSize must be called with r.mu held.
func (r *Registry) reportSize() {
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.SetActiveSessions(len(r.entries))
	}
}
