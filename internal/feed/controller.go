package feed

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tbraaten/notefeed/internal/logging"
)

// Controller states.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateLive         State = "live"
)

const (
	defaultMaxItems      = 500
	defaultFetchLimit    = 30
	defaultFlushInterval = 16 * time.Millisecond
	defaultResumeWindow  = 3 * time.Second
)

// Config configures one feed column.
type Config struct {
	// Variant is the feed variant to connect (home, local, ...).
	Variant Variant

	// FeedKey identifies this column in the cache store.
	// Default: string(Variant).
	FeedKey string

	// LocalUserID is the acting user, used for echo suppression.
	LocalUserID string

	// MaxItems caps the active and pending sequences.
	// Default: 500.
	MaxItems int

	// FetchLimit is the page size for fetches.
	// Default: 30.
	FetchLimit int

	// FlushInterval is the coalescing tick.
	// Default: 16ms.
	FlushInterval time.Duration

	// ResumeWindow rate-limits Resume.
	// Default: 3s.
	ResumeWindow time.Duration

	// Filters are passed through to every page fetch.
	Filters map[string]string

	// Scheduler defers coalesced flushes. Default: TimerScheduler.
	Scheduler Scheduler

	// Clock supplies the current time. Default: time.Now.
	Clock func() time.Time
}

// Controller orchestrates one column: cold start from cache, differential
// fetch, live subscription, pagination, resume, and teardown. It owns the
// column's timeline exclusively; all public methods serialize on one mutex, so
// no two mutations of the column's state ever interleave.
type Controller struct {
	cfg       Config
	transport Transport
	cache     CacheStore
	resolve   VariantResolver
	log       zerolog.Logger

	mu         sync.Mutex
	state      State
	lastErr    error
	warn       error
	tl         *timeline
	co         *coalescer
	captures   *captureManager
	sub        Subscription
	atTop      bool
	lastResume time.Time
}

// New creates a controller for one column. cache and resolve may be nil: no
// cold-start cache and no variant fallback, respectively.
func New(cfg Config, transport Transport, cache CacheStore, resolve VariantResolver) *Controller {
	if cfg.FeedKey == "" {
		cfg.FeedKey = string(cfg.Variant)
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = defaultMaxItems
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = defaultFetchLimit
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = defaultFlushInterval
	}
	if cfg.ResumeWindow <= 0 {
		cfg.ResumeWindow = defaultResumeWindow
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = TimerScheduler{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	c := &Controller{
		cfg:       cfg,
		transport: transport,
		cache:     cache,
		resolve:   resolve,
		log:       logging.WithColumn(cfg.FeedKey),
		state:     StateDisconnected,
		atTop:     true,
	}
	c.tl = newTimeline(cfg.MaxItems)
	c.co = newCoalescer(cfg.Scheduler, cfg.FlushInterval, c.tl,
		func() bool { return c.atTop },
		func(fn func()) {
			c.mu.Lock()
			defer c.mu.Unlock()
			fn()
		},
		c.log,
	)
	c.captures = newCaptureManager(transport, c.onMutation, c.log)
	return c
}

// Connect brings the column live: cold start from cache when useCache is set,
// then a differential fetch against the newest displayed note, then the live
// subscription. Fetch and subscribe errors leave already-displayed content in
// place and are surfaced only when the column would otherwise be empty.
func (c *Controller) Connect(ctx context.Context, useCache bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectLocked(ctx, useCache, 0)
}

func (c *Controller) connectLocked(ctx context.Context, useCache bool, depth int) error {
	c.state = StateConnecting
	c.lastErr = nil
	c.warn = nil

	if useCache && c.cache != nil {
		if cached, err := c.cache.LoadCached(ctx, c.cfg.FeedKey, c.cfg.MaxItems); err != nil {
			// Cache is an optimization, never a correctness requirement.
			c.log.Debug().Err(err).Msg("cache load failed")
		} else if len(cached) > 0 {
			c.tl.replace(cached)
			c.log.Debug().Int("notes", len(cached)).Msg("cold start from cache")
		}
	}

	sinceID := c.tl.newestID()
	page, err := c.transport.FetchPage(ctx, c.cfg.Variant, FetchOptions{
		SinceID: sinceID,
		Limit:   c.cfg.FetchLimit,
		Filters: c.cfg.Filters,
	})
	if err != nil {
		if handled, herr := c.fallbackLocked(ctx, err, depth); handled {
			return herr
		}
		if len(c.tl.active) == 0 {
			c.state = StateDisconnected
			c.lastErr = err
			return err
		}
		// Content is showing; record a warning and try to go live anyway.
		c.warn = err
		c.log.Warn().Err(err).Msg("differential fetch failed, keeping cached content")
	} else if sinceID != "" {
		if n := c.tl.prependActive(page); n > 0 {
			c.log.Debug().Int("notes", n).Msg("differential fetch merged")
		}
	} else {
		c.tl.replace(page)
	}

	sub, err := c.transport.Subscribe(c.cfg.Variant, c.onNote, c.onMutation)
	if err != nil {
		if handled, herr := c.fallbackLocked(ctx, err, depth); handled {
			return herr
		}
		if len(c.tl.active) == 0 {
			c.state = StateDisconnected
			c.lastErr = err
			return err
		}
		c.warn = err
		c.state = StateDisconnected
		c.log.Warn().Err(err).Msg("live subscribe failed, feed stays static")
		return nil
	}
	c.sub = sub
	c.state = StateLive

	c.saveCacheLocked(ctx)
	c.log.Info().Str("variant", string(c.cfg.Variant)).Int("notes", len(c.tl.active)).Msg("column live")
	return nil
}

// fallbackLocked handles policy errors by re-resolving permitted variants and
// switching to a default one when the current variant is no longer allowed.
func (c *Controller) fallbackLocked(ctx context.Context, err error, depth int) (bool, error) {
	if !IsPolicy(err) || c.resolve == nil || depth > 0 {
		return false, nil
	}
	permitted, rerr := c.resolve(ctx)
	if rerr != nil || len(permitted) == 0 {
		return false, nil
	}
	for _, v := range permitted {
		if v == c.cfg.Variant {
			return false, nil
		}
	}
	c.log.Info().
		Str("from", string(c.cfg.Variant)).
		Str("to", string(permitted[0])).
		Msg("variant no longer permitted, falling back")
	c.teardownLocked()
	c.co.Reset()
	c.tl.clear()
	c.cfg.Variant = permitted[0]
	c.cfg.FeedKey = string(permitted[0])
	return true, c.connectLocked(ctx, false, depth+1)
}

// Disconnect tears down the live subscription and all captures. Idempotent;
// displayed content is kept.
func (c *Controller) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.co.Reset()
	c.state = StateDisconnected
}

func (c *Controller) teardownLocked() {
	if c.sub != nil {
		c.sub.Dispose()
		c.sub = nil
	}
	c.captures.Cleanup()
}

// SwitchVariant disconnects, clears all column state, and reconnects on the
// new variant.
func (c *Controller) SwitchVariant(ctx context.Context, v Variant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.teardownLocked()
	c.co.Reset()
	c.tl.clear()
	c.cfg.Variant = v
	c.cfg.FeedKey = string(v)
	return c.connectLocked(ctx, false, 0)
}

// LoadMore pages backward from the oldest displayed note and appends to the
// tail. Explicit history growth is exempt from the item cap.
func (c *Controller) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	page, err := c.transport.FetchPage(ctx, c.cfg.Variant, FetchOptions{
		UntilID: c.tl.oldestID(),
		Limit:   c.cfg.FetchLimit,
		Filters: c.cfg.Filters,
	})
	if err != nil {
		if len(c.tl.active) == 0 {
			c.lastErr = err
			return err
		}
		c.warn = err
		return nil
	}
	if n := c.tl.appendActive(page); n > 0 {
		c.log.Debug().Int("notes", n).Msg("paged backward")
	}
	return nil
}

// Resume runs the reconnect differential sync: re-read the cache, prepend
// unseen notes, then one differential fetch against the newest id. Both steps
// are best-effort and never replace existing state with an error. Rate-limited
// to once per resume window.
func (c *Controller) Resume(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.cfg.Clock()
	if now.Sub(c.lastResume) < c.cfg.ResumeWindow {
		return
	}
	c.lastResume = now

	if c.cache != nil {
		if cached, err := c.cache.LoadCached(ctx, c.cfg.FeedKey, c.cfg.MaxItems); err != nil {
			c.log.Debug().Err(err).Msg("resume cache load failed")
		} else {
			c.tl.prependActive(cached)
		}
	}

	page, err := c.transport.FetchPage(ctx, c.cfg.Variant, FetchOptions{
		SinceID: c.tl.newestID(),
		Limit:   c.cfg.FetchLimit,
		Filters: c.cfg.Filters,
	})
	if err != nil {
		c.log.Debug().Err(err).Msg("resume fetch failed")
		return
	}
	if n := c.tl.prependActive(page); n > 0 {
		c.log.Debug().Int("notes", n).Msg("resume merged")
	}
}

// SetViewportAtTop tells the coalescer where live arrivals should land.
func (c *Controller) SetViewportAtTop(atTop bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.atTop = atTop
}

// ScrollToTop releases held-back arrivals into the active sequence. Invoked
// when the user scrolls to the top or taps the pending-count affordance.
func (c *Controller) ScrollToTop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.atTop = true
	if n := c.tl.flushPending(); n > 0 {
		c.log.Debug().Int("notes", n).Msg("pending released")
	}
}

// SyncCaptures reconciles targeted mutation subscriptions against the notes
// the render layer currently shows.
func (c *Controller) SyncCaptures(visible []*Note) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.captures.Sync(visible)
}

// Notes returns a snapshot of the active sequence, newest first. Notes are
// immutable; callers may hold the returned pointers across updates and use
// pointer equality for change detection.
func (c *Controller) Notes() []*Note {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Note(nil), c.tl.active...)
}

// PendingCount reports how many live arrivals are held back for the "N new
// notes" affordance.
func (c *Controller) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tl.pending)
}

// State returns the connection state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the fatal error that left the column empty, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Warning returns the last non-fatal error recorded while content stayed up.
func (c *Controller) Warning() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.warn
}

// onNote receives live arrivals from the subscription.
func (c *Controller) onNote(n *Note) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.co.Enqueue(n)
}

// onMutation receives mutation events from both the channel subscription and
// per-note captures.
func (c *Controller) onMutation(ev MutationEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tl.apply(ev, c.cfg.LocalUserID)
}

func (c *Controller) saveCacheLocked(ctx context.Context) {
	if c.cache == nil || len(c.tl.active) == 0 {
		return
	}
	head := c.tl.active
	if len(head) > c.cfg.FetchLimit {
		head = head[:c.cfg.FetchLimit]
	}
	if err := c.cache.Save(ctx, c.cfg.FeedKey, head); err != nil {
		c.log.Debug().Err(err).Msg("cache save failed")
	}
}
