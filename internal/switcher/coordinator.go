// Package switcher coordinates segment switches. A Coordinator owns the
// runtime state (active segment, connection handle, applied theme) and runs
// every mutating request on a single goroutine in arrival order, so two
// switches never interleave.
package switcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/litescript/ls-segment-switch/internal/catalog"
	"github.com/litescript/ls-segment-switch/internal/connection"
	"github.com/litescript/ls-segment-switch/internal/theme"
)

const tracerName = "github.com/litescript/ls-segment-switch/internal/switcher"

// Connector opens and releases backend handles. *connection.Router
// implements it.
type Connector interface {
	Connect(ctx context.Context, segment catalog.SegmentID) (connection.Result, error)
	Release(h *connection.Handle)
}

// Persister stores committed results. *store.Settings implements it.
type Persister interface {
	ActiveSegment(ctx context.Context) (catalog.SegmentID, bool, error)
	Theme(ctx context.Context) (theme.Preference, bool, error)
	Commit(ctx context.Context, segment catalog.SegmentID, pref theme.Preference) error
}

// Options configures a Coordinator. Zero values pick defaults.
type Options struct {
	Surface    theme.Surface
	Notifier   Notifier
	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Tracer     trace.Tracer

	// DefaultSegment is used when nothing usable is stored.
	DefaultSegment catalog.SegmentID
	// OverridesDir holds the user's theme override files.
	OverridesDir string
	// ConnectOnStart connects the restored segment during New.
	ConnectOnStart bool
	QueueSize      int
}

type requestKind int

const (
	reqSwitch requestKind = iota
	reqVisual
	reqPromote
	reqReload
)

type request struct {
	ctx    context.Context
	kind   requestKind
	target catalog.SegmentID
	pref   *theme.Preference
	item   string
	done   chan error
}

// Coordinator is the only writer of RuntimeState.
type Coordinator struct {
	persister    Persister
	connector    Connector
	surface      theme.Surface
	notifier     Notifier
	logger       *slog.Logger
	tracer       trace.Tracer
	metrics      *metrics
	overridesDir string

	// Owned by the loop goroutine.
	overrides theme.Overrides
	explicit  bool

	mu    sync.RWMutex
	state RuntimeState
	phase Phase

	queue   chan request
	pending atomic.Int64
	subs    subscribers

	closeMu   sync.RWMutex
	closed    bool
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New restores the runtime state from persister, applies the restored theme
// to the surface and starts the request loop.
//
// A missing, unreadable or unknown stored segment falls back to the default
// segment; a stored theme is only trusted together with its segment.
func New(ctx context.Context, persister Persister, connector Connector, opts Options) (*Coordinator, error) {
	if persister == nil || connector == nil {
		return nil, errors.New("switcher: persister and connector are required")
	}
	c := &Coordinator{
		persister:    persister,
		connector:    connector,
		surface:      opts.Surface,
		notifier:     opts.Notifier,
		logger:       opts.Logger,
		tracer:       opts.Tracer,
		metrics:      newMetrics(opts.Registerer),
		overridesDir: opts.OverridesDir,
		phase:        PhaseIdle,
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	if c.surface == nil {
		c.surface = theme.NewDocument()
	}
	if c.notifier == nil {
		c.notifier = discardNotifier{}
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	size := opts.QueueSize
	if size <= 0 {
		size = 64
	}
	c.queue = make(chan request, size)

	fallback := opts.DefaultSegment
	if !catalog.Contains(fallback) {
		if fallback != "" {
			c.logger.Warn("configured default segment unknown", "segment", string(fallback))
		}
		fallback = catalog.DefaultSegment
	}

	overrides, err := theme.LoadOverrides(c.overridesDir)
	if err != nil {
		c.logger.Warn("theme overrides ignored", "dir", c.overridesDir, "err", err)
		c.notifier.Notify(KindWarning, "Theme overrides ignored: "+err.Error())
		overrides = theme.Overrides{}
	}
	c.overrides = overrides

	segment, pref, explicit := c.restore(ctx, fallback)
	if err := theme.Apply(c.surface, pref); err != nil {
		return nil, fmt.Errorf("apply restored theme: %w", err)
	}
	c.state = RuntimeState{ActiveSegment: segment, AppliedTheme: pref}
	c.explicit = explicit
	c.logger.Info("runtime state restored", "segment", string(segment), "explicit_theme", explicit)

	if opts.ConnectOnStart {
		c.connectRestored(ctx)
	}

	go c.loop()
	return c, nil
}

func (c *Coordinator) restore(ctx context.Context, fallback catalog.SegmentID) (catalog.SegmentID, theme.Preference, bool) {
	segment, ok, err := c.persister.ActiveSegment(ctx)
	trustTheme := err == nil && ok
	if err != nil {
		c.logger.Warn("stored segment unreadable, using default", "default", string(fallback), "err", err)
		c.notifier.Notify(KindWarning, fmt.Sprintf("Stored settings unreadable, starting with %s", fallback))
	}
	if !trustTheme {
		segment = fallback
	}

	resolved := c.resolveDefault(segment)
	if !trustTheme {
		return segment, resolved, false
	}

	stored, ok, err := c.persister.Theme(ctx)
	switch {
	case err != nil:
		c.logger.Warn("stored theme unreadable, using segment default", "segment", string(segment), "err", err)
		c.notifier.Notify(KindWarning, "Stored theme unreadable, using the segment default")
		return segment, resolved, false
	case !ok:
		return segment, resolved, false
	default:
		return segment, stored, !stored.Equal(resolved)
	}
}

// resolveDefault layers the user's overrides onto the catalog default.
// Invalid override fields are logged and skipped.
func (c *Coordinator) resolveDefault(segment catalog.SegmentID) theme.Preference {
	pref, warn, err := c.resolveWithWarning(segment)
	if err != nil {
		c.logger.Warn("segment has no catalog theme, using default", "segment", string(segment), "err", err)
		pref, warn, _ = c.resolveWithWarning(catalog.DefaultSegment)
	}
	if warn != nil {
		c.logger.Warn("invalid theme override fields skipped", "segment", string(segment), "err", warn)
	}
	return pref
}

// resolveWithWarning returns the resolved theme of segment. warn reports
// skipped override fields; err is set only for a segment outside the catalog.
func (c *Coordinator) resolveWithWarning(segment catalog.SegmentID) (pref theme.Preference, warn, err error) {
	def, err := catalog.DefinitionOf(segment)
	if err != nil {
		return theme.Preference{}, nil, err
	}
	pref, warn = c.overrides.Resolve(string(segment), def.DefaultTheme)
	return pref.Normalized(), warn, nil
}

func (c *Coordinator) connectRestored(ctx context.Context) {
	segment := c.state.ActiveSegment
	res, err := c.connector.Connect(ctx, segment)
	if err != nil {
		c.logger.Info("restored segment not connected", "segment", string(segment), "err", err)
		return
	}
	c.state.Handle = res.Handle
	if res.Warning != nil {
		c.notifier.Notify(KindWarning, res.Warning.Error())
	}
}

// Policy reports how overlapping requests are ordered.
func (c *Coordinator) Policy() Policy { return PolicyFIFO }

// ActiveSegment returns the committed segment.
func (c *Coordinator) ActiveSegment() catalog.SegmentID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.ActiveSegment
}

// VisualPreferences returns a copy of the applied theme.
func (c *Coordinator) VisualPreferences() theme.Preference {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.AppliedTheme.Clone()
}

// Snapshot returns a copy of the runtime state.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.snapshot(c.phase, int(c.pending.Load()))
}

// ModulesForSegment returns the catalog module list of id.
func (c *Coordinator) ModulesForSegment(id catalog.SegmentID) ([]catalog.ModuleCode, error) {
	return catalog.ModulesFor(id)
}

// ActiveModules returns the active segment's modules arranged by the
// applied layout priorities.
func (c *Coordinator) ActiveModules() []catalog.ModuleCode {
	c.mu.RLock()
	segment := c.state.ActiveSegment
	priorities := c.state.AppliedTheme.LayoutPriorities
	c.mu.RUnlock()

	mods, err := catalog.ModulesFor(segment)
	if err != nil {
		return nil
	}
	return catalog.ArrangeModules(mods, priorities)
}

// Subscribe returns a channel of events and a function that cancels the
// subscription. Events are dropped for a subscriber whose buffer is full.
func (c *Coordinator) Subscribe(buffer int) (<-chan Event, func()) {
	return c.subs.add(buffer)
}

// SwitchSegment makes target the active segment. override, when non-nil,
// replaces the target's default theme.
//
// It returns nil once the switch has committed, including when the probe
// or the persistence write produced a warning. Fatal outcomes leave the
// runtime state untouched: *catalog.UnknownSegmentError,
// *theme.InvalidColorError (bad override), *connection.MissingConfigError,
// and *RolledBackError when ctx is cancelled before the commit.
func (c *Coordinator) SwitchSegment(ctx context.Context, target catalog.SegmentID, override *theme.Preference) error {
	var pref *theme.Preference
	if override != nil {
		p := override.Clone()
		pref = &p
	}
	return c.submit(request{ctx: ctx, kind: reqSwitch, target: target, pref: pref})
}

// SetVisualPreferences applies and persists pref for the active segment.
func (c *Coordinator) SetVisualPreferences(ctx context.Context, pref theme.Preference) error {
	p := pref.Clone()
	return c.submit(request{ctx: ctx, kind: reqVisual, pref: &p})
}

// PromoteLayout moves item to the front of the applied layout priorities
// and persists the result.
func (c *Coordinator) PromoteLayout(ctx context.Context, item string) error {
	return c.submit(request{ctx: ctx, kind: reqPromote, item: item})
}

// Reload re-reads the theme override files. Unless the user has chosen an
// explicit theme, the active segment's theme is re-resolved and applied.
func (c *Coordinator) Reload(ctx context.Context) error {
	return c.submit(request{ctx: ctx, kind: reqReload})
}

func (c *Coordinator) submit(req request) error {
	if req.ctx == nil {
		req.ctx = context.Background()
	}
	req.done = make(chan error, 1)

	c.closeMu.RLock()
	if c.closed {
		c.closeMu.RUnlock()
		return ErrClosed
	}
	c.setPending(c.pending.Add(1))
	select {
	case c.queue <- req:
		c.closeMu.RUnlock()
	case <-req.ctx.Done():
		c.setPending(c.pending.Add(-1))
		c.closeMu.RUnlock()
		// rollback touches no loop-owned state, so it may run here.
		a := c.startAttempt(req)
		defer a.span.End()
		return c.rollback(a, PhaseQueued, req.ctx.Err())
	}
	return <-req.done
}

func (c *Coordinator) setPending(n int64) {
	c.metrics.queueDepth.Set(float64(n))
}

// Close stops the loop, fails queued requests with ErrClosed and releases
// the active handle. Close is idempotent.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		c.closeMu.Lock()
		c.closed = true
		c.closeMu.Unlock()

		close(c.quit)
		<-c.done

		c.mu.Lock()
		h := c.state.Handle
		c.state.Handle = nil
		c.mu.Unlock()
		c.connector.Release(h)
		c.subs.closeAll()
	})
	return nil
}

func (c *Coordinator) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.quit:
			for {
				select {
				case req := <-c.queue:
					c.setPending(c.pending.Add(-1))
					req.done <- ErrClosed
				default:
					return
				}
			}
		case req := <-c.queue:
			c.setPending(c.pending.Add(-1))
			req.done <- c.dispatch(req)
		}
	}
}

func (c *Coordinator) dispatch(req request) error {
	switch req.kind {
	case reqSwitch:
		return c.runSwitch(req)
	case reqVisual:
		return c.runVisual(req)
	case reqPromote:
		return c.runPromote(req)
	case reqReload:
		return c.runReload(req)
	default:
		return fmt.Errorf("switcher: unknown request kind %d", req.kind)
	}
}

type attempt struct {
	id        string
	switching bool
	target    catalog.SegmentID
	ctx       context.Context
	span      trace.Span
	log       *slog.Logger
	started   time.Time
}

func (c *Coordinator) runSwitch(req request) error {
	a := c.startAttempt(req)
	defer a.span.End()

	if err := a.ctx.Err(); err != nil {
		return c.rollback(a, PhaseQueued, err)
	}

	c.mu.Lock()
	c.state.SwitchInProgress = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.state.SwitchInProgress = false
		c.phase = PhaseIdle
		c.mu.Unlock()
	}()

	c.enter(a, PhaseValidating)
	def, err := catalog.DefinitionOf(a.target)
	if err != nil {
		return c.fail(a, err)
	}
	var explicit *theme.Preference
	if req.pref != nil {
		p := req.pref.Normalized()
		if err := p.Validate(); err != nil {
			return c.fail(a, fmt.Errorf("theme override: %w", err))
		}
		explicit = &p
	}

	c.enter(a, PhaseConnecting)
	res, err := c.connector.Connect(a.ctx, a.target)
	if err != nil {
		if a.ctx.Err() != nil {
			return c.rollback(a, PhaseConnecting, err)
		}
		return c.fail(a, err)
	}

	c.enter(a, PhaseTheming)
	if err := a.ctx.Err(); err != nil {
		c.connector.Release(res.Handle)
		return c.rollback(a, PhaseTheming, err)
	}
	var warnings []error
	if res.Warning != nil {
		warnings = append(warnings, res.Warning)
	}
	var pref theme.Preference
	if explicit != nil {
		pref = *explicit
	} else {
		p, warn, err := c.resolveWithWarning(a.target)
		if err != nil {
			c.connector.Release(res.Handle)
			return c.fail(a, err)
		}
		if warn != nil {
			warnings = append(warnings, fmt.Errorf("theme overrides for %s: %w", a.target, warn))
		}
		pref = p
	}
	if err := theme.Apply(c.surface, pref); err != nil {
		c.connector.Release(res.Handle)
		return c.fail(a, err)
	}

	c.enter(a, PhaseCommitting)
	c.mu.Lock()
	prev := c.state.Handle
	c.state.ActiveSegment = a.target
	c.state.Handle = res.Handle
	c.state.AppliedTheme = pref.Clone()
	c.mu.Unlock()
	c.explicit = explicit != nil
	if prev != nil && prev != res.Handle {
		c.connector.Release(prev)
	}

	// The in-memory commit stands even if the write fails.
	if err := c.persister.Commit(context.WithoutCancel(a.ctx), a.target, pref); err != nil {
		warnings = append(warnings, fmt.Errorf("settings not saved: %w", err))
	}

	c.succeed(a, fmt.Sprintf("Switched to %s", def.DisplayName), EventCommitted, warnings)
	return nil
}

// runVisual, runPromote and runReload change the applied theme of the
// active segment without touching the connection.
func (c *Coordinator) runVisual(req request) error {
	a := c.startAttempt(req)
	defer a.span.End()
	if err := a.ctx.Err(); err != nil {
		return c.rollback(a, PhaseQueued, err)
	}

	pref := req.pref.Normalized()
	if err := pref.Validate(); err != nil {
		return c.fail(a, err)
	}
	return c.applyTheme(a, pref, true, "Theme updated", nil)
}

func (c *Coordinator) runPromote(req request) error {
	a := c.startAttempt(req)
	defer a.span.End()
	if err := a.ctx.Err(); err != nil {
		return c.rollback(a, PhaseQueued, err)
	}

	item := strings.TrimSpace(req.item)
	if item == "" {
		return c.fail(a, errors.New("layout item is empty"))
	}
	pref := c.VisualPreferences()
	pref.LayoutPriorities = theme.ReorderLayoutPriorities(pref.LayoutPriorities, item)
	return c.applyTheme(a, pref, true, fmt.Sprintf("Moved %s to the front", item), nil)
}

func (c *Coordinator) runReload(req request) error {
	a := c.startAttempt(req)
	defer a.span.End()
	if err := a.ctx.Err(); err != nil {
		return c.rollback(a, PhaseQueued, err)
	}

	overrides, err := theme.LoadOverrides(c.overridesDir)
	if err != nil {
		return c.fail(a, fmt.Errorf("reload theme overrides: %w", err))
	}
	c.overrides = overrides

	if c.explicit {
		c.succeed(a, "Theme overrides reloaded", EventTheme, nil)
		return nil
	}
	pref, warn, err := c.resolveWithWarning(a.target)
	if err != nil {
		return c.fail(a, err)
	}
	var warnings []error
	if warn != nil {
		warnings = append(warnings, fmt.Errorf("theme overrides for %s: %w", a.target, warn))
	}
	return c.applyTheme(a, pref, false, "Theme overrides reloaded", warnings)
}

func (c *Coordinator) applyTheme(a *attempt, pref theme.Preference, explicit bool, message string, warnings []error) error {
	if err := theme.Apply(c.surface, pref); err != nil {
		return c.fail(a, err)
	}
	c.mu.Lock()
	c.state.AppliedTheme = pref.Clone()
	c.mu.Unlock()
	c.explicit = explicit

	if err := c.persister.Commit(context.WithoutCancel(a.ctx), a.target, pref); err != nil {
		warnings = append(warnings, fmt.Errorf("settings not saved: %w", err))
	}
	c.succeed(a, message, EventTheme, warnings)
	return nil
}

func (c *Coordinator) startAttempt(req request) *attempt {
	target := req.target
	name := "segment.switch"
	if req.kind != reqSwitch {
		target = c.ActiveSegment()
		name = "segment.theme"
	}
	id := uuid.NewString()
	ctx, span := c.tracer.Start(req.ctx, name, trace.WithAttributes(
		attribute.String("switch.attempt", id),
		attribute.String("segment.target", string(target)),
	))
	return &attempt{
		id:        id,
		switching: req.kind == reqSwitch,
		target:    target,
		ctx:       ctx,
		span:      span,
		log:       c.logger.With("attempt", id, "segment", string(target)),
		started:   time.Now(),
	}
}

func (c *Coordinator) enter(a *attempt, phase Phase) {
	c.mu.Lock()
	c.phase = phase
	c.mu.Unlock()

	a.span.AddEvent("phase", trace.WithAttributes(attribute.String("phase", string(phase))))
	a.log.Debug("switch phase", "phase", string(phase))
	c.publish(Event{Attempt: a.id, Kind: EventPhase, Phase: phase, Segment: a.target})
}

func (c *Coordinator) succeed(a *attempt, message string, kind EventKind, warnings []error) {
	warning := errors.Join(warnings...)
	outcome := OutcomeSuccess
	if warning != nil {
		outcome = OutcomeWarning
		a.span.SetAttributes(attribute.Bool("switch.warning", true))
		a.span.AddEvent("warning", trace.WithAttributes(attribute.String("warning", warningText(warnings))))
		a.log.Warn("committed with warnings", "warning", warningText(warnings))
	} else {
		a.log.Info("committed")
	}
	c.observe(a, outcome)
	a.span.SetStatus(codes.Ok, "")

	c.notifier.Notify(KindInfo, message)
	if warning != nil {
		c.notifier.Notify(KindWarning, warningText(warnings))
	}
	c.publish(Event{Attempt: a.id, Kind: kind, Phase: PhaseIdle, Segment: a.target, Warning: warning})
}

func (c *Coordinator) fail(a *attempt, err error) error {
	c.mu.RLock()
	phase := c.phase
	c.mu.RUnlock()

	a.span.RecordError(err)
	a.span.SetStatus(codes.Error, err.Error())
	a.log.Warn("request failed", "phase", string(phase), "err", err)
	c.observe(a, OutcomeFailed)

	if a.switching {
		c.notifier.Notify(KindError, fmt.Sprintf("Cannot switch to %s: %v", a.target, err))
	} else {
		c.notifier.Notify(KindError, fmt.Sprintf("Theme not updated: %v", err))
	}
	c.publish(Event{Attempt: a.id, Kind: EventFailed, Phase: phase, Segment: a.target, Err: err})
	return err
}

func (c *Coordinator) rollback(a *attempt, phase Phase, cause error) error {
	err := &RolledBackError{Phase: phase, Err: cause}

	a.span.RecordError(err)
	a.span.SetStatus(codes.Error, "rolled back")
	a.log.Info("request rolled back", "phase", string(phase), "err", cause)
	c.observe(a, OutcomeRolledBack)

	if a.switching {
		c.notifier.Notify(KindError, fmt.Sprintf("Switch to %s cancelled", a.target))
	} else {
		c.notifier.Notify(KindError, "Theme update cancelled")
	}
	c.publish(Event{Attempt: a.id, Kind: EventRolledBack, Phase: PhaseRolledBack, Segment: a.target, Err: err})
	return err
}

func (c *Coordinator) publish(ev Event) {
	ev.At = time.Now()
	if dropped := c.subs.publish(ev); dropped > 0 {
		c.logger.Debug("event dropped for slow subscribers", "kind", string(ev.Kind), "dropped", dropped)
	}
}

// observe records switch metrics. Theme-only requests are not counted.
func (c *Coordinator) observe(a *attempt, outcome string) {
	if !a.switching {
		return
	}
	c.metrics.switches.WithLabelValues(outcome).Inc()
	c.metrics.duration.Observe(time.Since(a.started).Seconds())
}

func warningText(warnings []error) string {
	parts := make([]string, 0, len(warnings))
	for _, w := range warnings {
		if w != nil {
			parts = append(parts, w.Error())
		}
	}
	return strings.Join(parts, "; ")
}
