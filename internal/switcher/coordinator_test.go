package switcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/litescript/ls-segment-switch/internal/catalog"
	"github.com/litescript/ls-segment-switch/internal/connection"
	"github.com/litescript/ls-segment-switch/internal/store"
	"github.com/litescript/ls-segment-switch/internal/theme"
)

type note struct {
	kind    Kind
	message string
}

type recorder struct {
	mu    sync.Mutex
	notes []note
}

func (r *recorder) Notify(kind Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, note{kind, message})
}

// take returns the notifications recorded so far and forgets them.
func (r *recorder) take() []note {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.notes
	r.notes = nil
	return out
}

func kinds(notes []note) []Kind {
	out := make([]Kind, len(notes))
	for i, n := range notes {
		out[i] = n.kind
	}
	return out
}

type harness struct {
	t        *testing.T
	mem      *store.MemoryStore
	settings *store.Settings
	router   *connection.Router
	doc      *theme.Document
	notes    *recorder
	reg      *prometheus.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := store.NewMemoryStore()
	settings := store.NewSettings(mem)
	return &harness{
		t:        t,
		mem:      mem,
		settings: settings,
		router:   connection.NewRouter(settings, connection.Options{Registerer: prometheus.NewRegistry()}),
		doc:      theme.NewDocument(),
		notes:    &recorder{},
		reg:      prometheus.NewRegistry(),
	}
}

func (h *harness) backend(status int) string {
	h.t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	h.t.Cleanup(srv.Close)
	return srv.URL
}

// blockingBackend answers only after release is closed or the request is
// abandoned by the client.
func (h *harness) blockingBackend(release <-chan struct{}) string {
	h.t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
		}
	}))
	h.t.Cleanup(srv.Close)
	return srv.URL
}

func (h *harness) provision(segment catalog.SegmentID, endpoint string) {
	h.t.Helper()
	require.NoError(h.t, h.settings.PutConnectionConfig(context.Background(), connection.Config{
		Segment:     segment,
		EndpointURL: endpoint,
		Credential:  "anon",
	}))
}

func (h *harness) start(opts Options) *Coordinator {
	return h.startWith(h.settings, opts)
}

func (h *harness) startWith(p Persister, opts Options) *Coordinator {
	h.t.Helper()
	opts.Surface = h.doc
	opts.Notifier = h.notes
	opts.Registerer = h.reg
	c, err := New(context.Background(), p, h.router, opts)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = c.Close() })
	return c
}

func (h *harness) dump() map[string]string {
	h.t.Helper()
	d, err := h.settings.Dump(context.Background())
	require.NoError(h.t, err)
	return d
}

func defaultTheme(t *testing.T, id catalog.SegmentID) theme.Preference {
	t.Helper()
	def, err := catalog.DefinitionOf(id)
	require.NoError(t, err)
	return def.DefaultTheme
}

func waitFor(t *testing.T, events <-chan Event, match func(Event) bool) Event {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "event stream closed")
			if match(ev) {
				return ev
			}
		case <-timeout:
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestNewStartsFromDefaultSegment(t *testing.T) {
	h := newHarness(t)
	c := h.start(Options{})

	snap := c.Snapshot()
	require.Equal(t, catalog.DefaultSegment, snap.ActiveSegment)
	require.False(t, snap.Connected())
	require.False(t, snap.SwitchInProgress)
	require.Equal(t, PhaseIdle, snap.Phase)
	require.Equal(t, defaultTheme(t, catalog.DefaultSegment), snap.AppliedTheme)
	require.Equal(t, "#7C3AED", h.doc.Var(theme.VarPrimaryHex))
	require.Equal(t, PolicyFIFO, c.Policy())
	require.Empty(t, h.notes.take())
}

func TestNewRestoresCommittedState(t *testing.T) {
	h := newHarness(t)
	custom := defaultTheme(t, "agro")
	custom.PrimaryColor = "#0891B2"
	require.NoError(t, h.settings.Commit(context.Background(), "agro", custom))

	c := h.start(Options{})
	require.Equal(t, catalog.SegmentID("agro"), c.ActiveSegment())
	require.Equal(t, custom, c.VisualPreferences())
	require.Equal(t, "192 91% 36%", h.doc.Var(theme.VarPrimaryHSL))
}

func TestNewFallsBackOnCorruptStore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.mem.Set(ctx, store.KeyActiveSegment, "aerospace"))
	require.NoError(t, h.mem.Set(ctx, store.KeyThemePrimaryColor, "#000000"))

	c := h.start(Options{DefaultSegment: "services"})
	require.Equal(t, catalog.SegmentID("services"), c.ActiveSegment())
	require.Equal(t, defaultTheme(t, "services"), c.VisualPreferences())
	require.Equal(t, []Kind{KindWarning}, kinds(h.notes.take()))
}

func TestNewIgnoresUnreadableStoredTheme(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.mem.Set(ctx, store.KeyActiveSegment, "food"))
	require.NoError(t, h.mem.Set(ctx, store.KeyThemePrimaryColor, "tomato"))

	c := h.start(Options{})
	require.Equal(t, catalog.SegmentID("food"), c.ActiveSegment())
	require.Equal(t, defaultTheme(t, "food"), c.VisualPreferences())
	require.Equal(t, []Kind{KindWarning}, kinds(h.notes.take()))
}

func TestNewConnectOnStart(t *testing.T) {
	h := newHarness(t)
	h.provision("generic", h.backend(http.StatusOK))

	c := h.start(Options{ConnectOnStart: true})
	require.True(t, c.Snapshot().Connected())
	require.Equal(t, 1, h.router.Table().Len())

	require.NoError(t, c.Close())
	require.Zero(t, h.router.Table().Len())
}

func TestSwitchCommitsAndPersists(t *testing.T) {
	h := newHarness(t)
	h.provision("agro", h.backend(http.StatusNotFound))
	c := h.start(Options{})

	require.NoError(t, c.SwitchSegment(context.Background(), "agro", nil))

	snap := c.Snapshot()
	require.Equal(t, catalog.SegmentID("agro"), snap.ActiveSegment)
	require.True(t, snap.Connected())
	require.Equal(t, defaultTheme(t, "agro"), snap.AppliedTheme)
	require.Equal(t, "#16A34A", h.doc.Var(theme.VarPrimaryHex))
	require.Equal(t, "142 76% 36%", h.doc.Var(theme.VarPrimaryHSL))
	require.Contains(t, h.doc.Snapshot().Classes, "font-serif")

	d := h.dump()
	require.Equal(t, "agro", d[store.KeyActiveSegment])
	require.Equal(t, "#16A34A", d[store.KeyThemePrimaryColor])
	require.JSONEq(t, `["harvest","fields","finances","dashboard"]`, d[store.KeyThemeLayoutPriorities])

	notes := h.notes.take()
	require.Equal(t, []note{{KindInfo, "Switched to Agribusiness"}}, notes)
	require.Equal(t, 1.0, testutil.ToFloat64(c.metrics.switches.WithLabelValues(OutcomeSuccess)))
}

func TestSwitchWithoutConfigLeavesStateUntouched(t *testing.T) {
	h := newHarness(t)
	h.provision("generic", h.backend(http.StatusOK))
	c := h.start(Options{ConnectOnStart: true})
	h.notes.take()

	beforeState := c.Snapshot()
	beforeStore := h.dump()
	beforeSurface := h.doc.Snapshot()

	err := c.SwitchSegment(context.Background(), "education", nil)
	var missing *connection.MissingConfigError
	require.True(t, errors.As(err, &missing))
	require.Equal(t, catalog.SegmentID("education"), missing.Segment)

	require.Equal(t, beforeState, c.Snapshot())
	require.Equal(t, beforeStore, h.dump())
	require.Equal(t, beforeSurface, h.doc.Snapshot())
	require.Equal(t, 1, h.router.Table().Len())
	require.Equal(t, []Kind{KindError}, kinds(h.notes.take()))
	require.Equal(t, 1.0, testutil.ToFloat64(c.metrics.switches.WithLabelValues(OutcomeFailed)))
}

func TestSwitchUnknownSegment(t *testing.T) {
	h := newHarness(t)
	c := h.start(Options{})
	before := c.Snapshot()

	err := c.SwitchSegment(context.Background(), "not-a-segment", nil)
	require.ErrorIs(t, err, catalog.ErrUnknownSegment)
	require.Equal(t, before, c.Snapshot())
	require.Equal(t, []Kind{KindError}, kinds(h.notes.take()))
}

func TestSwitchRejectsInvalidOverride(t *testing.T) {
	h := newHarness(t)
	h.provision("agro", h.backend(http.StatusOK))
	c := h.start(Options{})
	before := c.Snapshot()

	bad := defaultTheme(t, "agro")
	bad.SecondaryColor = "#GGGGGG"
	err := c.SwitchSegment(context.Background(), "agro", &bad)

	var colorErr *theme.InvalidColorError
	require.True(t, errors.As(err, &colorErr))
	require.Equal(t, before, c.Snapshot())
	require.Zero(t, h.router.Table().Len(), "no connection is attempted for a rejected override")
}

func TestSwitchWithOverrideAppliesIt(t *testing.T) {
	h := newHarness(t)
	h.provision("health", h.backend(http.StatusOK))
	c := h.start(Options{})

	override := theme.Preference{
		PrimaryColor:     "#db2777",
		SecondaryColor:   "#4F46E5",
		Typography:       "sans",
		IconStyle:        theme.IconDuotone,
		LayoutPriorities: []string{"patients", "patients", "dashboard"},
	}
	require.NoError(t, c.SwitchSegment(context.Background(), "health", &override))

	got := c.VisualPreferences()
	require.Equal(t, "#DB2777", got.PrimaryColor)
	require.Equal(t, theme.TypographySans, got.Typography)
	require.Equal(t, []string{"patients", "dashboard"}, got.LayoutPriorities)
	require.Equal(t, "333 71% 51%", h.doc.Var(theme.VarPrimaryHSL))
	require.Equal(t, []catalog.ModuleCode{"patients", "dashboard", "appointments", "finances", "reports", "settings"}, c.ActiveModules())
}

func TestSwitchAuthFailureStillCommits(t *testing.T) {
	h := newHarness(t)
	h.provision("ecommerce", h.backend(http.StatusUnauthorized))
	c := h.start(Options{})

	require.NoError(t, c.SwitchSegment(context.Background(), "ecommerce", nil))
	require.Equal(t, catalog.SegmentID("ecommerce"), c.ActiveSegment())
	require.True(t, c.Snapshot().Connected())

	notes := h.notes.take()
	require.Equal(t, []Kind{KindInfo, KindWarning}, kinds(notes))
	require.Contains(t, notes[1].message, "credential rejected")
	require.Equal(t, 1.0, testutil.ToFloat64(c.metrics.switches.WithLabelValues(OutcomeWarning)))
}

func TestSwitchTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t)
	h.provision("food", h.backend(http.StatusOK))
	c := h.start(Options{})

	require.NoError(t, c.SwitchSegment(context.Background(), "food", nil))
	first := c.Snapshot()
	firstStore := h.dump()

	require.NoError(t, c.SwitchSegment(context.Background(), "food", nil))
	second := c.Snapshot()

	// Each switch builds a fresh handle; everything else must match.
	require.NotEqual(t, first.HandleID, second.HandleID)
	first.HandleID, second.HandleID = "", ""
	require.Equal(t, first, second)
	require.Equal(t, firstStore, h.dump())
	require.Equal(t, 1, h.router.Table().Len(), "the previous handle is released")
}

func TestConcurrentSwitchesRunInArrivalOrder(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.provision("agro", h.blockingBackend(release))
	h.provision("food", h.backend(http.StatusOK))
	c := h.start(Options{})

	events, cancel := c.Subscribe(128)
	defer cancel()

	errs := make(chan error, 2)
	go func() { errs <- c.SwitchSegment(context.Background(), "agro", nil) }()
	waitFor(t, events, func(ev Event) bool {
		return ev.Segment == "agro" && ev.Phase == PhaseConnecting
	})

	go func() { errs <- c.SwitchSegment(context.Background(), "food", nil) }()
	require.Eventually(t, func() bool { return c.Snapshot().QueueDepth == 1 }, 5*time.Second, 5*time.Millisecond)

	mid := c.Snapshot()
	require.True(t, mid.SwitchInProgress)
	require.Equal(t, catalog.DefaultSegment, mid.ActiveSegment)

	close(release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	var committed []catalog.SegmentID
	for len(committed) < 2 {
		ev := waitFor(t, events, func(ev Event) bool { return ev.Kind == EventCommitted })
		committed = append(committed, ev.Segment)
	}
	require.Equal(t, []catalog.SegmentID{"agro", "food"}, committed)

	final := c.Snapshot()
	require.Equal(t, catalog.SegmentID("food"), final.ActiveSegment)
	require.Equal(t, defaultTheme(t, "food"), final.AppliedTheme)
	require.Equal(t, "#DC2626", h.doc.Var(theme.VarPrimaryHex))
	h2, ok := h.router.Table().Get(final.HandleID)
	require.True(t, ok)
	require.Equal(t, catalog.SegmentID("food"), h2.Segment())
	require.Equal(t, 1, h.router.Table().Len())
	require.Zero(t, final.QueueDepth)
}

func TestCancelDuringProbeRollsBack(t *testing.T) {
	h := newHarness(t)
	h.provision("agro", h.blockingBackend(make(chan struct{})))
	c := h.start(Options{})

	events, unsubscribe := c.Subscribe(64)
	defer unsubscribe()

	before := c.Snapshot()
	beforeStore := h.dump()
	beforeSurface := h.doc.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- c.SwitchSegment(ctx, "agro", nil) }()
	waitFor(t, events, func(ev Event) bool { return ev.Phase == PhaseConnecting })
	cancel()

	err := <-errs
	var rb *RolledBackError
	require.True(t, errors.As(err, &rb))
	require.Equal(t, PhaseConnecting, rb.Phase)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, ErrRolledBack)

	require.Equal(t, before, c.Snapshot())
	require.Equal(t, beforeStore, h.dump())
	require.Equal(t, beforeSurface, h.doc.Snapshot())
	require.Zero(t, h.router.Table().Len())
	require.Equal(t, []Kind{KindError}, kinds(h.notes.take()))

	ev := waitFor(t, events, func(ev Event) bool { return ev.Kind == EventRolledBack })
	require.Equal(t, PhaseRolledBack, ev.Phase)
}

func TestCancelledWhileQueued(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.provision("agro", h.blockingBackend(release))
	h.provision("food", h.backend(http.StatusOK))
	c := h.start(Options{})

	events, unsubscribe := c.Subscribe(64)
	defer unsubscribe()

	first := make(chan error, 1)
	go func() { first <- c.SwitchSegment(context.Background(), "agro", nil) }()
	waitFor(t, events, func(ev Event) bool { return ev.Phase == PhaseConnecting })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	second := make(chan error, 1)
	go func() { second <- c.SwitchSegment(ctx, "food", nil) }()

	close(release)
	require.NoError(t, <-first)

	err := <-second
	var rb *RolledBackError
	require.True(t, errors.As(err, &rb))
	require.Equal(t, PhaseQueued, rb.Phase)
	require.Equal(t, catalog.SegmentID("agro"), c.ActiveSegment())
}

func TestCancelWhileWaitingForQueueSlotNotifies(t *testing.T) {
	h := newHarness(t)
	release := make(chan struct{})
	h.provision("agro", h.blockingBackend(release))
	h.provision("food", h.backend(http.StatusOK))
	c := h.start(Options{QueueSize: 1})

	events, unsubscribe := c.Subscribe(64)
	defer unsubscribe()

	errs := make(chan error, 2)
	go func() { errs <- c.SwitchSegment(context.Background(), "agro", nil) }()
	waitFor(t, events, func(ev Event) bool {
		return ev.Segment == "agro" && ev.Phase == PhaseConnecting
	})
	go func() { errs <- c.SwitchSegment(context.Background(), "food", nil) }()
	require.Eventually(t, func() bool { return len(c.queue) == 1 }, 5*time.Second, 5*time.Millisecond)

	// the queue is full, so this request never reaches the loop
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := c.SwitchSegment(ctx, "health", nil)
	var rb *RolledBackError
	require.True(t, errors.As(err, &rb))
	require.Equal(t, PhaseQueued, rb.Phase)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	require.Equal(t, []note{{KindError, "Switch to health cancelled"}}, h.notes.take())
	require.Equal(t, 1.0, testutil.ToFloat64(c.metrics.switches.WithLabelValues(OutcomeRolledBack)))
	ev := waitFor(t, events, func(ev Event) bool { return ev.Kind == EventRolledBack })
	require.Equal(t, catalog.SegmentID("health"), ev.Segment)
	require.Equal(t, 1, c.Snapshot().QueueDepth)

	close(release)
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	require.Equal(t, catalog.SegmentID("food"), c.ActiveSegment())
	require.Equal(t, []Kind{KindInfo, KindInfo}, kinds(h.notes.take()))
}

type failingCommits struct {
	*store.Settings
	err error
}

func (f failingCommits) Commit(context.Context, catalog.SegmentID, theme.Preference) error {
	return f.err
}

func TestPersistenceFailureIsAWarning(t *testing.T) {
	h := newHarness(t)
	h.provision("agro", h.backend(http.StatusForbidden))
	diskFull := &store.PersistenceError{Op: "write", Err: errors.New("disk full")}
	c := h.startWith(failingCommits{Settings: h.settings, err: diskFull}, Options{})

	require.NoError(t, c.SwitchSegment(context.Background(), "agro", nil))
	require.Equal(t, catalog.SegmentID("agro"), c.ActiveSegment())

	notes := h.notes.take()
	require.Equal(t, []Kind{KindInfo, KindWarning}, kinds(notes))
	require.Contains(t, notes[1].message, "credential rejected")
	require.Contains(t, notes[1].message, "settings not saved")
	require.Contains(t, notes[1].message, "disk full")
}

func TestSetVisualPreferences(t *testing.T) {
	h := newHarness(t)
	c := h.start(Options{})

	pref := defaultTheme(t, catalog.DefaultSegment)
	pref.PrimaryColor = "#F97316"
	pref.Typography = theme.TypographyHandwritten
	require.NoError(t, c.SetVisualPreferences(context.Background(), pref))

	require.Equal(t, "#F97316", c.VisualPreferences().PrimaryColor)
	require.Equal(t, "25 95% 53%", h.doc.Var(theme.VarPrimaryHSL))
	require.Contains(t, h.doc.Snapshot().Classes, "font-handwritten")
	require.Equal(t, "#F97316", h.dump()[store.KeyThemePrimaryColor])
	require.Equal(t, []note{{KindInfo, "Theme updated"}}, h.notes.take())

	before := c.Snapshot()
	bad := pref
	bad.PrimaryColor = "orange"
	err := c.SetVisualPreferences(context.Background(), bad)
	var colorErr *theme.InvalidColorError
	require.True(t, errors.As(err, &colorErr))
	require.Equal(t, before, c.Snapshot())
	require.Equal(t, "#F97316", h.doc.Var(theme.VarPrimaryHex))
	require.Equal(t, []Kind{KindError}, kinds(h.notes.take()))
}

func TestPromoteLayout(t *testing.T) {
	h := newHarness(t)
	c := h.start(Options{})

	require.NoError(t, c.PromoteLayout(context.Background(), "finances"))
	require.Equal(t, []string{"finances", "dashboard", "goals"}, c.VisualPreferences().LayoutPriorities)
	require.JSONEq(t, `["finances","dashboard","goals"]`, h.dump()[store.KeyThemeLayoutPriorities])

	require.NoError(t, c.PromoteLayout(context.Background(), "reports"))
	require.Equal(t, []string{"reports", "finances", "dashboard", "goals"}, c.VisualPreferences().LayoutPriorities)
	require.Equal(t, []catalog.ModuleCode{"reports", "finances", "dashboard", "goals", "customers", "settings"}, c.ActiveModules())

	require.Error(t, c.PromoteLayout(context.Background(), "  "))
}

func TestReloadPicksUpOverrides(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	c := h.start(Options{OverridesDir: dir})
	require.Equal(t, "#7C3AED", c.VisualPreferences().PrimaryColor)

	require.NoError(t, os.WriteFile(filepath.Join(dir, theme.OverridesTOML),
		[]byte("[generic]\nprimary_color = \"#2563eb\"\n"), 0o644))
	require.NoError(t, c.Reload(context.Background()))

	require.Equal(t, "#2563EB", c.VisualPreferences().PrimaryColor)
	require.Equal(t, "221 83% 53%", h.doc.Var(theme.VarPrimaryHSL))
	require.Equal(t, []note{{KindInfo, "Theme overrides reloaded"}}, h.notes.take())
}

func TestReloadKeepsExplicitTheme(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	c := h.start(Options{OverridesDir: dir})

	pref := c.VisualPreferences()
	pref.PrimaryColor = "#059669"
	require.NoError(t, c.SetVisualPreferences(context.Background(), pref))

	require.NoError(t, os.WriteFile(filepath.Join(dir, theme.OverridesTOML),
		[]byte("[generic]\nprimary_color = \"#2563eb\"\n"), 0o644))
	require.NoError(t, c.Reload(context.Background()))
	require.Equal(t, "#059669", c.VisualPreferences().PrimaryColor)
}

func TestCloseRejectsRequestsAndReleasesHandle(t *testing.T) {
	h := newHarness(t)
	h.provision("agro", h.backend(http.StatusOK))
	c := h.start(Options{})

	events, _ := c.Subscribe(8)
	require.NoError(t, c.SwitchSegment(context.Background(), "agro", nil))
	require.Equal(t, 1, h.router.Table().Len())

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	require.Zero(t, h.router.Table().Len())
	require.ErrorIs(t, c.SwitchSegment(context.Background(), "agro", nil), ErrClosed)

	for range events {
	}
}

func TestUnsubscribeAfterClose(t *testing.T) {
	h := newHarness(t)
	c := h.start(Options{})

	events, cancel := c.Subscribe(4)
	other, cancelOther := c.Subscribe(4)
	cancelOther()
	require.NoError(t, c.Close())

	require.NotPanics(t, cancel)
	require.NotPanics(t, cancel)
	require.NotPanics(t, cancelOther)
	_, ok := <-events
	require.False(t, ok)
	_, ok = <-other
	require.False(t, ok)
}

func TestResolveUnknownSegmentReturnsError(t *testing.T) {
	h := newHarness(t)
	c := h.start(Options{})

	var err error
	require.NotPanics(t, func() {
		_, _, err = c.resolveWithWarning("aerospace")
	})
	require.ErrorIs(t, err, catalog.ErrUnknownSegment)

	// restoring an unknown segment falls back to the default theme
	require.Equal(t, defaultTheme(t, catalog.DefaultSegment), c.resolveDefault("aerospace"))
}

func TestSwitchRecordsSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := newHarness(t)
	h.provision("agro", h.backend(http.StatusOK))
	c := h.start(Options{Tracer: tp.Tracer("test")})
	require.NoError(t, c.SwitchSegment(context.Background(), "agro", nil))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	require.Equal(t, "segment.switch", spans[0].Name())

	var phases []string
	for _, ev := range spans[0].Events() {
		for _, attr := range ev.Attributes {
			if attr.Key == "phase" {
				phases = append(phases, attr.Value.AsString())
			}
		}
	}
	require.Equal(t, []string{"validating", "connecting", "theming", "committing"}, phases)
}
