package connection

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/litescript/ls-segment-switch/internal/catalog"
)

// DefaultProbeResource is the table the probe reads. It is not expected to
// exist; a "not found" answer counts as reachable.
const DefaultProbeResource = "_segment_probe"

// Options configures a Router. Zero values pick defaults.
type Options struct {
	Factory       Factory
	ProbeResource string
	// ProbeTimeout is used by the default factory.
	ProbeTimeout time.Duration
	Table        *Table
	Logger       *slog.Logger
	Registerer   prometheus.Registerer
}

// Result is a connected handle plus the non-fatal probe warning, if any.
// Warning is one of *AuthenticationError, *NetworkError or
// *UnknownConnectionError.
type Result struct {
	Handle  *Handle
	Warning error
}

// Router connects segments to their backends.
type Router struct {
	source   Source
	factory  Factory
	resource string
	table    *Table
	logger   *slog.Logger
	metrics  *metrics
}

func NewRouter(source Source, opts Options) *Router {
	r := &Router{
		source:   source,
		factory:  opts.Factory,
		resource: strings.TrimSpace(opts.ProbeResource),
		table:    opts.Table,
		logger:   opts.Logger,
		metrics:  newMetrics(opts.Registerer),
	}
	if r.factory == nil {
		r.factory = DefaultFactory(opts.ProbeTimeout)
	}
	if r.resource == "" {
		r.resource = DefaultProbeResource
	}
	if r.table == nil {
		r.table = NewTable()
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Table returns the handle table the router registers into.
func (r *Router) Table() *Table { return r.table }

// Connect looks up the segment's config, builds and registers a handle and
// probes it once.
//
// A missing or unreadable config returns *MissingConfigError and creates no
// handle. Probe failures do not fail the call: the handle is returned with
// the classified failure in Result.Warning. Cancellation of ctx releases the
// handle and returns ctx.Err().
func (r *Router) Connect(ctx context.Context, segment catalog.SegmentID) (Result, error) {
	cfg, ok, err := r.source.ConnectionConfig(ctx, segment)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.metrics.probes.WithLabelValues(OutcomeCancelled).Inc()
			return Result{}, ctxErr
		}
		r.metrics.probes.WithLabelValues(OutcomeMissingConfig).Inc()
		return Result{}, &MissingConfigError{Segment: segment, Err: err}
	}
	if !ok {
		r.metrics.probes.WithLabelValues(OutcomeMissingConfig).Inc()
		return Result{}, &MissingConfigError{Segment: segment}
	}

	h := r.factory(cfg)
	r.table.Register(h)
	log := r.logger.With("segment", string(segment), "endpoint", h.Endpoint(), "handle", h.ID())

	start := time.Now()
	probeErr := h.Probe(ctx, r.resource)
	r.metrics.probeSeconds.Observe(time.Since(start).Seconds())

	if ctxErr := ctx.Err(); ctxErr != nil {
		r.table.Release(h.ID())
		r.metrics.probes.WithLabelValues(OutcomeCancelled).Inc()
		log.Debug("probe cancelled", "err", ctxErr)
		return Result{}, ctxErr
	}

	outcome := outcomeOf(probeErr)
	r.metrics.probes.WithLabelValues(outcome).Inc()
	if probeErr != nil {
		log.Warn("probe failed, keeping handle", "outcome", outcome, "err", probeErr)
	} else {
		log.Debug("probe ok")
	}
	return Result{Handle: h, Warning: probeErr}, nil
}

// Release closes a handle previously returned by Connect. A nil handle is
// ignored.
func (r *Router) Release(h *Handle) {
	if h == nil {
		return
	}
	r.table.Release(h.ID())
}
