package switcher

import (
	"errors"
	"fmt"

	"github.com/litescript/ls-segment-switch/internal/catalog"
	"github.com/litescript/ls-segment-switch/internal/connection"
	"github.com/litescript/ls-segment-switch/internal/theme"
)

// Phase is a step of a switch attempt.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseQueued     Phase = "queued"
	PhaseValidating Phase = "validating"
	PhaseConnecting Phase = "connecting"
	PhaseTheming    Phase = "theming"
	PhaseCommitting Phase = "committing"
	PhaseRolledBack Phase = "rolled_back"
)

// Policy names how overlapping requests are ordered.
type Policy string

// PolicyFIFO runs requests one at a time in arrival order. A request that
// arrives while a switch is in flight waits for it to commit or roll back.
const PolicyFIFO Policy = "fifo"

// RuntimeState is the state owned by a Coordinator. Only the coordinator's
// loop writes it.
type RuntimeState struct {
	ActiveSegment    catalog.SegmentID
	Handle           *connection.Handle
	AppliedTheme     theme.Preference
	SwitchInProgress bool
}

// Snapshot is a copy of RuntimeState safe to hand out. The handle is
// reduced to its identity.
type Snapshot struct {
	ActiveSegment    catalog.SegmentID
	HandleID         string
	Endpoint         string
	AppliedTheme     theme.Preference
	SwitchInProgress bool
	Phase            Phase
	QueueDepth       int
}

// Connected reports whether a connection handle is active.
func (s Snapshot) Connected() bool { return s.HandleID != "" }

func (s RuntimeState) snapshot(phase Phase, depth int) Snapshot {
	out := Snapshot{
		ActiveSegment:    s.ActiveSegment,
		AppliedTheme:     s.AppliedTheme.Clone(),
		SwitchInProgress: s.SwitchInProgress,
		Phase:            phase,
		QueueDepth:       depth,
	}
	if s.Handle != nil {
		out.HandleID = s.Handle.ID()
		out.Endpoint = s.Handle.Endpoint()
	}
	return out
}

// ErrClosed is returned for requests made after Close.
var ErrClosed = errors.New("switcher closed")

// ErrRolledBack matches any RolledBackError via errors.Is.
var ErrRolledBack = errors.New("switch rolled back")

// RolledBackError reports an attempt abandoned during Phase, normally
// because its context was cancelled. Nothing was committed.
type RolledBackError struct {
	Phase Phase
	Err   error
}

func (e *RolledBackError) Error() string {
	return fmt.Sprintf("switch rolled back during %s: %v", e.Phase, e.Err)
}

func (e *RolledBackError) Unwrap() error        { return e.Err }
func (e *RolledBackError) Is(target error) bool { return target == ErrRolledBack }
