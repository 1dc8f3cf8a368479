package generate

import "log/slog"

// State is a step of one generation run.
type State string

// Generation states. A run always starts Idle and ends Done or HardFailure.
const (
	StateIdle               State = "idle"
	StateFetchingLive       State = "fetching_live"
	StateLiveOK             State = "live_ok"
	StateLiveFailed         State = "live_failed"
	StateUsingFallback      State = "using_fallback"
	StateScoringAndPlanning State = "scoring_and_planning"
	StateDone               State = "done"
	StateHardFailure        State = "hard_failure"
)

var transitions = map[State][]State{
	StateIdle:               {StateFetchingLive, StateUsingFallback},
	StateFetchingLive:       {StateLiveOK, StateLiveFailed},
	StateLiveOK:             {StateScoringAndPlanning},
	StateLiveFailed:         {StateUsingFallback},
	StateUsingFallback:      {StateScoringAndPlanning, StateHardFailure},
	StateScoringAndPlanning: {StateDone},
}

// CanTransition reports whether to is a legal successor of from.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateHardFailure
}

// run records the path taken through the state machine.
type run struct {
	trace  []State
	logger *slog.Logger
}

func newRun(logger *slog.Logger) *run {
	return &run{trace: []State{StateIdle}, logger: logger}
}

func (r *run) current() State {
	return r.trace[len(r.trace)-1]
}

// to advances the run; an illegal transition is a programming error.
func (r *run) to(s State) {
	if !CanTransition(r.current(), s) {
		panic("generate: illegal transition " + string(r.current()) + " -> " + string(s))
	}
	r.logger.Debug("generation state", "from", r.current(), "to", s)
	r.trace = append(r.trace, s)
}
