// Package app drives weather lookups from user actions to the screen: it
// owns the lookup state machine, maps failures to messages and remembers
// the last searched city.
package app

import (
	"fmt"
	"strings"
)

// State is the lookup state shown to the user.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// OverlapPolicy decides what a submission made while another lookup is
// loading does.
type OverlapPolicy int

const (
	// OverlapLatestWins starts the new lookup; only the latest submission
	// may commit to the screen.
	OverlapLatestWins OverlapPolicy = iota

	// OverlapIgnore drops the new submission.
	OverlapIgnore
)

func (p OverlapPolicy) String() string {
	if p == OverlapIgnore {
		return "ignore"
	}
	return "latest"
}

// ParseOverlapPolicy parses "latest" or "ignore". An empty string is
// OverlapLatestWins.
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest":
		return OverlapLatestWins, nil
	case "ignore":
		return OverlapIgnore, nil
	default:
		return 0, fmt.Errorf("unknown overlap policy %q", s)
	}
}

// Source tells how a lookup was requested.
type Source string

const (
	SourceCity     Source = "city"
	SourceLocation Source = "location"
)
