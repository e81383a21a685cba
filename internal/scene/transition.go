package scene

import "time"

// TransitionPolicy describes how enter/update/exit changes animate. It is
// injected into the scene rather than hard-coded so tests can run with
// zero-duration transitions.
type TransitionPolicy struct {
	Duration time.Duration
	Easing   string
}

// DefaultTransition is the policy used by the live views.
func DefaultTransition() TransitionPolicy {
	return TransitionPolicy{Duration: 500 * time.Millisecond, Easing: "ease"}
}

// Instant is a zero-duration policy for tests and initial paints.
func Instant() TransitionPolicy {
	return TransitionPolicy{}
}
