package flow

import (
	"github.com/sagernet/sing/common/atomic"
	E "github.com/sagernet/sing/common/exceptions"
)

// Verdict is the payload carried by a reply continuation.
type Verdict uint8

const (
	// VerdictContinue resumes the handler with the current, possibly
	// edited, flow state.
	VerdictContinue Verdict = iota
	// VerdictKill instructs the handler to abort the transaction.
	VerdictKill
)

func (v Verdict) String() string {
	switch v {
	case VerdictContinue:
		return "continue"
	case VerdictKill:
		return "kill"
	default:
		return "unknown"
	}
}

// Reply is the one-shot continuation a suspended handler blocks on.
// Exactly one verdict can be sent per suspension cycle.
type Reply struct {
	done     chan Verdict
	consumed atomic.Bool
}

func NewReply() *Reply {
	return &Reply{
		done: make(chan Verdict, 1),
	}
}

// Send delivers the verdict and resumes the handler. A second Send is
// rejected and delivers nothing.
func (r *Reply) Send(verdict Verdict) error {
	if !r.consumed.CompareAndSwap(false, true) {
		return E.New("reply already consumed")
	}
	r.done <- verdict
	return nil
}

// Done returns the channel the suspended handler receives its verdict on.
func (r *Reply) Done() <-chan Verdict {
	return r.done
}

// Consumed reports whether a verdict was already sent.
func (r *Reply) Consumed() bool {
	return r.consumed.Load()
}
