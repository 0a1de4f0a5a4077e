package flow

import (
	"github.com/sagernet/sing-intercept/adapter"
	C "github.com/sagernet/sing-intercept/constant"

	E "github.com/sagernet/sing/common/exceptions"
)

// Intercept suspends processing of the flow until AcceptIntercept or
// Kill is called. No-op if the flow is already intercepted or killed.
func (f *Flow) Intercept(controller adapter.Controller) {
	f.access.Lock()
	if f.killed || f.intercepted {
		f.access.Unlock()
		return
	}
	f.intercepted = true
	f.access.Unlock()
	controller.HandleIntercept(f)
}

// AcceptIntercept resumes the suspended handler with the current,
// possibly edited, flow state. No-op if the flow is not intercepted.
func (f *Flow) AcceptIntercept(controller adapter.Controller) error {
	f.access.Lock()
	if !f.intercepted {
		f.access.Unlock()
		return nil
	}
	f.intercepted = false
	reply := f.reply
	f.access.Unlock()
	if reply != nil {
		err := reply.Send(VerdictContinue)
		if err != nil {
			return E.Cause(err, "resume flow ", f.id)
		}
	}
	controller.HandleAcceptIntercept(f)
	return nil
}

// Kill terminates the flow from any state: attaches the canned error,
// clears the intercepted flag and instructs a suspended handler to
// abort. Killing an already killed flow changes nothing and does not
// resume the handler or notify the controller again.
func (f *Flow) Kill(controller adapter.Controller) error {
	f.access.Lock()
	if f.killed {
		f.access.Unlock()
		return nil
	}
	f.killed = true
	f.intercepted = false
	f.err = NewError(f.timeFunc, C.KillMessage)
	f.err.flowID = f.id
	reply := f.reply
	f.access.Unlock()
	if reply != nil {
		err := reply.Send(VerdictKill)
		if err != nil {
			return E.Cause(err, "kill flow ", f.id)
		}
	}
	controller.HandleError(f)
	return nil
}
