// Package intercept wires the flow model together: it owns the store and
// event log, decides which flows are suspended for review, and relays
// state machine notifications to the configured controller.
package intercept

import (
	"context"
	"regexp"
	"time"

	"github.com/sagernet/sing-intercept/adapter"
	"github.com/sagernet/sing-intercept/flow"
	"github.com/sagernet/sing-intercept/option"
	"github.com/sagernet/sing-intercept/trace"

	E "github.com/sagernet/sing/common/exceptions"
	"github.com/sagernet/sing/common/logger"
	"github.com/sagernet/sing/common/ntp"
)

var _ adapter.Controller = (*Engine)(nil)

type Engine struct {
	ctx        context.Context
	logger     logger.ContextLogger
	options    option.InterceptOptions
	controller adapter.Controller
	store      *trace.Store
	events     *trace.EventLog
	filters    []*regexp.Regexp
	timeFunc   func() time.Time
}

func NewEngine(ctx context.Context, logger logger.ContextLogger, controller adapter.Controller, options option.InterceptOptions) (*Engine, error) {
	engine := &Engine{
		ctx:        ctx,
		logger:     logger,
		options:    options,
		controller: controller,
		store:      trace.NewStore(),
		events:     trace.NewEventLog(options.MaxEvents),
	}
	for _, pattern := range options.InterceptFilter {
		filter, err := regexp.Compile(pattern)
		if err != nil {
			return nil, E.Cause(err, "parse intercept_filter: ", pattern)
		}
		engine.filters = append(engine.filters, filter)
	}
	engine.timeFunc = ntp.TimeFuncFromContext(ctx)
	if engine.timeFunc == nil {
		engine.timeFunc = time.Now
	}
	return engine, nil
}

func (e *Engine) Store() *trace.Store {
	return e.store
}

func (e *Engine) Events() *trace.EventLog {
	return e.events
}

// NewFlow constructs a live flow as traffic begins and records it in the
// store.
func (e *Engine) NewFlow(flowType string, clientConn adapter.Conn, serverConn adapter.Conn) *flow.Flow {
	f := flow.New(flow.Options{
		Type:         flowType,
		ClientConn:   clientConn,
		ServerConn:   serverConn,
		Live:         true,
		TimeFunc:     e.timeFunc,
		StateVersion: e.options.StateVersion,
	})
	e.store.Add(f)
	return f
}

// ProcessFlow installs a fresh continuation and either suspends the flow
// for review or resumes it immediately. The calling handler blocks on
// the flow's reply afterwards, in both cases it receives exactly one
// verdict.
func (e *Engine) ProcessFlow(ctx context.Context, f *flow.Flow) {
	reply := flow.NewReply()
	f.SetReply(reply)
	if e.shouldIntercept(f) {
		f.Intercept(e)
		if e.options.Timeout > 0 {
			e.KillAfter(ctx, f, time.Duration(e.options.Timeout))
		}
		return
	}
	err := reply.Send(flow.VerdictContinue)
	if err != nil {
		e.logger.ErrorContext(ctx, E.Cause(err, "resume flow ", f.ID()))
	}
}

func (e *Engine) shouldIntercept(f *flow.Flow) bool {
	if !e.options.Enabled || f.Killed() {
		return false
	}
	for _, filter := range e.filters {
		if filter.MatchString(f.Type()) {
			return true
		}
	}
	return false
}

// AcceptIntercept resumes the given flow on behalf of the control plane.
func (e *Engine) AcceptIntercept(f *flow.Flow) error {
	return f.AcceptIntercept(e)
}

// Kill aborts the given flow on behalf of the control plane.
func (e *Engine) Kill(f *flow.Flow) error {
	return f.Kill(e)
}

// KillAfter kills the flow once timeout elapses, unless ctx is cancelled
// first. There is no built-in deadline elsewhere, cancellation is always
// an explicit kill.
func (e *Engine) KillAfter(ctx context.Context, f *flow.Flow, timeout time.Duration) {
	timer := time.NewTimer(timeout)
	go func() {
		defer timer.Stop()
		select {
		case <-timer.C:
			err := f.Kill(e)
			if err != nil {
				e.logger.ErrorContext(ctx, err)
			}
		case <-ctx.Done():
		}
	}()
}

func (e *Engine) HandleError(f adapter.Flow) {
	e.logger.Debug("flow ", f.ID(), " failed")
	e.events.Append("flow "+f.ID()+" failed", "error")
	e.store.Update(f)
	if e.controller != nil {
		e.controller.HandleError(f)
	}
}

func (e *Engine) HandleIntercept(f adapter.Flow) {
	e.logger.Debug("flow ", f.ID(), " intercepted")
	e.events.Append("flow "+f.ID()+" intercepted", "info")
	e.store.Update(f)
	if e.controller != nil {
		e.controller.HandleIntercept(f)
	}
}

func (e *Engine) HandleAcceptIntercept(f adapter.Flow) {
	e.logger.Debug("flow ", f.ID(), " accepted")
	e.events.Append("flow "+f.ID()+" accepted", "info")
	e.store.Update(f)
	if e.controller != nil {
		e.controller.HandleAcceptIntercept(f)
	}
}
