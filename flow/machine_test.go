package flow_test

import (
	"testing"

	"github.com/sagernet/sing-intercept/adapter"
	C "github.com/sagernet/sing-intercept/constant"
	"github.com/sagernet/sing-intercept/flow"

	"github.com/stretchr/testify/require"
)

type fakeController struct {
	errors     int
	intercepts int
	accepts    int
}

func (c *fakeController) HandleError(flow adapter.Flow)           { c.errors++ }
func (c *fakeController) HandleIntercept(flow adapter.Flow)       { c.intercepts++ }
func (c *fakeController) HandleAcceptIntercept(flow adapter.Flow) { c.accepts++ }

func TestInterceptIdempotent(t *testing.T) {
	t.Parallel()
	f := testFlow()
	controller := new(fakeController)
	f.Intercept(controller)
	f.Intercept(controller)
	require.True(t, f.Intercepted())
	require.Equal(t, 1, controller.intercepts)
}

func TestAcceptInterceptNotIntercepted(t *testing.T) {
	t.Parallel()
	f := testFlow()
	f.SetReply(flow.NewReply())
	controller := new(fakeController)
	require.NoError(t, f.AcceptIntercept(controller))
	require.Equal(t, 0, controller.accepts)
	require.False(t, f.Reply().Consumed())
}

func TestAcceptIntercept(t *testing.T) {
	t.Parallel()
	f := testFlow()
	reply := flow.NewReply()
	f.SetReply(reply)
	controller := new(fakeController)

	f.Intercept(controller)
	require.True(t, f.Intercepted())

	resumed := make(chan flow.Verdict, 1)
	go func() {
		resumed <- <-reply.Done()
	}()

	require.NoError(t, f.AcceptIntercept(controller))
	require.False(t, f.Intercepted())
	require.Equal(t, 1, controller.accepts)
	require.Equal(t, flow.VerdictContinue, <-resumed)
}

func TestKill(t *testing.T) {
	t.Parallel()
	f := testFlow()
	reply := flow.NewReply()
	f.SetReply(reply)
	controller := new(fakeController)

	require.NoError(t, f.Kill(controller))
	require.Equal(t, C.KillMessage, f.Err().Msg)
	require.Equal(t, f.ID(), f.Err().FlowID())
	require.False(t, f.Intercepted())
	require.True(t, f.Killed())
	require.Equal(t, 1, controller.errors)
	require.Equal(t, flow.VerdictKill, <-reply.Done())

	// A second kill must not resume the handler or notify again.
	require.NoError(t, f.Kill(controller))
	require.Equal(t, 1, controller.errors)
	select {
	case <-reply.Done():
		t.Fatal("continuation re-invoked")
	default:
	}
}

func TestKillIntercepted(t *testing.T) {
	t.Parallel()
	f := testFlow()
	reply := flow.NewReply()
	f.SetReply(reply)
	controller := new(fakeController)

	f.Intercept(controller)
	require.NoError(t, f.Kill(controller))
	require.False(t, f.Intercepted())
	require.Equal(t, flow.VerdictKill, <-reply.Done())

	// The flow is terminal, later transitions are no-ops.
	f.Intercept(controller)
	require.False(t, f.Intercepted())
	require.Equal(t, 1, controller.intercepts)
	require.NoError(t, f.AcceptIntercept(controller))
	require.Equal(t, 0, controller.accepts)
}

func TestKillWithoutReply(t *testing.T) {
	t.Parallel()
	f := testFlow()
	controller := new(fakeController)
	require.NoError(t, f.Kill(controller))
	require.Equal(t, 1, controller.errors)
}

func TestAcceptKillRace(t *testing.T) {
	t.Parallel()
	f := testFlow()
	reply := flow.NewReply()
	f.SetReply(reply)
	controller := new(fakeController)

	f.Intercept(controller)
	require.NoError(t, f.AcceptIntercept(controller))
	// The continuation was already consumed by the accept, the late kill
	// must surface the reuse instead of resuming the handler twice.
	require.Error(t, f.Kill(controller))
	require.Equal(t, flow.VerdictContinue, <-reply.Done())
	select {
	case <-reply.Done():
		t.Fatal("continuation re-invoked")
	default:
	}
}
