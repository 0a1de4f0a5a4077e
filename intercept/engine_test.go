package intercept_test

import (
	"context"
	"testing"
	"time"

	"github.com/sagernet/sing-intercept/adapter"
	"github.com/sagernet/sing-intercept/connection"
	C "github.com/sagernet/sing-intercept/constant"
	"github.com/sagernet/sing-intercept/flow"
	"github.com/sagernet/sing-intercept/intercept"
	"github.com/sagernet/sing-intercept/log"
	"github.com/sagernet/sing-intercept/option"

	"github.com/sagernet/sing/common/json/badoption"
	M "github.com/sagernet/sing/common/metadata"

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

func testEngine(t *testing.T, controller adapter.Controller, options option.InterceptOptions) *intercept.Engine {
	engine, err := intercept.NewEngine(context.Background(), log.NewNOPLogger(), controller, options)
	require.NoError(t, err)
	return engine
}

func testConns() (adapter.Conn, adapter.Conn) {
	return &connection.ClientConn{Source: M.ParseSocksaddr("127.0.0.1:5678")},
		&connection.ServerConn{Address: M.ParseSocksaddr("example.org:443")}
}

func TestEngineIntercepts(t *testing.T) {
	t.Parallel()
	controller := new(fakeController)
	engine := testEngine(t, controller, option.InterceptOptions{
		Enabled:         true,
		InterceptFilter: badoption.Listable[string]{"^http$"},
	})

	clientConn, serverConn := testConns()
	f := engine.NewFlow(C.TypeHTTP, clientConn, serverConn)
	require.Equal(t, 1, engine.Store().Len())

	engine.ProcessFlow(context.Background(), f)
	require.True(t, f.Intercepted())
	require.Equal(t, 1, controller.intercepts)
	select {
	case <-f.Reply().Done():
		t.Fatal("handler resumed while intercepted")
	default:
	}

	require.NoError(t, engine.AcceptIntercept(f))
	require.Equal(t, flow.VerdictContinue, <-f.Reply().Done())
	require.Equal(t, 1, controller.accepts)
}

func TestEnginePassesThrough(t *testing.T) {
	t.Parallel()
	controller := new(fakeController)
	engine := testEngine(t, controller, option.InterceptOptions{
		Enabled:         true,
		InterceptFilter: badoption.Listable[string]{"^http$"},
	})

	clientConn, serverConn := testConns()
	f := engine.NewFlow(C.TypeTCP, clientConn, serverConn)
	engine.ProcessFlow(context.Background(), f)
	require.False(t, f.Intercepted())
	require.Equal(t, flow.VerdictContinue, <-f.Reply().Done())
	require.Equal(t, 0, controller.intercepts)
}

func TestEngineDisabled(t *testing.T) {
	t.Parallel()
	controller := new(fakeController)
	engine := testEngine(t, controller, option.InterceptOptions{
		InterceptFilter: badoption.Listable[string]{"^http$"},
	})

	clientConn, serverConn := testConns()
	f := engine.NewFlow(C.TypeHTTP, clientConn, serverConn)
	engine.ProcessFlow(context.Background(), f)
	require.False(t, f.Intercepted())
	require.Equal(t, flow.VerdictContinue, <-f.Reply().Done())
}

func TestEngineKill(t *testing.T) {
	t.Parallel()
	controller := new(fakeController)
	engine := testEngine(t, controller, option.InterceptOptions{
		Enabled:         true,
		InterceptFilter: badoption.Listable[string]{"."},
	})

	clientConn, serverConn := testConns()
	f := engine.NewFlow(C.TypeHTTP, clientConn, serverConn)
	engine.ProcessFlow(context.Background(), f)
	require.NoError(t, engine.Kill(f))
	require.Equal(t, flow.VerdictKill, <-f.Reply().Done())
	require.Equal(t, C.KillMessage, f.Err().Msg)
	require.Equal(t, 1, controller.errors)
	require.NotEmpty(t, engine.Events().Events())
}

func TestEngineTimeout(t *testing.T) {
	t.Parallel()
	controller := new(fakeController)
	engine := testEngine(t, controller, option.InterceptOptions{
		Enabled:         true,
		InterceptFilter: badoption.Listable[string]{"."},
		Timeout:         badoption.Duration(10 * time.Millisecond),
	})

	clientConn, serverConn := testConns()
	f := engine.NewFlow(C.TypeHTTP, clientConn, serverConn)
	engine.ProcessFlow(context.Background(), f)
	require.True(t, f.Intercepted())
	require.Equal(t, flow.VerdictKill, <-f.Reply().Done())
	require.True(t, f.Killed())
}

func TestEngineKillAfterCancelled(t *testing.T) {
	t.Parallel()
	controller := new(fakeController)
	engine := testEngine(t, controller, option.InterceptOptions{Enabled: true})

	clientConn, serverConn := testConns()
	f := engine.NewFlow(C.TypeHTTP, clientConn, serverConn)
	f.SetReply(flow.NewReply())
	ctx, cancel := context.WithCancel(context.Background())
	engine.KillAfter(ctx, f, time.Hour)
	cancel()
	time.Sleep(50 * time.Millisecond)
	require.False(t, f.Killed())
}

func TestEngineBadFilter(t *testing.T) {
	t.Parallel()
	_, err := intercept.NewEngine(context.Background(), log.NewNOPLogger(), nil, option.InterceptOptions{
		InterceptFilter: badoption.Listable[string]{"("},
	})
	require.Error(t, err)
}
