package flow_test

import (
	"testing"

	"github.com/sagernet/sing-intercept/flow"

	"github.com/stretchr/testify/require"
)

func TestReplyOnce(t *testing.T) {
	t.Parallel()
	reply := flow.NewReply()
	require.False(t, reply.Consumed())
	require.NoError(t, reply.Send(flow.VerdictContinue))
	require.True(t, reply.Consumed())
	require.Error(t, reply.Send(flow.VerdictKill))

	verdict := <-reply.Done()
	require.Equal(t, flow.VerdictContinue, verdict)
	select {
	case <-reply.Done():
		t.Fatal("second verdict delivered")
	default:
	}
}

func TestReplyBlocksHandler(t *testing.T) {
	t.Parallel()
	reply := flow.NewReply()
	resumed := make(chan flow.Verdict, 1)
	go func() {
		resumed <- <-reply.Done()
	}()
	select {
	case <-resumed:
		t.Fatal("handler resumed before verdict")
	default:
	}
	require.NoError(t, reply.Send(flow.VerdictKill))
	require.Equal(t, flow.VerdictKill, <-resumed)
}
