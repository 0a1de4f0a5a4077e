package flow_test

import (
	"testing"
	"time"

	"github.com/sagernet/sing-intercept/common/stateobject"
	"github.com/sagernet/sing-intercept/flow"

	"github.com/stretchr/testify/require"
)

func TestErrorState(t *testing.T) {
	t.Parallel()
	err := &flow.Error{Msg: "timeout", Timestamp: 1000.0}
	state := err.GetState(stateobject.ModeFull)
	require.Equal(t, map[string]any{
		"msg":       "timeout",
		"timestamp": 1000.0,
	}, state)

	restored, loadErr := flow.ErrorFromState(state)
	require.NoError(t, loadErr)
	require.Equal(t, "timeout", restored.String())
	require.Equal(t, 1000.0, restored.Timestamp)
}

func TestErrorDefaultTimestamp(t *testing.T) {
	t.Parallel()
	at := time.Unix(1000, 0)
	err := flow.NewError(func() time.Time { return at }, "timeout")
	require.Equal(t, 1000.0, err.Timestamp)

	err = flow.NewError(nil, "timeout")
	require.NotZero(t, err.Timestamp)
}

func TestErrorCopy(t *testing.T) {
	t.Parallel()
	err := &flow.Error{Msg: "timeout", Timestamp: 1000.0}
	copied := err.Copy()
	require.NotSame(t, err, copied)
	require.Equal(t, err.Msg, copied.Msg)
	require.Equal(t, err.Timestamp, copied.Timestamp)
}

func TestErrorStateRejectsGarbage(t *testing.T) {
	t.Parallel()
	_, err := flow.ErrorFromState(map[string]any{"msg": 1, "timestamp": 1000.0})
	require.Error(t, err)
	_, err = flow.ErrorFromState(map[string]any{"msg": "timeout"})
	require.Error(t, err)
}
