package adapter

import (
	"github.com/sagernet/sing-intercept/common/stateobject"
)

// Conn is an opaque connection record owned by a flow. Implementations
// participate in the state schema and must produce structurally
// independent duplicates.
type Conn interface {
	stateobject.Object
	Copy() Conn
}

// Flow is the read surface of one recorded transaction, for collaborators
// that observe flows without driving them.
type Flow interface {
	ID() string
	Type() string
	Intercepted() bool
	GetState(mode stateobject.Mode) map[string]any
}

// Controller receives state machine notifications. Calls are synchronous
// and no reentrancy guarantee is provided.
type Controller interface {
	HandleError(flow Flow)
	HandleIntercept(flow Flow)
	HandleAcceptIntercept(flow Flow)
}
