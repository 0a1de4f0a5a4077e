package flow

import (
	"time"

	"github.com/sagernet/sing-intercept/common/stateobject"
)

// Error describes a failure outside normal protocol communication, like
// an interrupted connection or a timeout. A protocol-level error response
// is ordinary traffic, not an Error.
//
// The flow back-reference is an id, assigned by the owning flow, never by
// the Error itself.
type Error struct {
	Msg       string
	Timestamp float64
	flowID    string
}

// NewError creates an Error stamped with the current time of timeFunc,
// in seconds since the epoch.
func NewError(timeFunc func() time.Time, msg string) *Error {
	if timeFunc == nil {
		timeFunc = time.Now
	}
	return &Error{
		Msg:       msg,
		Timestamp: timestamp(timeFunc()),
	}
}

// ErrorFromState builds a fresh Error from a full-mode state mapping.
func ErrorFromState(state map[string]any) (*Error, error) {
	err := new(Error)
	loadErr := stateobject.LoadState(err, state)
	if loadErr != nil {
		return nil, loadErr
	}
	return err, nil
}

func (e *Error) StateFields() []stateobject.Field {
	return []stateobject.Field{
		{
			Name: "msg",
			Kind: stateobject.KindString,
			Get:  func() any { return e.Msg },
			Set:  func(value any) { e.Msg = value.(string) },
		},
		{
			Name: "timestamp",
			Kind: stateobject.KindFloat,
			Get:  func() any { return e.Timestamp },
			Set:  func(value any) { e.Timestamp = value.(float64) },
		},
	}
}

func (e *Error) GetState(mode stateobject.Mode) map[string]any {
	return stateobject.GetState(e, mode)
}

func (e *Error) LoadState(state map[string]any) error {
	return stateobject.LoadState(e, state)
}

// FlowID returns the id of the owning flow, empty until adopted.
func (e *Error) FlowID() string {
	return e.flowID
}

// Copy duplicates the Error with the owner back-reference unset,
// ownership is assigned by whichever flow adopts the copy.
func (e *Error) Copy() *Error {
	return &Error{
		Msg:       e.Msg,
		Timestamp: e.Timestamp,
	}
}

func (e *Error) String() string {
	return e.Msg
}

func timestamp(at time.Time) float64 {
	return float64(at.UnixNano()) / float64(time.Second)
}
