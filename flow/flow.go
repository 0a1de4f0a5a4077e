// Package flow implements the record and control model of one
// intercepted transaction: the flow record with backup/revert and
// versioned state dumps, and the intercept/accept/kill state machine
// coordinating a live handler with a control-plane actor.
package flow

import (
	"sync"
	"time"

	"github.com/sagernet/sing-intercept/adapter"
	"github.com/sagernet/sing-intercept/common/stateobject"
	C "github.com/sagernet/sing-intercept/constant"

	"github.com/gofrs/uuid/v5"
)

var _ adapter.Flow = (*Flow)(nil)

// Flow is a collection of records representing a single transaction
// spanning a client and a server connection.
//
// Equality between flows is identity: two flows with identical field
// values are distinct transactions.
type Flow struct {
	access      sync.Mutex
	id          string
	flowType    string
	clientConn  adapter.Conn
	serverConn  adapter.Conn
	err         *Error
	intercepted bool
	live        bool
	killed      bool
	backup      map[string]any
	reply       *Reply
	timeFunc    func() time.Time
	version     int
}

type Options struct {
	Type       string
	ClientConn adapter.Conn
	ServerConn adapter.Conn
	Live       bool

	// TimeFunc defaults to time.Now.
	TimeFunc func() time.Time
	// StateVersion defaults to constant.StateVersion. It is stamped into
	// every state dump.
	StateVersion int
}

// New constructs a flow with a fresh random id, no error, no backup and
// not intercepted.
func New(options Options) *Flow {
	return &Flow{
		id:         uuid.Must(uuid.NewV4()).String(),
		flowType:   options.Type,
		clientConn: options.ClientConn,
		serverConn: options.ServerConn,
		live:       options.Live,
		timeFunc:   timeFuncOrDefault(options.TimeFunc),
		version:    versionOrDefault(options.StateVersion),
	}
}

// FromState builds a flow from a full-mode state mapping. The connection
// records in options serve as placeholder instances restored in place,
// their current content is discarded.
func FromState(state map[string]any, options Options) (*Flow, error) {
	f := &Flow{
		clientConn: options.ClientConn,
		serverConn: options.ServerConn,
		timeFunc:   timeFuncOrDefault(options.TimeFunc),
		version:    versionOrDefault(options.StateVersion),
	}
	err := f.LoadState(state)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Flow) StateFields() []stateobject.Field {
	return []stateobject.Field{
		{
			Name: "id",
			Kind: stateobject.KindString,
			Get:  func() any { return f.id },
			Set:  func(value any) { f.id = value.(string) },
		},
		{
			Name: "type",
			Kind: stateobject.KindString,
			Get:  func() any { return f.flowType },
			Set:  func(value any) { f.flowType = value.(string) },
		},
		{
			Name: "intercepted",
			Kind: stateobject.KindBool,
			Get:  func() any { return f.intercepted },
			Set:  func(value any) { f.intercepted = value.(bool) },
		},
		{
			Name: "error",
			Kind: stateobject.KindObject,
			Object: func() stateobject.Object {
				if f.err == nil {
					return nil
				}
				return f.err
			},
			SetObject: func(object stateobject.Object) {
				if object == nil {
					f.err = nil
					return
				}
				f.err = object.(*Error)
				f.err.flowID = f.id
			},
			New: func() stateobject.Object { return new(Error) },
		},
		{
			Name: "client_conn",
			Kind: stateobject.KindObject,
			Object: func() stateobject.Object {
				if f.clientConn == nil {
					return nil
				}
				return f.clientConn
			},
			SetObject: func(object stateobject.Object) {
				if object == nil {
					f.clientConn = nil
					return
				}
				f.clientConn = object.(adapter.Conn)
			},
		},
		{
			Name: "server_conn",
			Kind: stateobject.KindObject,
			Object: func() stateobject.Object {
				if f.serverConn == nil {
					return nil
				}
				return f.serverConn
			},
			SetObject: func(object stateobject.Object) {
				if object == nil {
					f.serverConn = nil
					return
				}
				f.serverConn = object.(adapter.Conn)
			},
		},
	}
}

// GetState serializes the flow and stamps the result with the schema
// version. If a backup exists and differs from the current full state,
// short mode sets a modified flag and full mode embeds the entire prior
// backup snapshot, so a consumer can present or restore the pre-edit
// version without a second round trip.
func (f *Flow) GetState(mode stateobject.Mode) map[string]any {
	f.access.Lock()
	defer f.access.Unlock()
	full := f.fullState()
	var state map[string]any
	if mode == stateobject.ModeFull {
		state = full
	} else {
		state = stateobject.GetState(f, stateobject.ModeShort)
		state["version"] = f.version
	}
	if f.backup != nil && !stateobject.Equal(f.backup, full) {
		if mode == stateobject.ModeShort {
			state["modified"] = true
		} else {
			state["backup"] = copyState(f.backup)
		}
	}
	return state
}

// fullState is the complete round-trippable state without the backup
// envelope. Callers must hold access.
func (f *Flow) fullState() map[string]any {
	state := stateobject.GetState(f, stateobject.ModeFull)
	state["version"] = f.version
	return state
}

// LoadState restores the flow from a full-mode state mapping, leaving
// the flow unmodified on any schema error. The version, backup and
// modified envelope keys are accepted and discarded: the stamped version
// is serialization configuration, not flow state.
func (f *Flow) LoadState(state map[string]any) error {
	f.access.Lock()
	defer f.access.Unlock()
	return f.loadState(state)
}

func (f *Flow) loadState(state map[string]any) error {
	payload := make(map[string]any, len(state))
	for key, value := range state {
		switch key {
		case "version", "backup", "modified":
			continue
		}
		payload[key] = value
	}
	return stateobject.LoadState(f, payload)
}

// Modified reports whether a backup exists and structurally differs from
// the current full state. A flow with no backup is never modified.
func (f *Flow) Modified() bool {
	f.access.Lock()
	defer f.access.Unlock()
	if f.backup == nil {
		return false
	}
	return !stateobject.Equal(f.backup, f.fullState())
}

// Backup captures the current full state into the backup slot. A second
// capture is skipped unless force is set, in which case the previous
// snapshot is overwritten wholesale.
func (f *Flow) Backup(force bool) {
	f.access.Lock()
	defer f.access.Unlock()
	if f.backup != nil && !force {
		return
	}
	f.backup = f.fullState()
}

// Revert restores the last backed up state and clears the backup slot,
// no-op if no backup exists.
func (f *Flow) Revert() error {
	f.access.Lock()
	defer f.access.Unlock()
	if f.backup == nil {
		return nil
	}
	err := f.loadState(f.backup)
	if err != nil {
		return err
	}
	f.backup = nil
	return nil
}

// Copy produces a structurally independent duplicate with a fresh id,
// not live, intended for replay and audit. Connection records and the
// error are duplicated through their own Copy, nothing mutable is
// shared with the original.
func (f *Flow) Copy() *Flow {
	f.access.Lock()
	defer f.access.Unlock()
	copied := &Flow{
		id:          uuid.Must(uuid.NewV4()).String(),
		flowType:    f.flowType,
		intercepted: f.intercepted,
		killed:      f.killed,
		live:        false,
		backup:      copyState(f.backup),
		timeFunc:    f.timeFunc,
		version:     f.version,
	}
	if f.clientConn != nil {
		copied.clientConn = f.clientConn.Copy()
	}
	if f.serverConn != nil {
		copied.serverConn = f.serverConn.Copy()
	}
	if f.err != nil {
		copied.err = f.err.Copy()
		copied.err.flowID = copied.id
	}
	return copied
}

func (f *Flow) ID() string {
	return f.id
}

func (f *Flow) Type() string {
	return f.flowType
}

func (f *Flow) ClientConn() adapter.Conn {
	return f.clientConn
}

func (f *Flow) ServerConn() adapter.Conn {
	return f.serverConn
}

func (f *Flow) Err() *Error {
	f.access.Lock()
	defer f.access.Unlock()
	return f.err
}

// SetError attaches err to the flow, assigning the owner back-reference.
func (f *Flow) SetError(err *Error) {
	f.access.Lock()
	defer f.access.Unlock()
	f.err = err
	if err != nil {
		err.flowID = f.id
	}
}

func (f *Flow) Intercepted() bool {
	f.access.Lock()
	defer f.access.Unlock()
	return f.intercepted
}

func (f *Flow) Live() bool {
	f.access.Lock()
	defer f.access.Unlock()
	return f.live
}

func (f *Flow) SetLive(live bool) {
	f.access.Lock()
	defer f.access.Unlock()
	f.live = live
}

func (f *Flow) Killed() bool {
	f.access.Lock()
	defer f.access.Unlock()
	return f.killed
}

func (f *Flow) Reply() *Reply {
	f.access.Lock()
	defer f.access.Unlock()
	return f.reply
}

// SetReply installs the continuation for the next suspension cycle.
func (f *Flow) SetReply(reply *Reply) {
	f.access.Lock()
	defer f.access.Unlock()
	f.reply = reply
}

func copyState(state map[string]any) map[string]any {
	if state == nil {
		return nil
	}
	copied := make(map[string]any, len(state))
	for key, value := range state {
		if nested, isMapping := value.(map[string]any); isMapping {
			copied[key] = copyState(nested)
		} else {
			copied[key] = value
		}
	}
	return copied
}

func timeFuncOrDefault(timeFunc func() time.Time) func() time.Time {
	if timeFunc == nil {
		return time.Now
	}
	return timeFunc
}

func versionOrDefault(version int) int {
	if version == 0 {
		return C.StateVersion
	}
	return version
}
