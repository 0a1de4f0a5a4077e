// Package trace keeps the bookkeeping around recorded flows: an ordered
// store with a filtered view and focus tracking for interactive
// consumers, per-flow settings, and a bounded event log.
package trace

import (
	"sync"

	"github.com/sagernet/sing-intercept/adapter"
	"github.com/sagernet/sing-intercept/common/stateobject"

	"github.com/sagernet/sing/common/x/list"
)

// UpdateType identifies what happened to a flow in the store.
type UpdateType uint8

const (
	UpdateAdd UpdateType = iota
	UpdateChange
	UpdateRemove
	UpdateReset
)

// Update is delivered to registered callbacks. State carries the
// short-mode dump of the flow for add and change, the id only survives
// for remove, and both are empty for reset.
type Update struct {
	Type   UpdateType
	FlowID string
	State  map[string]any
}

type UpdateCallback func(update Update)

// FilterFunc selects which flows appear in the view.
type FilterFunc func(flow adapter.Flow) bool

// Store holds flows in arrival order. The focus index follows the view:
// it clamps into range and sticks to a neighbour when the focused flow
// is deleted.
type Store struct {
	access    sync.Mutex
	flows     []adapter.Flow
	byID      map[string]adapter.Flow
	filter    FilterFunc
	view      []adapter.Flow
	focus     int
	settings  map[string]map[string]any
	callbacks list.List[UpdateCallback]
}

func NewStore() *Store {
	return &Store{
		byID:     make(map[string]adapter.Flow),
		settings: make(map[string]map[string]any),
		focus:    -1,
	}
}

// Add appends the flow and returns it for chaining.
func (s *Store) Add(flow adapter.Flow) adapter.Flow {
	s.access.Lock()
	s.flows = append(s.flows, flow)
	s.byID[flow.ID()] = flow
	if s.filter == nil || s.filter(flow) {
		s.view = append(s.view, flow)
		if s.focus < 0 {
			s.focus = 0
		}
	}
	s.access.Unlock()
	s.broadcast(Update{
		Type:   UpdateAdd,
		FlowID: flow.ID(),
		State:  flow.GetState(stateobject.ModeShort),
	})
	return flow
}

// Update re-evaluates the flow against the filter and notifies
// subscribers of the change.
func (s *Store) Update(flow adapter.Flow) {
	s.access.Lock()
	if _, known := s.byID[flow.ID()]; !known {
		s.access.Unlock()
		return
	}
	s.recalculate()
	s.access.Unlock()
	s.broadcast(Update{
		Type:   UpdateChange,
		FlowID: flow.ID(),
		State:  flow.GetState(stateobject.ModeShort),
	})
}

// Remove deletes the flow along with its settings.
func (s *Store) Remove(flow adapter.Flow) {
	s.access.Lock()
	if _, known := s.byID[flow.ID()]; !known {
		s.access.Unlock()
		return
	}
	delete(s.byID, flow.ID())
	delete(s.settings, flow.ID())
	for index, stored := range s.flows {
		if stored.ID() == flow.ID() {
			s.flows = append(s.flows[:index], s.flows[index+1:]...)
			break
		}
	}
	s.recalculate()
	s.access.Unlock()
	s.broadcast(Update{
		Type:   UpdateRemove,
		FlowID: flow.ID(),
	})
}

func (s *Store) Flow(id string) adapter.Flow {
	s.access.Lock()
	defer s.access.Unlock()
	return s.byID[id]
}

func (s *Store) Flows() []adapter.Flow {
	s.access.Lock()
	defer s.access.Unlock()
	flows := make([]adapter.Flow, len(s.flows))
	copy(flows, s.flows)
	return flows
}

func (s *Store) Len() int {
	s.access.Lock()
	defer s.access.Unlock()
	return len(s.flows)
}

// View returns the flows passing the current filter, in arrival order.
func (s *Store) View() []adapter.Flow {
	s.access.Lock()
	defer s.access.Unlock()
	view := make([]adapter.Flow, len(s.view))
	copy(view, s.view)
	return view
}

// SetFilter replaces the view filter, nil accepts everything. The view
// is rebuilt and subscribers receive a reset.
func (s *Store) SetFilter(filter FilterFunc) {
	s.access.Lock()
	s.filter = filter
	s.recalculate()
	s.access.Unlock()
	s.broadcast(Update{Type: UpdateReset})
}

// recalculate rebuilds the view and clamps the focus. Callers must hold
// access.
func (s *Store) recalculate() {
	s.view = s.view[:0]
	for _, flow := range s.flows {
		if s.filter == nil || s.filter(flow) {
			s.view = append(s.view, flow)
		}
	}
	if len(s.view) == 0 {
		s.focus = -1
	} else if s.focus >= len(s.view) {
		s.focus = len(s.view) - 1
	} else if s.focus < 0 {
		s.focus = 0
	}
}

// Focus returns the focused flow and its view index, nil and -1 when the
// view is empty.
func (s *Store) Focus() (adapter.Flow, int) {
	s.access.Lock()
	defer s.access.Unlock()
	if s.focus < 0 || s.focus >= len(s.view) {
		return nil, -1
	}
	return s.view[s.focus], s.focus
}

// SetFocus moves the focus, clamping into the view range.
func (s *Store) SetFocus(index int) {
	s.access.Lock()
	defer s.access.Unlock()
	if len(s.view) == 0 {
		s.focus = -1
		return
	}
	if index < 0 {
		index = 0
	} else if index >= len(s.view) {
		index = len(s.view) - 1
	}
	s.focus = index
}

// Next returns the flow after the given view index, nil and -1 at the
// end.
func (s *Store) Next(index int) (adapter.Flow, int) {
	s.access.Lock()
	defer s.access.Unlock()
	if index+1 >= len(s.view) {
		return nil, -1
	}
	return s.view[index+1], index + 1
}

// Prev returns the flow before the given view index, nil and -1 at the
// start.
func (s *Store) Prev(index int) (adapter.Flow, int) {
	s.access.Lock()
	defer s.access.Unlock()
	if index-1 < 0 || index-1 >= len(s.view) {
		return nil, -1
	}
	return s.view[index-1], index - 1
}

// SetSetting attaches an out-of-band value to the flow, removed together
// with it.
func (s *Store) SetSetting(flow adapter.Flow, key string, value any) {
	s.access.Lock()
	defer s.access.Unlock()
	if _, known := s.byID[flow.ID()]; !known {
		return
	}
	settings := s.settings[flow.ID()]
	if settings == nil {
		settings = make(map[string]any)
		s.settings[flow.ID()] = settings
	}
	settings[key] = value
}

// Setting returns the value stored for the flow under key, or fallback.
func (s *Store) Setting(flow adapter.Flow, key string, fallback any) any {
	s.access.Lock()
	defer s.access.Unlock()
	settings := s.settings[flow.ID()]
	if settings == nil {
		return fallback
	}
	value, loaded := settings[key]
	if !loaded {
		return fallback
	}
	return value
}

func (s *Store) RegisterCallback(callback UpdateCallback) *list.Element[UpdateCallback] {
	s.access.Lock()
	defer s.access.Unlock()
	return s.callbacks.PushBack(callback)
}

func (s *Store) UnregisterCallback(element *list.Element[UpdateCallback]) {
	s.access.Lock()
	defer s.access.Unlock()
	s.callbacks.Remove(element)
}

func (s *Store) broadcast(update Update) {
	s.access.Lock()
	callbacks := s.callbacks.Array()
	s.access.Unlock()
	for _, callback := range callbacks {
		callback(update)
	}
}
