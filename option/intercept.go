package option

import (
	"github.com/sagernet/sing/common/json/badoption"
)

type InterceptOptions struct {
	Enabled bool `json:"enabled,omitempty"`

	// StateVersion overrides the schema version stamped into state
	// dumps. Zero selects the built-in default.
	StateVersion int `json:"state_version,omitempty"`

	// InterceptFilter holds regular expressions matched against the flow
	// type discriminator. A matching flow is suspended for review, a
	// non-matching flow resumes immediately.
	InterceptFilter badoption.Listable[string] `json:"intercept_filter,omitempty"`

	// Timeout kills an intercepted flow that was neither accepted nor
	// killed in time. Zero disables the deadline.
	Timeout badoption.Duration `json:"timeout,omitempty"`

	MaxEvents int `json:"max_events,omitempty"`
}
