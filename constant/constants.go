package constant

const Version = "0.1.0"

const (
	TypeHTTP      = "http"
	TypeTCP       = "tcp"
	TypeUDP       = "udp"
	TypeWebSocket = "websocket"
)

// StateVersion is the default schema version stamped into serialized
// flow state. Bump when the state layout changes.
const StateVersion = 1

// KillMessage is the error message attached to killed flows.
const KillMessage = "Connection killed"
