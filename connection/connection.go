// Package connection provides concrete connection records for flows.
// They record addressing, timing and TLS facts about one side of a
// transaction, they do not own sockets.
package connection

import (
	"github.com/sagernet/sing-intercept/adapter"
	"github.com/sagernet/sing-intercept/common/stateobject"

	M "github.com/sagernet/sing/common/metadata"
)

var (
	_ adapter.Conn = (*ClientConn)(nil)
	_ adapter.Conn = (*ServerConn)(nil)
)

// ClientConn records the accepted client side of a flow.
type ClientConn struct {
	Source         M.Socksaddr
	CreatedAt      float64
	TLSEstablished bool
	TLSServerName  string
	BytesRead      int64
	BytesWritten   int64
}

func (c *ClientConn) StateFields() []stateobject.Field {
	return []stateobject.Field{
		{
			Name: "address",
			Kind: stateobject.KindString,
			Get:  func() any { return c.Source.String() },
			Set:  func(value any) { c.Source = M.ParseSocksaddr(value.(string)) },
		},
		{
			Name: "created_at",
			Kind: stateobject.KindFloat,
			Get:  func() any { return c.CreatedAt },
			Set:  func(value any) { c.CreatedAt = value.(float64) },
		},
		{
			Name: "tls_established",
			Kind: stateobject.KindBool,
			Get:  func() any { return c.TLSEstablished },
			Set:  func(value any) { c.TLSEstablished = value.(bool) },
		},
		{
			Name: "tls_server_name",
			Kind: stateobject.KindString,
			Get:  func() any { return c.TLSServerName },
			Set:  func(value any) { c.TLSServerName = value.(string) },
		},
		{
			Name:      "bytes_read",
			Kind:      stateobject.KindInt,
			ShortOmit: true,
			Get:       func() any { return c.BytesRead },
			Set:       func(value any) { c.BytesRead = value.(int64) },
		},
		{
			Name:      "bytes_written",
			Kind:      stateobject.KindInt,
			ShortOmit: true,
			Get:       func() any { return c.BytesWritten },
			Set:       func(value any) { c.BytesWritten = value.(int64) },
		},
	}
}

func (c *ClientConn) Copy() adapter.Conn {
	copied := *c
	return &copied
}

// ServerConn records the upstream side of a flow.
type ServerConn struct {
	Address        M.Socksaddr
	Source         M.Socksaddr
	ConnectedAt    float64
	TLSEstablished bool
	TLSServerName  string
	BytesRead      int64
	BytesWritten   int64
}

func (c *ServerConn) StateFields() []stateobject.Field {
	return []stateobject.Field{
		{
			Name: "address",
			Kind: stateobject.KindString,
			Get:  func() any { return c.Address.String() },
			Set:  func(value any) { c.Address = M.ParseSocksaddr(value.(string)) },
		},
		{
			Name: "source_address",
			Kind: stateobject.KindString,
			Get:  func() any { return c.Source.String() },
			Set:  func(value any) { c.Source = M.ParseSocksaddr(value.(string)) },
		},
		{
			Name: "connected_at",
			Kind: stateobject.KindFloat,
			Get:  func() any { return c.ConnectedAt },
			Set:  func(value any) { c.ConnectedAt = value.(float64) },
		},
		{
			Name: "tls_established",
			Kind: stateobject.KindBool,
			Get:  func() any { return c.TLSEstablished },
			Set:  func(value any) { c.TLSEstablished = value.(bool) },
		},
		{
			Name: "tls_server_name",
			Kind: stateobject.KindString,
			Get:  func() any { return c.TLSServerName },
			Set:  func(value any) { c.TLSServerName = value.(string) },
		},
		{
			Name:      "bytes_read",
			Kind:      stateobject.KindInt,
			ShortOmit: true,
			Get:       func() any { return c.BytesRead },
			Set:       func(value any) { c.BytesRead = value.(int64) },
		},
		{
			Name:      "bytes_written",
			Kind:      stateobject.KindInt,
			ShortOmit: true,
			Get:       func() any { return c.BytesWritten },
			Set:       func(value any) { c.BytesWritten = value.(int64) },
		},
	}
}

func (c *ServerConn) Copy() adapter.Conn {
	copied := *c
	return &copied
}
