package log

import (
	"context"
)

type idKey struct{}

// ContextWithID tags the context with an identifier, typically a flow
// id, which the formatter prefixes onto every message.
func ContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, (*idKey)(nil), id)
}

func IDFromContext(ctx context.Context) (string, bool) {
	id, loaded := ctx.Value((*idKey)(nil)).(string)
	return id, loaded
}
