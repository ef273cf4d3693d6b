package mcpquic

import "context"

// SessionInfo identifies an MCP session for downstream handlers.
type SessionInfo struct {
	Transport  string
	SessionID  string
	RemoteAddr string
}

type sessionInfoKey struct{}

// WithSessionInfo attaches session identity to the context.
func WithSessionInfo(ctx context.Context, info SessionInfo) context.Context {
	return context.WithValue(ctx, sessionInfoKey{}, info)
}

// SessionInfoFrom extracts session identity, if present.
func SessionInfoFrom(ctx context.Context) (SessionInfo, bool) {
	info, ok := ctx.Value(sessionInfoKey{}).(SessionInfo)
	return info, ok
}
