package kit

import "context"

type contextKey string

const (
	RequestIDKey  contextKey = "kit_request_id"
	RunIDKey      contextKey = "kit_run_id"
	TransportKey  contextKey = "kit_transport" // "http", "mcp"
	RemoteAddrKey contextKey = "kit_remote_addr"
	UserKey       contextKey = "kit_user"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RunIDKey, id)
}
func GetRunID(ctx context.Context) string {
	v, _ := ctx.Value(RunIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithRemoteAddr(ctx context.Context, addr string) context.Context {
	return context.WithValue(ctx, RemoteAddrKey, addr)
}
func GetRemoteAddr(ctx context.Context) string {
	v, _ := ctx.Value(RemoteAddrKey).(string)
	return v
}

func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, UserKey, user)
}
func GetUser(ctx context.Context) string {
	v, _ := ctx.Value(UserKey).(string)
	return v
}
