package logctx

import (
	"context"
	"log/slog"
)

// Handler wraps a slog.Handler and enriches records with request and user
// data carried on the context.
type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("method", rd.Method),
			slog.String("path", rd.Path),
			slog.String("client_ip", rd.ClientIP),
		))
	}

	if ud, ok := ctx.Value(userDataKey{}).(*UserData); ok {
		r.AddAttrs(slog.Group("user",
			slog.String("id", ud.UserID),
			slog.String("session_id", ud.SessionID),
		))
	}

	return h.Handler.Handle(ctx, r)
}

type requestDataKey struct{}

type RequestData struct {
	RequestID string
	Method    string
	Path      string
	ClientIP  string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}

type userDataKey struct{}

type UserData struct {
	UserID    string
	SessionID string
}

func WithUserData(ctx context.Context, data *UserData) context.Context {
	return context.WithValue(ctx, userDataKey{}, data)
}
