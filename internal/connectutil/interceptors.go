package connectutil

import (
	"context"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// DefaultOptions returns the Connect handler options: JSON codec and
// request logging.
func DefaultOptions() []connect.HandlerOption {
	return []connect.HandlerOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithInterceptors(
			NewLoggingInterceptor(),
		),
	}
}

// DefaultClientOptions returns the Connect client options matching
// DefaultOptions.
func DefaultClientOptions() []connect.ClientOption {
	return []connect.ClientOption{
		connect.WithCodec(JSONCodec{}),
		connect.WithInterceptors(
			NewLoggingInterceptor(),
		),
	}
}

// --- Logging Interceptor (unary + streaming) ---

type loggingInterceptor struct{}

// NewLoggingInterceptor creates an interceptor that logs RPC procedure,
// duration and the Connect error code.
func NewLoggingInterceptor() connect.Interceptor {
	return &loggingInterceptor{}
}

func (l *loggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		start := time.Now()
		resp, err := next(ctx, req)

		attrs := []any{
			slog.String("procedure", req.Spec().Procedure),
			slog.Duration("duration", time.Since(start)),
			slog.Bool("client", req.Spec().IsClient),
		}
		if err != nil {
			attrs = append(attrs,
				slog.String("code", connect.CodeOf(err).String()),
				slog.String("error", err.Error()),
			)
			slog.WarnContext(ctx, "rpc error", attrs...)
		} else {
			slog.DebugContext(ctx, "rpc ok", attrs...)
		}
		return resp, err
	}
}

func (l *loggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		slog.DebugContext(ctx, "rpc stream client start", slog.String("procedure", spec.Procedure))
		return next(ctx, spec)
	}
}

func (l *loggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := time.Now()
		err := next(ctx, conn)
		attrs := []any{
			slog.String("procedure", conn.Spec().Procedure),
			slog.Duration("duration", time.Since(start)),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			slog.WarnContext(ctx, "rpc stream error", attrs...)
		} else {
			slog.DebugContext(ctx, "rpc stream ok", attrs...)
		}
		return err
	}
}
