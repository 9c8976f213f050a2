//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"fmt"
	"os"
	"os/user"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/oshokin/catpoint/internal/logger"
)

// ActorMetadataKey is the gRPC metadata key carrying the calling actor.
const ActorMetadataKey = "catpoint-actor"

// DetectActor returns the current user and host as username@hostname.
func DetectActor() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("current user: %w", err)
	}

	return currentUser.Username + "@" + hostname, nil
}

// WithActor attaches actor to the outgoing call metadata.
func WithActor(ctx context.Context, actor string) context.Context {
	if actor == "" {
		return ctx
	}

	return metadata.AppendToOutgoingContext(ctx, ActorMetadataKey, actor)
}

// ActorFromContext returns the actor sent by the client, if any.
func ActorFromContext(ctx context.Context) string {
	values := metadata.ValueFromIncomingContext(ctx, ActorMetadataKey)
	if len(values) == 0 {
		return ""
	}

	return values[0]
}

// LoggingUnaryInterceptor logs every unary call together with its actor.
func LoggingUnaryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	ctx = withActorLogger(ctx)

	resp, err := handler(ctx, req)
	if err != nil {
		logger.DebugKV(ctx, "Call failed", "method", info.FullMethod, "error", err)
	} else {
		logger.DebugKV(ctx, "Call handled", "method", info.FullMethod)
	}

	return resp, err
}

// LoggingStreamInterceptor logs every stream together with its actor.
func LoggingStreamInterceptor(
	srv any,
	stream grpc.ServerStream,
	info *grpc.StreamServerInfo,
	handler grpc.StreamHandler,
) error {
	ctx := withActorLogger(stream.Context())
	logger.DebugKV(ctx, "Stream opened", "method", info.FullMethod)

	err := handler(srv, &loggedStream{ServerStream: stream, ctx: ctx})

	logger.DebugKV(ctx, "Stream closed", "method", info.FullMethod, "error", err)

	return err
}

// loggedStream replaces the stream context with one carrying the actor logger.
type loggedStream struct {
	grpc.ServerStream

	ctx context.Context //nolint:containedctx // Required to override ServerStream.Context.
}

// Context returns the context with the actor logger attached.
func (s *loggedStream) Context() context.Context {
	return s.ctx
}

// withActorLogger attaches the calling actor to the context logger.
func withActorLogger(ctx context.Context) context.Context {
	actor := ActorFromContext(ctx)
	if actor == "" {
		return ctx
	}

	return logger.WithKV(ctx, "actor", actor)
}
