package auth

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/lo"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type contextKey string

const (
	userNameKey contextKey = "user_name"

	authorizationHeader = "authorization"
	bearerPrefix        = "Bearer "
)

// WithUserName returns a copy of ctx carrying the authenticated user name.
func WithUserName(ctx context.Context, userName string) context.Context {
	return context.WithValue(ctx, userNameKey, userName)
}

// UserNameFromContext returns the identity set by the interceptor, if any.
func UserNameFromContext(ctx context.Context) (string, bool) {
	userName, ok := ctx.Value(userNameKey).(string)
	return userName, ok && userName != ""
}

// Interceptor resolves the caller identity from the bearer token of incoming calls.
// When required is false, calls without a valid token proceed anonymously.
type Interceptor struct {
	log           *slog.Logger
	issuer        *TokenIssuer
	required      bool
	role          string
	publicMethods map[string]struct{}
}

func NewInterceptor(log *slog.Logger, issuer *TokenIssuer, required bool, publicMethods ...string) *Interceptor {
	public := make(map[string]struct{}, len(publicMethods))
	for _, m := range publicMethods {
		public[m] = struct{}{}
	}
	return &Interceptor{log: log, issuer: issuer, required: required, publicMethods: public}
}

// RequireRole refuses valid tokens lacking role on every non public method.
func (i *Interceptor) RequireRole(role string) *Interceptor {
	i.role = role
	return i
}

func (i *Interceptor) Unary() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		newCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(newCtx, req)
	}
}

func (i *Interceptor) Stream() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		newCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &identifiedStream{ServerStream: ss, ctx: newCtx})
	}
}

func (i *Interceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	if _, ok := i.publicMethods[method]; ok {
		return ctx, nil
	}

	tokenStr, found := bearerToken(ctx)
	if !found {
		if i.required {
			return nil, status.Error(codes.Unauthenticated, "authorization token is missing")
		}
		return ctx, nil
	}

	claims, err := i.issuer.Validate(tokenStr)
	if err != nil {
		if i.required {
			return nil, status.Error(codes.Unauthenticated, "invalid or expired token")
		}
		i.log.Debug("Ignoring invalid token, proceeding anonymously", "method", method, "error", err)
		return ctx, nil
	}
	if i.role != "" && !lo.Contains(claims.Roles, i.role) {
		return nil, status.Errorf(codes.PermissionDenied, "role %q is required", i.role)
	}
	return WithUserName(ctx, claims.UserName), nil
}

func bearerToken(ctx context.Context) (string, bool) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", false
	}
	values := md.Get(authorizationHeader)
	if len(values) == 0 || !strings.HasPrefix(values[0], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(values[0], bearerPrefix))
	return token, token != ""
}

// identifiedStream overrides the stream context with the enriched one.
type identifiedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *identifiedStream) Context() context.Context {
	return s.ctx
}

// OutgoingContext attaches token to the metadata of calls made with the returned context.
func OutgoingContext(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, authorizationHeader, bearerPrefix+token)
}
