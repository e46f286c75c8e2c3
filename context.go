package goCred

import "context"

// Origin describes where a credential request came from. Both fields are
// optional and only feed audit records, log fields and the last login address.
type Origin struct {
	ClientIP  string
	UserAgent string
}

type originKey struct{}

// WithOrigin attaches o to ctx, replacing any origin already present.
func WithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// WithClientIP sets the client address on the origin carried by ctx.
func WithClientIP(ctx context.Context, ip string) context.Context {
	o := originFrom(ctx)
	o.ClientIP = ip
	return WithOrigin(ctx, o)
}

// WithUserAgent sets the User-Agent on the origin carried by ctx.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	o := originFrom(ctx)
	o.UserAgent = userAgent
	return WithOrigin(ctx, o)
}

func originFrom(ctx context.Context) Origin {
	if ctx == nil {
		return Origin{}
	}
	o, _ := ctx.Value(originKey{}).(Origin)
	return o
}

func clientIPFromContext(ctx context.Context) string { return originFrom(ctx).ClientIP }

func userAgentFromContext(ctx context.Context) string { return originFrom(ctx).UserAgent }
