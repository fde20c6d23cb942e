package shared

import (
	"context"
	"net/http"
	"strconv"
)

// Headers set by the upstream gateway after authenticating the caller.
const (
	HeaderInstituteID = "X-Institute-ID"
	HeaderUserID      = "X-User-ID"
)

// Scope identifies the organisational unit and user a request acts for.
type Scope struct {
	InstituteID int64
	UserID      int64
}

type scopeContextKey struct{}

// ContextWithScope stores the scope in context.
func ContextWithScope(ctx context.Context, scope Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, scope)
}

// ScopeFromContext extracts the scope from context.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	scope, ok := ctx.Value(scopeContextKey{}).(Scope)
	return scope, ok
}

// ScopeFromRequest parses the trusted scope headers.
func ScopeFromRequest(r *http.Request) (Scope, error) {
	institute, err := strconv.ParseInt(r.Header.Get(HeaderInstituteID), 10, 64)
	if err != nil || institute <= 0 {
		return Scope{}, ErrMissingScope
	}
	user, err := strconv.ParseInt(r.Header.Get(HeaderUserID), 10, 64)
	if err != nil || user <= 0 {
		return Scope{}, ErrMissingScope
	}
	return Scope{InstituteID: institute, UserID: user}, nil
}
