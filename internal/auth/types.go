// Package auth provides bearer-token authentication for the TeamLedger API.
package auth

import (
	"context"

	"github.com/prn-tf/teamledger/internal/domain"
)

// AuthorizationHeader is the header carrying the bearer token.
const AuthorizationHeader = "Authorization"

// BearerPrefix is the scheme prefix of the Authorization header.
const BearerPrefix = "Bearer "

// PrincipalResolver turns a bearer token into the Principal for one
// operation. The session service provides the implementation.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (*domain.Principal, error)
}

// principalContextKey is the context key for the resolved Principal.
type principalContextKey struct{}

// PrincipalContextKey is the key used to store the Principal in the
// request context.
var PrincipalContextKey = principalContextKey{}

// GetPrincipal retrieves the Principal from a request context. Returns
// nil on unauthenticated requests.
func GetPrincipal(ctx context.Context) *domain.Principal {
	if p, ok := ctx.Value(PrincipalContextKey).(*domain.Principal); ok {
		return p
	}
	return nil
}

// GetToken retrieves the raw bearer token from a request context. Used by
// logout, which needs the token itself rather than the principal.
func GetToken(ctx context.Context) string {
	if token, ok := ctx.Value(tokenContextKey{}).(string); ok {
		return token
	}
	return ""
}

// tokenContextKey is the context key for the raw bearer token.
type tokenContextKey struct{}
