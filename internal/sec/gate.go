package sec

import (
	"context"
	"crypto/subtle"
	"net/http"

	"connectrpc.com/authn"
)

// Request credential locations.
const (
	SessionCookie = "session"
	APIKeyHeader  = "X-Api-Key"
)

// AuthMethod names how a request was authorized.
type AuthMethod string

// Authorization methods recorded on a [Principal].
const (
	AuthPublic  AuthMethod = "public"
	AuthAPIKey  AuthMethod = "api_key"
	AuthSession AuthMethod = "session"
)

// Principal describes the authorized caller of a request.
type Principal struct {
	Method AuthMethod
	// TokenID is the session token's jti, set only for session callers.
	TokenID string
}

// Gate makes the per-request authorization decision.
type Gate struct {
	tokens *Tokens
	apiKey []byte
	table  *PolicyTable
}

// NewGate creates a Gate. An empty internalKey disables the API key bypass
// entirely, so an empty header can never match.
func NewGate(tokens *Tokens, internalKey string, table *PolicyTable) *Gate {
	return &Gate{
		tokens: tokens,
		apiKey: []byte(internalKey),
		table:  table,
	}
}

// Policy resolves the policy for a request method and path.
func (g *Gate) Policy(method, path string) Policy {
	return g.table.Lookup(method, path)
}

// Authorize evaluates policy for r. It checks, in order: a public policy, the
// internal API key (where the policy allows it), and the session cookie. The
// returned error is always an unauthenticated ConnectRPC error carrying no
// detail about which check failed.
func (g *Gate) Authorize(r *http.Request, policy Policy) (Principal, error) {
	switch policy {
	case PolicyPublic:
		return Principal{Method: AuthPublic}, nil
	case PolicyKeyOrSession:
		if g.keyMatches(r.Header.Get(APIKeyHeader)) {
			return Principal{Method: AuthAPIKey}, nil
		}
		return g.session(r)
	case PolicySession:
		return g.session(r)
	default:
		return Principal{}, unauthorized()
	}
}

func (g *Gate) keyMatches(presented string) bool {
	if len(g.apiKey) == 0 || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), g.apiKey) == 1
}

func (g *Gate) session(r *http.Request) (Principal, error) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" || g.tokens == nil {
		return Principal{}, unauthorized()
	}
	claims, err := g.tokens.Parse(cookie.Value)
	if err != nil {
		return Principal{}, unauthorized()
	}
	return Principal{Method: AuthSession, TokenID: claims.ID}, nil
}

func unauthorized() error {
	return authn.Errorf("unauthorized")
}

// GetPrincipal returns the caller recorded on ctx by the authorization
// middleware. The second value is false if none was recorded.
func GetPrincipal(ctx context.Context) (Principal, bool) {
	principal, ok := authn.GetInfo(ctx).(Principal)
	return principal, ok
}

// SetPrincipal records the authorized caller on ctx.
func SetPrincipal(ctx context.Context, principal Principal) context.Context {
	return authn.SetInfo(ctx, principal)
}
