// Package sec provides authentication and request authorization primitives for
// the dashboard.
//
// # Authentication
//
// There is exactly one credential: a bcrypt hash of the shared dashboard
// password. A successful login is exchanged for a stateless HS256 session token
// carried in the "session" cookie. Tokens expire 24 hours after issuance and
// cannot be revoked early; logging out only deletes the cookie.
//
// Machine clients (the agent itself) may instead present the static internal
// API key in the X-Api-Key header on the resources that allow it.
//
// # Authorization
//
// Every request is matched against a [PolicyTable] that maps path prefixes to
// a [Policy]. [Gate.Authorize] is the single predicate that evaluates a policy
// for a request; it is applied once at the edge and again by each protected
// route. Any failure resolves to a deny.
//
// # Components
//
//   - [Verifier], [HashPassword], [ComparePassword]: bcrypt password utilities
//   - [Tokens]: session token issuance and validation
//   - [PolicyTable], [Policy]: the central access policy
//   - [Gate]: the per-request authorization decision
//   - [GetPrincipal], [SetPrincipal]: context accessors for the caller
package sec
