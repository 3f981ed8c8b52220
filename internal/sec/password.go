package sec

import "golang.org/x/crypto/bcrypt"

// maxPasswordLen is the bcrypt input limit; longer inputs are truncated by the
// algorithm and would otherwise collide with their prefix.
const maxPasswordLen = 72

// ComparePassword returns an error if the provided password does not resolve to
// the given hash.
func ComparePassword[T ~string | ~[]byte](password T, hash []byte) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(password))
}

// HashPassword generates the hash for a given password at the given cost. It
// errors if the password is longer than 72 bytes or the cost is out of range.
func HashPassword[T ~string | ~[]byte](password T, cost int) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), cost)
}

// Verifier checks candidate passwords against the single configured hash.
type Verifier struct {
	hash []byte
}

// NewVerifier creates a Verifier for the bcrypt hash. An empty hash produces a
// Verifier that rejects every candidate.
func NewVerifier(hash string) *Verifier {
	return &Verifier{hash: []byte(hash)}
}

// VerifyPassword reports whether candidate matches the configured hash. The
// comparison is deliberately slow.
func (v *Verifier) VerifyPassword(candidate string) bool {
	if v == nil || len(v.hash) == 0 || len(candidate) > maxPasswordLen {
		return false
	}
	return ComparePassword(candidate, v.hash) == nil
}
