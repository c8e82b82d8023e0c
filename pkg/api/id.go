package api

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"regexp"

	"github.com/google/uuid"
)

const (
	idLength = 24
	charset  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	sessionIDPrefix = "sess_"

	// namespacePrefix marks every schema this service owns. The reaper
	// only ever touches schemas carrying it.
	namespacePrefix = "practice_"
	namespaceHexLen = 12
)

var (
	sessionIDPattern = regexp.MustCompile(`^sess_[a-zA-Z0-9]{24}$`)
	namespacePattern = regexp.MustCompile(`^practice_[0-9a-f]{12}$`)
)

// NewSessionID generates a new session ID with the "sess_" prefix
// followed by 24 cryptographically random alphanumeric characters.
func NewSessionID() string {
	return sessionIDPrefix + randomAlphanumeric(idLength)
}

// NewNamespace generates a sandbox schema name: the "practice_" prefix
// followed by 12 hex characters from a random UUID. The result is a
// valid unquoted Postgres identifier.
func NewNamespace() string {
	u := uuid.New()
	return namespacePrefix + hex.EncodeToString(u[:])[:namespaceHexLen]
}

// ValidateSessionID checks whether the given string is a valid session ID
// (matches "sess_" + 24 alphanumeric characters).
func ValidateSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// ValidateNamespace checks whether the given string is a schema name
// this service could have generated (matches "practice_" + 12 hex
// characters). Everything interpolated into schema DDL must pass this.
func ValidateNamespace(name string) bool {
	return namespacePattern.MatchString(name)
}

func randomAlphanumeric(n int) string {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("crypto/rand failed: " + err.Error())
		}
		b[i] = charset[idx.Int64()]
	}
	return string(b)
}
