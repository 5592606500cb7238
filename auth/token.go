package auth

import (
	"crypto/subtle"
	"strings"
)

// Token is the admin credential. One token is generated at startup and lives
// as long as the process; it is never persisted nor rotated.
type Token struct {
	value string
}

// NewToken generates a fresh admin token.
func NewToken() (Token, error) {
	pass, err := Passphrase(passphraseWords)
	if err != nil {
		return Token{}, err
	}
	return Token{value: pass}, nil
}

// TokenFrom wraps a known value, mostly useful in tests.
func TokenFrom(value string) Token {
	return Token{value: value}
}

func (t Token) String() string {
	return t.value
}

// Matches compares in constant time so the token cannot be guessed byte by byte.
func (t Token) Matches(given string) bool {
	if t.value == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(t.value), []byte(given)) == 1
}

// ContainedIn reports whether text embeds the token, as friend requests do.
func (t Token) ContainedIn(text string) bool {
	return t.value != "" && strings.Contains(text, t.value)
}
