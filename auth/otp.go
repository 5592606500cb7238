package auth

import "sync"

type IOTPStore interface {
	Generate() (string, error)
	Verify(pass string) bool
}

// OTPStore holds the live one-time passwords.
// A password verifies at most once, whatever the number of concurrent callers.
type OTPStore struct {
	live sync.Map
}

func NewOTPStore() *OTPStore {
	return &OTPStore{}
}

// Generate creates a new password and makes it live.
func (s *OTPStore) Generate() (string, error) {
	pass, err := Passphrase(passphraseWords)
	if err != nil {
		return "", err
	}
	s.live.Store(pass, struct{}{})
	return pass, nil
}

// Verify consumes pass. LoadAndDelete is atomic, so only one caller can win a race.
func (s *OTPStore) Verify(pass string) bool {
	_, ok := s.live.LoadAndDelete(pass)
	return ok
}
