package auth

import (
	"bufio"
	"bytes"
	"crypto/rand"
	_ "embed"
	"im-bridge/errors"
	"math/big"
	"strings"
	"sync"
)

//go:embed words/wordlist.txt
var wordlistFile []byte

const (
	passphraseWords     = 5
	passphraseSeparator = "-"
)

var (
	loadWords = sync.OnceValues(func() ([]string, error) {
		return parseWords(wordlistFile)
	})
)

// Words returns the embedded word list used for passphrases and cluster names.
func Words() ([]string, error) {
	return loadWords()
}

func parseWords(data []byte) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			words = append(words, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, errors.ErrEmptyWords
	}
	return words, nil
}

// Word draws a single word uniformly from the word list.
func Word() (string, error) {
	words, err := Words()
	if err != nil {
		return "", err
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(words))))
	if err != nil {
		return "", err
	}
	return words[n.Int64()], nil
}

// Passphrase joins n random lowercase words with dashes, e.g. "cargo-swirl-oak-tidy-bask".
func Passphrase(n int) (string, error) {
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		w, err := Word()
		if err != nil {
			return "", err
		}
		parts = append(parts, w)
	}
	return strings.Join(parts, passphraseSeparator), nil
}
