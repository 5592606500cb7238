package moderation

import (
	"im-bridge/errors"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_LoadAll(t *testing.T) {
	req := require.New(t)

	// Given two dictionaries sharing a word and using different line endings
	files := fstest.MapFS{
		"censored/en.txt":    {Data: []byte("badger\nsnake\n\n")},
		"censored/fr.txt":    {Data: []byte("blaireau\r\nbadger\r\n")},
		"censored/README.md": {Data: []byte("not a dictionary")},
	}

	data, err := NewCensoredLoader(files).LoadAll("censored")
	req.NoError(err)

	// Then words are deduplicated and languages come from file names
	req.ElementsMatch([]string{"badger", "snake", "blaireau"}, data.Words)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
}

func TestCensoredLoader_Rejects_Subdirectories(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{
		"censored/en.txt":       {Data: []byte("badger")},
		"censored/nested/x.txt": {Data: []byte("snake")},
	}

	_, err := NewCensoredLoader(files).LoadAll("censored")
	req.ErrorIs(err, errors.ErrOnlyCensoredFiles)
}

func TestCensoredLoader_Empty_Dictionaries(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{
		"censored/en.txt": {Data: []byte("\n  \n")},
	}

	_, err := NewCensoredLoader(files).LoadAll("censored")
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestModerator_Without_Usable_Words_Passes_Text_Through(t *testing.T) {
	req := require.New(t)
	mod, err := NewModerator([]string{"...", ""}, replacementChar, slog.Default())
	req.NoError(err)

	content, words := mod.Censor("The badger is safe")
	req.Equal("The badger is safe", content)
	req.Nil(words)
}
