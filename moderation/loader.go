package moderation

import (
	"bufio"
	"bytes"
	"chat-broadcast/errors"
	"embed"
	"io/fs"
	"path"
	"sort"
	"strings"
)

//go:embed censored/*
var defaultDictionary embed.FS

// DefaultDictionary returns the word lists shipped with the binary.
func DefaultDictionary() fs.FS {
	sub, err := fs.Sub(defaultDictionary, "censored")
	if err != nil {
		panic(err)
	}
	return sub
}

// CensoredData carries the result of the loading process including metadata for logging.
type CensoredData struct {
	Words     []string
	Languages []string
}

// LoadAll reads every .txt file at the root of dir, one word per line.
// The file name is the language of the list (e.g., "fr.txt" -> "fr").
func LoadAll(dir fs.FS) (*CensoredData, error) {
	entries, err := fs.ReadDir(dir, ".")
	if err != nil {
		return nil, err
	}

	var languages []string
	uniqueWords := make(map[string]struct{})

	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}
		languages = append(languages, strings.TrimSuffix(entry.Name(), ".txt"))

		data, err := fs.ReadFile(dir, entry.Name())
		if err != nil {
			return nil, err
		}

		// Scanner handles \n and \r\n line endings alike
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				uniqueWords[line] = struct{}{}
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}

	if len(uniqueWords) == 0 {
		return nil, errors.ErrEmptyWords
	}

	words := make([]string, 0, len(uniqueWords))
	for w := range uniqueWords {
		words = append(words, w)
	}
	sort.Strings(words)

	return &CensoredData{Words: words, Languages: languages}, nil
}
