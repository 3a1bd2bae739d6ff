package search

import (
	"strconv"
	"strings"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Query represents the structured parameters of an archive search.
// It decouples the raw chat input from the actual index requirements.
type Query struct {
	RawInput string // The original input from the user
	Terms    string // The actual text to search in the index
	UserName string // Exact sender name, optional
	Lang     string // ISO 639-1 code, optional
	Limit    int    // Number of results
}

// NewSearchQuery parses a raw string to extract command-line style arguments.
// Example: hello world --user Dulan --lang en --limit 5
func NewSearchQuery(input string) Query {
	query := Query{
		RawInput: input,
		Limit:    defaultLimit,
	}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		// Handle flags like --user Dulan or --limit 4, unknown flags stay terms
		if key, ok := strings.CutPrefix(part, "--"); ok && isFlag(key) && i+1 < len(parts) {
			val := parts[i+1]

			switch key {
			case "user":
				query.UserName = val
			case "lang":
				query.Lang = strings.ToLower(val)
			case "limit":
				if n, err := strconv.Atoi(val); err == nil && n > 0 {
					query.Limit = min(n, maxLimit)
				}
			}
			i++ // Skip the value part in next iteration
			continue
		}

		textTerms = append(textTerms, part)
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}

func isFlag(key string) bool {
	switch key {
	case "user", "lang", "limit":
		return true
	}
	return false
}
