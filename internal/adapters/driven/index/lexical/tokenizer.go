package lexical

import (
	"regexp"
	"strings"
)

var reToken = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// token is one term occurrence with its byte span in the source text.
type token struct {
	term  string
	start int
	end   int
}

// tokenize lowercases and splits text into alphanumeric terms, keeping
// byte offsets for citation building. Both queries and documents go
// through this same tokenizer.
func tokenize(text string) []token {
	spans := reToken.FindAllStringIndex(text, -1)
	tokens := make([]token, 0, len(spans))
	for _, span := range spans {
		tokens = append(tokens, token{
			term:  strings.ToLower(text[span[0]:span[1]]),
			start: span[0],
			end:   span[1],
		})
	}
	return tokens
}

// queryTerms extracts the distinct lowercased terms of a query.
func queryTerms(text string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, tok := range tokenize(text) {
		if !seen[tok.term] {
			seen[tok.term] = true
			terms = append(terms, tok.term)
		}
	}
	return terms
}
