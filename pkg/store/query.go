package store

import "strings"

type queryToken struct {
	value      string
	isPhrase   bool
	isNegation bool
}

// ftsQuery converts parsed terms to FTS5 syntax. Every term is quoted so
// that unit symbols such as "m/s" or "°C" never reach the FTS5 parser as
// operators. A query made only of exclusions matches nothing.
func ftsQuery(tokens []queryToken) string {
	var include, exclude []string
	for _, t := range tokens {
		term := quoteTerm(strings.Trim(t.value, `"`))
		if !t.isPhrase {
			term += "*"
		}
		if t.isNegation {
			exclude = append(exclude, term)
		} else {
			include = append(include, term)
		}
	}
	if len(include) == 0 {
		return ""
	}
	q := strings.Join(include, " ")
	for _, term := range exclude {
		q += " NOT " + term
	}
	return q
}

func quoteTerm(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// parseQueryTokens parses a query string into tokens
func parseQueryTokens(query string) []queryToken {
	var tokens []queryToken
	inQuotes := false
	currentToken := strings.Builder{}
	isNegation := false

	for i := 0; i < len(query); i++ {
		ch := query[i]

		if ch == '"' {
			if inQuotes {
				phrase := currentToken.String()
				if phrase != "" {
					tokens = append(tokens, queryToken{
						value:      `"` + phrase + `"`,
						isPhrase:   true,
						isNegation: isNegation,
					})
				}
				currentToken.Reset()
				inQuotes = false
				isNegation = false
			} else {
				inQuotes = true
			}
			continue
		}

		if inQuotes {
			currentToken.WriteByte(ch)
			continue
		}

		if ch == ' ' || ch == '\t' {
			token := strings.TrimSpace(currentToken.String())
			if token != "" {
				tokens = append(tokens, queryToken{
					value:      token,
					isNegation: isNegation,
				})
			}
			currentToken.Reset()
			isNegation = false
			continue
		}

		// Negation prefix (only at start of term)
		if ch == '-' && currentToken.Len() == 0 {
			isNegation = true
			continue
		}

		currentToken.WriteByte(ch)
	}

	token := strings.TrimSpace(currentToken.String())
	if token != "" {
		tokens = append(tokens, queryToken{
			value:      token,
			isPhrase:   inQuotes, // Handle unclosed quote
			isNegation: isNegation,
		})
	}

	return tokens
}
