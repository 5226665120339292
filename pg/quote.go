package pg

import (
	"fmt"
	"strings"
)

func quoteIdent(ident string) (string, error) {
	ident = strings.TrimSpace(ident)
	if ident == "" {
		return "", fmt.Errorf("empty identifier")
	}
	for _, r := range ident {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			continue
		}
		return "", fmt.Errorf("invalid identifier %q", ident)
	}
	return `"` + ident + `"`, nil
}

// QuoteSchema validates and safely quotes a schema identifier for embedding in SQL.
func QuoteSchema(schema string) (string, error) {
	return quoteIdent(schema)
}
