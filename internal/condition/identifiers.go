package condition

import "strings"

// Identifiers returns the distinct identifiers referenced by condition,
// in order of first appearance. The condition must tokenize, but is not
// parsed.
func Identifiers(condition string) ([]string, error) {
	tokens, err := Tokenize(condition)
	if err != nil {
		return nil, err
	}

	var idents []string
	seen := make(map[string]bool)
	for _, tok := range tokens {
		if tok.Type != TokenIdent || seen[tok.Literal] {
			continue
		}
		seen[tok.Literal] = true
		idents = append(idents, tok.Literal)
	}
	return idents, nil
}

// RewriteIdentifiers returns condition with every identifier replaced by
// rewrite(identifier). All other text, including whitespace and string
// literals, is preserved exactly.
func RewriteIdentifiers(condition string, rewrite func(string) string) (string, error) {
	tokens, err := Tokenize(condition)
	if err != nil {
		return "", err
	}

	src := []rune(condition)
	var sb strings.Builder
	last := 0
	for _, tok := range tokens {
		if tok.Type != TokenIdent {
			continue
		}
		end := tok.Pos + len([]rune(tok.Literal))
		sb.WriteString(string(src[last:tok.Pos]))
		sb.WriteString(rewrite(tok.Literal))
		last = end
	}
	sb.WriteString(string(src[last:]))
	return sb.String(), nil
}
