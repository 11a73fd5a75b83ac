package sentry

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	predicateCode
	stringLiteralCode
	identifierCode
	openParenCode
	closeParenCode
	commaCode
	notOpCode
	andOpCode
	orOpCode
)

// Token definitions
var (
	whitespaceToken    = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	predicateToken     = parsly.NewToken(predicateCode, "Predicate", newPredicateMatcher())
	stringLiteralToken = parsly.NewToken(stringLiteralCode, "StringLiteral", newStringLiteralMatcher())
	identifierToken    = parsly.NewToken(identifierCode, "Identifier", newIdentifierMatcher())
	openParenToken     = parsly.NewToken(openParenCode, "(", matcher.NewByte('('))
	closeParenToken    = parsly.NewToken(closeParenCode, ")", matcher.NewByte(')'))
	commaToken         = parsly.NewToken(commaCode, ",", matcher.NewByte(','))
	notOpToken         = parsly.NewToken(notOpCode, "!", matcher.NewByte('!'))
	andOpToken         = parsly.NewToken(andOpCode, "&&", newOperatorMatcher('&'))
	orOpToken          = parsly.NewToken(orOpCode, "||", newOperatorMatcher('|'))
)

func newPredicateMatcher() parsly.Matcher {
	return &predicateMatcher{}
}

func newStringLiteralMatcher() parsly.Matcher {
	return &stringLiteralMatcher{}
}

func newIdentifierMatcher() parsly.Matcher {
	return &identifierMatcher{}
}

func newOperatorMatcher(op byte) parsly.Matcher {
	return &operatorMatcher{op: op}
}

// predicateMatcher matches a qualified predicate call head: GSM.<identifier>
type predicateMatcher struct{}

func (m *predicateMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	const prefix = "GSM."
	if pos+len(prefix) >= size {
		return 0
	}
	for i := 0; i < len(prefix); i++ {
		if input[pos+i] != prefix[i] {
			return 0
		}
	}
	matched := len(prefix)
	for i := pos + matched; i < size; i++ {
		if isLetter(input[i]) || isDigit(input[i]) || input[i] == '_' {
			matched++
			continue
		}
		break
	}
	if matched == len(prefix) {
		return 0
	}
	return matched
}

// stringLiteralMatcher matches a double-quoted argument produced by the
// compiler rewrite. Arguments never contain escapes - they originate from
// \w+ captures.
type stringLiteralMatcher struct{}

func (m *stringLiteralMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size || input[pos] != '"' {
		return 0
	}
	for i := pos + 1; i < size; i++ {
		if input[i] == '"' {
			return i - pos + 1
		}
	}
	return 0
}

// identifierMatcher matches bare identifiers (the boolean literals).
type identifierMatcher struct{}

func (m *identifierMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos >= size {
		return 0
	}
	if !isLetter(input[pos]) && input[pos] != '_' {
		return 0
	}
	matched := 1
	for i := pos + 1; i < size; i++ {
		if isLetter(input[i]) || isDigit(input[i]) || input[i] == '_' {
			matched++
			continue
		}
		break
	}
	return matched
}

// operatorMatcher matches a doubled logical operator byte (&& or ||).
type operatorMatcher struct {
	op byte
}

func (m *operatorMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	if pos+1 >= cursor.InputSize {
		return 0
	}
	if input[pos] == m.op && input[pos+1] == m.op {
		return 2
	}
	return 0
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
