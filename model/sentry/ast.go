package sentry

import (
	"fmt"
	"strings"

	"github.com/viant/parsly"
)

// Binding resolves the four predicate forms a compiled sentry may call. The
// engine implements it against the instance's node tables; tests use fakes.
type Binding interface {
	IsMilestoneAchieved(milestone string) (bool, error)
	IsEventOccurring(event string) (bool, error)
	IsStageActive(stage string) (bool, error)
	IsInfoModel(entity, attribute, value, operator string) (bool, error)
}

// Node is one node of a compiled sentry's boolean expression tree.
type Node interface {
	Eval(b Binding) (bool, error)
}

// Literal is a boolean constant.
type Literal bool

// Eval returns the constant.
func (l Literal) Eval(Binding) (bool, error) {
	return bool(l), nil
}

// Not negates its operand.
type Not struct {
	X Node
}

// Eval evaluates the operand and negates it.
func (n *Not) Eval(b Binding) (bool, error) {
	v, err := n.X.Eval(b)
	if err != nil {
		return false, err
	}
	return !v, nil
}

// Binary is a logical conjunction or disjunction. Evaluation short-circuits
// like the connectives it models; an error on the right operand surfaces only
// when the left operand does not already decide the result.
type Binary struct {
	Op   string // "&&" or "||"
	X, Y Node
}

// Eval applies the node's operator, evaluating the right operand lazily.
func (n *Binary) Eval(b Binding) (bool, error) {
	x, err := n.X.Eval(b)
	if err != nil {
		return false, err
	}
	if n.Op == "&&" && !x {
		return false, nil
	}
	if n.Op == "||" && x {
		return true, nil
	}
	return n.Y.Eval(b)
}

// Call is a named predicate invocation with string-literal arguments.
type Call struct {
	Name string
	Args []string
}

// Eval dispatches to the binding predicate named by the call.
func (c *Call) Eval(b Binding) (bool, error) {
	switch c.Name {
	case "isMilestoneAchieved":
		if len(c.Args) != 1 {
			return false, fmt.Errorf("isMilestoneAchieved expects 1 argument, got %d", len(c.Args))
		}
		return b.IsMilestoneAchieved(c.Args[0])
	case "isEventOccurring":
		if len(c.Args) != 1 {
			return false, fmt.Errorf("isEventOccurring expects 1 argument, got %d", len(c.Args))
		}
		return b.IsEventOccurring(c.Args[0])
	case "isStageActive":
		if len(c.Args) != 1 {
			return false, fmt.Errorf("isStageActive expects 1 argument, got %d", len(c.Args))
		}
		return b.IsStageActive(c.Args[0])
	case "isInfoModel":
		if len(c.Args) != 4 {
			return false, fmt.Errorf("isInfoModel expects 4 arguments, got %d", len(c.Args))
		}
		return b.IsInfoModel(c.Args[0], c.Args[1], c.Args[2], c.Args[3])
	}
	return false, fmt.Errorf("unknown predicate %s", c.Name)
}

// parse builds the expression tree for a compiled sentry source.
func parse(source string) (Node, error) {
	cursor := parsly.NewCursor("", []byte(source), 0)
	node, err := parseOr(cursor)
	if err != nil {
		return nil, err
	}
	// trailing input other than whitespace is a malformed sentry
	cursor.MatchOne(whitespaceToken)
	if cursor.Pos < cursor.InputSize {
		return nil, fmt.Errorf("unexpected trailing input at %d in %q", cursor.Pos, source)
	}
	return node, nil
}

func parseOr(cursor *parsly.Cursor) (Node, error) {
	left, err := parseAnd(cursor)
	if err != nil {
		return nil, err
	}
	for {
		matched := cursor.MatchAfterOptional(whitespaceToken, orOpToken)
		if matched.Code != orOpToken.Code {
			return left, nil
		}
		right, err := parseAnd(cursor)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: "||", X: left, Y: right}
	}
}

func parseAnd(cursor *parsly.Cursor) (Node, error) {
	left, err := parseUnary(cursor)
	if err != nil {
		return nil, err
	}
	for {
		matched := cursor.MatchAfterOptional(whitespaceToken, andOpToken)
		if matched.Code != andOpToken.Code {
			return left, nil
		}
		right, err := parseUnary(cursor)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: "&&", X: left, Y: right}
	}
}

func parseUnary(cursor *parsly.Cursor) (Node, error) {
	matched := cursor.MatchAfterOptional(whitespaceToken, notOpToken)
	if matched.Code == notOpToken.Code {
		operand, err := parseUnary(cursor)
		if err != nil {
			return nil, err
		}
		return &Not{X: operand}, nil
	}
	return parsePrimary(cursor)
}

func parsePrimary(cursor *parsly.Cursor) (Node, error) {
	matched := cursor.MatchAfterOptional(whitespaceToken, openParenToken, predicateToken, identifierToken)
	switch matched.Code {
	case openParenToken.Code:
		node, err := parseOr(cursor)
		if err != nil {
			return nil, err
		}
		matched = cursor.MatchAfterOptional(whitespaceToken, closeParenToken)
		if matched.Code != closeParenToken.Code {
			return nil, cursor.NewError(closeParenToken)
		}
		return node, nil
	case predicateToken.Code:
		name := strings.TrimPrefix(matched.Text(cursor), "GSM.")
		return parseCallArgs(cursor, name)
	case identifierToken.Code:
		switch matched.Text(cursor) {
		case "true":
			return Literal(true), nil
		case "false":
			return Literal(false), nil
		}
		return nil, fmt.Errorf("unexpected identifier %s", matched.Text(cursor))
	}
	return nil, cursor.NewError(openParenToken, predicateToken, identifierToken)
}

func parseCallArgs(cursor *parsly.Cursor, name string) (Node, error) {
	matched := cursor.MatchAfterOptional(whitespaceToken, openParenToken)
	if matched.Code != openParenToken.Code {
		return nil, cursor.NewError(openParenToken)
	}
	call := &Call{Name: name}
	for {
		matched = cursor.MatchAfterOptional(whitespaceToken, stringLiteralToken, closeParenToken)
		switch matched.Code {
		case closeParenToken.Code:
			return call, nil
		case stringLiteralToken.Code:
			text := matched.Text(cursor)
			call.Args = append(call.Args, text[1:len(text)-1])
		default:
			return nil, cursor.NewError(stringLiteralToken, closeParenToken)
		}
		matched = cursor.MatchAfterOptional(whitespaceToken, commaToken, closeParenToken)
		switch matched.Code {
		case commaToken.Code:
		case closeParenToken.Code:
			return call, nil
		default:
			return nil, cursor.NewError(commaToken, closeParenToken)
		}
	}
}
