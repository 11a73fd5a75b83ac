// Package sentry compiles declarative guard/milestone expressions into
// evaluable boolean predicates together with the set of symbols they depend
// on. Compilation is a regular-expression-driven token rewrite; the rewritten
// source is then parsed into a typed expression tree which is evaluated
// against explicit node lookups - never a general-purpose code evaluator.
package sentry

import (
	"regexp"
)

var (
	// bare predicate argument: method(argument) -> method("argument")
	bareArgExpr = regexp.MustCompile(`\((\w+)\)`)

	// information-model path comparison, rewritten into the canonical
	// 4-argument predicate call GSM.isInfoModel(entity, attribute, value, op)
	infoPathExpr = regexp.MustCompile(`\{infoModel\./infoModel/(\w+)/(\w+)\} ([!<>'=]=?) \[(\w+)\]`)

	// word-boundary-aware textual connectives
	andExpr = regexp.MustCompile(` and `)
	orExpr  = regexp.MustCompile(` or `)
	notExpr = regexp.MustCompile(`(not )|( not)`)
)

// Sentry is a compiled guard/milestone expression: the evaluable source text,
// the ordered set of distinct symbols it references, and the parsed
// expression tree. The source text is load-bearing beyond evaluation - skip
// detection performs textual containment checks against it.
type Sentry struct {
	Source string
	Deps   []string

	expr     Node
	parseErr error
}

// Compile rewrites a declarative expression into its evaluable form and
// records every referenced symbol as a dependency. Malformed expressions are
// not rejected here; a parse failure is latched and surfaces on Eval so that
// one bad sentry cannot abort model loading.
func Compile(expression string) *Sentry {
	ret := &Sentry{}
	source := expression

	// quote bare arguments, recording each as a dependency symbol
	for _, groups := range bareArgExpr.FindAllStringSubmatch(source, -1) {
		ret.addDep(groups[1])
	}
	source = bareArgExpr.ReplaceAllString(source, `("$1")`)

	// canonicalise information-model comparisons; the entity is the symbol
	for _, groups := range infoPathExpr.FindAllStringSubmatch(source, -1) {
		ret.addDep(groups[1])
	}
	source = infoPathExpr.ReplaceAllString(source, `GSM.isInfoModel("$1","$2","$4","$3")`)

	// textual connectives
	source = andExpr.ReplaceAllString(source, " && ")
	source = orExpr.ReplaceAllString(source, " || ")
	source = notExpr.ReplaceAllString(source, "!")

	ret.Source = source
	ret.expr, ret.parseErr = parse(source)
	return ret
}

// Eval evaluates the compiled expression against the supplied binding. The
// caller owns the failure policy: on error the node's value is forced false
// and propagation continues.
func (s *Sentry) Eval(b Binding) (bool, error) {
	if s.parseErr != nil {
		return false, s.parseErr
	}
	return s.expr.Eval(b)
}

func (s *Sentry) addDep(symbol string) {
	if symbol == "" {
		return
	}
	for _, dep := range s.Deps {
		if dep == symbol {
			return
		}
	}
	s.Deps = append(s.Deps, symbol)
}
