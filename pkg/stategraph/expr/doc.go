/*
Package expr evaluates small boolean expressions against a state snapshot,
for use in routing conditions.

Expressions reference state keys by bare identifier and compare them to
literals:

	ok, err := expr.Eval("status == 'approved' and retries < 3", state.Values())

# Syntax

  - Comparison: ==, != (string comparison), <, >, <=, >= (numeric)
  - Substring: contains
  - Logic: and, or, not, ! (prefix)
  - Literals: 'single' or "double" quoted strings, true/false, null/nil,
    integers and floats
  - Bare identifiers resolve through the variable map; a missing identifier
    is treated as a string literal
  - A bare value with no operator is tested for truthiness

Custom operators can be registered:

	e := expr.New(expr.WithOperator("startswith", func(l, r any) bool {
	    return strings.HasPrefix(fmt.Sprint(l), fmt.Sprint(r))
	}))

The parser is intentionally small: no parentheses, no arithmetic. Routing
conditions that outgrow it belong in a RouterFunc written in Go.
*/
package expr
