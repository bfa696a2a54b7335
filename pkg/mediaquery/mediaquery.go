// Package mediaquery compiles CSS media query expressions and evaluates
// them against a Media environment.
//
// The grammar covers media types (all, screen, print), the not/only
// prefixes, comma-separated query lists, and the common feature set:
// width, height, aspect-ratio, orientation, resolution,
// prefers-color-scheme, prefers-reduced-motion, hover and pointer.
// The range syntax (400px < width <= 900px) is accepted for the
// dimensional features.
//
// Compilation is strict: a malformed expression returns a *ParseError
// pointing at the offending offset. Callers that need the forgiving
// browser behavior, where a bad query silently never matches, can fall
// back to Invalid.
package mediaquery

// Query is a compiled media query list. A Query is immutable and safe
// for concurrent use.
type Query struct {
	raw     string
	list    []query
	invalid bool
}

// Compile parses a media query expression. The empty string compiles to
// a query that matches every environment, mirroring how browsers treat
// an empty media attribute.
func Compile(raw string) (*Query, error) {
	list, err := parse(raw)
	if err != nil {
		return nil, err
	}
	return &Query{raw: raw, list: list}, nil
}

// MustCompile is like Compile but panics if the expression is invalid.
// It simplifies safe initialization of global variables holding
// compiled queries.
func MustCompile(raw string) *Query {
	q, err := Compile(raw)
	if err != nil {
		panic(`mediaquery: MustCompile(` + quote(raw) + `): ` + err.Error())
	}
	return q
}

// Invalid returns a never-matching query carrying the original
// expression. Browsers canonicalize unparseable queries to "not all";
// this is that object.
func Invalid(raw string) *Query {
	return &Query{raw: raw, invalid: true}
}

// Matches evaluates the query against the environment. A query list
// matches when any comma-separated alternative does. Invalid queries
// never match.
func (q *Query) Matches(m Media) bool {
	if q.invalid {
		return false
	}
	for _, alt := range q.list {
		if alt.matches(m) {
			return true
		}
	}
	return false
}

// Valid reports whether the query parsed successfully.
func (q *Query) Valid() bool {
	return !q.invalid
}

// Raw returns the expression the query was compiled from.
func (q *Query) Raw() string {
	return q.raw
}

// String returns the query expression, or the canonical "not all" for
// invalid queries.
func (q *Query) String() string {
	if q.invalid {
		return "not all"
	}
	return q.raw
}

func quote(s string) string {
	return `"` + s + `"`
}
