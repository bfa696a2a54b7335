package mediaquery

import "fmt"

// ParseError describes a syntax error in a media query expression. Pos
// is a byte offset into Query; Code is a stable error code suitable for
// mapping to documentation.
type ParseError struct {
	Query   string
	Pos     int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("mediaquery: %s at offset %d in %q", e.Message, e.Pos, e.Query)
}

// featureKind identifies a supported media feature.
type featureKind uint8

const (
	featWidth featureKind = iota
	featHeight
	featAspectRatio
	featOrientation
	featResolution
	featColorScheme
	featReducedMotion
	featHover
	featAnyHover
	featPointer
	featAnyPointer
)

// featureNames maps feature identifiers to their kind. device-width and
// device-height are accepted as aliases of the viewport dimensions.
var featureNames = map[string]featureKind{
	"width":                  featWidth,
	"height":                 featHeight,
	"device-width":           featWidth,
	"device-height":          featHeight,
	"aspect-ratio":           featAspectRatio,
	"orientation":            featOrientation,
	"resolution":             featResolution,
	"prefers-color-scheme":   featColorScheme,
	"prefers-reduced-motion": featReducedMotion,
	"hover":                  featHover,
	"any-hover":              featAnyHover,
	"pointer":                featPointer,
	"any-pointer":            featAnyPointer,
}

// rangeable reports whether a feature accepts min-/max- prefixes and
// range comparisons.
func (f featureKind) rangeable() bool {
	switch f {
	case featWidth, featHeight, featAspectRatio, featResolution:
		return true
	}
	return false
}

// keywords lists the accepted values for each discrete feature.
var keywords = map[featureKind][]string{
	featOrientation:   {"portrait", "landscape"},
	featColorScheme:   {"light", "dark"},
	featReducedMotion: {"no-preference", "reduce"},
	featHover:         {"none", "hover"},
	featAnyHover:      {"none", "hover"},
	featPointer:       {"none", "coarse", "fine"},
	featAnyPointer:    {"none", "coarse", "fine"},
}

// valueKind identifies the type of a feature value.
type valueKind uint8

const (
	vLength valueKind = iota
	vRatio
	vResolution
	vIdent
)

// value is a parsed feature value. Lengths keep their unit and resolve
// to CSS pixels at evaluation time so vw/vh track the live viewport.
type value struct {
	kind  valueKind
	num   float64 // length amount, ratio numerator, or resolution in dppx
	den   float64 // ratio denominator
	unit  string  // length unit
	ident string  // keyword for discrete features
}

// defaultFontSize is the CSS initial font size in pixels, used to
// resolve em and rem in media queries.
const defaultFontSize = 16

// px resolves a length value to CSS pixels against the environment.
func (v value) px(m Media) float64 {
	switch v.unit {
	case "px", "":
		return v.num
	case "em", "rem":
		return v.num * defaultFontSize
	case "vw":
		return v.num * float64(m.Width) / 100
	case "vh":
		return v.num * float64(m.Height) / 100
	default:
		return v.num
	}
}

// scalar resolves a continuous value to the unit of its feature's axis.
func (v value) scalar(f featureKind, m Media) float64 {
	switch f {
	case featWidth, featHeight:
		return v.px(m)
	case featAspectRatio:
		if v.den != 0 {
			return v.num / v.den
		}
		return v.num
	case featResolution:
		return v.num
	default:
		return v.num
	}
}

// rangeOp is a comparison in a feature constraint.
type rangeOp uint8

const (
	opEq rangeOp = iota
	opLT
	opLE
	opGT
	opGE
)

// flip mirrors an operator across the comparison, turning
// "400px < width" into "width > 400px".
func (op rangeOp) flip() rangeOp {
	switch op {
	case opLT:
		return opGT
	case opLE:
		return opGE
	case opGT:
		return opLT
	case opGE:
		return opLE
	default:
		return op
	}
}

func (op rangeOp) compare(a, b float64) bool {
	switch op {
	case opEq:
		return a == b
	case opLT:
		return a < b
	case opLE:
		return a <= b
	case opGT:
		return a > b
	case opGE:
		return a >= b
	default:
		return false
	}
}

// constraint is one comparison applied to a feature.
type constraint struct {
	op  rangeOp
	val value
}

// featureExpr is a single parenthesized feature test. An empty
// constraint list means the feature was used in boolean context.
type featureExpr struct {
	feat        featureKind
	constraints []constraint
}

// typeSelector is the media type named by a query, with selAll meaning
// no restriction.
type typeSelector uint8

const (
	selAll typeSelector = iota
	selScreen
	selPrint
)

// query is one comma-separated alternative. The list matches when any
// alternative matches.
type query struct {
	negated  bool
	only     bool
	typeSel  typeSelector
	features []featureExpr
}

// matches evaluates one alternative against the environment.
func (q query) matches(m Media) bool {
	ok := q.typeMatches(m)
	if ok {
		for _, f := range q.features {
			if !f.matches(m) {
				ok = false
				break
			}
		}
	}
	if q.negated {
		return !ok
	}
	return ok
}

func (q query) typeMatches(m Media) bool {
	switch q.typeSel {
	case selScreen:
		return m.Type == MediaScreen
	case selPrint:
		return m.Type == MediaPrint
	default:
		return true
	}
}

// matches evaluates a single feature test.
func (f featureExpr) matches(m Media) bool {
	if len(f.constraints) == 0 {
		return f.booleanContext(m)
	}

	switch f.feat {
	case featWidth:
		return f.compareAll(float64(m.Width), m)
	case featHeight:
		return f.compareAll(float64(m.Height), m)
	case featAspectRatio:
		if m.Height == 0 {
			return false
		}
		return f.compareAll(float64(m.Width)/float64(m.Height), m)
	case featResolution:
		return f.compareAll(m.DPR, m)

	case featOrientation:
		return f.keywordIs(m.Orientation().String())
	case featColorScheme:
		return f.keywordIs(m.ColorScheme.String())
	case featReducedMotion:
		if m.ReducedMotion {
			return f.keywordIs("reduce")
		}
		return f.keywordIs("no-preference")
	case featHover:
		return f.keywordIs(hoverKeyword(m.Hover))
	case featAnyHover:
		return f.keywordIs(hoverKeyword(m.AnyHover))
	case featPointer:
		return f.keywordIs(m.Pointer.String())
	case featAnyPointer:
		return f.keywordIs(m.AnyPointer.String())
	}
	return false
}

func (f featureExpr) compareAll(actual float64, m Media) bool {
	for _, c := range f.constraints {
		if !c.op.compare(actual, c.val.scalar(f.feat, m)) {
			return false
		}
	}
	return true
}

func (f featureExpr) keywordIs(actual string) bool {
	for _, c := range f.constraints {
		if c.val.ident != actual {
			return false
		}
	}
	return true
}

// booleanContext evaluates a bare feature like (hover). Continuous
// features are truthy when nonzero; discrete features follow the CSS
// rule that "none"-like values are falsy.
func (f featureExpr) booleanContext(m Media) bool {
	switch f.feat {
	case featWidth:
		return m.Width > 0
	case featHeight:
		return m.Height > 0
	case featAspectRatio:
		return m.Width > 0 && m.Height > 0
	case featResolution:
		return m.DPR > 0
	case featOrientation, featColorScheme:
		return true
	case featReducedMotion:
		return m.ReducedMotion
	case featHover:
		return m.Hover
	case featAnyHover:
		return m.AnyHover
	case featPointer:
		return m.Pointer != PointerNone
	case featAnyPointer:
		return m.AnyPointer != PointerNone
	}
	return false
}

func hoverKeyword(canHover bool) string {
	if canHover {
		return "hover"
	}
	return "none"
}

// parser consumes the token stream produced by lex.
type parser struct {
	raw  string
	toks []token
	i    int
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) errorf(code string, pos int, format string, args ...any) *ParseError {
	return &ParseError{
		Query:   p.raw,
		Pos:     pos,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// parse parses a full comma-separated query list. An empty input parses
// to a single unrestricted query, matching how browsers treat "".
func parse(raw string) ([]query, error) {
	toks, lerr := lex(raw)
	if lerr != nil {
		return nil, lerr
	}

	p := &parser{raw: raw, toks: toks}
	if p.peek().kind == tokEOF {
		return []query{{typeSel: selAll}}, nil
	}

	var list []query
	for {
		q, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		list = append(list, q)

		tok := p.next()
		if tok.kind == tokEOF {
			return list, nil
		}
		if tok.kind != tokComma {
			return nil, p.errorf("E020", tok.pos, "expected ',' or end of query, got %s", tok.kind)
		}
		if p.peek().kind == tokEOF {
			return nil, p.errorf("E027", p.peek().pos, "empty query after ','")
		}
	}
}

// parseQuery parses one alternative: [not|only] type {and condition}
// or a bare condition chain. "not" may prefix a parenthesized chain;
// "only" requires a media type.
func (p *parser) parseQuery() (query, error) {
	q := query{typeSel: selAll}

	tok := p.peek()
	if tok.kind == tokComma || tok.kind == tokEOF {
		return q, p.errorf("E027", tok.pos, "empty media query")
	}

	if tok.kind == tokIdent {
		switch tok.text {
		case "not":
			q.negated = true
			p.next()
		case "only":
			q.only = true
			p.next()
		}
	}

	tok = p.peek()
	switch tok.kind {
	case tokIdent:
		if err := p.parseMediaType(&q); err != nil {
			return q, err
		}
		// Conditions are joined by "and" after the type.
		for {
			tok = p.peek()
			if tok.kind != tokIdent || tok.text != "and" {
				return q, nil
			}
			p.next()
			f, err := p.parseCondition()
			if err != nil {
				return q, err
			}
			q.features = append(q.features, f)
		}

	case tokLParen:
		if q.only {
			return q, p.errorf("E022", tok.pos, "'only' must be followed by a media type")
		}
		for {
			f, err := p.parseCondition()
			if err != nil {
				return q, err
			}
			q.features = append(q.features, f)

			tok = p.peek()
			if tok.kind != tokIdent || tok.text != "and" {
				return q, nil
			}
			p.next()
		}

	default:
		return q, p.errorf("E020", tok.pos, "expected media type or '(', got %s", tok.kind)
	}
}

func (p *parser) parseMediaType(q *query) error {
	tok := p.next()
	switch tok.text {
	case "all":
		q.typeSel = selAll
	case "screen":
		q.typeSel = selScreen
	case "print":
		q.typeSel = selPrint
	case "and", "not", "only":
		return p.errorf("E020", tok.pos, "unexpected keyword %q", tok.text)
	default:
		return p.errorf("E022", tok.pos, "unknown media type %q", tok.text)
	}
	return nil
}

// parseCondition parses one parenthesized feature test.
func (p *parser) parseCondition() (featureExpr, error) {
	open := p.next()
	if open.kind != tokLParen {
		return featureExpr{}, p.errorf("E020", open.pos, "expected '(', got %s", open.kind)
	}

	var f featureExpr
	var err error

	switch p.peek().kind {
	case tokIdent:
		f, err = p.parseFeatureFirst()
	case tokNumber, tokDimension:
		f, err = p.parseValueFirst()
	case tokEOF:
		return featureExpr{}, p.errorf("E024", open.pos, "unclosed '('")
	default:
		return featureExpr{}, p.errorf("E020", p.peek().pos, "expected media feature, got %s", p.peek().kind)
	}
	if err != nil {
		return featureExpr{}, err
	}

	tok := p.next()
	if tok.kind == tokEOF {
		return featureExpr{}, p.errorf("E024", open.pos, "unclosed '('")
	}
	if tok.kind != tokRParen {
		return featureExpr{}, p.errorf("E020", tok.pos, "expected ')', got %s", tok.kind)
	}
	return f, nil
}

// parseFeatureFirst handles (feature), (feature: value) and
// (feature < value).
func (p *parser) parseFeatureFirst() (featureExpr, error) {
	nameTok := p.next()
	name := nameTok.text

	op := opEq
	bare := name
	switch {
	case len(name) > 4 && name[:4] == "min-":
		op = opGE
		bare = name[4:]
	case len(name) > 4 && name[:4] == "max-":
		op = opLE
		bare = name[4:]
	}

	feat, ok := featureNames[bare]
	if !ok {
		return featureExpr{}, p.errorf("E021", nameTok.pos, "unknown media feature %q", name)
	}
	if bare != name && !feat.rangeable() {
		return featureExpr{}, p.errorf("E021", nameTok.pos, "feature %q does not take min-/max- prefixes", bare)
	}

	f := featureExpr{feat: feat}

	switch p.peek().kind {
	case tokRParen:
		// Boolean context, but not with a min-/max- prefix.
		if bare != name {
			return featureExpr{}, p.errorf("E026", p.peek().pos, "missing value for %q", name)
		}
		return f, nil

	case tokColon:
		p.next()
		if p.peek().kind == tokRParen || p.peek().kind == tokEOF {
			return featureExpr{}, p.errorf("E026", p.peek().pos, "missing value for %q", name)
		}
		val, err := p.parseValue(feat)
		if err != nil {
			return featureExpr{}, err
		}
		f.constraints = append(f.constraints, constraint{op: op, val: val})
		return f, nil

	case tokLT, tokLE, tokGT, tokGE, tokEq:
		if bare != name {
			return featureExpr{}, p.errorf("E025", p.peek().pos, "min-/max- features cannot use range operators")
		}
		if !feat.rangeable() {
			return featureExpr{}, p.errorf("E025", p.peek().pos, "feature %q cannot be used in a range", name)
		}
		cmpTok := p.next()
		val, err := p.parseValue(feat)
		if err != nil {
			return featureExpr{}, err
		}
		f.constraints = append(f.constraints, constraint{op: tokOp(cmpTok.kind), val: val})
		return f, nil

	default:
		return featureExpr{}, p.errorf("E020", p.peek().pos, "expected ':', ')' or comparison, got %s", p.peek().kind)
	}
}

// parseValueFirst handles (value < feature) and
// (value < feature < value).
func (p *parser) parseValueFirst() (featureExpr, error) {
	left, err := p.scanValue()
	if err != nil {
		return featureExpr{}, err
	}

	cmp1 := p.next()
	if !isCmp(cmp1.kind) {
		return featureExpr{}, p.errorf("E025", cmp1.pos, "expected comparison after value")
	}

	nameTok := p.next()
	if nameTok.kind != tokIdent {
		return featureExpr{}, p.errorf("E025", nameTok.pos, "expected media feature in range")
	}
	feat, ok := featureNames[nameTok.text]
	if !ok {
		return featureExpr{}, p.errorf("E021", nameTok.pos, "unknown media feature %q", nameTok.text)
	}
	if !feat.rangeable() {
		return featureExpr{}, p.errorf("E025", nameTok.pos, "feature %q cannot be used in a range", nameTok.text)
	}

	lval, err := p.coerceValue(feat, left)
	if err != nil {
		return featureExpr{}, err
	}

	f := featureExpr{feat: feat}
	f.constraints = append(f.constraints, constraint{op: tokOp(cmp1.kind).flip(), val: lval})

	if isCmp(p.peek().kind) {
		cmp2 := p.next()
		if !sameDirection(cmp1.kind, cmp2.kind) {
			return featureExpr{}, p.errorf("E025", cmp2.pos, "range comparisons must point the same direction")
		}
		rv, err := p.parseValue(feat)
		if err != nil {
			return featureExpr{}, err
		}
		f.constraints = append(f.constraints, constraint{op: tokOp(cmp2.kind), val: rv})
	}

	return f, nil
}

// scanned is a numeric value as it appears in the source, before the
// feature it belongs to is known.
type scanned struct {
	num     float64
	den     float64 // nonzero only for ratios
	unit    string
	isRatio bool
	pos     int
}

// scanValue consumes a number, dimension or ratio without validating
// it against a feature. Validation happens once the feature is known.
func (p *parser) scanValue() (scanned, error) {
	tok := p.next()
	if tok.kind != tokNumber && tok.kind != tokDimension {
		return scanned{}, p.errorf("E023", tok.pos, "expected value, got %s", tok.kind)
	}

	// A ratio is two numbers joined by '/'.
	if tok.kind == tokNumber && p.peek().kind == tokSlash {
		p.next()
		den := p.next()
		if den.kind != tokNumber {
			return scanned{}, p.errorf("E023", den.pos, "expected ratio denominator")
		}
		if den.num == 0 {
			return scanned{}, p.errorf("E023", den.pos, "ratio denominator cannot be zero")
		}
		return scanned{num: tok.num, den: den.num, isRatio: true, pos: tok.pos}, nil
	}

	return scanned{num: tok.num, unit: tok.unit, pos: tok.pos}, nil
}

// parseValue consumes and validates a value for the given feature.
func (p *parser) parseValue(feat featureKind) (value, error) {
	if _, discrete := keywords[feat]; discrete {
		tok := p.next()
		if tok.kind != tokIdent {
			return value{}, p.errorf("E023", tok.pos, "expected keyword value, got %s", tok.kind)
		}
		for _, kw := range keywords[feat] {
			if tok.text == kw {
				return value{kind: vIdent, ident: tok.text}, nil
			}
		}
		return value{}, p.errorf("E023", tok.pos, "invalid value %q", tok.text)
	}

	sv, err := p.scanValue()
	if err != nil {
		return value{}, err
	}
	return p.coerceValue(feat, sv)
}

// coerceValue checks a scanned value against the feature's axis.
func (p *parser) coerceValue(feat featureKind, sv scanned) (value, error) {
	switch feat {
	case featWidth, featHeight:
		if sv.isRatio {
			return value{}, p.errorf("E023", sv.pos, "dimensions need a length like 768px")
		}
		switch sv.unit {
		case "px", "em", "rem", "vw", "vh":
			return value{kind: vLength, num: sv.num, unit: sv.unit}, nil
		case "":
			// Unitless zero is a valid length.
			if sv.num == 0 {
				return value{kind: vLength, num: 0, unit: "px"}, nil
			}
			return value{}, p.errorf("E023", sv.pos, "dimensions need a length like 768px")
		default:
			return value{}, p.errorf("E028", sv.pos, "unknown length unit %q", sv.unit)
		}

	case featAspectRatio:
		if sv.unit != "" {
			return value{}, p.errorf("E023", sv.pos, "aspect-ratio takes a ratio like 16/9")
		}
		if sv.isRatio {
			return value{kind: vRatio, num: sv.num, den: sv.den}, nil
		}
		return value{kind: vRatio, num: sv.num, den: 1}, nil

	case featResolution:
		if sv.isRatio {
			return value{}, p.errorf("E023", sv.pos, "resolution takes a unit like 2dppx or 192dpi")
		}
		switch sv.unit {
		case "dppx", "x":
			return value{kind: vResolution, num: sv.num}, nil
		case "dpi":
			return value{kind: vResolution, num: sv.num / 96}, nil
		case "":
			return value{}, p.errorf("E023", sv.pos, "resolution takes a unit like 2dppx or 192dpi")
		default:
			return value{}, p.errorf("E028", sv.pos, "unknown resolution unit %q", sv.unit)
		}

	default:
		return value{}, p.errorf("E023", sv.pos, "invalid value for this feature")
	}
}

func isCmp(k tokenKind) bool {
	switch k {
	case tokLT, tokLE, tokGT, tokGE, tokEq:
		return true
	}
	return false
}

// sameDirection reports whether two comparison tokens can legally chain
// in one range, e.g. "<" with "<=" but not "<" with ">".
func sameDirection(a, b tokenKind) bool {
	lt := func(k tokenKind) bool { return k == tokLT || k == tokLE }
	gt := func(k tokenKind) bool { return k == tokGT || k == tokGE }
	return (lt(a) && lt(b)) || (gt(a) && gt(b))
}

func tokOp(k tokenKind) rangeOp {
	switch k {
	case tokLT:
		return opLT
	case tokLE:
		return opLE
	case tokGT:
		return opGT
	case tokGE:
		return opGE
	default:
		return opEq
	}
}
