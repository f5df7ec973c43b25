package decisiontable

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MatchContext carries the per-table settings a matcher needs to decide
// whether it recognizes a cell, and the path segments of the row being
// compiled (unused by the matchers defined here, exposed for custom
// matchers per the matches?(cell, path) contract).
type MatchContext struct {
	RegexpImplicit bool
	Path           []string
}

// MatcherFunc attempts to compile cell into a Proc. outputRole is true when
// compiling a cell in an out/if column and false for every other column,
// guard columns included. ok is false when this matcher does not
// recognize the cell, in which case dispatch continues to the next matcher.
type MatcherFunc func(cell string, ctx MatchContext, outputRole bool) (Proc, bool)

// Matcher is one entry in the compile-time dispatch list (C1).
type Matcher struct {
	Name string
	// Outs reports whether this matcher may produce output-role Procs
	// (out/if columns). All matchers may serve input role; guard columns
	// accept matchers regardless of Outs.
	Outs bool
	Fn   MatcherFunc
}

var fieldExprRe = regexp.MustCompile(`^:([A-Za-z_]\w*)\s*(==|!=|>=|<=|>|<)\s*(.+)$`)
var rangeRe = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)(\.\.\.?)(-?\d+(?:\.\d+)?)$`)
var numericRe = regexp.MustCompile(`^(>=|<=|==|!=|>|<)\s*(-?\d+(?:\.\d+)?)$`)
var symbolRe = regexp.MustCompile(`^:[A-Za-z_]\w*$`)
var patternRe = regexp.MustCompile(`^(=~|!~|!=)?\s*(.+)$`)
var nonWordRe = regexp.MustCompile(`[^\w]`)

// RangeMatcher recognizes Ruby-style numeric range literals: "5..10"
// (inclusive) or "5...10" (exclusive upper bound).
func RangeMatcher() Matcher {
	return Matcher{Name: "range", Outs: false, Fn: func(cell string, ctx MatchContext, outputRole bool) (Proc, bool) {
		if outputRole {
			return Proc{}, false
		}
		m := rangeRe.FindStringSubmatch(strings.TrimSpace(cell))
		if m == nil {
			return Proc{}, false
		}
		lo, err1 := strconv.ParseFloat(m[1], 64)
		hi, err2 := strconv.ParseFloat(m[3], 64)
		if err1 != nil || err2 != nil {
			return Proc{}, false
		}
		exclusive := m[2] == "..."
		fn := func(value any, _ map[string]any) bool {
			f, ok := toFloat(value)
			if !ok {
				return false
			}
			if exclusive {
				return f >= lo && f < hi
			}
			return f >= lo && f <= hi
		}
		return Proc{Kind: ProcPredicate, InFn: fn}, true
	}}
}

// NumericMatcher recognizes a comparator followed by a numeric literal:
// ">=5", "<=5", ">5", "<5", "==5", and "!=5" (only when the operand parses
// as a number -- a non-numeric "!=" falls through to the Pattern matcher).
func NumericMatcher() Matcher {
	return Matcher{Name: "numeric", Outs: false, Fn: func(cell string, ctx MatchContext, outputRole bool) (Proc, bool) {
		if outputRole {
			return Proc{}, false
		}
		m := numericRe.FindStringSubmatch(strings.TrimSpace(cell))
		if m == nil {
			return Proc{}, false
		}
		op := m[1]
		lit, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return Proc{}, false
		}
		fn := func(value any, _ map[string]any) bool {
			f, ok := toFloat(value)
			if !ok {
				return false
			}
			switch op {
			case ">=":
				return f >= lit
			case "<=":
				return f <= lit
			case ">":
				return f > lit
			case "<":
				return f < lit
			case "==":
				return f == lit
			case "!=":
				return f != lit
			}
			return false
		}
		return Proc{Kind: ProcPredicate, InFn: fn}, true
	}}
}

// PatternMatcher handles explicit regexp and implicit-metacharacter detection.
func PatternMatcher() Matcher {
	return Matcher{Name: "pattern", Outs: false, Fn: func(cell string, ctx MatchContext, outputRole bool) (Proc, bool) {
		if outputRole {
			return Proc{}, false
		}
		trimmed := strings.TrimSpace(cell)
		if strings.HasPrefix(trimmed, ":") {
			return Proc{}, false
		}
		m := patternRe.FindStringSubmatch(trimmed)
		if m == nil {
			return Proc{}, false
		}
		comparator, value := m[1], strings.TrimSpace(m[2])

		if comparator == "" {
			if !ctx.RegexpImplicit {
				return Proc{}, false
			}
			if !nonWordRe.MatchString(value) {
				return Proc{}, false
			}
			comparator = "=~"
		}

		if comparator == "!=" {
			literal := value
			fn := func(v any, _ map[string]any) bool {
				return toStr(v) != literal
			}
			return Proc{Kind: ProcPredicate, InFn: fn}, true
		}

		re, err := regexp.Compile(value)
		if err != nil {
			return Proc{}, false
		}
		negate := comparator == "!~"
		fn := func(v any, _ map[string]any) bool {
			matched := re.MatchString(toStr(v))
			if negate {
				return !matched
			}
			return matched
		}
		return Proc{Kind: ProcPredicate, InFn: fn}, true
	}}
}

// ConstantMatcher is the universal catch-all: any cell not already claimed
// becomes a plain string constant.
func ConstantMatcher() Matcher {
	return Matcher{Name: "constant", Outs: true, Fn: func(cell string, ctx MatchContext, outputRole bool) (Proc, bool) {
		return Proc{Kind: ProcConstant, Const: cell}, true
	}}
}

// SymbolMatcher recognizes a bare leading-colon symbol reference, e.g. ":foo",
// comparing the scanned value's string form against the symbol name.
func SymbolMatcher() Matcher {
	return Matcher{Name: "symbol", Outs: false, Fn: func(cell string, ctx MatchContext, outputRole bool) (Proc, bool) {
		if outputRole {
			return Proc{}, false
		}
		trimmed := strings.TrimSpace(cell)
		if !symbolRe.MatchString(trimmed) {
			return Proc{}, false
		}
		name := trimmed[1:]
		fn := func(value any, _ map[string]any) bool {
			return toStr(value) == name
		}
		return Proc{Kind: ProcPredicate, InFn: fn}, true
	}}
}

// GuardMatcher recognizes ":field <op> literal" expressions, e.g. ":y == 10".
// It serves both roles: as an input predicate (field read from the full
// input hash, for guard columns) and as an output function (field read from
// the hash under construction, for if columns and predicate out columns).
func GuardMatcher() Matcher {
	return Matcher{Name: "guard", Outs: true, Fn: func(cell string, ctx MatchContext, outputRole bool) (Proc, bool) {
		m := fieldExprRe.FindStringSubmatch(strings.TrimSpace(cell))
		if m == nil {
			return Proc{}, false
		}
		field, op, litStr := m[1], m[2], strings.TrimSpace(m[3])
		litStr = strings.Trim(litStr, `"'`)
		compare := func(hash map[string]any) bool {
			actual, ok := hash[field]
			if !ok {
				return false
			}
			if f, aok := toFloat(actual); aok {
				if lf, lok := strconv.ParseFloat(litStr, 64); lok == nil {
					switch op {
					case "==":
						return f == lf
					case "!=":
						return f != lf
					case ">=":
						return f >= lf
					case "<=":
						return f <= lf
					case ">":
						return f > lf
					case "<":
						return f < lf
					}
				}
			}
			as := toStr(actual)
			switch op {
			case "==":
				return as == litStr
			case "!=":
				return as != litStr
			default:
				return false
			}
		}
		if outputRole {
			fn := func(hash map[string]any) any { return compare(hash) }
			return Proc{Kind: ProcGuard, OutFn: fn}, true
		}
		fn := func(_ any, hash map[string]any) bool { return compare(hash) }
		return Proc{Kind: ProcGuard, InFn: fn}, true
	}}
}

// DefaultMatchers returns the default dispatch list and order: Range,
// Numeric, Pattern, Constant, Symbol, Guard.
func DefaultMatchers() []Matcher {
	return []Matcher{
		RangeMatcher(),
		NumericMatcher(),
		PatternMatcher(),
		ConstantMatcher(),
		SymbolMatcher(),
		GuardMatcher(),
	}
}

// effectiveOrder returns the matcher list to try for a given column kind.
// For guard/if columns the Guard matcher is pulled ahead of Constant so that
// ":field op value" expressions compile instead of being rejected by the
// invalid-constant rule; see DESIGN.md's Open Question decision. Custom
// matcher lists that do not include a matcher named "guard" are returned
// unchanged.
func effectiveOrder(matchers []Matcher, kind ColumnKind) []Matcher {
	if !kind.constantForbidden() {
		return matchers
	}
	guardIdx, constIdx := -1, -1
	for i, m := range matchers {
		if m.Name == "guard" {
			guardIdx = i
		}
		if m.Name == "constant" {
			constIdx = i
		}
	}
	if guardIdx <= constIdx || constIdx == -1 || guardIdx == -1 {
		return matchers
	}
	reordered := make([]Matcher, 0, len(matchers))
	for i, m := range matchers {
		if i == guardIdx {
			continue
		}
		if i == constIdx {
			reordered = append(reordered, matchers[guardIdx], m)
			continue
		}
		reordered = append(reordered, m)
	}
	return reordered
}

// compileCell runs the matcher dispatch list in order and returns the first
// recognized result, or CellEmpty for a blank cell.
func compileCell(cell string, kind ColumnKind, textOnly bool, matchers []Matcher, ctx MatchContext) (CellValue, error) {
	if strings.TrimSpace(cell) == "" {
		return emptyCell(), nil
	}
	if textOnly {
		return constantCell(cell), nil
	}
	outputRole := kind.isOutRole()
	for _, m := range effectiveOrder(matchers, kind) {
		if outputRole && !m.Outs && m.Name != "guard" {
			continue
		}
		p, ok := m.Fn(cell, ctx, outputRole)
		if !ok {
			continue
		}
		if p.Kind == ProcConstant {
			if kind.constantForbidden() {
				return CellValue{}, cellErr(0, -1, "column of type %s may not contain a constant cell %q", kind, cell)
			}
			return constantCell(p.Const), nil
		}
		pc := p
		return procCell(&pc), nil
	}
	return CellValue{}, internalErr("no matcher claimed cell %q", cell)
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toStr(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case fmtStringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

type fmtStringer interface{ String() string }
