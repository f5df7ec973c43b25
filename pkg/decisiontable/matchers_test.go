package decisiontable

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRangeMatcherInclusiveExclusive(t *testing.T) {
	m := RangeMatcher()

	p, ok := m.Fn("1..5", MatchContext{}, false)
	require.True(t, ok)
	require.True(t, p.InFn(5.0, nil))
	require.False(t, p.InFn(5.1, nil))

	p, ok = m.Fn("1...5", MatchContext{}, false)
	require.True(t, ok)
	require.False(t, p.InFn(5.0, nil))
	require.True(t, p.InFn(4.999, nil))
}

func TestNumericMatcherOperators(t *testing.T) {
	m := NumericMatcher()
	p, ok := m.Fn(">=10", MatchContext{}, false)
	require.True(t, ok)
	require.True(t, p.InFn(10.0, nil))
	require.False(t, p.InFn(9.9, nil))
}

func TestNumericMatcherRejectsNonNumeric(t *testing.T) {
	m := NumericMatcher()
	_, ok := m.Fn("!=abc", MatchContext{}, false)
	require.False(t, ok)
}

func TestPatternMatcherNegation(t *testing.T) {
	m := PatternMatcher()
	p, ok := m.Fn("!=red", MatchContext{}, false)
	require.True(t, ok)
	require.True(t, p.InFn("blue", nil))
	require.False(t, p.InFn("red", nil))
}

func TestPatternMatcherExplicitRegex(t *testing.T) {
	m := PatternMatcher()
	p, ok := m.Fn("=~^a.*z$", MatchContext{}, false)
	require.True(t, ok)
	require.True(t, p.InFn("abcz", nil))
	require.False(t, p.InFn("zzz", nil))
}

func TestPatternMatcherRejectsSymbolPrefixed(t *testing.T) {
	m := PatternMatcher()
	_, ok := m.Fn(":foo", MatchContext{}, false)
	require.False(t, ok)
}

func TestSymbolMatcher(t *testing.T) {
	m := SymbolMatcher()
	p, ok := m.Fn(":active", MatchContext{}, false)
	require.True(t, ok)
	require.True(t, p.InFn("active", nil))
	require.False(t, p.InFn("inactive", nil))
}

func TestGuardMatcherFieldExpression(t *testing.T) {
	m := GuardMatcher()
	p, ok := m.Fn(":y == 10", MatchContext{}, false)
	require.True(t, ok)
	require.True(t, p.InFn(nil, map[string]any{"y": 10.0}))
	require.False(t, p.InFn(nil, map[string]any{"y": 11.0}))
}

func TestGuardMatcherOutputRole(t *testing.T) {
	m := GuardMatcher()
	p, ok := m.Fn(":score == 10", MatchContext{}, true)
	require.True(t, ok)
	require.Equal(t, true, p.OutFn(map[string]any{"score": "10"}))
	require.Equal(t, false, p.OutFn(map[string]any{"score": "11"}))
}

func TestConstantForbiddenInGuardColumn(t *testing.T) {
	_, err := compileCell("plain text", ColGuard, false, DefaultMatchers(), MatchContext{})
	require.Error(t, err)
}

func TestEmptyCellCompilesToEmpty(t *testing.T) {
	cv, err := compileCell("   ", ColIn, false, DefaultMatchers(), MatchContext{})
	require.NoError(t, err)
	require.Equal(t, CellEmpty, cv.Kind)
}

func TestTextOnlyBypassesMatchers(t *testing.T) {
	cv, err := compileCell(">=10", ColIn, true, DefaultMatchers(), MatchContext{})
	require.NoError(t, err)
	require.Equal(t, CellConstant, cv.Kind)
	require.Equal(t, ">=10", cv.Constant)
}
