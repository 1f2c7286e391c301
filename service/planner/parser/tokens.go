package parser

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes
const (
	whitespaceCode = iota
	dashCode
	asteriskCode
	numberCode
	dotCode
	checkboxCode
	textCode
)

// Token definitions
var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	dashToken       = parsly.NewToken(dashCode, "-", matcher.NewByte('-'))
	asteriskToken   = parsly.NewToken(asteriskCode, "*", matcher.NewByte('*'))
	numberToken     = parsly.NewToken(numberCode, "Number", newNumberMatcher())
	dotToken        = parsly.NewToken(dotCode, ".", matcher.NewByte('.'))
	checkboxToken   = parsly.NewToken(checkboxCode, "Checkbox", newCheckboxMatcher())
	textToken       = parsly.NewToken(textCode, "Text", newTextMatcher())
)

// Custom matchers
func newNumberMatcher() parsly.Matcher   { return &numberMatcher{} }
func newCheckboxMatcher() parsly.Matcher { return &checkboxMatcher{} }
func newTextMatcher() parsly.Matcher     { return &textMatcher{} }

// numberMatcher matches a run of decimal digits.
type numberMatcher struct{}

func (m *numberMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	matched := 0
	for i := pos; i < size; i++ {
		if input[i] < '0' || input[i] > '9' {
			break
		}
		matched++
	}
	return matched
}

// checkboxMatcher matches a markdown checkbox marker: "[ ]", "[x]" or "[X]".
type checkboxMatcher struct{}

func (m *checkboxMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	if pos+2 >= size || input[pos] != '[' {
		return 0
	}
	state := input[pos+1]
	if state != ' ' && state != 'x' && state != 'X' {
		return 0
	}
	if input[pos+2] != ']' {
		return 0
	}
	return 3
}

// textMatcher consumes the remainder of the line.
type textMatcher struct{}

func (m *textMatcher) Match(cursor *parsly.Cursor) int {
	input := cursor.Input
	pos := cursor.Pos
	size := cursor.InputSize

	matched := 0
	for i := pos; i < size; i++ {
		if input[i] == '\n' || input[i] == '\r' {
			break
		}
		matched++
	}
	return matched
}
