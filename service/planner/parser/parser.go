// Package parser turns markdown action-item lines into typed step records.
// It recognises checkbox bullets ("- [ ] text", "* [x] text"), numbered
// lines ("1. text") and bare bullets ("- text"). The parser is isolated from
// the plan state machine so it can be swapped or fuzz-tested independently.
package parser

import (
	"strconv"
	"strings"

	"github.com/viant/parsly"
)

// Line is one parsed action-item line.
type Line struct {
	Ordinal     int
	Description string
	Completed   bool
}

// Parse extracts action-item lines from a block of text, in order. Lines
// that are not action items are skipped.
func Parse(text string) []*Line {
	var lines []*Line
	for _, raw := range strings.Split(text, "\n") {
		if line, ok := ParseLine([]byte(raw)); ok {
			if line.Ordinal == 0 {
				line.Ordinal = len(lines) + 1
			}
			lines = append(lines, line)
		}
	}
	return lines
}

// ParseLine parses a single line; the second return value is false when the
// line is not an action item.
func ParseLine(input []byte) (*Line, bool) {
	cursor := parsly.NewCursor("", input, 0)

	matched := cursor.MatchAfterOptional(whitespaceToken, dashToken, asteriskToken, numberToken)
	switch matched.Code {
	case dashToken.Code, asteriskToken.Code:
		return parseBullet(cursor)
	case numberToken.Code:
		ordinal, err := strconv.Atoi(matched.Text(cursor))
		if err != nil {
			return nil, false
		}
		return parseNumbered(cursor, ordinal)
	default:
		return nil, false
	}
}

func parseBullet(cursor *parsly.Cursor) (*Line, bool) {
	completed := false
	matched := cursor.MatchAfterOptional(whitespaceToken, checkboxToken)
	if matched.Code == checkboxToken.Code {
		marker := matched.Text(cursor)
		completed = strings.ContainsAny(marker, "xX")
	}
	description, ok := matchText(cursor)
	if !ok {
		return nil, false
	}
	return &Line{Description: description, Completed: completed}, true
}

func parseNumbered(cursor *parsly.Cursor, ordinal int) (*Line, bool) {
	matched := cursor.MatchOne(dotToken)
	if matched.Code != dotToken.Code {
		return nil, false
	}
	description, ok := matchText(cursor)
	if !ok {
		return nil, false
	}
	return &Line{Ordinal: ordinal, Description: description}, true
}

func matchText(cursor *parsly.Cursor) (string, bool) {
	matched := cursor.MatchAfterOptional(whitespaceToken, textToken)
	if matched.Code != textToken.Code {
		return "", false
	}
	description := strings.TrimSpace(matched.Text(cursor))
	if description == "" {
		return "", false
	}
	return description, true
}
