package queue

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"

	"github.com/taskwell/taskwell/model/record"
)

var memCounter = 0

func newTestQueue(t *testing.T) *Service {
	memCounter++
	s, err := New(afs.New(), fmt.Sprintf("mem://localhost/queue-test-%d", memCounter))
	assert.NoError(t, err)
	return s
}

func testRecord(body string) *record.Record {
	r := record.New()
	r.Meta["kind"] = "item"
	r.Body = body
	return r
}

func TestPutGetList(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	assert.NoError(t, q.Put(ctx, NeedsAction, "task-b", testRecord("second")))
	assert.NoError(t, q.Put(ctx, NeedsAction, "task-a", testRecord("first")))

	rec, err := q.Get(ctx, NeedsAction, "task-a")
	assert.NoError(t, err)
	assert.Equal(t, "first", rec.Body)

	names, err := q.List(ctx, NeedsAction)
	assert.NoError(t, err)
	assert.Equal(t, []string{"task-a.md", "task-b.md"}, names)
}

func TestMoveKeepsSingleLocation(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()

	assert.NoError(t, q.Put(ctx, Incoming, "task-1", testRecord("payload")))
	assert.NoError(t, q.Move(ctx, "task-1", Incoming, NeedsAction))

	// The record has exactly one valid location after the move.
	location, found, err := q.Locate(ctx, "task-1")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, NeedsAction, location)

	exists, err := q.Exists(ctx, Incoming, "task-1")
	assert.NoError(t, err)
	assert.False(t, exists)

	// Content is unchanged by the move.
	rec, err := q.Get(ctx, NeedsAction, "task-1")
	assert.NoError(t, err)
	assert.Equal(t, "payload", rec.Body)
}

func TestMoveMissingRecordFails(t *testing.T) {
	q := newTestQueue(t)
	err := q.Move(context.Background(), "absent", Incoming, Done)
	assert.Error(t, err)
}

func TestInvalidLocationRejected(t *testing.T) {
	q := newTestQueue(t)
	ctx := context.Background()
	assert.Error(t, q.Put(ctx, Location("nowhere"), "x", testRecord("")))
	assert.Error(t, q.Move(ctx, "x", Location("nowhere"), Done))
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{name: "spaces and case", input: "Urgent: Contract Review!", max: 40, expected: "urgent-contract-review"},
		{name: "truncation", input: "a very long subject line that keeps going", max: 10, expected: "a-very-lon"},
		{name: "empty", input: "", max: 10, expected: "untitled"},
		{name: "only symbols", input: "!!!???", max: 10, expected: "untitled"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, SanitizeName(tc.input, tc.max))
		})
	}
}
