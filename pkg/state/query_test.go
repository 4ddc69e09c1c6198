package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	s := Memory()
	s.MarkCompleted(keyBefore, true, WithOutcome("success"), WithRunID("a"))
	s.MarkCompleted(keyAfter, false, WithOutcome("timeout"), WithRunID("b"))
	s.MarkCompleted(Key{URL: "u", Date: "20200101", Folder: "u_up_to_20200101"}, false, WithOutcome("timeout"), WithRunID("b"))

	sum := s.Summarize()
	assert.Equal(t, 3, sum.Records)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, map[string]int{"success": 1, "timeout": 2}, sum.ByOutcome)
}

func TestSummarizeLastRun(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Memory(WithClock(func() time.Time { return now }))

	s.MarkCompleted(keyBefore, true, WithRunID("old"))
	now = now.Add(time.Hour)
	s.MarkCompleted(keyAfter, true, WithRunID("new"))

	sum := s.Summarize()
	assert.Equal(t, "new", sum.LastRunID)
	assert.Equal(t, now, sum.LastAt)
}

func TestValidate(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(out, keyBefore.Folder), 0755))

	s := Memory()
	s.MarkCompleted(keyBefore, true)
	s.MarkCompleted(keyAfter, false)

	result, err := s.Validate(out)
	require.NoError(t, err)
	assert.True(t, result.Valid, result.Errors)
	assert.Equal(t, 1, result.Checked, "failed records are not checked")
	assert.Empty(t, result.Errors)
}

func TestValidateMissingFolder(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, keyAfter.Folder), nil, 0644))

	s := Memory()
	s.MarkCompleted(keyBefore, true)
	s.MarkCompleted(keyAfter, true)

	result, err := s.Validate(out)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 2, result.Missing)
	assert.Len(t, result.Errors, 2)
}

func TestForget(t *testing.T) {
	other := Key{URL: "https://other.org", Date: "20200101", Folder: "other.org_up_to_20200101"}

	tests := []struct {
		name    string
		filter  Filter
		removed int
		left    []Key
	}{
		{"all", All(), 3, nil},
		{"failed", Failed(), 1, []Key{keyBefore, other}},
		{"url", ForURL("https://example.com/"), 2, []Key{other}},
		{"no match", ForURL("https://nowhere"), 0, []Key{keyBefore, keyAfter, other}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Memory()
			s.MarkCompleted(keyBefore, true)
			s.MarkCompleted(keyAfter, false)
			s.MarkCompleted(other, true)

			assert.Equal(t, tt.removed, s.Forget(tt.filter))

			var left []Key
			for _, e := range s.Entries() {
				left = append(left, e.Key)
			}
			assert.ElementsMatch(t, tt.left, left)
		})
	}
}
