package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workhours/internal/core"
)

type rangeSource struct {
	recs       []core.RawRecord
	err        error
	start, end core.DateKey
}

func (s *rangeSource) FetchRange(_ context.Context, start, end core.DateKey) ([]core.RawRecord, error) {
	s.start, s.end = start, end
	return s.recs, s.err
}

func (s *rangeSource) FetchLive(context.Context, []core.DateKey) ([]core.RawRecord, error) {
	return nil, nil
}

type recordingImporter struct {
	stored []core.RawRecord
	reject map[string]bool
}

func (r *recordingImporter) ImportDay(_ context.Context, rec core.RawRecord) error {
	if r.reject[rec.Date] {
		return errors.New("bad row")
	}
	r.stored = append(r.stored, rec)
	return nil
}

func importToday() core.DateKey { return core.MustParseDateKey("2024-06-10") }

func TestImportRecentCoversWindow(t *testing.T) {
	src := &rangeSource{recs: []core.RawRecord{
		{Date: "2024-06-03", Hours: 8},
		{Date: "2024-06-10", Hours: 7, Minutes: 45, Description: "tracked"},
	}}
	store := &recordingImporter{}

	n, err := NewImporter(src, store, 31, importToday).ImportRecent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "2024-05-11", src.start.String())
	assert.Equal(t, "2024-06-10", src.end.String())
	require.Len(t, store.stored, 2)
	assert.Equal(t, "tracked", store.stored[1].Description)
}

func TestImportRecentJoinsRowErrors(t *testing.T) {
	src := &rangeSource{recs: []core.RawRecord{
		{Date: "2024-06-08", Hours: 1},
		{Date: "2024-06-09", Hours: 2},
		{Date: "2024-06-10", Hours: 3},
	}}
	store := &recordingImporter{reject: map[string]bool{"2024-06-09": true}}

	n, err := NewImporter(src, store, 7, importToday).ImportRecent(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-06-09")
	assert.Equal(t, 2, n)
}

func TestImportRecentFetchError(t *testing.T) {
	src := &rangeSource{err: errors.New("quota exceeded")}
	n, err := NewImporter(src, &recordingImporter{}, 7, importToday).ImportRecent(context.Background())
	require.Error(t, err)
	assert.Zero(t, n)
}

func TestImportRecentDisabled(t *testing.T) {
	src := &rangeSource{}
	n, err := NewImporter(src, &recordingImporter{}, 0, importToday).ImportRecent(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, src.end.IsZero(), "a disabled importer must not read the sheet")
}
