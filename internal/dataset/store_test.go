package dataset

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(date string, team *string) Record {
	return Record{StartDate: date, TeamName: team, QueryTimeSec: 1}
}

func TestStoreReloadVersions(t *testing.T) {
	calls := 0
	s := NewStore(LoaderFunc(func(context.Context) ([]Record, error) {
		calls++
		return []Record{rec("2024-01-01", Ptr("a"))}, nil
	}))

	assert.Nil(t, s.Current(), "no dataset before first load")

	ds, err := s.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ds.Version)
	assert.Equal(t, "func", ds.Source)

	ds, err = s.Reload(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(2), ds.Version)
	assert.Same(t, ds, s.Current())
	assert.Equal(t, 2, calls)
}

func TestStoreReloadErrorKeepsPrevious(t *testing.T) {
	fail := false
	s := NewStore(LoaderFunc(func(context.Context) ([]Record, error) {
		if fail {
			return nil, errors.New("source gone")
		}
		return []Record{rec("2024-01-01", nil)}, nil
	}))

	first, err := s.Reload(context.Background())
	require.NoError(t, err)

	fail = true
	_, err = s.Reload(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source gone")
	assert.Same(t, first, s.Current())
}

func TestDateBounds(t *testing.T) {
	ds := &Dataset{Records: []Record{
		rec("2024-01-02", nil),
		rec("2024-01-05", nil),
		rec("2024-01-01", nil),
	}}
	lo, hi := ds.DateBounds()
	assert.Equal(t, "2024-01-01", lo)
	assert.Equal(t, "2024-01-05", hi)

	var empty *Dataset
	lo, hi = empty.DateBounds()
	assert.Empty(t, lo)
	assert.Empty(t, hi)
	assert.Equal(t, 0, empty.Len())
}

func TestRecordAccessors(t *testing.T) {
	r := Record{TeamName: Ptr("core"), AppName: nil}
	team, ok := r.Team()
	assert.True(t, ok)
	assert.Equal(t, "core", team)
	_, ok = r.App()
	assert.False(t, ok)
	_, ok = r.Page()
	assert.False(t, ok)
}
