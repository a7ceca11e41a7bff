package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/queryview/internal/dataset"
)

func readString(t *testing.T, data string) ([]dataset.Record, error) {
	t.Helper()
	return ReadCSV(context.Background(), strings.NewReader(data))
}

func TestReadCSV(t *testing.T) {
	data := "start_time,viewer_name,team_name,app_name,page_name,query_text,query_id,query_time_sec\n" +
		"2024-01-02 10:00:00,alice,core,billing,invoices,select 1,q1,1.5\n" +
		"2024-01-01T23:30:00Z,bob,NULL,,None,select 2,q2,0\n"
	recs, err := readString(t, data)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	a := recs[0]
	assert.Equal(t, "2024-01-02", a.StartDate)
	assert.Equal(t, "alice", a.ViewerName)
	team, ok := a.Team()
	assert.True(t, ok)
	assert.Equal(t, "core", team)
	assert.Equal(t, "q1", a.QueryID)
	assert.InDelta(t, 1.5, a.QueryTimeSec, 1e-9)

	b := recs[1]
	assert.Equal(t, "2024-01-01", b.StartDate)
	assert.Nil(t, b.TeamName)
	assert.Nil(t, b.AppName)
	assert.Nil(t, b.PageName)
}

func TestReadCSVIgnoresStartDateColumn(t *testing.T) {
	data := "start_date,start_time,viewer_name,query_text,query_id,query_time_sec\n" +
		"1999-12-31,2024-03-04 01:00:00,alice,q,q1,2\n"
	recs, err := readString(t, data)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-04", recs[0].StartDate)
}

func TestReadCSVQueryTag(t *testing.T) {
	data := "START_TIME,USER_NAME,QUERY_TAG,QUERY_TEXT,QUERY_ID,TOTAL_ELAPSED_TIME\n" +
		`2024-01-02 10:00:00,alice,"{""project_name"":""p"",""team_name"":""core"",""app_name"":""billing""}",select 1,q1,2500` + "\n"
	recs, err := readString(t, data)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	r := recs[0]
	assert.Equal(t, "alice", r.ViewerName)
	team, _ := r.Team()
	app, _ := r.App()
	assert.Equal(t, "core", team)
	assert.Equal(t, "billing", app)
	assert.Nil(t, r.PageName)
	assert.InDelta(t, 2.5, r.QueryTimeSec, 1e-9)
}

func TestReadCSVExplicitColumnsBeatTag(t *testing.T) {
	data := "start_time,viewer_name,team_name,query_tag,query_text,query_id,query_time_sec\n" +
		`2024-01-02,alice,,"{""team_name"":""core""}",q,q1,1` + "\n"
	recs, err := readString(t, data)
	require.NoError(t, err)
	assert.Nil(t, recs[0].TeamName)
}

func TestReadCSVCanonicalBeatsAlias(t *testing.T) {
	data := "user_name,viewer_name,start_time,query_text,query_id,query_time_sec\n" +
		"SVC_USER,alice,2024-01-02,q,q1,1\n"
	recs, err := readString(t, data)
	require.NoError(t, err)
	assert.Equal(t, "alice", recs[0].ViewerName)
}

func TestReadCSVByteOrderMark(t *testing.T) {
	data := "\ufeffstart_time,viewer_name,query_text,query_id,query_time_sec\n" +
		"2024-01-02,alice,q,q1,1\n"
	recs, err := readString(t, data)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestReadCSVErrors(t *testing.T) {
	header := "start_time,viewer_name,query_text,query_id,query_time_sec\n"
	tests := []struct {
		name   string
		data   string
		schema bool
		msg    string
	}{
		{"empty", "", true, "empty file"},
		{"missing column", "start_time,viewer_name,query_text,query_id\n", true, "query_time_sec"},
		{"bad time", header + "yesterday,a,q,q1,1\n", false, "start_time"},
		{"bad duration", header + "2024-01-01,a,q,q1,fast\n", false, "query_time_sec"},
		{"negative duration", header + "2024-01-01,a,q,q1,-1\n", false, "negative"},
		{"NaN duration", header + "2024-01-01,a,q,q1,NaN\n", true, "not finite"},
		{"Inf duration", header + "2024-01-01,a,q,q1,Inf\n", true, "not finite"},
		{"+Inf duration", header + "2024-01-01,a,q,q1,+Inf\n", true, "not finite"},
		{"infinite after scaling", "start_time,user_name,query_text,query_id,total_elapsed_time\n" +
			"2024-01-01,a,q,q1,-inf\n", true, "not finite"},
		{"ragged row", header + "2024-01-01,a,q\n", true, "row 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := readString(t, tt.data)
			require.Error(t, err)
			assert.Equal(t, tt.schema, errors.Is(err, ErrSchema), "err = %v", err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestReadCSVHeaderOnly(t *testing.T) {
	recs, err := readString(t,
		"start_time,viewer_name,query_text,query_id,query_time_sec\n")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestCSVLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.csv")
	data := "start_time,viewer_name,query_text,query_id,query_time_sec\n" +
		"2024-01-02,alice,q,q1,1\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c := &CSV{Path: path}
	assert.Equal(t, "csv:"+path, c.Name())
	recs, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = (&CSV{Path: path + ".missing"}).Load(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}
