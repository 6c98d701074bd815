package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lvstat/internal/store"
	"lvstat/internal/table"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	annual := table.New("Year", "GDP", "Unemployment Rate")
	for y := 1995; y < 2055; y++ {
		annual.Append(strconv.Itoa(y), "10.5", "")
	}
	path := filepath.Join(dir, "lvstat.sqlite")
	require.NoError(t, store.Export(context.Background(), path, map[string]*table.Table{"merged_df_annual": annual}))
	db, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	plots := filepath.Join(dir, "eda_plots", "RQ1")
	require.NoError(t, os.MkdirAll(plots, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(plots, "timeseries_GDP.png"), []byte("png"), 0o644))

	srv := httptest.NewServer(New(zap.NewNop(), db, filepath.Join(dir, "eda_plots")).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(b)
}

func TestHealthAndIndex(t *testing.T) {
	srv := newTestServer(t)
	code, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	code, body = get(t, srv.URL+"/")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `href="/table/merged_df_annual"`)
	assert.Contains(t, body, "60 rows")

	code, _ = get(t, srv.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestTablePage(t *testing.T) {
	srv := newTestServer(t)
	code, body := get(t, srv.URL+"/table/merged_df_annual")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "page 1 of 2")
	assert.Contains(t, body, "<td>1995</td>")
	assert.Contains(t, body, `href="?page=2"`)

	code, body = get(t, srv.URL+"/table/merged_df_annual?page=2")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "<td>2054</td>")
	assert.NotContains(t, body, "<td>1995</td>")

	code, _ = get(t, srv.URL+"/table/merged_df_annual?page=0")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, srv.URL+"/table/missing")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestAPI(t *testing.T) {
	srv := newTestServer(t)
	code, body := get(t, srv.URL+"/api/tables")
	require.Equal(t, http.StatusOK, code)
	var tables []struct {
		Name    string   `json:"name"`
		Rows    int      `json:"rows"`
		Columns []string `json:"columns"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &tables))
	require.Len(t, tables, 1)
	assert.Equal(t, 60, tables[0].Rows)
	assert.Equal(t, []string{"Year", "GDP", "Unemployment Rate"}, tables[0].Columns)

	code, body = get(t, srv.URL+"/api/series?table=merged_df_annual&column=GDP")
	require.Equal(t, http.StatusOK, code)
	var pts []struct {
		Key   float64  `json:"key"`
		Value *float64 `json:"value"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &pts))
	require.Len(t, pts, 60)
	assert.Equal(t, 1995.0, pts[0].Key)
	require.NotNil(t, pts[0].Value)
	assert.Equal(t, 10.5, *pts[0].Value)

	code, body = get(t, srv.URL+"/api/series?table=merged_df_annual&column=Unemployment%20Rate")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, `"value": null`)

	code, _ = get(t, srv.URL+"/api/series?table=merged_df_annual")
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = get(t, srv.URL+"/api/series?table=merged_df_annual&column=Nope")
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = get(t, srv.URL+"/api/series?table=nope&column=GDP")
	assert.Equal(t, http.StatusNotFound, code)

	res, err := http.Post(srv.URL+"/api/tables", "text/plain", nil)
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
}

func TestPlots(t *testing.T) {
	srv := newTestServer(t)
	code, body := get(t, srv.URL+"/plots/RQ1/timeseries_GDP.png")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "png", body)
}

func TestPageOffset(t *testing.T) {
	off, ok := pageOffset(3, 50)
	assert.True(t, ok)
	assert.Equal(t, 100, off)
	_, ok = pageOffset(0, 50)
	assert.False(t, ok)
}
