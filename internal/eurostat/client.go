// Package eurostat downloads datasets from the Eurostat dissemination API.
package eurostat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"lvstat/internal/reshape"
	"lvstat/internal/table"
)

// Client fetches Eurostat datasets as TSV.
type Client struct {
	logger  *zap.Logger
	httpCli *http.Client
	baseURL string
}

// NewClient creates a new Eurostat client.
func NewClient(logger *zap.Logger, baseURL string, timeout time.Duration, maxConns int) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported eurostat url %q", baseURL)
	}
	if maxConns < 1 {
		maxConns = 1
	}
	return &Client{
		logger: logger,
		httpCli: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   30 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        maxConns,
				IdleConnTimeout:     30 * time.Second,
				MaxIdleConnsPerHost: maxConns,
				MaxConnsPerHost:     maxConns,
			},
		},
		baseURL: strings.TrimRight(u.String(), "/"),
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpCli.CloseIdleConnections()
}

// DatasetURL returns the TSV download URL of a dataset.
func (c *Client) DatasetURL(code string) string {
	return c.baseURL + "/" + url.PathEscape(code) + "?format=TSV&compressed=false"
}

// Fetch downloads dataset code and returns it as a wide table: the
// dimension columns (the last one being geo\TIME_PERIOD) followed by one
// column per period.
func (c *Client) Fetch(ctx context.Context, code string) (*table.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DatasetURL(code), nil)
	if err != nil {
		return nil, err
	}
	res, err := c.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", code, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
		return nil, fmt.Errorf("fetch %s: unexpected status %d", code, res.StatusCode)
	}
	t, err := ParseTSV(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", code, err)
	}
	c.logger.Debug("Fetched dataset", zap.String("code", code), zap.Int("rows", len(t.Rows)), zap.Int("cols", len(t.Header)))
	return t, nil
}

// ParseTSV reads the Eurostat TSV layout. The first header cell lists the
// dimensions separated by commas; value cells may carry flags ("12.5 p")
// and ":" marks a missing observation.
func ParseTSV(r io.Reader) (*table.Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("empty dataset")
	}
	head := strings.Split(strings.TrimRight(sc.Text(), "\r"), "\t")
	dims := strings.Split(strings.TrimSpace(head[0]), ",")
	if len(dims) == 0 || dims[len(dims)-1] != reshape.EurostatGeoColumn {
		return nil, fmt.Errorf("unexpected dimension header %q", head[0])
	}
	header := append([]string(nil), dims...)
	for _, p := range head[1:] {
		header = append(header, strings.TrimSpace(p))
	}
	t := table.New(header...)

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		keys := strings.Split(strings.TrimSpace(cells[0]), ",")
		if len(keys) != len(dims) {
			return nil, fmt.Errorf("row %q has %d dimensions, want %d", cells[0], len(keys), len(dims))
		}
		row := make([]string, 0, len(header))
		row = append(row, keys...)
		for _, cell := range cells[1:] {
			row = append(row, Value(cell))
		}
		t.Append(row...)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Value strips observation flags from a TSV cell and returns the number,
// or "" when the observation is missing.
func Value(cell string) string {
	s := strings.TrimSpace(cell)
	if s == "" || strings.HasPrefix(s, ":") {
		return ""
	}
	if i := strings.IndexByte(s, ' '); i >= 0 {
		s = s[:i]
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return ""
	}
	return table.FormatFloat(f)
}

// FilterGeo keeps the rows of geo. It reports false when the table has no
// geo\TIME_PERIOD column, in which case t is returned unchanged.
func FilterGeo(t *table.Table, geo string) (*table.Table, bool) {
	gi := t.Index(reshape.EurostatGeoColumn)
	if gi < 0 {
		return t, false
	}
	out := table.New(t.Header...)
	for _, row := range t.Rows {
		if row[gi] == geo {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, true
}
