// Package worldbank downloads indicator series from the World Bank v2 API
// and saves them in the layout of the World Bank bulk CSV download.
package worldbank

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"lvstat/internal/reshape"
	"lvstat/internal/table"
)

// DefaultPerPage is the page size requested from the API.
const DefaultPerPage = 1000

// Observation is one country-year value. Value is nil when the API
// reports no observation for the year.
type Observation struct {
	Indicator struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"indicator"`
	Country struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	} `json:"country"`
	CountryISO3 string   `json:"countryiso3code"`
	Date        string   `json:"date"`
	Value       *float64 `json:"value"`
}

type pageMeta struct {
	Page        int    `json:"page"`
	Pages       int    `json:"pages"`
	LastUpdated string `json:"lastupdated"`
	Message     []struct {
		ID    string `json:"id"`
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"message"`
}

// Series is an indicator for one country.
type Series struct {
	Code         string
	Name         string
	Country      string
	CountryISO3  string
	LastUpdated  string
	Observations []Observation
}

// Client talks to the World Bank API.
type Client struct {
	logger  *zap.Logger
	httpCli *http.Client
	baseURL string
	perPage int
}

// NewClient creates a new World Bank client.
func NewClient(logger *zap.Logger, baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported worldbank url %q", baseURL)
	}
	return &Client{
		logger:  logger,
		httpCli: &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(u.String(), "/"),
		perPage: DefaultPerPage,
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpCli.CloseIdleConnections()
}

func (c *Client) pageURL(country, code string, page int) string {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", strconv.Itoa(page))
	return fmt.Sprintf("%s/country/%s/indicator/%s?%s", c.baseURL, url.PathEscape(country), url.PathEscape(code), q.Encode())
}

// Fetch downloads every page of indicator code for country (ISO3).
func (c *Client) Fetch(ctx context.Context, country, code string) (*Series, error) {
	s := &Series{Code: code, CountryISO3: country}
	for page := 1; ; page++ {
		meta, obs, err := c.fetchPage(ctx, country, code, page)
		if err != nil {
			return nil, fmt.Errorf("fetch %s page %d: %w", code, page, err)
		}
		if s.LastUpdated == "" {
			s.LastUpdated = meta.LastUpdated
		}
		s.Observations = append(s.Observations, obs...)
		c.logger.Debug("Fetched page", zap.String("code", code), zap.Int("page", page), zap.Int("pages", meta.Pages), zap.Int("observations", len(obs)))
		if page >= meta.Pages {
			break
		}
	}
	for _, o := range s.Observations {
		if s.Name == "" {
			s.Name = o.Indicator.Value
		}
		if s.Country == "" {
			s.Country = o.Country.Value
		}
	}
	return s, nil
}

func (c *Client) fetchPage(ctx context.Context, country, code string, page int) (pageMeta, []Observation, error) {
	var meta pageMeta
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(country, code, page), nil)
	if err != nil {
		return meta, nil, err
	}
	res, err := c.httpCli.Do(req)
	if err != nil {
		return meta, nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
		return meta, nil, fmt.Errorf("unexpected status %d", res.StatusCode)
	}

	var body []json.RawMessage
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return meta, nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(body) == 0 {
		return meta, nil, errors.New("empty response")
	}
	if err := json.Unmarshal(body[0], &meta); err != nil {
		return meta, nil, fmt.Errorf("failed to decode page header: %w", err)
	}
	if len(meta.Message) > 0 {
		m := meta.Message[0]
		return meta, nil, fmt.Errorf("api error %s: %s", m.ID, strings.TrimSpace(m.Key+" "+m.Value))
	}
	var obs []Observation
	if len(body) > 1 && string(body[1]) != "null" {
		if err := json.Unmarshal(body[1], &obs); err != nil {
			return meta, nil, fmt.Errorf("failed to decode observations: %w", err)
		}
	}
	return meta, obs, nil
}

// Wide lays the series out as one row: the four meta columns followed by
// one column per year in ascending order. Missing years are empty.
func (s *Series) Wide() *table.Table {
	years := map[int]string{}
	for _, o := range s.Observations {
		y, err := strconv.Atoi(o.Date)
		if err != nil {
			continue
		}
		v := ""
		if o.Value != nil {
			v = table.FormatFloat(*o.Value)
		}
		years[y] = v
	}
	keys := make([]int, 0, len(years))
	for y := range years {
		keys = append(keys, y)
	}
	sort.Ints(keys)

	header := append([]string(nil), reshape.WorldBankMeta...)
	row := []string{s.Country, s.CountryISO3, s.Name, s.Code}
	for _, y := range keys {
		header = append(header, strconv.Itoa(y))
		row = append(row, years[y])
	}
	t := table.New(header...)
	t.Append(row...)
	return t
}

// WriteCSV writes the series in the bulk download layout: four preamble
// lines, then the header and the data row.
func (s *Series) WriteCSV(w io.Writer) error {
	updated := s.LastUpdated
	if updated == "" {
		updated = time.Now().UTC().Format("2006-01-02")
	}
	preamble := fmt.Sprintf("\"Data Source\",\"World Development Indicators\"\n\n\"Last Updated Date\",\"%s\"\n\n", updated)
	if _, err := io.WriteString(w, preamble); err != nil {
		return err
	}
	return table.Write(w, s.Wide())
}
