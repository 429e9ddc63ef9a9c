// Package sheets loads the eight cadastre row-sets from spreadsheet CSV
// exports or from a directory of CSV files.
package sheets

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cadastre/internal/cadastre"

	"golang.org/x/sync/errgroup"
)

var ErrSourceUnavailable = errors.New("row-set source unavailable")

const (
	DefaultBaseURL       = "https://docs.google.com/spreadsheets/d"
	DefaultSpreadsheetID = "1swtElpz27sqLMNbATocFe9VHc1yZTSRxvHyikFL_R7U"
)

// Source yields a complete RawData or an error; never a partial load.
type Source interface {
	Fetch(ctx context.Context) (cadastre.RawData, error)
}

// Spreadsheet identifies the published sheet and the tab id of each row-set.
type Spreadsheet struct {
	BaseURL string            `yaml:"base_url"`
	ID      string            `yaml:"id"`
	GIDs    map[string]string `yaml:"gids"`
}

func DefaultSpreadsheet() Spreadsheet {
	return Spreadsheet{
		BaseURL: DefaultBaseURL,
		ID:      DefaultSpreadsheetID,
		GIDs: map[string]string{
			cadastre.KindPlots:        "0",
			cadastre.KindMerged:       "43897086",
			cadastre.KindStreets:      "2101138806",
			cadastre.KindLocals:       "875214507",
			cadastre.KindOwners:       "92681717",
			cadastre.KindTransactions: "231383988",
			cadastre.KindSettings:     "464636229",
			cadastre.KindLottery:      "1580637376",
		},
	}
}

// WithDefaults fills a blank base URL, id and any missing tab ids.
func (s Spreadsheet) WithDefaults() Spreadsheet {
	d := DefaultSpreadsheet()
	if strings.TrimSpace(s.BaseURL) == "" {
		s.BaseURL = d.BaseURL
	}
	if strings.TrimSpace(s.ID) == "" {
		s.ID = d.ID
	}
	gids := make(map[string]string, len(d.GIDs))
	for kind, gid := range d.GIDs {
		gids[kind] = gid
	}
	for kind, gid := range s.GIDs {
		if strings.TrimSpace(gid) != "" {
			gids[kind] = strings.TrimSpace(gid)
		}
	}
	s.GIDs = gids
	return s
}

// URL is the CSV export address of one row-set.
func (s Spreadsheet) URL(kind string) string {
	q := url.Values{}
	q.Set("format", "csv")
	q.Set("gid", s.GIDs[kind])
	return fmt.Sprintf("%s/%s/export?%s", strings.TrimRight(s.BaseURL, "/"), url.PathEscape(s.ID), q.Encode())
}

type Client struct {
	sheet Spreadsheet
	http  *http.Client
}

func NewClient(sheet Spreadsheet, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Client{sheet: sheet.WithDefaults(), http: httpClient}
}

// Fetch downloads every row-set concurrently. The first failure cancels the
// rest and is returned wrapped in ErrSourceUnavailable.
func (c *Client) Fetch(ctx context.Context) (cadastre.RawData, error) {
	rows := make([][]cadastre.Row, len(cadastre.Kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range cadastre.Kinds {
		i, kind := i, kind
		g.Go(func() error {
			out, err := c.fetchOne(gctx, kind)
			if err != nil {
				return fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, kind, err)
			}
			rows[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	raw := make(cadastre.RawData, len(cadastre.Kinds))
	for i, kind := range cadastre.Kinds {
		raw[kind] = rows[i]
	}
	return raw, nil
}

func (c *Client) fetchOne(ctx context.Context, kind string) ([]cadastre.Row, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sheet.URL(kind), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return ParseCSV(resp.Body)
}

// Dir reads <kind>.csv for every row-set from a local directory.
type Dir struct {
	Path string
}

func (d Dir) Fetch(ctx context.Context) (cadastre.RawData, error) {
	raw := make(cadastre.RawData, len(cadastre.Kinds))
	for _, kind := range cadastre.Kinds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := readFile(filepath.Join(d.Path, kind+".csv"))
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, kind, err)
		}
		raw[kind] = rows
	}
	return raw, nil
}

func readFile(path string) ([]cadastre.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseCSV(f)
}

// ParseCSV reads a header row followed by data rows. Blank lines and rows
// with only empty cells are skipped; short rows leave trailing labels unset.
func ParseCSV(r io.Reader) ([]cadastre.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []cadastre.Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		header[i] = strings.TrimSpace(h)
	}

	out := []cadastre.Row{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if blank(rec) {
			continue
		}
		row := make(cadastre.Row, len(header))
		for i, label := range header {
			if label == "" || i >= len(rec) {
				continue
			}
			row[label] = rec[i]
		}
		out = append(out, row)
	}
	return out, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
