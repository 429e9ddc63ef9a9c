package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cadastre/internal/cadastre"

	"github.com/google/go-cmp/cmp"
)

func TestSpreadsheetURL(t *testing.T) {
	s := DefaultSpreadsheet()
	got := s.URL(cadastre.KindMerged)
	want := "https://docs.google.com/spreadsheets/d/" + DefaultSpreadsheetID + "/export?format=csv&gid=43897086"
	if got != want {
		t.Fatalf("url=%s", got)
	}

	custom := Spreadsheet{ID: "abc", GIDs: map[string]string{cadastre.KindPlots: " 7 "}}.WithDefaults()
	if custom.GIDs[cadastre.KindPlots] != "7" || custom.GIDs[cadastre.KindLottery] != "1580637376" {
		t.Fatalf("gids=%v", custom.GIDs)
	}
	if custom.BaseURL != DefaultBaseURL {
		t.Fatalf("base=%s", custom.BaseURL)
	}
}

func TestParseCSV(t *testing.T) {
	in := "\ufeffName, Area \nP1,100\n\n,\nP2\n\"P,3\",\"1 200\"\n"
	rows, err := ParseCSV(strings.NewReader(in))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []cadastre.Row{
		{"Name": "P1", "Area": "100"},
		{"Name": "P2"},
		{"Name": "P,3", "Area": "1 200"},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Fatalf("rows (-want +got):\n%s", diff)
	}

	empty, err := ParseCSV(strings.NewReader(""))
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty input rows=%v err=%v", empty, err)
	}
}

func TestClientFetchAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("format") != "csv" {
			http.Error(w, "bad format", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("gid\n" + r.URL.Query().Get("gid") + "\n"))
	}))
	defer srv.Close()

	sheet := DefaultSpreadsheet()
	sheet.BaseURL = srv.URL
	raw, err := NewClient(sheet, srv.Client()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(raw) != len(cadastre.Kinds) {
		t.Fatalf("row-sets=%d", len(raw))
	}
	if got := raw[cadastre.KindOwners][0]["gid"]; got != "92681717" {
		t.Fatalf("owners gid=%q", got)
	}
}

func TestClientFetchIsAllOrNothing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("gid") == "464636229" {
			http.Error(w, "gone", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("a\n1\n"))
	}))
	defer srv.Close()

	sheet := DefaultSpreadsheet()
	sheet.BaseURL = srv.URL
	raw, err := NewClient(sheet, srv.Client()).Fetch(context.Background())
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("err=%v want ErrSourceUnavailable", err)
	}
	if raw != nil {
		t.Fatalf("partial data returned: %v", raw)
	}
}

func TestDirFetch(t *testing.T) {
	dir := t.TempDir()
	for _, kind := range cadastre.Kinds {
		body := "Name\n" + kind + "\n"
		if err := os.WriteFile(filepath.Join(dir, kind+".csv"), []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	raw, err := Dir{Path: dir}.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if raw[cadastre.KindStreets][0]["Name"] != cadastre.KindStreets {
		t.Fatalf("streets=%v", raw[cadastre.KindStreets])
	}

	if err := os.Remove(filepath.Join(dir, cadastre.KindLottery+".csv")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := (Dir{Path: dir}).Fetch(context.Background()); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("err=%v want ErrSourceUnavailable", err)
	}
}
