package offline

import (
	"errors"
	"testing"
	"time"

	"cadastre/internal/atlas"
	"cadastre/internal/cadastre/cadastretest"

	"github.com/google/uuid"
)

func TestSaveLoadReindexes(t *testing.T) {
	t.Setenv("CADASTRE_HOME", t.TempDir())

	if _, err := Load(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("err=%v want ErrNoSnapshot", err)
	}

	snap := atlas.Snapshot{
		ID:       uuid.New(),
		Digest:   "abc",
		Source:   "archive",
		LoadedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Data:     cadastretest.Data(),
	}
	if err := Save(snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != snap.ID || got.Digest != "abc" || !got.LoadedAt.Equal(snap.LoadedAt) {
		t.Fatalf("snapshot=%+v", got)
	}
	p, ok := got.Data.Plot("P1")
	if !ok || p.Owner != "Jan" {
		t.Fatalf("lookup after load: plot=%+v ok=%v", p, ok)
	}

	if err := Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := Load(); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("after clear err=%v", err)
	}
}
