package atlas

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cadastre/internal/auth"
	"cadastre/internal/cadastre"
	"cadastre/internal/cadastre/cadastretest"
	"cadastre/internal/metrics"
	"cadastre/internal/store"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/goleak"
	"golang.org/x/crypto/bcrypt"
)

type fakeSource struct {
	mu    sync.Mutex
	raw   cadastre.RawData
	err   error
	calls int
}

func (f *fakeSource) Fetch(context.Context) (cadastre.RawData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.raw, f.err
}

// fakeArchive keeps one row per digest and returns the most recently
// fetched one, like the Postgres archive.
type fakeArchive struct {
	mu     sync.Mutex
	sets   []store.RowSet
	draws  []store.Draw
	keys   map[string]bool
	loadFn func() error
	clock  time.Time
}

func (f *fakeArchive) tick() time.Time {
	if f.clock.IsZero() {
		f.clock = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeArchive) LatestRowSets(context.Context) (store.RowSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadFn != nil {
		if err := f.loadFn(); err != nil {
			return store.RowSet{}, err
		}
	}
	if len(f.sets) == 0 {
		return store.RowSet{}, store.ErrNoRowSets
	}
	latest := f.sets[0]
	for _, rs := range f.sets[1:] {
		if rs.FetchedAt.After(latest.FetchedAt) {
			latest = rs
		}
	}
	return latest, nil
}

func (f *fakeArchive) SaveRowSets(_ context.Context, raw cadastre.RawData) (store.RowSet, bool, error) {
	digest, err := store.Digest(raw)
	if err != nil {
		return store.RowSet{}, false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, rs := range f.sets {
		if rs.Digest == digest {
			f.sets[i].FetchedAt = f.tick()
			return f.sets[i], false, nil
		}
	}
	rs := store.RowSet{ID: uuid.New(), Digest: digest, FetchedAt: f.tick(), Data: raw}
	f.sets = append(f.sets, rs)
	return rs, true, nil
}

func (f *fakeArchive) RecordDraw(_ context.Context, key string, d store.Draw) (store.Draw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.keys == nil {
		f.keys = map[string]bool{}
	}
	if f.keys[key] {
		return store.Draw{}, store.ErrDuplicateDraw
	}
	for _, prev := range f.draws {
		if prev.PlotName == d.PlotName {
			return store.Draw{}, store.ErrPlotAwarded
		}
	}
	f.keys[key] = true
	f.draws = append(f.draws, d)
	return d, nil
}

func (f *fakeArchive) DrawnPlots(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.draws))
	for _, d := range f.draws {
		names = append(names, d.PlotName)
	}
	return names, nil
}

func (f *fakeArchive) ListDraws(context.Context, int) ([]store.Draw, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Draw(nil), f.draws...), nil
}

func TestReloadBootstrapsFromSource(t *testing.T) {
	src := &fakeSource{raw: cadastretest.Raw()}
	arch := &fakeArchive{}
	svc := NewService(Options{Archive: arch, Source: src, BootstrapFetch: true}, nil)

	if _, err := svc.Data(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err=%v want ErrNotReady", err)
	}
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	snap := svc.Current()
	if snap == nil || snap.Source != "source" || len(snap.Data.Plots) != 4 {
		t.Fatalf("snapshot=%+v", snap)
	}
	if len(arch.sets) != 1 || arch.sets[0].ID != snap.ID {
		t.Fatalf("archive=%+v", arch.sets)
	}

	// Same digest in the archive: nothing to re-derive.
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("second reload: %v", err)
	}
	if svc.Current() != snap {
		t.Fatalf("unchanged archive replaced snapshot")
	}
}

func TestReloadWithoutBootstrapFails(t *testing.T) {
	svc := NewService(Options{Archive: &fakeArchive{}, Source: &fakeSource{raw: cadastretest.Raw()}}, nil)
	if err := svc.Reload(context.Background()); !errors.Is(err, store.ErrNoRowSets) {
		t.Fatalf("err=%v want ErrNoRowSets", err)
	}
}

func TestIngestFailureKeepsSnapshot(t *testing.T) {
	src := &fakeSource{raw: cadastretest.Raw()}
	svc := NewService(Options{Source: src}, nil)
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	before := svc.Current()

	src.err = errors.New("sheet offline")
	if _, err := svc.Ingest(context.Background()); err == nil {
		t.Fatalf("expected fetch error")
	}
	if svc.Current() != before {
		t.Fatalf("failed ingest replaced snapshot")
	}

	if _, err := NewService(Options{}, nil).Ingest(context.Background()); !errors.Is(err, ErrNoSource) {
		t.Fatalf("err=%v want ErrNoSource", err)
	}
}

func TestInstallIndexesOwnerPINs(t *testing.T) {
	authn := auth.NewAuthenticator(auth.Options{HashCost: bcrypt.MinCost}, nil)
	svc := NewService(Options{Source: &fakeSource{raw: cadastretest.Raw()}, Auth: authn}, nil)
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if _, err := authn.Login("Acme", "1234"); err != nil {
		t.Fatalf("login after install: %v", err)
	}
}

func TestDrawLottery(t *testing.T) {
	arch := &fakeArchive{}
	svc := NewService(Options{Archive: arch, Source: &fakeSource{raw: cadastretest.Raw()}, BootstrapFetch: true}, nil)
	ctx := context.Background()

	staff := auth.Session{Owner: "Jan", Staff: true}
	if _, err := svc.DrawLottery(ctx, staff, "k1"); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err=%v want ErrNotReady", err)
	}
	if err := svc.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}

	if _, err := svc.DrawLottery(ctx, auth.Session{Owner: "Acme"}, "k0"); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("err=%v want ErrForbidden", err)
	}
	d, err := svc.DrawLottery(ctx, staff, "k1")
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if d.PlotName != "P3" || d.Donor != "Acme" || d.DrawnBy != "Jan" || d.RowSetID != svc.Current().ID {
		t.Fatalf("draw=%+v", d)
	}
	draws, err := svc.Draws(ctx, 10)
	if err != nil || len(draws) != 1 {
		t.Fatalf("draws=%+v err=%v", draws, err)
	}
}

func TestDrawnPlotIsNotDrawnAgain(t *testing.T) {
	arch := &fakeArchive{}
	svc := NewService(Options{Archive: arch, Source: &fakeSource{raw: cadastretest.Raw()}, BootstrapFetch: true}, nil)
	ctx := context.Background()
	if err := svc.Reload(ctx); err != nil {
		t.Fatalf("reload: %v", err)
	}
	staff := auth.Session{Owner: "Jan", Staff: true}

	if _, err := svc.DrawLottery(ctx, staff, "k1"); err != nil {
		t.Fatalf("first draw: %v", err)
	}
	if d, err := svc.DrawLottery(ctx, staff, "k2"); !errors.Is(err, cadastre.ErrNoEligiblePlots) {
		t.Fatalf("second draw=%+v err=%v want ErrNoEligiblePlots", d, err)
	}
	eligible, err := svc.LotteryEligible(ctx)
	if err != nil {
		t.Fatalf("eligible: %v", err)
	}
	if len(eligible) != 0 {
		t.Fatalf("eligible after draw=%+v", eligible)
	}
	if len(arch.draws) != 1 {
		t.Fatalf("recorded draws=%+v", arch.draws)
	}
}

func withLottery(raw cadastre.RawData, enabled string) cadastre.RawData {
	s := cadastre.DefaultSchema()
	out := make(cadastre.RawData, len(raw))
	for kind, rows := range raw {
		out[kind] = rows
	}
	out[cadastre.KindSettings] = []cadastre.Row{
		{s.Settings.Name: cadastre.LotterySetting, s.Settings.Enabled: enabled},
	}
	return out
}

func TestReloadFollowsRevertedSheet(t *testing.T) {
	src := &fakeSource{}
	arch := &fakeArchive{}
	worker := NewService(Options{Archive: arch, Source: src}, nil)
	api := NewService(Options{Archive: arch}, nil)
	ctx := context.Background()

	lotteryOn := func() bool {
		t.Helper()
		if err := api.Reload(ctx); err != nil {
			t.Fatalf("reload: %v", err)
		}
		d, err := api.Data()
		if err != nil {
			t.Fatalf("data: %v", err)
		}
		return d.Setting(cadastre.LotterySetting)
	}

	for i, enabled := range []string{"TRUE", "FALSE", "TRUE"} {
		src.raw = withLottery(cadastretest.Raw(), enabled)
		if _, err := worker.Ingest(ctx); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
		if got, want := lotteryOn(), enabled == "TRUE"; got != want {
			t.Fatalf("step %d: lottery enabled=%v want %v", i, got, want)
		}
	}
	if len(arch.sets) != 2 {
		t.Fatalf("archived %d loads, want 2", len(arch.sets))
	}
}

func TestBootstrapCountsOneReload(t *testing.T) {
	m := metrics.New()
	svc := NewService(Options{Archive: &fakeArchive{}, Source: &fakeSource{raw: cadastretest.Raw()}, BootstrapFetch: true, Metrics: m}, nil)
	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	want := `
# HELP cadastre_snapshot_reloads_total Snapshot derivations by source and result.
# TYPE cadastre_snapshot_reloads_total counter
cadastre_snapshot_reloads_total{result="ok",source="source"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "cadastre_snapshot_reloads_total"); err != nil {
		t.Fatalf("after bootstrap: %v", err)
	}

	if err := svc.Reload(context.Background()); err != nil {
		t.Fatalf("second reload: %v", err)
	}
	want += `cadastre_snapshot_reloads_total{result="ok",source="archive"} 1
`
	if err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(want), "cadastre_snapshot_reloads_total"); err != nil {
		t.Fatalf("after archive reload: %v", err)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	arch := &fakeArchive{}
	var loads int
	var mu sync.Mutex
	arch.loadFn = func() error {
		mu.Lock()
		loads++
		mu.Unlock()
		return nil
	}
	svc := NewService(Options{Archive: arch, Source: &fakeSource{raw: cadastretest.Raw()}, BootstrapFetch: true}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for {
		mu.Lock()
		n := loads
		mu.Unlock()
		if n >= 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("refresh loop did not tick")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done

	if svc.Current() == nil {
		t.Fatalf("refresh loop never installed a snapshot")
	}
}
