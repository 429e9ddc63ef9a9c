// Package atlas holds the current derived snapshot and keeps it fresh.
package atlas

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand"
	"sync"
	"sync/atomic"
	"time"

	"cadastre/internal/auth"
	"cadastre/internal/cadastre"
	"cadastre/internal/metrics"
	"cadastre/internal/sheets"
	"cadastre/internal/store"

	"github.com/google/uuid"
)

var (
	ErrNotReady = errors.New("snapshot not loaded yet")
	ErrNoSource = errors.New("no row-set source configured")
)

// Archive is the persistence the service needs; *store.Store implements it.
type Archive interface {
	LatestRowSets(ctx context.Context) (store.RowSet, error)
	SaveRowSets(ctx context.Context, raw cadastre.RawData) (store.RowSet, bool, error)
	RecordDraw(ctx context.Context, idempotencyKey string, d store.Draw) (store.Draw, error)
	ListDraws(ctx context.Context, limit int) ([]store.Draw, error)
	DrawnPlots(ctx context.Context) ([]string, error)
}

// Snapshot is one derived load plus where it came from.
type Snapshot struct {
	ID       uuid.UUID         `json:"id"`
	Digest   string            `json:"digest"`
	Source   string            `json:"source"`
	LoadedAt time.Time         `json:"loaded_at"`
	Data     *cadastre.AppData `json:"data"`
}

type Options struct {
	Archive        Archive
	Source         sheets.Source
	Schema         cadastre.Schema
	LotterySetting string
	BootstrapFetch bool
	Auth           *auth.Authenticator
	Metrics        *metrics.Metrics
}

type Service struct {
	opts    Options
	log     *slog.Logger
	current atomic.Pointer[Snapshot]

	mu   sync.Mutex
	rand *mathrand.Rand
}

func NewService(opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	opts.Schema = opts.Schema.WithDefaults()
	if opts.LotterySetting == "" {
		opts.LotterySetting = cadastre.LotterySetting
	}
	return &Service{
		opts: opts,
		log:  logger,
		rand: mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
	}
}

// Current is the installed snapshot, nil before the first load.
func (s *Service) Current() *Snapshot {
	return s.current.Load()
}

func (s *Service) Data() (*cadastre.AppData, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return snap.Data, nil
}

func (s *Service) LotterySetting() string { return s.opts.LotterySetting }

// Reload installs the latest archived load. With an empty archive and
// bootstrap enabled it fetches from the source instead.
func (s *Service) Reload(ctx context.Context) error {
	if s.opts.Archive == nil {
		_, err := s.Ingest(ctx)
		return err
	}
	rs, err := s.opts.Archive.LatestRowSets(ctx)
	if errors.Is(err, store.ErrNoRowSets) && s.opts.BootstrapFetch {
		s.log.Info("archive empty, fetching row-sets directly")
		_, err = s.Ingest(ctx)
		return err
	}
	if err == nil {
		err = s.installArchived(rs)
	}
	s.opts.Metrics.Reload("archive", err)
	return err
}

func (s *Service) installArchived(rs store.RowSet) error {
	if cur := s.current.Load(); cur != nil && cur.Digest == rs.Digest {
		return nil
	}
	_, err := s.install(rs, "archive")
	return err
}

// Ingest fetches every row-set from the source, derives it, archives it when
// an archive is configured and installs the result.
func (s *Service) Ingest(ctx context.Context) (*Snapshot, error) {
	if s.opts.Source == nil {
		return nil, ErrNoSource
	}
	start := time.Now()
	raw, err := s.opts.Source.Fetch(ctx)
	s.opts.Metrics.FetchDuration(time.Since(start))
	if err != nil {
		s.opts.Metrics.Reload("source", err)
		return nil, fmt.Errorf("fetch row-sets: %w", err)
	}

	rs := store.RowSet{ID: uuid.New(), FetchedAt: time.Now().UTC(), Data: raw}
	if s.opts.Archive != nil {
		saved, created, err := s.opts.Archive.SaveRowSets(ctx, raw)
		if err != nil {
			s.opts.Metrics.Reload("source", err)
			return nil, fmt.Errorf("archive row-sets: %w", err)
		}
		rs = saved
		rs.Data = raw
		s.log.Info("row-sets archived", "row_set_id", rs.ID.String(), "digest", rs.Digest, "new", created)
	} else if rs.Digest, err = store.Digest(raw); err != nil {
		s.opts.Metrics.Reload("source", err)
		return nil, err
	}

	snap, err := s.install(rs, "source")
	s.opts.Metrics.Reload("source", err)
	return snap, err
}

func (s *Service) install(rs store.RowSet, source string) (*Snapshot, error) {
	data := cadastre.Derive(rs.Data, s.opts.Schema)
	if s.opts.Auth != nil {
		if err := s.opts.Auth.SetOwners(data.Owners); err != nil {
			return nil, fmt.Errorf("index owner PINs: %w", err)
		}
	}
	snap := &Snapshot{
		ID:       rs.ID,
		Digest:   rs.Digest,
		Source:   source,
		LoadedAt: time.Now().UTC(),
		Data:     data,
	}
	s.current.Store(snap)
	s.opts.Metrics.Snapshot(data)
	s.log.Info("snapshot installed",
		"snapshot_id", snap.ID.String(),
		"source", source,
		"plot_count", len(data.Plots),
		"merged_group_count", len(data.MergedGroups),
		"district_cluster_count", len(data.DistrictClusters),
	)
	return snap, nil
}

// Run reloads every interval until ctx is done. Failures are logged and the
// previous snapshot stays installed.
func (s *Service) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Reload(ctx); err != nil {
				s.log.Error("snapshot reload failed", "err", err)
				continue
			}
			if s.opts.Auth != nil {
				if n := s.opts.Auth.Sweep(); n > 0 {
					s.log.Info("expired sessions removed", "count", n)
				}
			}
		}
	}
}

// drawnPlots is the set of plots already drawn and recorded in the archive.
func (s *Service) drawnPlots(ctx context.Context) (map[string]bool, error) {
	if s.opts.Archive == nil {
		return nil, nil
	}
	names, err := s.opts.Archive.DrawnPlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("load drawn plots: %w", err)
	}
	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = true
	}
	return out, nil
}

// LotteryEligible lists the current candidates, leaving out plots that have
// already been drawn.
func (s *Service) LotteryEligible(ctx context.Context) ([]cadastre.LotteryCandidate, error) {
	data, err := s.Data()
	if err != nil {
		return nil, err
	}
	drawn, err := s.drawnPlots(ctx)
	if err != nil {
		return nil, err
	}
	return data.LotteryEligible(drawn), nil
}

// DrawLottery picks a winner plot for a staff member and records the draw.
// Draws are serialized so two requests cannot pick the same plot.
func (s *Service) DrawLottery(ctx context.Context, sess auth.Session, idempotencyKey string) (store.Draw, error) {
	if err := auth.RequireStaff(sess); err != nil {
		return store.Draw{}, err
	}
	snap := s.current.Load()
	if snap == nil {
		return store.Draw{}, ErrNotReady
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	drawn, err := s.drawnPlots(ctx)
	if err != nil {
		return store.Draw{}, err
	}
	pick, err := snap.Data.DrawLottery(s.rand, s.opts.LotterySetting, drawn)
	if err != nil {
		return store.Draw{}, err
	}

	d := store.Draw{
		ID:       uuid.New(),
		PlotName: pick.Plot.Name,
		Donor:    pick.Donor,
		DrawnBy:  sess.Owner,
		RowSetID: snap.ID,
		DrawnAt:  time.Now().UTC(),
	}
	if s.opts.Archive != nil {
		d, err = s.opts.Archive.RecordDraw(ctx, idempotencyKey, d)
		if err != nil {
			return store.Draw{}, err
		}
	}
	s.opts.Metrics.Draw()
	s.log.Info("lottery drawn", "plot", d.PlotName, "donor", d.Donor, "drawn_by", d.DrawnBy)
	return d, nil
}

func (s *Service) Draws(ctx context.Context, limit int) ([]store.Draw, error) {
	if s.opts.Archive == nil {
		return []store.Draw{}, nil
	}
	return s.opts.Archive.ListDraws(ctx, limit)
}
