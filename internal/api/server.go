package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cadastre/internal/atlas"
	"cadastre/internal/auth"
	"cadastre/internal/cadastre"
	"cadastre/internal/config"
	"cadastre/internal/metrics"
	"cadastre/internal/store"
	"cadastre/internal/viewport"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

type contextKey string

const sessionContextKey contextKey = "session"

type Server struct {
	cfg     config.APIConfig
	log     *slog.Logger
	auth    *auth.Authenticator
	atlas   *atlas.Service
	metrics *metrics.Metrics
	mux     *chi.Mux
}

func New(cfg config.APIConfig, logger *slog.Logger, authn *auth.Authenticator, svc *atlas.Service, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		auth:    authn,
		atlas:   svc,
		metrics: m,
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(s.metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "ready": s.atlas.Current() != nil})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/map.geojson", s.handleGeoJSON)
		r.Get("/viewport/initial", s.handleViewportInitial)

		r.Get("/plots", s.handlePlots)
		r.Get("/plots/{name}", s.handlePlot)
		r.Get("/plots/{name}/locals", s.handlePlotLocals)
		r.Get("/plots/{name}/history", s.handlePlotHistory)

		r.Get("/owners/{name}", s.handleOwner)
		r.Get("/owners/{name}/plots", s.handleOwnerPlots)

		r.Get("/districts", s.handleDistricts)
		r.Get("/districts/{name}/plots", s.handleDistrictPlots)

		r.Get("/streets", s.handleStreets)
		r.Get("/streets/{name}/plots", s.handleStreetPlots)

		r.Get("/merged", s.handleMerged)
		r.Get("/settings", s.handleSettings)

		r.Get("/lottery/history", s.handleLotteryHistory)
		r.Get("/lottery/eligible", s.handleLotteryEligible)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/me", s.handleMe)
			r.Post("/auth/logout", s.handleLogout)
			r.Post("/lottery/draw", s.handleLotteryDraw)
		})
	})
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		sess, err := s.auth.Verify(token)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFromContext(ctx context.Context) (auth.Session, error) {
	sess, ok := ctx.Value(sessionContextKey).(auth.Session)
	if !ok || sess.Token == "" {
		return auth.Session{}, errors.New("missing auth context")
	}
	return sess, nil
}

// data writes 503 and returns false until the first snapshot is installed.
func (s *Server) data(w http.ResponseWriter) (*cadastre.AppData, bool) {
	d, err := s.atlas.Data()
	if err != nil {
		writeDomainError(w, err)
		return nil, false
	}
	return d, true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Owner string `json:"owner"`
		PIN   string `json:"pin"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess, err := s.auth.Login(in.Owner, in.PIN)
	switch {
	case err == nil:
		s.metrics.Login("ok")
	case errors.Is(err, auth.ErrRateLimited):
		s.metrics.Login("rate_limited")
	default:
		s.metrics.Login("rejected")
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	s.auth.Logout(sess.Token)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	d, ok := s.data(w)
	if !ok {
		return
	}
	owner, _ := d.Owner(sess.Owner)
	writeJSON(w, http.StatusOK, map[string]any{
		"session": sess,
		"owner":   owner,
		"plots":   d.PlotsOwnedBy(sess.Owner),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	snap := s.atlas.Current()
	if snap == nil {
		writeDomainError(w, atlas.ErrNotReady)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	body, err := mapFeatures(d).MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleViewportInitial(w http.ResponseWriter, r *http.Request) {
	width, errW := strconv.ParseFloat(r.URL.Query().Get("width"), 64)
	height, errH := strconv.ParseFloat(r.URL.Query().Get("height"), 64)
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		writeError(w, http.StatusBadRequest, "width and height must be positive numbers")
		return
	}
	d, ok := s.data(w)
	if !ok {
		return
	}
	bounds, ok := d.Bounds()
	if !ok {
		writeError(w, http.StatusConflict, "snapshot has no plots to frame")
		return
	}
	ctl := viewport.New(s.cfg.Sources.Viewport(), nil)
	if !ctl.Frame(rectBound(bounds), viewport.Size{W: width, H: height}) {
		writeError(w, http.StatusBadRequest, "cannot frame plots in this container")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"camera":    ctl.Camera(),
		"initial":   ctl.Initial(),
		"max_width": ctl.MaxWidth(),
		"min_width": ctl.MinWidth(),
		"world":     orbBoundJSON(s.cfg.Sources.Viewport().WorldBound()),
	})
}

func orbBoundJSON(b orb.Bound) map[string]float64 {
	return map[string]float64{"min_x": b.Min[0], "min_y": b.Min[1], "max_x": b.Max[0], "max_y": b.Max[1]}
}

func (s *Server) handlePlots(w http.ResponseWriter, r *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	q := r.URL.Query()
	owner, district, street, typ := q.Get("owner"), q.Get("district"), q.Get("street"), q.Get("type")
	out := []cadastre.Plot{}
	for _, p := range d.Plots {
		if owner != "" && p.Owner != owner {
			continue
		}
		if district != "" && p.District != district {
			continue
		}
		if street != "" && p.Street != street {
			continue
		}
		if typ != "" && p.Type != typ {
			continue
		}
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"plots": out})
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	name := pathParam(r, "name")
	p, found := d.Plot(name)
	if !found {
		writeDomainError(w, fmt.Errorf("%w: %s", cadastre.ErrPlotNotFound, name))
		return
	}
	out := map[string]any{
		"plot":    p,
		"label":   p.Label(),
		"outline": p.Outline(),
		"color":   cadastre.TypeColor(p.Type).Hex(),
		"locals":  d.LocalsOf(name),
	}
	if g, ok := d.MergedGroupOf(name); ok {
		out["merged"] = g
	}
	if donor, ok := cadastre.DonorOf(p); ok {
		out["donor"] = donor
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePlotLocals(w http.ResponseWriter, r *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	name := pathParam(r, "name")
	if _, found := d.Plot(name); !found {
		writeDomainError(w, fmt.Errorf("%w: %s", cadastre.ErrPlotNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locals": d.LocalsOf(name)})
}

func (s *Server) handlePlotHistory(w http.ResponseWriter, r *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	name := pathParam(r, "name")
	p, found := d.Plot(name)
	if !found {
		writeDomainError(w, fmt.Errorf("%w: %s", cadastre.ErrPlotNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owner": p.Owner, "status": p.Status, "history": p.History})
}

func (s *Server) handleOwner(w http.ResponseWriter, r *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	name := pathParam(r, "name")
	o, found := d.Owner(name)
	if !found {
		writeDomainError(w, fmt.Errorf("%w: %s", cadastre.ErrOwnerNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owner": o, "plots": d.PlotsOwnedBy(name)})
}

func (s *Server) handleOwnerPlots(w http.ResponseWriter, r *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	name := pathParam(r, "name")
	plots := d.PlotsOwnedBy(name)
	if _, found := d.Owner(name); !found && len(plots) == 0 {
		writeDomainError(w, fmt.Errorf("%w: %s", cadastre.ErrOwnerNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plots": plots})
}

func (s *Server) handleDistricts(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	type district struct {
		Name     string                     `json:"name"`
		Plots    int                        `json:"plot_count"`
		Clusters []cadastre.DistrictCluster `json:"clusters"`
	}
	out := []district{}
	for _, name := range d.Districts() {
		out = append(out, district{Name: name, Plots: len(d.PlotsInDistrict(name)), Clusters: d.ClustersOf(name)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"districts": out})
}

func (s *Server) handleDistrictPlots(w http.ResponseWriter, r *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	name := pathParam(r, "name")
	plots := d.PlotsInDistrict(name)
	if len(plots) == 0 {
		writeDomainError(w, fmt.Errorf("%w: %s", cadastre.ErrDistrictNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plots": plots, "clusters": d.ClustersOf(name)})
}

func (s *Server) handleStreets(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"streets": d.NamedStreets()})
}

func (s *Server) handleStreetPlots(w http.ResponseWriter, r *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	name := pathParam(r, "name")
	plots := d.PlotsOnStreet(name)
	if _, found := d.NamedStreet(name); !found && len(plots) == 0 {
		writeDomainError(w, fmt.Errorf("%w: %s", cadastre.ErrStreetNotFound, name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plots": plots})
}

func (s *Server) handleMerged(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"merged": d.MergedGroups})
}

func (s *Server) handleSettings(w http.ResponseWriter, _ *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": d.Settings})
}

func (s *Server) handleLotteryHistory(w http.ResponseWriter, r *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	draws, err := s.atlas.Draws(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"history":       d.LotteryHistory,
		"donor_credits": d.DonorCredits(),
		"draws":         draws,
	})
}

func (s *Server) handleLotteryEligible(w http.ResponseWriter, r *http.Request) {
	d, ok := s.data(w)
	if !ok {
		return
	}
	candidates, err := s.atlas.LotteryEligible(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":    d.Setting(s.atlas.LotterySetting()),
		"candidates": candidates,
	})
}

func (s *Server) handleLotteryDraw(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	draw, err := s.atlas.DrawLottery(r.Context(), sess, idempotencyKey(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, draw)
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cadastre.ErrPlotNotFound), errors.Is(err, cadastre.ErrOwnerNotFound),
		errors.Is(err, cadastre.ErrDistrictNotFound), errors.Is(err, cadastre.ErrStreetNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cadastre.ErrLotteryDisabled), errors.Is(err, cadastre.ErrNoEligiblePlots):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrDuplicateDraw), errors.Is(err, store.ErrPlotAwarded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrSessionExpired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, atlas.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}

func idempotencyKey(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}

func bearerToken(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
