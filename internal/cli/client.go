package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cadastre/internal/atlas"
	"cadastre/internal/auth"
	"cadastre/internal/cadastre"
	"cadastre/internal/store"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Login(ctx context.Context, owner, pin string) (auth.Session, error) {
	var out auth.Session
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/auth/login", "", map[string]any{
		"owner": owner,
		"pin":   pin,
	}, &out, "")
	return out, err
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/v1/auth/logout", token, nil, nil, "")
}

type Me struct {
	Session auth.Session    `json:"session"`
	Owner   cadastre.Owner  `json:"owner"`
	Plots   []cadastre.Plot `json:"plots"`
}

func (c *Client) Me(ctx context.Context, token string) (Me, error) {
	var out Me
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/me", token, nil, &out, "")
	return out, err
}

// PlotFilter narrows ListPlots; blank fields match everything.
type PlotFilter struct {
	Owner    string
	District string
	Street   string
	Type     string
}

func (f PlotFilter) query() string {
	q := url.Values{}
	for k, v := range map[string]string{"owner": f.Owner, "district": f.District, "street": f.Street, "type": f.Type} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) ListPlots(ctx context.Context, f PlotFilter) ([]cadastre.Plot, error) {
	var out struct {
		Plots []cadastre.Plot `json:"plots"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/plots"+f.query(), "", nil, &out, "")
	return out.Plots, err
}

type PlotDetail struct {
	Plot    cadastre.Plot         `json:"plot"`
	Label   string                `json:"label"`
	Outline string                `json:"outline"`
	Color   string                `json:"color"`
	Locals  []cadastre.Local      `json:"locals"`
	Merged  *cadastre.MergedGroup `json:"merged,omitempty"`
	Donor   string                `json:"donor,omitempty"`
}

func (c *Client) Plot(ctx context.Context, name string) (PlotDetail, error) {
	var out PlotDetail
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/plots/"+url.PathEscape(name), "", nil, &out, "")
	return out, err
}

type OwnerDetail struct {
	Owner cadastre.Owner  `json:"owner"`
	Plots []cadastre.Plot `json:"plots"`
}

func (c *Client) Owner(ctx context.Context, name string) (OwnerDetail, error) {
	var out OwnerDetail
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/owners/"+url.PathEscape(name), "", nil, &out, "")
	return out, err
}

type District struct {
	Name     string                     `json:"name"`
	Plots    int                        `json:"plot_count"`
	Clusters []cadastre.DistrictCluster `json:"clusters"`
}

func (c *Client) Districts(ctx context.Context) ([]District, error) {
	var out struct {
		Districts []District `json:"districts"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/districts", "", nil, &out, "")
	return out.Districts, err
}

func (c *Client) DistrictPlots(ctx context.Context, name string) ([]cadastre.Plot, error) {
	var out struct {
		Plots []cadastre.Plot `json:"plots"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/districts/"+url.PathEscape(name)+"/plots", "", nil, &out, "")
	return out.Plots, err
}

func (c *Client) Streets(ctx context.Context) ([]cadastre.Street, error) {
	var out struct {
		Streets []cadastre.Street `json:"streets"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/streets", "", nil, &out, "")
	return out.Streets, err
}

func (c *Client) StreetPlots(ctx context.Context, name string) ([]cadastre.Plot, error) {
	var out struct {
		Plots []cadastre.Plot `json:"plots"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/streets/"+url.PathEscape(name)+"/plots", "", nil, &out, "")
	return out.Plots, err
}

func (c *Client) Merged(ctx context.Context) ([]cadastre.MergedGroup, error) {
	var out struct {
		Merged []cadastre.MergedGroup `json:"merged"`
	}
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/merged", "", nil, &out, "")
	return out.Merged, err
}

type LotteryEligible struct {
	Enabled    bool                        `json:"enabled"`
	Candidates []cadastre.LotteryCandidate `json:"candidates"`
}

func (c *Client) LotteryEligible(ctx context.Context) (LotteryEligible, error) {
	var out LotteryEligible
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/lottery/eligible", "", nil, &out, "")
	return out, err
}

type LotteryHistory struct {
	History      []cadastre.LotteryEntry `json:"history"`
	DonorCredits map[string]int          `json:"donor_credits"`
	Draws        []store.Draw            `json:"draws"`
}

func (c *Client) LotteryHistory(ctx context.Context, limit int) (LotteryHistory, error) {
	var out LotteryHistory
	path := "/v1/lottery/history"
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	err := c.jsonRequest(ctx, http.MethodGet, path, "", nil, &out, "")
	return out, err
}

func (c *Client) DrawLottery(ctx context.Context, token, idem string) (store.Draw, error) {
	var out store.Draw
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/lottery/draw", token, nil, &out, idem)
	return out, err
}

// Snapshot downloads the whole derived load; the caller caches it for
// offline map viewing.
func (c *Client) Snapshot(ctx context.Context) (atlas.Snapshot, error) {
	var out atlas.Snapshot
	if err := c.jsonRequest(ctx, http.MethodGet, "/v1/snapshot", "", nil, &out, ""); err != nil {
		return atlas.Snapshot{}, err
	}
	if out.Data == nil {
		return atlas.Snapshot{}, fmt.Errorf("snapshot %s carries no data", out.ID)
	}
	out.Data.Reindex()
	return out, nil
}

func (c *Client) jsonRequest(ctx context.Context, method, path, accessToken string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := strings.TrimSpace(string(raw))
		var payload struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
			msg = payload.Error
		}
		return &APIError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
