package osmdata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	json "github.com/goccy/go-json"

	"github.com/NERVsystems/ridecore/pkg/core"
)

// OverpassElement mirrors one element of an Overpass API /interpreter
// JSON response.
type OverpassElement struct {
	ID   int64   `json:"id"`
	Type string  `json:"type"`
	Lat  float64 `json:"lat,omitempty"`
	Lon  float64 `json:"lon,omitempty"`

	Tags    map[string]string `json:"tags,omitempty"`
	Nodes   []int64           `json:"nodes,omitempty"`
	Members []struct {
		Type string `json:"type"`
		Ref  int64  `json:"ref"`
		Role string `json:"role"`
	} `json:"members,omitempty"`
}

// OverpassResponse is the top-level Overpass JSON document.
type OverpassResponse struct {
	Elements []OverpassElement `json:"elements"`
}

// overpassJSONSource decodes an already-fetched Overpass JSON document.
type overpassJSONSource struct {
	r io.Reader
}

// FromOverpassJSON builds an EntitySource that decodes Overpass API JSON
// read from r.
func FromOverpassJSON(r io.Reader) EntitySource {
	return &overpassJSONSource{r: r}
}

// Drain implements EntitySource.
func (s *overpassJSONSource) Drain() (*Entities, error) {
	var resp OverpassResponse
	dec := json.NewDecoder(s.r)
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("osmdata: malformed overpass json: %w", err)
	}

	out := &Entities{Nodes: make(map[int64]Node, len(resp.Elements))}
	for _, el := range resp.Elements {
		switch el.Type {
		case "node":
			out.Nodes[el.ID] = Node{ID: el.ID, Lat: el.Lat, Lon: el.Lon, Tags: el.Tags}
		case "way":
			out.Ways = append(out.Ways, Way{ID: el.ID, NodeIDs: el.Nodes, Tags: el.Tags})
		case "relation":
			rel := Relation{ID: el.ID, Tags: el.Tags}
			if el.Tags["type"] == "restriction" {
				parseRestrictionMembers(&rel, el)
			}
			out.Relations = append(out.Relations, rel)
		default:
			return nil, fmt.Errorf("osmdata: unknown element type %q for id %d", el.Type, el.ID)
		}
	}
	return out, nil
}

func parseRestrictionMembers(rel *Relation, el OverpassElement) {
	switch {
	case strings.HasPrefix(el.Tags["restriction"], "no_"):
		rel.Kind = RestrictionNo
	case strings.HasPrefix(el.Tags["restriction"], "only_"):
		rel.Kind = RestrictionOnly
	default:
		return
	}
	for _, m := range el.Members {
		switch m.Role {
		case "from":
			rel.FromWay = m.Ref
		case "to":
			rel.ToWay = m.Ref
		case "via":
			if m.Type == "node" {
				rel.ViaNode = m.Ref
			}
		}
	}
	rel.HasValue = rel.FromWay != 0 && rel.ToWay != 0 && rel.ViaNode != 0
}

// Fetcher queries a remote Overpass API endpoint under a fixed rate limit.
type Fetcher struct {
	BaseURL   string
	UserAgent string
	Client    *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
}

// NewFetcher returns a Fetcher limited to rps requests per second with the
// given burst. A conservative default is 1 rps, burst 1, to stay well
// under public Overpass instances' rate limits.
func NewFetcher(baseURL string, rps float64, burst int) *Fetcher {
	return &Fetcher{
		BaseURL:   baseURL,
		UserAgent: "ridecore/0.1.0",
		Client:    &http.Client{Timeout: 60 * time.Second},
		limiter:   rate.NewLimiter(rate.Limit(rps), burst),
		logger:    slog.Default().With("component", "osmdata.fetcher"),
	}
}

// Fetch executes query against the Overpass endpoint and returns the
// entities decoded from the response body; Fetch drains the decoder and
// closes the body itself.
func (f *Fetcher) Fetch(ctx context.Context, query string) (*Entities, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("osmdata: rate limiter: %w", err)
	}

	factory := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, f.BaseURL, strings.NewReader("data="+query))
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", f.UserAgent)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	}

	resp, err := core.WithRetryFactory(ctx, factory, f.Client, core.DefaultRetryOptions)
	if err != nil {
		return nil, fmt.Errorf("osmdata: overpass request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("osmdata: overpass returned %d: %s", resp.StatusCode, string(body))
	}

	f.logger.Debug("overpass query executed", "status", resp.StatusCode)
	return FromOverpassJSON(resp.Body).Drain()
}
