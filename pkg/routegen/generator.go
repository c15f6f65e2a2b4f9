// Package routegen implements the Generator: it takes the itineraries
// produced by package itinerary, drives one Navigator per itinerary on a
// bounded worker pool, and collects and deduplicates the resulting routes,
// ordered by itinerary id.
package routegen

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/NERVsystems/ridecore/pkg/geo"
	"github.com/NERVsystems/ridecore/pkg/graph"
	"github.com/NERVsystems/ridecore/pkg/itinerary"
	"github.com/NERVsystems/ridecore/pkg/monitoring"
	"github.com/NERVsystems/ridecore/pkg/nav"
	"github.com/NERVsystems/ridecore/pkg/rules"
)

// Route is one finished itinerary's result: the segment path plus
// aggregated statistics.
type Route struct {
	ItineraryID    int
	Segments       []graph.SegmentID
	TotalLengthM   float64
	LengthByHighway map[string]float64
	LengthBySurface map[string]float64
	TwistinessScore float64
}

// AbandonedItinerary records why one itinerary never produced a route.
type AbandonedItinerary struct {
	ItineraryID int
	Reason      nav.AbandonReason
}

// Result is everything the Generator produces for one request.
type Result struct {
	Routes     []Route
	Abandoned  []AbandonedItinerary
}

// Options configures a Generator run.
type Options struct {
	// MaxWorkers bounds concurrent Navigators via errgroup's SetLimit; 0
	// means runtime.GOMAXPROCS(0).
	MaxWorkers int
	Dedup      bool
	// OnFork, if set, is installed on every Navigator, letting a debug
	// stream observe fork choices without the Generator depending on it.
	OnFork func(itineraryID int, point graph.PointID, incoming graph.SegmentID, cands []nav.ForkChoice, chosen graph.SegmentID)
	Logger *slog.Logger
}

// Generate runs each itinerary of the given waypoint-sequence list (already
// produced by package itinerary) through its own Navigator.
func Generate(ctx context.Context, g *graph.Graph, engine *rules.Engine, its []itinerary.Itinerary, opts Options) (*Result, error) {
	if len(its) == 0 {
		return nil, fmt.Errorf("routegen: no itineraries to generate")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	type outcome struct {
		route     *Route
		abandoned *AbandonedItinerary
	}
	outcomes := make([]outcome, len(its))

	grp, gctx := errgroup.WithContext(ctx)
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	grp.SetLimit(workers)

	for i, it := range its {
		i, it := i, it
		grp.Go(func() error {
			start, err := g.NearestJunction(it.Waypoints[0].Location.Latitude, it.Waypoints[0].Location.Longitude, 0)
			if err != nil {
				outcomes[i] = outcome{abandoned: &AbandonedItinerary{ItineraryID: it.ID, Reason: nav.WaypointUnreachable}}
				return nil
			}

			locs := make([]geo.Location, len(it.Waypoints)-1)
			radius := it.Waypoints[0].RadiusM
			for j := 1; j < len(it.Waypoints); j++ {
				locs[j-1] = it.Waypoints[j].Location
				radius = it.Waypoints[j].RadiusM
			}

			navigator := nav.New(g, rules.New(engine.File()), start, locs, radius)
			if opts.OnFork != nil {
				navigator.OnFork(func(point graph.PointID, incoming graph.SegmentID, cands []nav.ForkChoice, chosen graph.SegmentID) {
					opts.OnFork(it.ID, point, incoming, cands, chosen)
				})
			}

			result := navigator.Run(func(nav.MoveResult) {
				monitoring.RecordNavigatorStep()
				select {
				case <-gctx.Done():
					navigator.Cancel()
				default:
				}
			})

			if result == nav.AbandonedResult {
				logger.Debug("itinerary abandoned", "itinerary", it.ID, "reason", navigator.AbandonReason())
				outcomes[i] = outcome{abandoned: &AbandonedItinerary{ItineraryID: it.ID, Reason: navigator.AbandonReason()}}
				return nil
			}

			segs := navigator.Segments()
			route := buildRoute(it.ID, g, segs)
			outcomes[i] = outcome{route: &route}
			return nil
		})
	}

	if err := grp.Wait(); err != nil {
		return nil, err
	}

	res := &Result{}
	seen := make(map[string]struct{})
	for _, o := range outcomes {
		switch {
		case o.route != nil:
			key := routeKey(o.route.Segments)
			if opts.Dedup {
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}
			}
			monitoring.RecordRouteTwistiness(o.route.TwistinessScore)
			res.Routes = append(res.Routes, *o.route)
		case o.abandoned != nil:
			res.Abandoned = append(res.Abandoned, *o.abandoned)
		}
	}

	sort.Slice(res.Routes, func(a, b int) bool { return res.Routes[a].ItineraryID < res.Routes[b].ItineraryID })
	return res, nil
}

func routeKey(segs []graph.SegmentID) string {
	b := make([]byte, 0, len(segs)*4)
	for _, s := range segs {
		b = append(b, byte(s), byte(s>>8), byte(s>>16), byte(s>>24))
	}
	return string(b)
}

func buildRoute(itineraryID int, g *graph.Graph, segs []graph.SegmentID) Route {
	r := Route{
		ItineraryID:     itineraryID,
		Segments:        segs,
		LengthByHighway: make(map[string]float64),
		LengthBySurface: make(map[string]float64),
	}
	var prevBearing float64
	var havePrevBearing bool
	for _, segID := range segs {
		seg := g.Segments[segID]
		way := g.Ways[seg.Way]
		r.TotalLengthM += seg.LengthM
		r.LengthByHighway[way.Highway] += seg.LengthM
		r.LengthBySurface[way.Surface] += seg.LengthM

		geom := g.Geometry(segID)
		if len(geom) >= 2 {
			bearing := geo.Bearing(geom[0], geom[1])
			if havePrevBearing {
				turn := geo.TurnAngle(prevBearing, bearing)
				if turn < 0 {
					turn = -turn
				}
				r.TwistinessScore += turn
			}
			if len(geom) >= 2 {
				prevBearing = geo.Bearing(geom[len(geom)-2], geom[len(geom)-1])
				havePrevBearing = true
			}
		}
	}
	return r
}
