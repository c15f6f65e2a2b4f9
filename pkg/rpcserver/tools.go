// Package rpcserver exposes the routing core as MCP tools over stdio or
// HTTP+SSE, repurposing the tool-server framework this module's teacher
// used for its OpenStreetMap tool surface.
package rpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/ridecore/pkg/cache"
	"github.com/NERVsystems/ridecore/pkg/core"
	"github.com/NERVsystems/ridecore/pkg/geo"
	"github.com/NERVsystems/ridecore/pkg/graph"
	"github.com/NERVsystems/ridecore/pkg/graphcache"
	"github.com/NERVsystems/ridecore/pkg/itinerary"
	"github.com/NERVsystems/ridecore/pkg/monitoring"
	"github.com/NERVsystems/ridecore/pkg/osmdata"
	"github.com/NERVsystems/ridecore/pkg/routegen"
	"github.com/NERVsystems/ridecore/pkg/routeformat"
	"github.com/NERVsystems/ridecore/pkg/rules"
	"github.com/NERVsystems/ridecore/pkg/tracing"
)

const ruleFileCacheTTL = 5 * time.Minute

const (
	ServerName    = "ridecore-server"
	ServerVersion = "0.1.0"
)

// Service holds the shared, request-independent state every tool handler
// needs: the loaded graph and logger. It is built once at startup and
// never mutated afterwards.
type Service struct {
	Graph  *graph.Graph
	Logger *slog.Logger

	ruleFiles *cache.TTLCache
}

// NewMCPServer builds an MCP server exposing generate_route and prep_cache
// against svc.
func NewMCPServer(svc *Service) *mcpserver.MCPServer {
	if svc.ruleFiles == nil {
		svc.ruleFiles = cache.NewTTLCache(ruleFileCacheTTL, time.Minute, 64)
	}

	srv := mcpserver.NewMCPServer(
		ServerName,
		ServerVersion,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)

	srv.AddTool(generateRouteTool(), svc.handleGenerateRoute)
	srv.AddTool(prepCacheTool(), svc.handlePrepCache)

	return srv
}

func generateRouteTool() mcp.Tool {
	return mcp.NewTool("generate_route",
		mcp.WithDescription("Generate one or more motorcycle route itineraries between a start and finish point, or a round-trip loop"),
		mcp.WithObject("start",
			mcp.Description("Start point as {lat, lon}; required for start-finish requests"),
		),
		mcp.WithObject("finish",
			mcp.Description("Finish point as {lat, lon}; required for start-finish requests"),
		),
		mcp.WithObject("center",
			mcp.Description("Loop center as {lat, lon}; required for round-trip requests"),
		),
		mcp.WithNumber("bearing_deg",
			mcp.Description("Round-trip departure bearing in degrees, 0-359"),
		),
		mcp.WithNumber("distance_m",
			mcp.Description("Round-trip target loop distance in meters"),
		),
		mcp.WithNumber("max_itineraries",
			mcp.Description("Maximum number of itineraries to attempt"),
			mcp.DefaultNumber(itinerary.DefaultMaxItineraries),
		),
		mcp.WithString("rule_file",
			mcp.Description("Path to a YAML rule-file; omitted means the empty rule-file"),
		),
		mcp.WithString("format",
			mcp.Description("Output format: gpx, json, or geojson"),
			mcp.DefaultString("json"),
		),
	)
}

type generateRouteInput struct {
	Start  *geo.Location `json:"start,omitempty"`
	Finish *geo.Location `json:"finish,omitempty"`
	Center *geo.Location `json:"center,omitempty"`

	BearingDeg float64 `json:"bearing_deg,omitempty"`
	DistanceM  float64 `json:"distance_m,omitempty"`

	MaxItineraries int    `json:"max_itineraries,omitempty"`
	RuleFile       string `json:"rule_file,omitempty"`
	Format         string `json:"format,omitempty"`
}

func (s *Service) handleGenerateRoute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := s.Logger.With("tool", "generate_route")
	start := time.Now()

	ctx, span := tracing.StartSpan(ctx, "generate_route")
	defer span.End()

	success := false
	defer func() {
		monitoring.RecordMCPRequest("generate_route", time.Since(start), success)
	}()

	var input generateRouteInput
	raw, err := json.Marshal(req.Params.Arguments)
	if err != nil {
		return core.NewError(core.ErrInvalidInput, "invalid input format").ToMCPResult(), nil
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return core.NewError(core.ErrInvalidInput, "invalid input format").ToMCPResult(), nil
	}

	for _, pt := range []*geo.Location{input.Start, input.Finish, input.Center} {
		if pt == nil {
			continue
		}
		if err := core.ValidateCoords(pt.Latitude, pt.Longitude); err != nil {
			return core.NewError(core.ErrInvalidParameter, err.Error()).ToMCPResult(), nil
		}
	}

	var its []itinerary.Itinerary
	switch {
	case input.Start != nil && input.Finish != nil:
		its, err = itinerary.StartFinish(*input.Start, *input.Finish, input.MaxItineraries)
	case input.Center != nil && input.DistanceM > 0:
		its, err = itinerary.RoundTrip(*input.Center, input.BearingDeg, input.DistanceM, input.MaxItineraries)
	default:
		return core.NewError(core.ErrMissingParameter, "either start+finish or center+distance_m is required").ToMCPResult(), nil
	}
	if err != nil {
		tracing.RecordError(ctx, err)
		return core.NewError(core.ErrInvalidParameter, err.Error()).ToMCPResult(), nil
	}

	ruleFile, err := s.loadRuleFile(input.RuleFile)
	if err != nil {
		return core.NewError(core.ErrInvalidParameter, fmt.Sprintf("invalid rule-file: %s", err)).
			WithGuidance("check the rule-file's YAML syntax and action values").ToMCPResult(), nil
	}
	engine := rules.New(ruleFile)

	result, err := routegen.Generate(ctx, s.Graph, engine, its, routegen.Options{Dedup: true, Logger: logger})
	if err != nil {
		tracing.RecordError(ctx, err)
		monitoring.RecordError("rpcserver", "generate_failed")
		return core.NewError(core.ErrInternalError, err.Error()).ToMCPResult(), nil
	}

	reasons := make([]string, 0, len(result.Abandoned))
	for _, a := range result.Abandoned {
		reasons = append(reasons, a.Reason.String())
	}
	monitoring.RecordGeneration(len(its), len(result.Routes), time.Since(start), reasons)
	tracing.SetAttributes(ctx, tracing.GenerationAttributes(len(its), len(result.Routes), len(result.Abandoned))...)

	if len(result.Routes) == 0 {
		monitoring.RecordError("rpcserver", "no_results")
		return core.NewError(core.ErrNoResults, "every itinerary was abandoned").
			WithGuidance("relax the rule-file or widen the waypoint search radius").ToMCPResult(), nil
	}

	body, err := encodeRoutes(s.Graph, result.Routes, input.Format)
	if err != nil {
		tracing.RecordError(ctx, err)
		return core.NewError(core.ErrInternalError, err.Error()).ToMCPResult(), nil
	}
	success = true
	return mcp.NewToolResultText(body), nil
}

// loadRuleFile returns the parsed rule-file at path, serving it from
// s.ruleFiles when the path was parsed within the last ruleFileCacheTTL.
func (s *Service) loadRuleFile(path string) (*rules.File, error) {
	if path == "" {
		return rules.Empty(), nil
	}
	if cached, ok := s.ruleFiles.Get(path); ok {
		monitoring.RecordCacheHit(tracing.CacheTypeRuleFile)
		return cached.(*rules.File), nil
	}
	monitoring.RecordCacheMiss(tracing.CacheTypeRuleFile)

	f, err := rules.Load(path)
	if err != nil {
		return nil, err
	}
	s.ruleFiles.Set(path, f)
	return f, nil
}

func encodeRoutes(g *graph.Graph, routes []routegen.Route, format string) (string, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "", "json":
		err = routeformat.WriteJSON(&buf, g, routes)
	case "gpx":
		err = routeformat.WriteGPX(&buf, g, routes)
	case "geojson":
		err = routeformat.WriteGeoJSON(&buf, g, routes)
	default:
		return "", fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func prepCacheTool() mcp.Tool {
	return mcp.NewTool("prep_cache",
		mcp.WithDescription("Build the road graph from an Overpass JSON source and persist it to a cache file"),
		mcp.WithString("input",
			mcp.Required(),
			mcp.Description("Path to an Overpass JSON export"),
		),
		mcp.WithString("cache_path",
			mcp.Required(),
			mcp.Description("Destination path for the built graph cache"),
		),
	)
}

type prepCacheInput struct {
	Input     string `json:"input"`
	CachePath string `json:"cache_path"`
}

func (s *Service) handlePrepCache(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input prepCacheInput
	raw, err := json.Marshal(req.Params.Arguments)
	if err != nil {
		return core.NewError(core.ErrInvalidInput, "invalid input format").ToMCPResult(), nil
	}
	if err := json.Unmarshal(raw, &input); err != nil {
		return core.NewError(core.ErrInvalidInput, "invalid input format").ToMCPResult(), nil
	}
	if input.Input == "" || input.CachePath == "" {
		return core.NewError(core.ErrMissingParameter, "input and cache_path are required").ToMCPResult(), nil
	}

	f, err := os.Open(input.Input)
	if err != nil {
		return core.NewError(core.ErrInvalidParameter, err.Error()).ToMCPResult(), nil
	}
	defer f.Close()

	ents, err := osmdata.FromOverpassJSON(f).Drain()
	if err != nil {
		return core.NewError(core.ErrParseError, err.Error()).ToMCPResult(), nil
	}

	g, err := graph.Build(ents, graph.BuildOptions{Logger: s.Logger})
	if err != nil {
		monitoring.RecordError("rpcserver", "graph_build_failed")
		return core.NewError(core.ErrInternalError, err.Error()).ToMCPResult(), nil
	}
	tracing.SetAttributes(ctx, tracing.GraphAttributes(len(g.Points), len(g.Segments))...)

	if err := graphcache.Save(input.CachePath, g, 1000); err != nil {
		monitoring.RecordError("rpcserver", "cache_save_failed")
		return core.NewError(core.ErrInternalError, err.Error()).ToMCPResult(), nil
	}
	monitoring.UpdateCacheSize(tracing.CacheTypeGraph, len(g.Points))

	return mcp.NewToolResultText(fmt.Sprintf("cached %d points, %d segments to %s", len(g.Points), len(g.Segments), input.CachePath)), nil
}
