// Command ridecore generates motorcycle route itineraries from an OSM road
// graph. It dispatches on os.Args[1] to one of several subcommands, each
// with its own flag.FlagSet, in the flat-flag style this module's CLI
// scaffolding is built on.
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/NERVsystems/ridecore/pkg/coords"
	"github.com/NERVsystems/ridecore/pkg/debugstream"
	"github.com/NERVsystems/ridecore/pkg/geo"
	"github.com/NERVsystems/ridecore/pkg/graph"
	"github.com/NERVsystems/ridecore/pkg/graphcache"
	"github.com/NERVsystems/ridecore/pkg/itinerary"
	"github.com/NERVsystems/ridecore/pkg/monitoring"
	"github.com/NERVsystems/ridecore/pkg/nav"
	"github.com/NERVsystems/ridecore/pkg/osmdata"
	"github.com/NERVsystems/ridecore/pkg/rcerr"
	"github.com/NERVsystems/ridecore/pkg/registration"
	"github.com/NERVsystems/ridecore/pkg/rpcclient"
	"github.com/NERVsystems/ridecore/pkg/rpcserver"
	"github.com/NERVsystems/ridecore/pkg/routegen"
	"github.com/NERVsystems/ridecore/pkg/routeformat"
	"github.com/NERVsystems/ridecore/pkg/rules"
	"github.com/NERVsystems/ridecore/pkg/server"
	"github.com/NERVsystems/ridecore/pkg/version"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "generate-route":
		err = runGenerateRoute(os.Args[2:], logger)
	case "prep-cache":
		err = runPrepCache(os.Args[2:], logger)
	case "start-server":
		err = runStartServer(os.Args[2:], logger)
	case "start-client":
		err = runStartClient(os.Args[2:])
	case "debug-viewer":
		err = runDebugViewer(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "ridecore:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ridecore <generate-route|prep-cache|start-server|start-client|debug-viewer> [flags]")
}

// resolveLocation returns the location named by a coordinate string flag
// (any format coords.Parse understands: MGRS, UTM, DMS, or decimal degrees)
// when raw is non-empty, otherwise the lat/lon float pair.
func resolveLocation(raw string, lat, lon float64) (geo.Location, error) {
	if raw == "" {
		return geo.Location{Latitude: lat, Longitude: lon}, nil
	}
	result, err := coords.Parse(raw)
	if err != nil {
		return geo.Location{}, fmt.Errorf("parsing coordinate %q: %w", raw, err)
	}
	return result.Location, nil
}

func loadGraph(input, cachePath string, logger *slog.Logger) (*graph.Graph, error) {
	if cachePath != "" {
		if g, err := graphcache.Load(cachePath); err == nil {
			return g, nil
		} else if err != graphcache.ErrVersionMismatch {
			logger.Warn("cache unreadable, rebuilding from source", "path", cachePath, "error", err)
		}
	}

	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	defer f.Close()

	ents, err := osmdata.FromOverpassJSON(f).Drain()
	if err != nil {
		return nil, rcerr.Wrap(rcerr.InputMalformed, "parsing input", err).
			WithGuidance("check that --input is a valid Overpass JSON export")
	}

	g, err := graph.Build(ents, graph.BuildOptions{Logger: logger})
	if err != nil {
		return nil, rcerr.Wrap(rcerr.InputMalformed, "building graph", err).
			WithGuidance("the input's ways reference node ids that are missing or malformed")
	}

	if cachePath != "" {
		if err := graphcache.Save(cachePath, g, 1000); err != nil {
			logger.Warn("failed to write cache", "path", cachePath, "error", err)
		}
	}
	return g, nil
}

func runGenerateRoute(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("generate-route", flag.ExitOnError)
	input := fs.String("input", "", "path to an Overpass JSON export")
	output := fs.String("output", "", "output file path (default stdout)")
	ruleFilePath := fs.String("rule-file", "", "path to a YAML rule-file")
	cachePath := fs.String("cache-dir", "", "graph cache file path")
	debugDir := fs.String("debug-dir", "", "directory to write a debug-stream trace to")
	format := fs.String("format", "json", "output format: gpx, json, or geojson")
	maxItineraries := fs.Int("max-itineraries", itinerary.DefaultMaxItineraries, "maximum itineraries to attempt")

	startLat := fs.Float64("start-lat", 0, "start-finish: start latitude")
	startLon := fs.Float64("start-lon", 0, "start-finish: start longitude")
	start := fs.String("start", "", "start-finish: start point as MGRS/UTM/DMS/decimal coordinate string, overrides -start-lat/-start-lon")
	finishLat := fs.Float64("finish-lat", 0, "start-finish: finish latitude")
	finishLon := fs.Float64("finish-lon", 0, "start-finish: finish longitude")
	finish := fs.String("finish", "", "start-finish: finish point as MGRS/UTM/DMS/decimal coordinate string, overrides -finish-lat/-finish-lon")

	centerLat := fs.Float64("center-lat", 0, "round-trip: center latitude")
	centerLon := fs.Float64("center-lon", 0, "round-trip: center longitude")
	center := fs.String("center", "", "round-trip: center point as MGRS/UTM/DMS/decimal coordinate string, overrides -center-lat/-center-lon")
	bearingDeg := fs.Float64("bearing-deg", 0, "round-trip: departure bearing in degrees")
	distanceM := fs.Float64("distance-m", 0, "round-trip: target loop distance in meters")

	if len(args) < 1 {
		return fmt.Errorf("generate-route requires a trip subcommand: start-finish or round-trip")
	}
	tripKind := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("-input is required")
	}

	g, err := loadGraph(*input, *cachePath, logger)
	if err != nil {
		return err
	}

	var its []itinerary.Itinerary
	switch tripKind {
	case "start-finish":
		startLoc, err := resolveLocation(*start, *startLat, *startLon)
		if err != nil {
			return err
		}
		finishLoc, err := resolveLocation(*finish, *finishLat, *finishLon)
		if err != nil {
			return err
		}
		its, err = itinerary.StartFinish(startLoc, finishLoc, *maxItineraries)
		if err != nil {
			return fmt.Errorf("planning itineraries: %w", err)
		}
	case "round-trip":
		centerLoc, err := resolveLocation(*center, *centerLat, *centerLon)
		if err != nil {
			return err
		}
		its, err = itinerary.RoundTrip(centerLoc, *bearingDeg, *distanceM, *maxItineraries)
		if err != nil {
			return fmt.Errorf("planning itineraries: %w", err)
		}
	default:
		return fmt.Errorf("unknown trip kind %q: want start-finish or round-trip", tripKind)
	}

	ruleFile := rules.Empty()
	if *ruleFilePath != "" {
		ruleFile, err = rules.Load(*ruleFilePath)
		if err != nil {
			return rcerr.Wrap(rcerr.RuleFileInvalid, "loading rule-file", err).
				WithGuidance("check the rule-file's YAML syntax and action values")
		}
	}
	engine := rules.New(ruleFile)

	var dbg *debugstream.Writer
	if *debugDir != "" {
		dbg, err = debugstream.Open(*debugDir)
		if err != nil {
			return fmt.Errorf("opening debug stream: %w", err)
		}
		defer dbg.Close()
		for _, it := range its {
			_ = dbg.Write(debugstream.KindItineraries, debugstream.ItineraryRecord{ItineraryID: it.ID})
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := routegen.Options{Dedup: true, Logger: logger}
	if dbg != nil {
		var mu sync.Mutex
		stepNumbers := make(map[int]int)
		opts.OnFork = func(itineraryID int, point graph.PointID, incoming graph.SegmentID, cands []nav.ForkChoice, chosen graph.SegmentID) {
			mu.Lock()
			stepNumbers[itineraryID]++
			step := stepNumbers[itineraryID]
			mu.Unlock()

			for _, cand := range cands {
				_ = dbg.Write(debugstream.KindForkChoiceWeights, debugstream.ForkChoiceWeightRecord{
					ItineraryID: itineraryID,
					StepNumber:  step,
					Segment:     int32(cand.Segment),
					Avoid:       cand.Verdict.Avoid,
					Weight:      cand.Verdict.Weight,
				})
				_ = dbg.Write(debugstream.KindForkChoices, debugstream.ForkChoiceRecord{
					ItineraryID: itineraryID,
					StepNumber:  step,
					Segment:     int32(cand.Segment),
					Chosen:      cand.Segment == chosen,
				})
			}
			_ = dbg.Write(debugstream.KindSteps, debugstream.StepRecord{
				ItineraryID: itineraryID,
				StepNumber:  step,
				Point:       int32(point),
				Incoming:    int32(incoming),
			})
		}
	}

	result, err := routegen.Generate(ctx, g, engine, its, opts)
	if err != nil {
		return fmt.Errorf("generating routes: %w", err)
	}
	for _, ab := range result.Abandoned {
		logger.Warn("itinerary abandoned", "itinerary_id", ab.ItineraryID, "reason", ab.Reason.String())
	}
	if len(result.Routes) == 0 {
		reasons := make([]string, len(result.Abandoned))
		allUnreachable := true
		for i, ab := range result.Abandoned {
			reasons[i] = fmt.Sprintf("itinerary %d: %s", ab.ItineraryID, ab.Reason.String())
			if ab.Reason != nav.WaypointUnreachable {
				allUnreachable = false
			}
		}
		msg := strings.Join(reasons, "; ")
		if allUnreachable && len(result.Abandoned) > 0 {
			return rcerr.New(rcerr.SnapFailed, msg).
				WithGuidance("check that the waypoints lie near mapped roads within the graph's snap radius")
		}
		return rcerr.New(rcerr.AllItinerariesAbandoned, msg).
			WithGuidance("relax the rule-file or widen the waypoint search radius")
	}

	var buf bytes.Buffer
	switch *format {
	case "gpx":
		err = routeformat.WriteGPX(&buf, g, result.Routes)
	case "geojson":
		err = routeformat.WriteGeoJSON(&buf, g, result.Routes)
	default:
		err = routeformat.WriteJSON(&buf, g, result.Routes)
	}
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	if *output == "" {
		_, err = os.Stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(*output, buf.Bytes(), 0644)
}

func runPrepCache(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("prep-cache", flag.ExitOnError)
	input := fs.String("input", "", "path to an Overpass JSON export")
	cachePath := fs.String("cache-dir", "", "destination cache file path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" || *cachePath == "" {
		return fmt.Errorf("-input and -cache-dir are required")
	}

	f, err := os.Open(*input)
	if err != nil {
		return err
	}
	defer f.Close()

	ents, err := osmdata.FromOverpassJSON(f).Drain()
	if err != nil {
		return fmt.Errorf("parsing input: %w", err)
	}
	g, err := graph.Build(ents, graph.BuildOptions{Logger: logger})
	if err != nil {
		return fmt.Errorf("building graph: %w", err)
	}
	if err := graphcache.Save(*cachePath, g, 1000); err != nil {
		return fmt.Errorf("saving cache: %w", err)
	}
	logger.Info("cache written", "points", len(g.Points), "segments", len(g.Segments), "path", *cachePath)
	return nil
}

func runStartServer(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("start-server", flag.ExitOnError)
	input := fs.String("input", "", "path to an Overpass JSON export")
	cachePath := fs.String("cache-dir", "", "graph cache file path")
	socketName := fs.String("socket-name", "ridecore", "service name for logging/discovery")
	enableHTTP := fs.Bool("enable-http", false, "also serve HTTP+SSE alongside stdio")
	httpAddr := fs.String("http-addr", "", "HTTP+SSE listen address, e.g. :7082")
	register := fs.Bool("register", false, "register this server with a nerva-monitor registry")
	registryURL := fs.String("registry-url", "", "nerva-monitor registry URL, required with -register")
	serviceURL := fs.String("service-url", "", "this server's externally reachable URL, for registration")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("-input is required")
	}

	g, err := loadGraph(*input, *cachePath, logger)
	if err != nil {
		return err
	}

	svc := &rpcserver.Service{Graph: g, Logger: logger.With("socket", *socketName)}
	srv := rpcserver.NewServer(svc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *enableHTTP {
		cfg := server.DefaultHTTPTransportConfig()
		if *httpAddr != "" {
			cfg.Addr = *httpAddr
		}
		healthChecker := monitoring.NewHealthChecker(monitoring.ServiceName, version.BuildVersion)
		defer healthChecker.Shutdown()

		httpTransport := server.NewHTTPTransport(srv.GetMCPServer(), cfg, logger)
		httpTransport.SetHealthChecker(healthChecker)
		if err := httpTransport.Start(); err != nil {
			return fmt.Errorf("start http transport: %w", err)
		}
		defer httpTransport.Shutdown(context.Background())
	}

	if *register {
		if *registryURL == "" || *serviceURL == "" {
			return fmt.Errorf("-register requires -registry-url and -service-url")
		}
		client := registration.NewClient(registration.Config{
			Enabled:     true,
			RegistryURL: *registryURL,
			ServiceName: *socketName,
			ServiceType: "mcp",
			ServiceURL:  *serviceURL,
			HealthURL:   *serviceURL + "/health",
		}, logger)
		client.Start(ctx)
		defer client.Stop()
	}

	return srv.RunWithContext(ctx)
}

func runStartClient(args []string) error {
	fs := flag.NewFlagSet("start-client", flag.ExitOnError)
	socketName := fs.String("socket-name", "ridecore", "server binary to dial over stdio")
	requestID := fs.String("request-id", "", "optional request identifier, logged by the server")
	input := fs.String("input", "", "path to an Overpass JSON export, passed through to the dialed server")
	cachePath := fs.String("cache-dir", "", "graph cache file path, passed through to the dialed server")

	startLat := fs.Float64("start-lat", 0, "start-finish: start latitude")
	startLon := fs.Float64("start-lon", 0, "start-finish: start longitude")
	start := fs.String("start", "", "start-finish: start point as MGRS/UTM/DMS/decimal coordinate string, overrides -start-lat/-start-lon")
	finishLat := fs.Float64("finish-lat", 0, "start-finish: finish latitude")
	finishLon := fs.Float64("finish-lon", 0, "start-finish: finish longitude")
	finish := fs.String("finish", "", "start-finish: finish point as MGRS/UTM/DMS/decimal coordinate string, overrides -finish-lat/-finish-lon")
	centerLat := fs.Float64("center-lat", 0, "round-trip: center latitude")
	centerLon := fs.Float64("center-lon", 0, "round-trip: center longitude")
	center := fs.String("center", "", "round-trip: center point as MGRS/UTM/DMS/decimal coordinate string, overrides -center-lat/-center-lon")
	bearingDeg := fs.Float64("bearing-deg", 0, "round-trip: departure bearing in degrees")
	distanceM := fs.Float64("distance-m", 0, "round-trip: target loop distance in meters")

	if len(args) < 1 {
		return fmt.Errorf("start-client requires a trip subcommand: start-finish or round-trip")
	}
	tripKind := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *input == "" {
		return fmt.Errorf("-input is required")
	}

	serverArgs := []string{"start-server", "-input", *input, "-socket-name", *socketName}
	if *cachePath != "" {
		serverArgs = append(serverArgs, "-cache-dir", *cachePath)
	}

	ctx := context.Background()
	selfPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolving own executable path: %w", err)
	}
	c, err := rpcclient.DialStdio(ctx, selfPath, serverArgs...)
	if err != nil {
		return err
	}
	defer c.Close()

	if *requestID != "" {
		logger := slog.Default().With("request_id", *requestID)
		logger.Debug("dialed ridecore server", "socket_name", *socketName)
	}

	req := map[string]any{}
	switch tripKind {
	case "start-finish":
		startLoc, err := resolveLocation(*start, *startLat, *startLon)
		if err != nil {
			return err
		}
		finishLoc, err := resolveLocation(*finish, *finishLat, *finishLon)
		if err != nil {
			return err
		}
		req["start"] = map[string]any{"lat": startLoc.Latitude, "lon": startLoc.Longitude}
		req["finish"] = map[string]any{"lat": finishLoc.Latitude, "lon": finishLoc.Longitude}
	case "round-trip":
		centerLoc, err := resolveLocation(*center, *centerLat, *centerLon)
		if err != nil {
			return err
		}
		req["center"] = map[string]any{"lat": centerLoc.Latitude, "lon": centerLoc.Longitude}
		req["bearing_deg"] = *bearingDeg
		req["distance_m"] = *distanceM
	default:
		return fmt.Errorf("unknown trip kind %q: want start-finish or round-trip", tripKind)
	}

	result, err := c.GenerateRoute(ctx, req)
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}

func runDebugViewer(args []string) error {
	fs := flag.NewFlagSet("debug-viewer", flag.ExitOnError)
	debugDir := fs.String("debug-dir", "", "debug-stream directory to read")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *debugDir == "" {
		return fmt.Errorf("-debug-dir is required")
	}

	var steps []debugstream.StepRecord
	if err := debugstream.ReadAll(*debugDir, debugstream.KindSteps, &steps); err != nil {
		return fmt.Errorf("reading steps: %w", err)
	}
	var results []debugstream.StepResultRecord
	if err := debugstream.ReadAll(*debugDir, debugstream.KindStepResults, &results); err != nil {
		return fmt.Errorf("reading step results: %w", err)
	}

	resultByStep := make(map[[2]int]string, len(results))
	for _, r := range results {
		resultByStep[[2]int{r.ItineraryID, r.StepNumber}] = r.Result
	}

	for _, s := range steps {
		result := resultByStep[[2]int{s.ItineraryID, s.StepNumber}]
		fmt.Printf("itinerary=%d step=%d point=%d incoming=%d result=%s\n",
			s.ItineraryID, s.StepNumber, s.Point, s.Incoming, result)
	}
	return nil
}
