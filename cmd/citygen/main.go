package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/woozymasta/citygen/internal/config"
	"github.com/woozymasta/citygen/internal/diag"
	"github.com/woozymasta/citygen/internal/elevation"
	"github.com/woozymasta/citygen/internal/fetch"
	"github.com/woozymasta/citygen/internal/geo"
	"github.com/woozymasta/citygen/internal/logger"
	"github.com/woozymasta/citygen/internal/osm"
	"github.com/woozymasta/citygen/internal/synth"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string `short:"c" long:"config" env:"CONFIG_FILE" description:"Path to configuration file"`

	MinLat float64 `long:"min-lat" env:"MIN_LAT" description:"Minimum latitude"  default:"48.8566"`
	MaxLat float64 `long:"max-lat" env:"MAX_LAT" description:"Maximum latitude"  default:"48.8666"`
	MinLon float64 `long:"min-lon" env:"MIN_LON" description:"Minimum longitude" default:"2.3522"`
	MaxLon float64 `long:"max-lon" env:"MAX_LON" description:"Maximum longitude" default:"2.3622"`

	Resolution  float64 `short:"r" long:"resolution"  env:"RESOLUTION"  description:"Target terrain resolution in meters" default:"0.5"`
	Concurrency int     `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Elevation download workers"          default:"5"`
	Rate        float64 `long:"rate"    env:"RATE"    description:"Aggregate request rate limit per second" default:"10"`
	Retries     int     `long:"retries" env:"RETRIES" description:"Attempts per HTTP request"               default:"3"`
	Timeout     int     `long:"timeout" env:"TIMEOUT" description:"Initial request timeout in seconds"      default:"30"`
	Backoff     float64 `long:"backoff" env:"BACKOFF" description:"Retry backoff factor"                    default:"2"`

	Output string `short:"o" long:"output" env:"OUTPUT" description:"Scene output path" default:"export/scene.json"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	box := geo.BoundingBox{
		MinLat: opts.MinLat,
		MaxLat: opts.MaxLat,
		MinLon: opts.MinLon,
		MaxLon: opts.MaxLon,
	}
	if err := box.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid bounding box")
	}

	elevationURL := config.DefaultElevationURL
	overpassURLs := osm.DefaultEndpoints

	if opts.ConfigFile != "" {
		cfg, err := config.Load(opts.ConfigFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		// File values win; zero values fall through to flag defaults.
		if cfg.ElevationURL != "" {
			elevationURL = cfg.ElevationURL
		}
		if len(cfg.OverpassURLs) > 0 {
			overpassURLs = cfg.OverpassURLs
		}
		if cfg.Resolution > 0 {
			opts.Resolution = cfg.Resolution
		}
		if cfg.Concurrency > 0 {
			opts.Concurrency = cfg.Concurrency
		}
		if cfg.Rate > 0 {
			opts.Rate = cfg.Rate
		}
		if cfg.Retries > 0 {
			opts.Retries = cfg.Retries
		}
		if cfg.Timeout > 0 {
			opts.Timeout = cfg.Timeout
		}
		if cfg.Backoff > 0 {
			opts.Backoff = cfg.Backoff
		}
	}

	log.Info().
		Float64("min_lat", box.MinLat).
		Float64("max_lat", box.MaxLat).
		Float64("min_lon", box.MinLon).
		Float64("max_lon", box.MaxLon).
		Msg("Starting city generation")

	reporter := diag.New()
	client := fetch.NewClient()
	exec := fetch.NewExecutor(client, fetch.Config{
		MaxRetries:     opts.Retries,
		InitialTimeout: time.Duration(opts.Timeout) * time.Second,
		BackoffFactor:  opts.Backoff,
	}, reporter)
	limiter := fetch.NewLimiter(opts.Rate)

	elevationSvc := elevation.NewService(exec, limiter, reporter, elevationURL, opts.Resolution, opts.Concurrency)
	featureSvc := osm.NewService(exec, reporter, overpassURLs)

	// The two acquisitions are independent: the feature query runs
	// alongside the elevation worker pool.
	featureCh := make(chan []osm.Feature, 1)
	go func() {
		featureCh <- featureSvc.Fetch(box)
	}()

	grid := elevationSvc.Fetch(box)
	features := <-featureCh

	scene := synth.NewBuilder(grid, reporter).Build(features)

	if err := saveScene(opts.Output, scene); err != nil {
		log.Fatal().Err(err).Str("path", opts.Output).Msg("Failed to write scene")
	}

	log.Info().Str("path", opts.Output).Int("geometries", len(scene)).Msg("Scene written")

	reporter.Summary()
}

// saveScene marshals the geometry records and writes them to disk.
// This file is the hand-off boundary to the authoring environment.
func saveScene(path string, scene []synth.Geometry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	// We care about write errors on close
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Error().Err(closeErr).Str("path", path).Msg("Failed to close file")
		}
	}()

	return json.NewEncoder(f).Encode(scene)
}
