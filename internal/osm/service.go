package osm

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/woozymasta/citygen/internal/diag"
	"github.com/woozymasta/citygen/internal/fetch"
	"github.com/woozymasta/citygen/internal/geo"

	"github.com/rs/zerolog/log"
)

// DefaultEndpoints is the ordered list of public Overpass mirrors.
var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://overpass.osm.ch/api/interpreter",
}

// Service fetches map features with per-endpoint retries and failover.
type Service struct {
	exec      *fetch.Executor
	diag      *diag.Reporter
	endpoints []string
}

// NewService creates a feature service over the given mirror list.
// An empty list falls back to DefaultEndpoints.
func NewService(exec *fetch.Executor, reporter *diag.Reporter, endpoints []string) *Service {
	if len(endpoints) == 0 {
		endpoints = DefaultEndpoints
	}
	return &Service{exec: exec, diag: reporter, endpoints: endpoints}
}

// Query builds the Overpass QL payload selecting building footprints,
// highway ways, water polygons/ways and vegetation for the box.
func Query(box geo.BoundingBox) string {
	bbox := fmt.Sprintf("%f,%f,%f,%f", box.MinLat, box.MinLon, box.MaxLat, box.MaxLon)
	return fmt.Sprintf(`[out:json][timeout:60];
(
  way["building"](%[1]s);
  way["highway"](%[1]s);
  way["waterway"](%[1]s);
  way["natural"="water"](%[1]s);
  node["natural"="tree"](%[1]s);
  way["natural"="tree_row"](%[1]s);
);
out body;
>;
out skel qt;`, bbox)
}

// Fetch queries each mirror in order and returns the first successful
// parse. Transport exhaustion and malformed payloads both advance to
// the next mirror. When every mirror fails the result is an empty
// feature set, never an error value: the pipeline then produces a
// terrain-only scene.
func (s *Service) Fetch(box geo.BoundingBox) []Feature {
	query := Query(box)

	for _, endpoint := range s.endpoints {
		log.Info().Str("endpoint", endpoint).Msg("Requesting map features")

		body, ok := s.request(endpoint, query)
		if !ok {
			s.diag.Warnf("features: server %s failed, trying next", endpoint)
			continue
		}

		var payload struct {
			Elements []element `json:"elements"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			s.diag.Warnf("features: server %s returned malformed response: %v", endpoint, err)
			continue
		}

		if len(payload.Elements) == 0 {
			s.diag.Warnf("features: server %s returned no elements for this area", endpoint)
			return nil
		}

		features := parse(payload.Elements)
		log.Info().
			Str("endpoint", endpoint).
			Int("elements", len(payload.Elements)).
			Int("features", len(features)).
			Msg("Map features downloaded")
		return features
	}

	s.diag.Errorf("features: all servers failed: %s", strings.Join(s.endpoints, ", "))
	return nil
}

func (s *Service) request(endpoint, query string) ([]byte, bool) {
	form := url.Values{"data": {query}}.Encode()

	resp, fail := s.exec.Do("feature query "+endpoint, func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodPost, endpoint, strings.NewReader(form))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	if fail != nil {
		return nil, false
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false
	}
	return body, true
}

// element is the raw Overpass JSON element shape.
type element struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

// parse resolves way node references against the node table and emits
// tagged features. Ways referencing unknown nodes keep the points that
// did resolve; classification is tag-driven.
func parse(elements []element) []Feature {
	nodes := make(map[int64]element, len(elements))
	for _, e := range elements {
		if e.Type == "node" {
			nodes[e.ID] = e
		}
	}

	var features []Feature

	for _, e := range elements {
		switch e.Type {
		case "node":
			if e.Tags["natural"] == "tree" {
				features = append(features, Feature{
					Kind:   TreePoint,
					Points: []geo.LatLon{{Lat: e.Lat, Lon: e.Lon}},
					Tags:   e.Tags,
				})
			}

		case "way":
			kind, ok := classifyWay(e.Tags)
			if !ok {
				continue
			}

			points := make([]geo.LatLon, 0, len(e.Nodes))
			for _, id := range e.Nodes {
				n, found := nodes[id]
				if !found {
					continue
				}
				points = append(points, geo.LatLon{Lat: n.Lat, Lon: n.Lon})
			}

			f := Feature{Kind: kind, Points: points, Tags: e.Tags}
			switch kind {
			case Building:
				f.Height = buildingHeight(e.Tags)
			case Road:
				f.Class = e.Tags["highway"]
				f.Width = roadWidth(f.Class)
				f.Sidewalks = sidewalkEligible(f.Class)
			}
			features = append(features, f)
		}
	}

	return features
}

func classifyWay(tags map[string]string) (Kind, bool) {
	switch {
	case tags["building"] != "":
		return Building, true
	case tags["highway"] != "":
		return Road, true
	case tags["waterway"] != "" || tags["natural"] == "water":
		return Water, true
	case tags["natural"] == "tree_row":
		return TreeRow, true
	default:
		return 0, false
	}
}
