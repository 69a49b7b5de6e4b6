// Package elevation acquires a dense grid of ground elevation samples
// for a bounding box from a public elevation API.
package elevation

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/woozymasta/citygen/internal/diag"
	"github.com/woozymasta/citygen/internal/fetch"
	"github.com/woozymasta/citygen/internal/geo"
	"github.com/woozymasta/citygen/internal/terrain"

	"github.com/rs/zerolog/log"
)

const (
	minGridSide = 20
	maxGridSide = 100
)

// Service fetches elevation grids through the shared resilience layer.
type Service struct {
	exec        *fetch.Executor
	limiter     *fetch.Limiter
	diag        *diag.Reporter
	endpoint    string
	resolution  float64
	concurrency int
}

// NewService creates an elevation service. Endpoint is the lookup URL
// prefix; resolution is the target cell size in meters.
func NewService(exec *fetch.Executor, limiter *fetch.Limiter, reporter *diag.Reporter, endpoint string, resolution float64, concurrency int) *Service {
	return &Service{
		exec:        exec,
		limiter:     limiter,
		diag:        reporter,
		endpoint:    endpoint,
		resolution:  resolution,
		concurrency: concurrency,
	}
}

// GridSide computes the grid cell count per axis for a box at the
// given resolution, clamped to [20, 100] to balance quality against
// acquisition cost.
func GridSide(box geo.BoundingBox, resolution float64) int {
	lonMeters, latMeters := box.MeterExtent()

	latSide := int(latMeters / resolution)
	if latSide > maxGridSide {
		latSide = maxGridSide
	}
	lonSide := int(lonMeters / resolution)
	if lonSide > maxGridSide {
		lonSide = maxGridSide
	}

	side := latSide
	if lonSide > side {
		side = lonSide
	}
	if side < minGridSide {
		side = minGridSide
	}
	return side
}

type node struct {
	row, col int
	lat, lon float64
}

type sample struct {
	row, col  int
	elevation float64
	ok        bool
}

// Fetch downloads one elevation sample per grid node using a bounded
// worker pool behind the shared rate limiter. Nodes whose requests
// fail after all retries are filled with 0 and counted; the returned
// grid is always fully populated in shape.
func (s *Service) Fetch(box geo.BoundingBox) *terrain.Grid {
	side := GridSide(box, s.resolution)
	grid := terrain.NewGrid(box, side)
	total := grid.Rows() * grid.Cols()

	log.Info().
		Int("side", side).
		Int("nodes", total).
		Float64("resolution", s.resolution).
		Msg("Starting elevation download")

	jobs := make(chan node, total)
	results := make(chan sample, total)

	go func() {
		for i := 0; i < grid.Rows(); i++ {
			for j := 0; j < grid.Cols(); j++ {
				lat, lon := grid.NodeLatLon(i, j)
				jobs <- node{row: i, col: j, lat: lat, lon: lon}
			}
		}
		close(jobs)
	}()

	progress := newProgress(total)

	var wg sync.WaitGroup
	for w := 0; w < s.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := range jobs {
				elev, ok := s.fetchNode(n.lat, n.lon)
				results <- sample{row: n.row, col: n.col, elevation: elev, ok: ok}
				progress.step()
			}
		}()
	}
	wg.Wait()
	close(results)

	// Join barrier: commit samples only after every node has resolved.
	failed := 0
	for r := range results {
		grid.SetNode(r.row, r.col, r.elevation)
		if !r.ok {
			failed++
		}
	}

	if failed > 0 {
		s.diag.Warnf("elevation: %d of %d grid nodes failed, using 0 m fallback", failed, total)
	}

	log.Info().Int("nodes", total).Int("failed", failed).Msg("Elevation download complete")
	return grid
}

// fetchNode requests one sample. A failure after retries degrades to
// the 0 m fallback rather than aborting the run.
func (s *Service) fetchNode(lat, lon float64) (float64, bool) {
	url := fmt.Sprintf("%s?locations=%v,%v", s.endpoint, lat, lon)

	s.limiter.Wait()

	resp, fail := s.exec.Do("elevation lookup", func() (*http.Request, error) {
		return http.NewRequest(http.MethodGet, url, nil)
	})
	if fail != nil {
		return 0, false
	}
	defer func() { _ = resp.Body.Close() }()

	var payload struct {
		Results []struct {
			Elevation float64 `json:"elevation"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || len(payload.Results) == 0 {
		return 0, false
	}

	return payload.Results[0].Elevation, true
}

// progress logs completion at coarse 10% increments.
type progress struct {
	mu    sync.Mutex
	total int
	done  int
	mark  int
}

func newProgress(total int) *progress {
	return &progress{total: total}
}

func (p *progress) step() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	pct := p.done * 100 / p.total
	if pct/10 > p.mark {
		p.mark = pct / 10
		log.Info().
			Int("percent", p.mark*10).
			Int("done", p.done).
			Int("total", p.total).
			Msg("Elevation progress")
	}
}
