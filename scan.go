package qct

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/djherbis/times"

	"github.com/arbcharts/qct/internal/cache"
	"github.com/arbcharts/qct/internal/fingerprint"
	"github.com/arbcharts/qct/metadata"
)

const headerFingerprintBytes = 256

func findChartFiles(ctx context.Context, base string) (<-chan string, <-chan error) {
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(out)
		defer close(errc)
		errc <- filepath.Walk(base, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if info.IsDir() {
				if len(info.Name()) > 0 && info.Name()[0] == '.' {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".qct" {
				return nil
			}

			select {
			case out <- path:
			case <-ctx.Done():
				return errors.New("scan cancelled")
			}
			return nil
		})
	}()
	return out, errc
}

func chartWorker(cat *cache.Catalog, in <-chan string) <-chan error {
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		for path := range in {
			if err := scanOne(cat, path); err != nil {
				errc <- err
				return
			}
		}
	}()
	return errc
}

func scanOne(cat *cache.Catalog, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf [headerFingerprintBytes]byte
	n, err := f.Read(buf[:])
	if err != nil && n == 0 {
		return err
	}
	fp := fingerprint.HeaderFingerprint(buf[:n])

	if cached, ok, err := cat.Fingerprint(path); err != nil {
		return err
	} else if ok && cached == fp {
		return nil
	}

	m, err := Open(path, true, 1, nil)
	if err != nil {
		return err
	}
	defer m.Close()

	entry := cache.Entry{
		Path:        path,
		Fingerprint: fp,
		Title:       m.Title(),
		Name:        m.Name(),
		Ident:       m.Identifier(),
	}
	entry.MinLat, entry.MaxLat, entry.MinLon, entry.MaxLon = outlineBounds(m.OutlinePoints())

	if ts, err := times.Stat(path); err == nil && ts.HasBirthTime() {
		entry.FileBirthTime = ts.BirthTime().Unix()
	}

	return cat.Upsert(entry)
}

func outlineBounds(points []metadata.OutlinePoint) (minLat, maxLat, minLon, maxLon float64) {
	if len(points) == 0 {
		return 0, 0, 0, 0
	}
	minLat, maxLat = points[0].Lat, points[0].Lat
	minLon, maxLon = points[0].Lon, points[0].Lon
	for _, p := range points[1:] {
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lon < minLon {
			minLon = p.Lon
		}
		if p.Lon > maxLon {
			maxLon = p.Lon
		}
	}
	return minLat, maxLat, minLon, maxLon
}

func waitForScan(errs ...<-chan error) error {
	errc := mergeScanErrors(errs...)
	for err := range errc {
		if err != nil {
			return err
		}
	}
	return nil
}

func mergeScanErrors(cs ...<-chan error) <-chan error {
	var wg sync.WaitGroup
	out := make(chan error, len(cs))
	wg.Add(len(cs))
	for _, c := range cs {
		go func(c <-chan error) {
			for n := range c {
				out <- n
			}
			wg.Done()
		}(c)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out
}

const scanWorkers = 10

// Scan walks dir for .qct files and records each in the catalog at
// cachePath: title, name, identifier, and outline bounding box. Files
// whose header fingerprint matches a previous scan are skipped without
// being reopened. Unlike a Map's own operations, a scan fans out across
// a worker pool since the files involved are entirely independent of
// one another.
func Scan(dir, cachePath string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	cat, err := cache.Open(cachePath)
	if err != nil {
		return err
	}
	defer cat.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	paths, errc := findChartFiles(ctx, abs)
	errcList := []<-chan error{errc}

	for i := 0; i < scanWorkers; i++ {
		errcList = append(errcList, chartWorker(cat, paths))
	}

	return waitForScan(errcList...)
}

// ChartSummary is one catalog entry returned by FindCharts: enough to
// identify a chart and decide whether to open it for a closer look,
// without decoding anything.
type ChartSummary struct {
	Path                           string
	Title, Name, Ident             string
	MinLat, MaxLat, MinLon, MaxLon float64
}

// FindCharts queries the catalog at cachePath, as populated by Scan, for
// every chart whose recorded outline bounding box contains (lat, lon).
// This is a coarse pre-filter on that bounding box, not the exact
// boundary-polygon test CoordInsideMap performs once a chart is open.
func FindCharts(cachePath string, lat, lon float64) ([]ChartSummary, error) {
	cat, err := cache.Open(cachePath)
	if err != nil {
		return nil, err
	}
	defer cat.Close()

	entries, err := cat.FindContaining(lat, lon)
	if err != nil {
		return nil, err
	}

	out := make([]ChartSummary, len(entries))
	for i, e := range entries {
		out[i] = ChartSummary{
			Path:   e.Path,
			Title:  e.Title,
			Name:   e.Name,
			Ident:  e.Ident,
			MinLat: e.MinLat,
			MaxLat: e.MaxLat,
			MinLon: e.MinLon,
			MaxLon: e.MaxLon,
		}
	}
	return out, nil
}
