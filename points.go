package nkdvprep

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

const (
	// DEFAULT_MAX_SKIP_RATIO is default share of malformed rows which is tolerated in points file
	DEFAULT_MAX_SKIP_RATIO = 0.01
	// Number of skipped line numbers kept in PointsData for diagnostics
	skippedRowsKept = 10
)

// PointsData is content of points file projected into planar reference system
type PointsData struct {
	Points []orb.Point
	// Line numbers (1-based) of accepted points, same order as Points
	Lines []int
	// Number of malformed rows which have been skipped
	Skipped int
	// Line numbers of first skipped rows
	SkippedLines []int
}

// SkipRatio returns share of skipped rows among non-empty rows
func (data *PointsData) SkipRatio() float64 {
	total := data.Skipped + len(data.Points)
	if total == 0 {
		return 0
	}
	return float64(data.Skipped) / float64(total)
}

// ReadPointsFile reads points file. Files with '.gz' extension are decompressed on the fly
func ReadPointsFile(fname string, crs CRS, maxSkipRatio float64) (*PointsData, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrapf(withKind(ErrIOFailure, err), "Can't open points file '%s'", fname)
	}
	defer file.Close()

	var reader io.Reader = file
	if strings.HasSuffix(strings.ToLower(fname), ".gz") {
		gz, err := pgzip.NewReader(file)
		if err != nil {
			return nil, errors.Wrapf(withKind(ErrIOFailure, err), "Can't decompress points file '%s'", fname)
		}
		defer gz.Close()
		reader = gz
	}
	data, err := ReadPoints(reader, crs, maxSkipRatio)
	if err != nil {
		return nil, errors.Wrapf(err, "Points file '%s'", fname)
	}
	return data, nil
}

// ReadPoints reads whitespace-delimited rows with two numeric fields each (lon lat or x y).
//
// Malformed rows are skipped and counted. Error of kind ErrMalformedInput is returned when share of skipped rows exceeds maxSkipRatio
func ReadPoints(r io.Reader, crs CRS, maxSkipRatio float64) (*PointsData, error) {
	data := &PointsData{
		Points: make([]orb.Point, 0),
		Lines:  make([]int, 0),
	}
	proj := crs.Projection()
	br := bufio.NewReader(r)
	lineNum := 0
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, withKind(ErrIOFailure, err)
		}
		if len(line) != 0 {
			lineNum++
			fields := strings.Fields(line)
			if len(fields) != 0 {
				pt, ok := parsePoint(fields, crs)
				if ok {
					pt = proj(pt)
					ok = isFinite(pt)
				}
				if ok {
					data.Points = append(data.Points, pt)
					data.Lines = append(data.Lines, lineNum)
				} else {
					data.Skipped++
					if len(data.SkippedLines) < skippedRowsKept {
						data.SkippedLines = append(data.SkippedLines, lineNum)
					}
				}
			}
		}
		if err == io.EOF {
			break
		}
	}
	if data.Skipped > 0 && data.SkipRatio() > maxSkipRatio {
		return nil, errors.Wrapf(ErrMalformedInput, "skipped %d of %d rows (ratio %f exceeds %f), first bad line: %d", data.Skipped, data.Skipped+len(data.Points), data.SkipRatio(), maxSkipRatio, data.SkippedLines[0])
	}
	return data, nil
}

func parsePoint(fields []string, crs CRS) (orb.Point, bool) {
	if len(fields) != 2 {
		return orb.Point{}, false
	}
	x, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return orb.Point{}, false
	}
	y, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return orb.Point{}, false
	}
	pt := orb.Point{x, y}
	if !isFinite(pt) {
		return orb.Point{}, false
	}
	if crs == CRS_WGS84 && (math.Abs(x) > 180 || math.Abs(y) >= 90) {
		return orb.Point{}, false
	}
	return pt, true
}

func isFinite(pt orb.Point) bool {
	for _, c := range pt {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
