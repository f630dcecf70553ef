package nkdvprep

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/pkg/errors"
)

// ImportFromCSV builds graph from two ';'-separated files with header rows.
//
// Nodes file columns: id;x;y
//
// Edges file columns: u;v;length;geom. Column 'length' and 'geom' (WKT LINESTRING) are optional and may have empty values
func ImportFromCSV(fnameNodes, fnameEdges string, crs CRS) (*Graph, error) {
	g := NewGraph()
	err := readCSVFile(fnameNodes, []string{"id", "x", "y"}, func(columns map[string]int, row []string) error {
		id, err := strconv.ParseInt(row[columns["id"]], 10, 64)
		if err != nil {
			return errors.Wrapf(ErrMalformedInput, "bad node id '%s'", row[columns["id"]])
		}
		x, err := strconv.ParseFloat(row[columns["x"]], 64)
		if err != nil {
			return errors.Wrapf(ErrMalformedInput, "bad x '%s'", row[columns["x"]])
		}
		y, err := strconv.ParseFloat(row[columns["y"]], 64)
		if err != nil {
			return errors.Wrapf(ErrMalformedInput, "bad y '%s'", row[columns["y"]])
		}
		return g.AddNode(NodeID(id), crs.Projection()(orb.Point{x, y}))
	})
	if err != nil {
		return nil, errors.Wrap(err, "Can't import nodes")
	}

	err = readCSVFile(fnameEdges, []string{"u", "v"}, func(columns map[string]int, row []string) error {
		u, err := strconv.ParseInt(row[columns["u"]], 10, 64)
		if err != nil {
			return errors.Wrapf(ErrMalformedInput, "bad source node '%s'", row[columns["u"]])
		}
		v, err := strconv.ParseInt(row[columns["v"]], 10, 64)
		if err != nil {
			return errors.Wrapf(ErrMalformedInput, "bad target node '%s'", row[columns["v"]])
		}
		length := 0.0
		if idx, ok := columns["length"]; ok && row[idx] != "" {
			length, err = strconv.ParseFloat(row[idx], 64)
			if err != nil {
				return errors.Wrapf(ErrMalformedInput, "bad length '%s'", row[idx])
			}
		}
		var geom orb.LineString
		if idx, ok := columns["geom"]; ok && row[idx] != "" {
			geom, err = wkt.UnmarshalLineString(row[idx])
			if err != nil {
				return errors.Wrapf(ErrMalformedInput, "bad geometry '%s': %s", row[idx], err.Error())
			}
			geom = lineToPlanar(geom, crs)
		}
		_, err = g.AddEdge(NodeID(u), NodeID(v), geom, length)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "Can't import edges")
	}
	return g, nil
}

// readCSVFile calls handler for each row of ';'-separated file. Header row must contain required columns
func readCSVFile(fname string, required []string, handler func(columns map[string]int, row []string) error) error {
	file, err := os.Open(fname)
	if err != nil {
		return errors.Wrapf(withKind(ErrIOFailure, err), "Can't open file '%s'", fname)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return errors.Wrapf(ErrMalformedInput, "file '%s' has no header", fname)
		}
		return errors.Wrapf(withKind(ErrMalformedInput, err), "Can't read header of '%s'", fname)
	}
	columns := make(map[string]int, len(header))
	for i, column := range header {
		columns[strings.ToLower(strings.TrimSpace(column))] = i
	}
	for _, column := range required {
		if _, ok := columns[column]; !ok {
			return errors.Wrapf(ErrMalformedInput, "file '%s' has no column '%s'", fname, column)
		}
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(withKind(ErrMalformedInput, err), "file '%s'", fname)
		}
		line, _ := reader.FieldPos(0)
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		if err := handler(columns, row); err != nil {
			return errors.Wrapf(err, "file '%s', line %d", fname, line)
		}
	}
	return nil
}

// ExportEdgesCSV writes edges (in the same order as records produced by Aggregate) with their current geometries.
// Columns: u;v;length;geom
func ExportEdgesCSV(fname string, edges []*Edge) error {
	return writeFileAtomic(fname, func(w io.Writer) error {
		writer := csv.NewWriter(w)
		writer.Comma = ';'

		err := writer.Write([]string{"u", "v", "length", "geom"})
		if err != nil {
			return errors.Wrap(withKind(ErrIOFailure, err), "Can't write header")
		}
		for _, edgeIdx := range edgesOrder(edges) {
			edge := edges[edgeIdx]
			err = writer.Write([]string{
				fmt.Sprintf("%d", edge.Key.U),
				fmt.Sprintf("%d", edge.Key.V),
				strconv.FormatFloat(edge.Length, 'f', -1, 64),
				wkt.MarshalString(edge.Geom),
			})
			if err != nil {
				return errors.Wrap(withKind(ErrIOFailure, err), "Can't write edge")
			}
		}
		writer.Flush()
		return withKind(ErrIOFailure, writer.Error())
	})
}
