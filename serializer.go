package nkdvprep

import (
	"bufio"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// SHORTEST_PRECISION renders offsets with the smallest number of digits which represents value exactly
	SHORTEST_PRECISION = -1
)

// RecordsFile is parsed content of aggregation output
type RecordsFile struct {
	NodesNum int
	EdgesNum int
	Records  []EdgeRecord
}

// formatOffset renders value in plain decimal notation. Integral values keep trailing ".0" in shortest mode
func formatOffset(value float64, precision int) string {
	if value == 0 {
		// Get rid of negative zero
		value = 0
	}
	if precision >= 0 {
		return strconv.FormatFloat(value, 'f', precision, 64)
	}
	str := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.Contains(str, ".") {
		str += ".0"
	}
	return str
}

// WriteRecords writes header (number of nodes and edges in the graph) and one line per record:
//
//	u v count offset_1 ... offset_count
func WriteRecords(w io.Writer, nodesNum, edgesNum int, records []EdgeRecord, precision int) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 64)
	buf = strconv.AppendInt(buf, int64(nodesNum), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(edgesNum), 10)
	buf = append(buf, '\n')
	if _, err := bw.Write(buf); err != nil {
		return withKind(ErrIOFailure, err)
	}
	for _, record := range records {
		buf = buf[:0]
		buf = strconv.AppendInt(buf, int64(record.Key.U), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(record.Key.V), 10)
		buf = append(buf, ' ')
		buf = strconv.AppendInt(buf, int64(len(record.Offsets)), 10)
		for _, offset := range record.Offsets {
			if math.IsNaN(offset) || math.IsInf(offset, 0) {
				return errors.Wrapf(ErrGeometryDegenerate, "non-finite offset on edge %s", record.Key)
			}
			buf = append(buf, ' ')
			buf = append(buf, formatOffset(offset, precision)...)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return withKind(ErrIOFailure, err)
		}
	}
	return withKind(ErrIOFailure, bw.Flush())
}

// WriteRecordsFile writes records to the file. Content becomes visible under given name only when it has been completely written
func WriteRecordsFile(fname string, nodesNum, edgesNum int, records []EdgeRecord, precision int) error {
	return writeFileAtomic(fname, func(w io.Writer) error {
		return WriteRecords(w, nodesNum, edgesNum, records, precision)
	})
}

// writeFileAtomic writes to temporary file in the same directory and renames it on success
func writeFileAtomic(fname string, write func(w io.Writer) error) error {
	dir := filepath.Dir(fname)
	file, err := os.CreateTemp(dir, "."+filepath.Base(fname)+".*.tmp")
	if err != nil {
		return errors.Wrap(withKind(ErrIOFailure, err), "Can't create temporary file")
	}
	tmpName := file.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpName)
		}
	}()

	if err := write(file); err != nil {
		file.Close()
		return errors.Wrapf(err, "Can't write '%s'", fname)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return errors.Wrapf(withKind(ErrIOFailure, err), "Can't sync '%s'", fname)
	}
	if err := file.Close(); err != nil {
		return errors.Wrapf(withKind(ErrIOFailure, err), "Can't close '%s'", fname)
	}
	if err := os.Rename(tmpName, fname); err != nil {
		return errors.Wrapf(withKind(ErrIOFailure, err), "Can't publish '%s'", fname)
	}
	success = true
	return nil
}

// ReadRecordsFile parses file written by WriteRecordsFile
func ReadRecordsFile(fname string) (*RecordsFile, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, errors.Wrapf(withKind(ErrIOFailure, err), "Can't open file '%s'", fname)
	}
	defer file.Close()
	content, err := ReadRecords(file)
	if err != nil {
		return nil, errors.Wrapf(err, "file '%s'", fname)
	}
	return content, nil
}

// ReadRecords parses output of WriteRecords. Lengths of records are not stored in the file and stay zero
func ReadRecords(r io.Reader) (*RecordsFile, error) {
	br := bufio.NewReader(r)
	result := &RecordsFile{}
	lineNum := 0
	headerSeen := false
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, withKind(ErrIOFailure, err)
		}
		if len(line) != 0 {
			lineNum++
			fields := strings.Fields(line)
			if len(fields) != 0 {
				if !headerSeen {
					if err := parseHeader(fields, result); err != nil {
						return nil, errors.Wrapf(err, "line %d", lineNum)
					}
					headerSeen = true
				} else {
					record, err := parseRecord(fields)
					if err != nil {
						return nil, errors.Wrapf(err, "line %d", lineNum)
					}
					result.Records = append(result.Records, record)
				}
			}
		}
		if err == io.EOF {
			break
		}
	}
	if !headerSeen {
		return nil, errors.Wrap(ErrMalformedInput, "missing header")
	}
	if len(result.Records) != result.EdgesNum {
		return nil, errors.Wrapf(ErrMalformedInput, "header declares %d edges, but got %d records", result.EdgesNum, len(result.Records))
	}
	return result, nil
}

func parseHeader(fields []string, result *RecordsFile) error {
	if len(fields) != 2 {
		return errors.Wrapf(ErrMalformedInput, "header must have 2 fields, got %d", len(fields))
	}
	nodesNum, err := strconv.Atoi(fields[0])
	if err != nil || nodesNum < 0 {
		return errors.Wrapf(ErrMalformedInput, "bad nodes number '%s'", fields[0])
	}
	edgesNum, err := strconv.Atoi(fields[1])
	if err != nil || edgesNum < 0 {
		return errors.Wrapf(ErrMalformedInput, "bad edges number '%s'", fields[1])
	}
	result.NodesNum = nodesNum
	result.EdgesNum = edgesNum
	return nil
}

func parseRecord(fields []string) (EdgeRecord, error) {
	if len(fields) < 3 {
		return EdgeRecord{}, errors.Wrapf(ErrMalformedInput, "record must have at least 3 fields, got %d", len(fields))
	}
	u, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return EdgeRecord{}, errors.Wrapf(ErrMalformedInput, "bad source node '%s'", fields[0])
	}
	v, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return EdgeRecord{}, errors.Wrapf(ErrMalformedInput, "bad target node '%s'", fields[1])
	}
	count, err := strconv.Atoi(fields[2])
	if err != nil || count < 0 {
		return EdgeRecord{}, errors.Wrapf(ErrMalformedInput, "bad count '%s'", fields[2])
	}
	if len(fields)-3 != count {
		return EdgeRecord{}, errors.Wrapf(ErrMalformedInput, "count is %d, but %d offsets follow", count, len(fields)-3)
	}
	record := EdgeRecord{
		Key:     EdgeKey{U: NodeID(u), V: NodeID(v)},
		Offsets: make([]float64, count),
	}
	for i, field := range fields[3:] {
		offset, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return EdgeRecord{}, errors.Wrapf(ErrMalformedInput, "bad offset '%s'", field)
		}
		record.Offsets[i] = offset
	}
	return record, nil
}
