package runner

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LdDl/nkdvprep"
	"github.com/LdDl/nkdvprep/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	fname := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(fname, []byte(content), 0o644))
	return fname
}

func testConfig(t *testing.T) *config.Config {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Network.Nodes = writeFile(t, dir, "nodes.csv", "id;x;y\n0;0;0\n1;10;0\n2;10;10\n")
	cfg.Network.Edges = writeFile(t, dir, "edges.csv", "u;v;length\n0;1;10\n1;2;10\n")
	cfg.Points.File = writeFile(t, dir, "points.txt", "3 1\n7 -1\n11 6\nbroken\n")
	cfg.Points.CRS = "planar"
	cfg.Points.MaxSkipRatio = 0.5
	cfg.Output.File = filepath.Join(dir, "out.txt")
	cfg.Output.EdgesCSV = filepath.Join(dir, "edges_out.csv")
	return cfg
}

func TestRunPrepare(t *testing.T) {
	cfg := testConfig(t)
	report, err := RunPrepare(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.Points.Skipped)

	content, err := os.ReadFile(cfg.Output.File)
	require.NoError(t, err)
	assert.Equal(t, "3 2\n0 1 2 3.0 7.0\n1 2 1 6.0\n", string(content))
	_, err = os.Stat(cfg.Output.EdgesCSV)
	assert.NoError(t, err)

	buf := &bytes.Buffer{}
	report.Render(buf)
	assert.Contains(t, buf.String(), report.RunID)

	buf.Reset()
	require.NoError(t, RunInspect(cfg.Output.File, 1, buf))
	assert.Contains(t, buf.String(), "EDGES WITH OBSERVATIONS")
	assert.Contains(t, buf.String(), "MIN OFFSET")
}

func TestRunPrepareErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.File = ""
	_, err := RunPrepare(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Points.MaxSkipRatio = 0
	_, err = RunPrepare(context.Background(), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, nkdvprep.ErrMalformedInput)
	_, statErr := os.Stat(cfg.Output.File)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunPrepareCRSMismatch(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Network.Nodes = writeFile(t, dir, "nodes.csv", "id;x;y\n1;412000;6180000\n2;413000;6180000\n")
	cfg.Network.Edges = writeFile(t, dir, "edges.csv", "u;v\n1;2\n")
	cfg.Points.File = writeFile(t, dir, "points.txt", "37.60 55.75\n37.61 55.76\n")
	cfg.Output.File = filepath.Join(dir, "out.txt")

	_, err := RunPrepare(context.Background(), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, nkdvprep.ErrMalformedInput)
	_, statErr := os.Stat(cfg.Output.File)
	assert.True(t, os.IsNotExist(statErr))
}

func TestLoadGraphUnknownFormat(t *testing.T) {
	_, err := LoadGraph(&config.NetworkConfig{Format: "shp"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestRunInspectMissingFile(t *testing.T) {
	err := RunInspect(filepath.Join(t.TempDir(), "missing.txt"), 5, &bytes.Buffer{})
	assert.ErrorIs(t, err, nkdvprep.ErrIOFailure)
}

func TestRunInspectMalformed(t *testing.T) {
	fname := writeFile(t, t.TempDir(), "out.txt", "2 2\n0 1 0\n")
	err := RunInspect(fname, 5, &bytes.Buffer{})
	assert.ErrorIs(t, err, nkdvprep.ErrMalformedInput)
}
