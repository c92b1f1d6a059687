package output

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frameport/frameport/pkg/engine"
	"github.com/frameport/frameport/pkg/frame"
	"github.com/frameport/frameport/pkg/testutil"
)

func sampleFrame(t *testing.T) *frame.Frame {
	t.Helper()
	path := testutil.WriteSample(t, engine.DefaultOptions())
	f, err := frame.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(f.Close)
	return f
}

func TestCSVFormatter(t *testing.T) {
	f := sampleFrame(t)
	var buf bytes.Buffer

	require.NoError(t, NewCSVFormatter(&buf).Format(f))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "id,name,score,active,ts", lines[0])
	assert.Equal(t, "1,alice,85.5,true,2023-11-14T22:13:20Z", lines[1])
}

func TestJSONLFormatter(t *testing.T) {
	f := sampleFrame(t)
	var buf bytes.Buffer

	require.NoError(t, NewJSONLFormatter(&buf).Format(f))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)

	var row map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &row))
	assert.Equal(t, float64(1), row["id"])
	assert.Equal(t, "alice", row["name"])
	assert.Equal(t, 85.5, row["score"])
	assert.Equal(t, true, row["active"])
	assert.Equal(t, "2023-11-14T22:13:20Z", row["ts"])
}

func TestTableFormatter(t *testing.T) {
	f := sampleFrame(t)
	var buf bytes.Buffer

	require.NoError(t, NewTableFormatter(&buf).Format(f))

	out := buf.String()
	assert.Contains(t, out, "name")
	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "95")
}

func TestFormatterProjectedOrder(t *testing.T) {
	path := testutil.WriteSample(t, engine.DefaultOptions())
	f, err := frame.OpenProjected(context.Background(), path, []string{"score", "name"})
	require.NoError(t, err)
	defer f.Close()

	var buf bytes.Buffer
	require.NoError(t, NewCSVFormatter(&buf).Format(f))
	assert.True(t, strings.HasPrefix(buf.String(), "score,name\n"))
}

func TestCreatePlain(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	w, err := Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "hello")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestCreateGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv.gz")
	w, err := Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "compressed content")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()
	zr, err := gzip.NewReader(fh)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "compressed content", string(data))
}

func TestCreateZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl.zst")
	w, err := Create(path)
	require.NoError(t, err)
	_, err = io.WriteString(w, "compressed content")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	fh, err := os.Open(path)
	require.NoError(t, err)
	defer fh.Close()
	zr, err := zstd.NewReader(fh)
	require.NoError(t, err)
	defer zr.Close()
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "compressed content", string(data))
}
