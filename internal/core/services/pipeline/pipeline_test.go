package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlistings/listings-refinery/internal/core/domain"
	"github.com/openlistings/listings-refinery/internal/core/services/gazetteer"
	"github.com/openlistings/listings-refinery/internal/infrastructure/parsers"
	"github.com/openlistings/listings-refinery/internal/pkg/config"
	pkgerrors "github.com/openlistings/listings-refinery/internal/pkg/errors"
)

func TestWriteRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	rows := []domain.RawAttributeRow{
		{ListingID: "7", FieldName: "title", FieldValue: `He said "hi"`},
		{ListingID: "8", FieldName: "town", FieldValue: "\uFEFFSt\u200B Kilda\u2060"},
	}
	require.NoError(t, WriteRows(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	lines := strings.Split(string(data), "\n")
	require.Len(t, lines, 4) // header + 2 rows + trailing newline
	assert.Equal(t, `"listingsdb_id","listingsdbelements_field_name","listingsdbelements_field_value"`, lines[0])
	assert.Equal(t, `"7","title","He said ""hi"""`, lines[1])
	assert.Equal(t, `"8","town","St Kilda"`, lines[2])
	assert.Equal(t, "", lines[3])
	assert.NotContains(t, string(data), "\r")
}

func TestSortRows(t *testing.T) {
	rows := []domain.RawAttributeRow{
		{ListingID: "200", FieldName: "town", FieldValue: "a"},
		{ListingID: "100", FieldName: "town", FieldValue: "b"},
		{ListingID: "100", FieldName: "address", FieldValue: "c"},
		{ListingID: "100", FieldName: "image", FieldValue: "first"},
		{ListingID: "100", FieldName: "image", FieldValue: "second"},
	}
	SortRows(rows)

	want := []domain.RawAttributeRow{
		{ListingID: "100", FieldName: "address", FieldValue: "c"},
		{ListingID: "100", FieldName: "image", FieldValue: "first"},
		{ListingID: "100", FieldName: "image", FieldValue: "second"},
		{ListingID: "100", FieldName: "town", FieldValue: "b"},
		{ListingID: "200", FieldName: "town", FieldValue: "a"},
	}
	assert.Equal(t, want, rows)
}

func writeGazetteerExtract(t *testing.T, dir string) {
	t.Helper()
	tsv := "1\tSt Kilda\tst kilda\n" +
		"2\tHobart\thobart\n" +
		"3\tNewtown\tnewtown\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AU.txt"), []byte(tsv), 0o644))
}

func testDriverConfig(t *testing.T, input string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	writeGazetteerExtract(t, dir)
	return &config.Config{
		InputPath:  input,
		OutputPath: filepath.Join(dir, "normalized.csv"),
		RefDataDir: dir,
		// Unreachable on purpose: the extract above must satisfy the loader
		GazetteerURL:      "http://127.0.0.1:1/AU.zip",
		GazetteerFile:     "AU.txt",
		GazetteerMissMode: config.MissKeepCleaned,
		WorkerConcurrency: 2,
		FetchMaxAttempts:  1,
	}
}

func TestDriver_Run(t *testing.T) {
	input := filepath.Join(t.TempDir(), "export.csv")
	raw := `"listingsdb_id","listingsdbelements_field_name","listingsdbelements_field_value"
"200","town","ST KILDA"
"200","address","23 Smith St, Newtown NSW 2042"
"100","full_desc","Inspect this weekend at 14 Acacia Street before it goes to auction."
"100","address",""
"100","town","Hobart"
"broken row"
`
	require.NoError(t, os.WriteFile(input, []byte(raw), 0o644))

	cfg := testDriverConfig(t, input)
	d := NewDriver(cfg, gazetteer.NewLoader(cfg.RefDataDir, cfg.GazetteerFile, cfg.GazetteerURL, cfg.FetchMaxAttempts, nil), parsers.NewParserFactory(nil), nil)

	result, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateDone, d.State())

	assert.Equal(t, 6, result.TotalRows)
	assert.Equal(t, 1, result.SkippedRows)
	assert.Equal(t, 5, result.NormalizedRows)
	assert.Equal(t, 1, result.FallbackHits)

	data, err := os.ReadFile(cfg.OutputPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 6)

	// Sorted by listing id then field name, every field quoted
	assert.Equal(t, `"listingsdb_id","listingsdbelements_field_name","listingsdbelements_field_value"`, lines[0])
	assert.Equal(t, `"100","address","14 Acacia Street"`, lines[1]) // recovered from description
	assert.True(t, strings.HasPrefix(lines[2], `"100","full_desc","`))
	assert.Equal(t, `"100","town","Hobart"`, lines[3])
	assert.Equal(t, `"200","address","23 Smith Street"`, lines[4])
	assert.Equal(t, `"200","town","St Kilda"`, lines[5])
}

func TestDriver_Run_MissingInputAborts(t *testing.T) {
	cfg := testDriverConfig(t, filepath.Join(t.TempDir(), "absent.csv"))
	d := NewDriver(cfg, gazetteer.NewLoader(cfg.RefDataDir, cfg.GazetteerFile, cfg.GazetteerURL, cfg.FetchMaxAttempts, nil), nil, nil)

	_, err := d.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateAbort, d.State())

	perr, ok := pkgerrors.GetPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, pkgerrors.ErrCodeInputMissing, perr.Code)
}

func TestDriver_Run_GazetteerUnavailableAborts(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "export.csv")
	require.NoError(t, os.WriteFile(input, []byte(`"listingsdb_id","listingsdbelements_field_name","listingsdbelements_field_value"`+"\n"), 0o644))

	cfg := &config.Config{
		InputPath:         input,
		OutputPath:        filepath.Join(dir, "out.csv"),
		RefDataDir:        filepath.Join(dir, "refdata"),
		GazetteerURL:      "http://127.0.0.1:1/AU.zip",
		GazetteerFile:     "AU.txt",
		GazetteerMissMode: config.MissKeepCleaned,
		WorkerConcurrency: 1,
		FetchMaxAttempts:  1,
	}
	d := NewDriver(cfg, gazetteer.NewLoader(cfg.RefDataDir, cfg.GazetteerFile, cfg.GazetteerURL, cfg.FetchMaxAttempts, nil), nil, nil)

	_, err := d.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateAbort, d.State())

	perr, ok := pkgerrors.GetPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, pkgerrors.ErrCodeGazetteerUnavailable, perr.Code)
}
