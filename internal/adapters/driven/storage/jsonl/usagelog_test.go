package jsonl

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

func testLog(t *testing.T) *UsageLog {
	t.Helper()
	log, err := NewUsageLog(filepath.Join(t.TempDir(), "logs", "usage.jsonl"))
	require.NoError(t, err)
	return log
}

func testRecord(op domain.Operation, units int) domain.UsageRecord {
	return domain.UsageRecord{
		Operation:  op,
		Model:      "text-embedding-3-small",
		InputUnits: units,
		Cost:       float64(units) * 0.02 / 1_000_000,
		Timestamp:  time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestNewUsageLog_RequiresPath(t *testing.T) {
	_, err := NewUsageLog("")
	assert.Error(t, err)
}

func TestNewUsageLog_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "usage.jsonl")

	log, err := NewUsageLog(path)
	require.NoError(t, err)
	assert.Equal(t, path, log.Path())

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestUsageLog_ReadAll_MissingFileIsEmpty(t *testing.T) {
	log := testLog(t)

	records, err := log.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestUsageLog_AppendAndReadAll(t *testing.T) {
	log := testLog(t)

	require.NoError(t, log.Append(testRecord(domain.OpEmbed, 100)))
	require.NoError(t, log.Append(testRecord(domain.OpGenerate, 200)))
	require.NoError(t, log.Append(testRecord(domain.OpEmbed, 300)))

	records, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Append order is preserved.
	assert.Equal(t, 100, records[0].InputUnits)
	assert.Equal(t, 200, records[1].InputUnits)
	assert.Equal(t, 300, records[2].InputUnits)

	assert.Equal(t, domain.OpEmbed, records[0].Operation)
	assert.Equal(t, "text-embedding-3-small", records[0].Model)
	assert.Equal(t, time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC), records[0].Timestamp.UTC())
}

func TestUsageLog_ReadAll_SkipsMalformedLines(t *testing.T) {
	log := testLog(t)

	require.NoError(t, log.Append(testRecord(domain.OpEmbed, 100)))

	// Simulate a torn write followed by a good record.
	f, err := os.OpenFile(log.Path(), os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("{\"operation\":\"emb\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, log.Append(testRecord(domain.OpGenerate, 200)))

	records, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 100, records[0].InputUnits)
	assert.Equal(t, 200, records[1].InputUnits)
}

func TestUsageLog_ReadAll_SkipsBlankLines(t *testing.T) {
	log := testLog(t)

	require.NoError(t, log.Append(testRecord(domain.OpEmbed, 100)))

	f, err := os.OpenFile(log.Path(), os.O_APPEND|os.O_WRONLY, 0600)
	require.NoError(t, err)
	_, err = f.WriteString("\n\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	records, err := log.ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestUsageLog_Truncate(t *testing.T) {
	log := testLog(t)

	require.NoError(t, log.Append(testRecord(domain.OpEmbed, 100)))
	require.NoError(t, log.Truncate())

	records, err := log.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, records)

	// Appending after truncation starts a fresh history.
	require.NoError(t, log.Append(testRecord(domain.OpGenerate, 200)))
	records, err = log.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 200, records[0].InputUnits)
}

func TestUsageLog_TruncateMissingFile(t *testing.T) {
	log := testLog(t)
	assert.NoError(t, log.Truncate())
}
