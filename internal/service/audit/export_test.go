package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caedonai/lord-commander-sub000/internal/domain/audit"
)

func seedExportTrail(t *testing.T, n int) *TrailManager {
	t.Helper()
	manager := newTestTrail(t, nil)
	ctx := context.Background()
	for i := 0; i < n; i++ {
		require.NoError(t, manager.RecordEvent(ctx,
			trailEntry(t, audit.SeverityInfo, fmt.Sprintf("event-%d", i))))
	}
	return manager
}

func TestExportUnsupportedFormats(t *testing.T) {
	manager := seedExportTrail(t, 1)

	for _, format := range []ExportFormat{FormatXML, FormatPDF, ExportFormat("yaml"), ""} {
		t.Run(string(format), func(t *testing.T) {
			_, err := manager.Export(context.Background(), ExportOptions{Format: format})
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, ErrUnsupportedFormat))
		})
	}
}

func TestExportJSONShape(t *testing.T) {
	manager := seedExportTrail(t, 3)

	data, err := manager.Export(context.Background(), ExportOptions{
		Format:              FormatJSON,
		IncludeMetadata:     true,
		IncludeVerification: true,
	})
	require.NoError(t, err)

	var envelope struct {
		Metadata *struct {
			TrailName         string `json:"trail_name"`
			TotalEntries      int    `json:"total_entries"`
			IntegrityStatus   string `json:"integrity_status"`
			ChecksumAlgorithm string `json:"checksum_algorithm"`
		} `json:"metadata"`
		Entries      []map[string]interface{} `json:"entries"`
		Verification *struct {
			Status          string `json:"status"`
			VerifiedEntries int    `json:"verified_entries"`
		} `json:"verification"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))

	require.NotNil(t, envelope.Metadata)
	assert.Equal(t, "audit-trail", envelope.Metadata.TrailName)
	assert.Equal(t, 3, envelope.Metadata.TotalEntries)
	assert.Equal(t, "sha256", envelope.Metadata.ChecksumAlgorithm)

	require.Len(t, envelope.Entries, 3)
	for _, entry := range envelope.Entries {
		assert.NotEmpty(t, entry["checksum"])
		_, hasPrev := entry["previous_entry_hash"]
		assert.True(t, hasPrev, "every exported entry carries its chain link")
	}

	require.NotNil(t, envelope.Verification)
	assert.Equal(t, "valid", envelope.Verification.Status)
	assert.Equal(t, 3, envelope.Verification.VerifiedEntries)
}

func TestExportJSONFilteredView(t *testing.T) {
	manager := newTestTrail(t, nil)
	ctx := context.Background()
	require.NoError(t, manager.RecordEvent(ctx, trailEntry(t, audit.SeverityInfo, "keep out")))
	require.NoError(t, manager.RecordEvent(ctx, trailEntry(t, audit.SeverityCritical, "include me")))

	data, err := manager.Export(ctx, ExportOptions{
		Format: FormatJSON,
		Filter: QueryFilter{Severities: []audit.Severity{audit.SeverityCritical}},
	})
	require.NoError(t, err)

	var envelope struct {
		Entries []struct {
			Message string `json:"message"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))
	require.Len(t, envelope.Entries, 1)
	assert.Equal(t, "include me", envelope.Entries[0].Message)
}

func TestExportCSV(t *testing.T) {
	manager := seedExportTrail(t, 4)

	data, err := manager.Export(context.Background(), ExportOptions{Format: FormatCSV})
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 5, "header plus one row per entry")

	assert.Equal(t, csvHeader, records[0])
	for _, row := range records[1:] {
		require.Len(t, row, len(csvHeader))
		assert.NotEmpty(t, row[0], "id column")
		assert.NotEmpty(t, row[13], "checksum column")
	}
}

func TestExportDoesNotMutateState(t *testing.T) {
	manager := seedExportTrail(t, 2)
	ctx := context.Background()

	before := manager.GetMetadata()
	_, err := manager.Export(ctx, ExportOptions{Format: FormatJSON, IncludeVerification: true})
	require.NoError(t, err)
	_, err = manager.Export(ctx, ExportOptions{Format: FormatCSV})
	require.NoError(t, err)

	after := manager.GetMetadata()
	assert.Equal(t, before.TotalEntries, after.TotalEntries)
	assert.Equal(t, before.SizeBytes, after.SizeBytes)

	result := manager.VerifyIntegrity(ctx)
	assert.True(t, result.IsValid())
}
