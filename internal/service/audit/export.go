package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/caedonai/lord-commander-sub000/internal/domain/audit"
	"github.com/caedonai/lord-commander-sub000/internal/domain/errors"
)

// exportEnvelope is the JSON export shape
type exportEnvelope struct {
	Metadata     *Metadata                 `json:"metadata,omitempty"`
	Entries      []*audit.Entry            `json:"entries"`
	Verification *audit.VerificationResult `json:"verification,omitempty"`
	ExportedAt   time.Time                 `json:"exported_at"`
}

var csvHeader = []string{
	"id", "timestamp", "event_type", "severity", "message", "outcome",
	"classification", "user_id", "session_id", "ip_address",
	"violations", "trace_id", "tags", "checksum", "previous_entry_hash",
}

// Export serializes a filtered view of the trail. Only json and csv are
// implemented; xml and pdf return ErrUnsupportedFormat. Export never
// mutates stored state, including when a fresh verification is bundled.
func (m *TrailManager) Export(ctx context.Context, opts ExportOptions) ([]byte, error) {
	switch opts.Format {
	case FormatJSON, FormatCSV:
	default:
		return nil, ErrUnsupportedFormat
	}

	result := m.QueryEntries(opts.Filter)

	if opts.Format == FormatCSV {
		return m.exportCSV(result.Entries)
	}
	return m.exportJSON(ctx, result.Entries, opts)
}

func (m *TrailManager) exportJSON(ctx context.Context, entries []*audit.Entry, opts ExportOptions) ([]byte, error) {
	envelope := exportEnvelope{
		Entries:    entries,
		ExportedAt: time.Now().UTC(),
	}
	if opts.IncludeMetadata {
		md := m.GetMetadata()
		envelope.Metadata = &md
	}
	if opts.IncludeVerification {
		envelope.Verification = m.VerifyIntegrity(ctx)
	}

	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		return nil, errors.NewInternalError("failed to serialize export").WithCause(err)
	}
	return data, nil
}

func (m *TrailManager) exportCSV(entries []*audit.Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, errors.NewInternalError("failed to write csv header").WithCause(err)
	}
	for _, entry := range entries {
		if err := w.Write(csvRow(entry)); err != nil {
			return nil, errors.NewInternalError("failed to write csv row").WithCause(err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.NewInternalError("csv export failed").WithCause(err)
	}
	return buf.Bytes(), nil
}

func csvRow(entry *audit.Entry) []string {
	var userID, sessionID, ipAddress string
	if uc := entry.UserContext; uc != nil {
		userID, sessionID, ipAddress = uc.UserID, uc.SessionID, uc.IPAddress
	}
	return []string{
		entry.ID.String(),
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		string(entry.EventType),
		string(entry.Severity),
		entry.Message,
		string(entry.Outcome),
		string(entry.Classification),
		userID,
		sessionID,
		ipAddress,
		strconv.Itoa(len(entry.SecurityViolations)),
		entry.TraceID,
		strings.Join(entry.Tags, ";"),
		entry.Checksum,
		entry.PreviousEntryHash,
	}
}
