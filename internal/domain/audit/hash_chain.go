package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// BreakType categorizes a detected chain defect
type BreakType string

const (
	BreakTypeChecksumMismatch BreakType = "checksum_mismatch"
	BreakTypeChainBroken      BreakType = "chain_broken"
	BreakTypeUnsealedEntry    BreakType = "unsealed_entry"
)

// ChainBreak describes one defect found during verification
type ChainBreak struct {
	EntryID          string    `json:"entry_id"`
	Timestamp        time.Time `json:"timestamp"`
	BreakType        BreakType `json:"break_type"`
	ExpectedChecksum string    `json:"expected_checksum,omitempty"`
	ActualChecksum   string    `json:"actual_checksum,omitempty"`
	Description      string    `json:"description"`
	PreviousEntryID  string    `json:"previous_entry_id,omitempty"`
}

// VerificationResult summarizes a full integrity walk over a trail
type VerificationResult struct {
	Status           IntegrityStatus `json:"status"`
	VerifiedEntries  int             `json:"verified_entries"`
	CorruptedEntries []*ChainBreak   `json:"corrupted_entries,omitempty"`
	Digest           string          `json:"digest"`
	VerifiedAt       time.Time       `json:"verified_at"`
	Duration         time.Duration   `json:"duration"`
}

// IsValid reports whether the walk found no defects
func (r *VerificationResult) IsValid() bool {
	return r.Status == IntegrityValid
}

// ChainVerifier re-verifies the hash chain of a stored trail.
// Verification is read-only: defects are reported as data, never raised
// as errors, so the caller chooses the remediation.
type ChainVerifier struct {
	algorithm ChecksumAlgorithm
}

// NewChainVerifier creates a verifier for trails sealed with the given algorithm
func NewChainVerifier(algorithm ChecksumAlgorithm) *ChainVerifier {
	return &ChainVerifier{algorithm: algorithm}
}

// Verify walks entries in timestamp order, recomputing each checksum and
// comparing each entry's previous-hash link against the recomputed
// checksum of its chronological predecessor. Comparing against the
// recomputed value (not the stored one) makes a single corrupted entry
// surface twice: once as a checksum mismatch on itself and once as a
// chain break on its successor.
func (v *ChainVerifier) Verify(entries []*Entry) *VerificationResult {
	start := time.Now()
	result := &VerificationResult{
		Status:           IntegrityValid,
		CorruptedEntries: []*ChainBreak{},
		VerifiedAt:       start.UTC(),
	}

	sorted := make([]*Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var prevRecomputed string
	var prevID string
	for i, entry := range sorted {
		result.VerifiedEntries++

		if !entry.IsSealed() {
			result.CorruptedEntries = append(result.CorruptedEntries, &ChainBreak{
				EntryID:     entry.ID.String(),
				Timestamp:   entry.Timestamp,
				BreakType:   BreakTypeUnsealedEntry,
				Description: "entry persisted without a checksum",
			})
			prevRecomputed = ""
			prevID = entry.ID.String()
			continue
		}

		recomputed, err := entry.ComputeChecksum(v.algorithm)
		if err != nil {
			result.CorruptedEntries = append(result.CorruptedEntries, &ChainBreak{
				EntryID:     entry.ID.String(),
				Timestamp:   entry.Timestamp,
				BreakType:   BreakTypeChecksumMismatch,
				Description: fmt.Sprintf("checksum recomputation failed: %v", err),
			})
			prevRecomputed = ""
			prevID = entry.ID.String()
			continue
		}

		if recomputed != entry.Checksum {
			result.CorruptedEntries = append(result.CorruptedEntries, &ChainBreak{
				EntryID:          entry.ID.String(),
				Timestamp:        entry.Timestamp,
				BreakType:        BreakTypeChecksumMismatch,
				ExpectedChecksum: recomputed,
				ActualChecksum:   entry.Checksum,
				Description:      "stored checksum does not match recomputed value",
			})
		}

		if i > 0 && entry.PreviousEntryHash != prevRecomputed {
			result.CorruptedEntries = append(result.CorruptedEntries, &ChainBreak{
				EntryID:          entry.ID.String(),
				Timestamp:        entry.Timestamp,
				BreakType:        BreakTypeChainBroken,
				ExpectedChecksum: prevRecomputed,
				ActualChecksum:   entry.PreviousEntryHash,
				Description:      "previous-entry hash does not match predecessor checksum",
				PreviousEntryID:  prevID,
			})
		}

		prevRecomputed = recomputed
		prevID = entry.ID.String()
	}

	if len(result.CorruptedEntries) > 0 {
		result.Status = IntegrityCorrupted
	}
	result.Digest = ComputeChainDigest(sorted)
	result.Duration = time.Since(start)
	return result
}

// ComputeChainDigest produces a single hex digest over all per-entry
// checksums in timestamp order, suitable for external anchoring.
func ComputeChainDigest(entries []*Entry) string {
	h := sha256.New()
	for _, entry := range entries {
		h.Write([]byte(entry.Checksum))
		h.Write([]byte{'|'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
