package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caedonai/lord-commander-sub000/internal/domain/audit"
)

// seedQueryTrail records a mixed set of entries for filter tests
func seedQueryTrail(t *testing.T) *TrailManager {
	t.Helper()
	manager := newTestTrail(t, nil)
	ctx := context.Background()

	entries := []struct {
		eventType audit.EventType
		severity  audit.Severity
		outcome   audit.Outcome
		message   string
		user      *audit.UserContext
	}{
		{audit.EventSystem, audit.SeverityInfo, audit.OutcomeSuccess, "startup complete", nil},
		{audit.EventSecurityViolation, audit.SeverityCritical, audit.OutcomeFailure,
			"traversal attempt blocked", &audit.UserContext{UserID: "mallory", SessionID: "s-1", IPAddress: "10.0.0.9"}},
		{audit.EventCommandExecution, audit.SeverityInfo, audit.OutcomeSuccess,
			"ran migration", &audit.UserContext{UserID: "alice", SessionID: "s-2"}},
		{audit.EventSecurityViolation, audit.SeverityHigh, audit.OutcomeFailure,
			"sql probe detected", &audit.UserContext{UserID: "mallory", SessionID: "s-1", IPAddress: "10.0.0.9"}},
		{audit.EventFileAccess, audit.SeverityMedium, audit.OutcomePartial, "partial read of ledger", nil},
	}

	for _, spec := range entries {
		builder := audit.NewEntryBuilder(spec.eventType).
			WithSeverity(spec.severity).
			WithMessage(spec.message).
			WithOutcome(spec.outcome)
		if spec.user != nil {
			builder = builder.WithUser(spec.user.UserID, "", spec.user.SessionID, spec.user.IPAddress)
		}
		if spec.eventType == audit.EventSecurityViolation {
			builder = builder.WithTag("security")
		}
		entry, err := builder.Build()
		require.NoError(t, err)
		require.NoError(t, manager.RecordEvent(ctx, entry))
	}
	return manager
}

func TestQueryNoFilterReturnsAll(t *testing.T) {
	manager := seedQueryTrail(t)

	result := manager.QueryEntries(QueryFilter{})
	assert.Equal(t, 5, result.TotalMatched)
	assert.Len(t, result.Entries, 5)
	assert.False(t, result.HasMore)
}

func TestQueryByEventTypeAndSeverity(t *testing.T) {
	manager := seedQueryTrail(t)

	result := manager.QueryEntries(QueryFilter{
		EventTypes: []audit.EventType{audit.EventSecurityViolation},
	})
	assert.Equal(t, 2, result.TotalMatched)

	result = manager.QueryEntries(QueryFilter{
		EventTypes: []audit.EventType{audit.EventSecurityViolation},
		Severities: []audit.Severity{audit.SeverityCritical},
	})
	require.Equal(t, 1, result.TotalMatched)
	assert.Equal(t, "traversal attempt blocked", result.Entries[0].Message)
}

func TestQueryByUserAndSession(t *testing.T) {
	manager := seedQueryTrail(t)

	result := manager.QueryEntries(QueryFilter{UserID: "mallory"})
	assert.Equal(t, 2, result.TotalMatched)

	result = manager.QueryEntries(QueryFilter{SessionID: "s-2"})
	require.Equal(t, 1, result.TotalMatched)
	assert.Equal(t, "alice", result.Entries[0].UserContext.UserID)

	result = manager.QueryEntries(QueryFilter{IPAddress: "10.0.0.9"})
	assert.Equal(t, 2, result.TotalMatched)

	// Entries without user context never match identity filters
	result = manager.QueryEntries(QueryFilter{UserID: "nobody"})
	assert.Zero(t, result.TotalMatched)
}

func TestQueryByOutcomeAndTimeRange(t *testing.T) {
	manager := seedQueryTrail(t)

	result := manager.QueryEntries(QueryFilter{
		Outcomes: []audit.Outcome{audit.OutcomeFailure},
	})
	assert.Equal(t, 2, result.TotalMatched)

	// A window entirely in the past matches nothing
	past := time.Now().UTC().Add(-time.Hour)
	result = manager.QueryEntries(QueryFilter{
		StartTime: past.Add(-time.Hour),
		EndTime:   past,
	})
	assert.Zero(t, result.TotalMatched)
}

func TestQueryTextSearch(t *testing.T) {
	manager := seedQueryTrail(t)

	result := manager.QueryEntries(QueryFilter{TextSearch: "TRAVERSAL"})
	require.Equal(t, 1, result.TotalMatched, "text search is case-insensitive")

	result = manager.QueryEntries(QueryFilter{TextSearch: "security"})
	assert.Equal(t, 2, result.TotalMatched, "tags are searched too")
}

func TestQuerySortAndPagination(t *testing.T) {
	manager := newTestTrail(t, nil)
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, manager.RecordEvent(ctx,
			trailEntry(t, audit.SeverityInfo, fmt.Sprintf("event-%02d", i))))
	}

	page1 := manager.QueryEntries(QueryFilter{
		SortBy:    SortByTimestamp,
		SortOrder: SortDesc,
		Limit:     4,
	})
	require.Len(t, page1.Entries, 4)
	assert.Equal(t, 10, page1.TotalMatched)
	assert.True(t, page1.HasMore)
	assert.Equal(t, "event-09", page1.Entries[0].Message, "descending starts at the newest")

	page3 := manager.QueryEntries(QueryFilter{
		SortBy:    SortByTimestamp,
		SortOrder: SortDesc,
		Limit:     4,
		Offset:    8,
	})
	require.Len(t, page3.Entries, 2)
	assert.False(t, page3.HasMore)
	assert.Equal(t, "event-00", page3.Entries[1].Message)
}

func TestQuerySortBySeverity(t *testing.T) {
	manager := seedQueryTrail(t)

	result := manager.QueryEntries(QueryFilter{
		SortBy:    SortBySeverity,
		SortOrder: SortDesc,
	})
	require.Len(t, result.Entries, 5)
	assert.Equal(t, audit.SeverityCritical, result.Entries[0].Severity)
	assert.Equal(t, audit.SeverityInfo, result.Entries[len(result.Entries)-1].Severity)
}

func TestQueryOffsetPastEnd(t *testing.T) {
	manager := seedQueryTrail(t)

	result := manager.QueryEntries(QueryFilter{Offset: 50})
	assert.Empty(t, result.Entries)
	assert.Equal(t, 5, result.TotalMatched)
	assert.False(t, result.HasMore)
}
