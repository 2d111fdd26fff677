package audit

import (
	"sort"
	"strings"

	"github.com/caedonai/lord-commander-sub000/internal/domain/audit"
)

// QueryEntries returns the entries matching the filter, sorted and
// paginated. The query reads a snapshot; stored state is never mutated.
func (m *TrailManager) QueryEntries(filter QueryFilter) *QueryResult {
	matched := make([]*audit.Entry, 0)
	for _, entry := range m.storage.List() {
		if matches(entry, &filter) {
			matched = append(matched, entry)
		}
	}

	sortEntries(matched, filter.SortBy, filter.SortOrder)

	total := len(matched)
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	page := matched[offset:]
	if filter.Limit > 0 && len(page) > filter.Limit {
		page = page[:filter.Limit]
	}

	return &QueryResult{
		Entries:      page,
		TotalMatched: total,
		Limit:        filter.Limit,
		Offset:       offset,
		HasMore:      offset+len(page) < total,
	}
}

func matches(entry *audit.Entry, f *QueryFilter) bool {
	if !f.StartTime.IsZero() && entry.Timestamp.Before(f.StartTime) {
		return false
	}
	if !f.EndTime.IsZero() && entry.Timestamp.After(f.EndTime) {
		return false
	}
	if len(f.EventTypes) > 0 && !containsEventType(f.EventTypes, entry.EventType) {
		return false
	}
	if len(f.Severities) > 0 && !containsSeverity(f.Severities, entry.Severity) {
		return false
	}
	if len(f.Outcomes) > 0 && !containsOutcome(f.Outcomes, entry.Outcome) {
		return false
	}

	if f.UserID != "" || f.SessionID != "" || f.IPAddress != "" {
		uc := entry.UserContext
		if uc == nil {
			return false
		}
		if f.UserID != "" && uc.UserID != f.UserID {
			return false
		}
		if f.SessionID != "" && uc.SessionID != f.SessionID {
			return false
		}
		if f.IPAddress != "" && uc.IPAddress != f.IPAddress {
			return false
		}
	}

	if f.TextSearch != "" && !matchesText(entry, f.TextSearch) {
		return false
	}
	return true
}

func matchesText(entry *audit.Entry, needle string) bool {
	needle = strings.ToLower(needle)
	if strings.Contains(strings.ToLower(entry.Message), needle) {
		return true
	}
	for _, tag := range entry.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	if rc := entry.ResourceContext; rc != nil {
		if strings.Contains(strings.ToLower(rc.Resource), needle) ||
			strings.Contains(strings.ToLower(rc.Action), needle) {
			return true
		}
	}
	return false
}

func sortEntries(entries []*audit.Entry, field SortField, order SortOrder) {
	less := func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	}
	if field == SortBySeverity {
		less = func(i, j int) bool {
			ri, rj := entries[i].Severity.Rank(), entries[j].Severity.Rank()
			if ri != rj {
				return ri < rj
			}
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
	}
	if order == SortDesc {
		inner := less
		less = func(i, j int) bool { return inner(j, i) }
	}
	sort.SliceStable(entries, less)
}

func containsEventType(haystack []audit.EventType, needle audit.EventType) bool {
	for _, et := range haystack {
		if et == needle {
			return true
		}
	}
	return false
}

func containsSeverity(haystack []audit.Severity, needle audit.Severity) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsOutcome(haystack []audit.Outcome, needle audit.Outcome) bool {
	for _, o := range haystack {
		if o == needle {
			return true
		}
	}
	return false
}
