package analytics

import (
	"context"
	"sort"
	"time"

	"scradd/internal/storage"
)

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

type Report struct {
	Since   time.Time
	Total   int
	ByLevel map[string]int
	ByEvent map[string]int
	// Members flagged most often, highest first.
	TopUsers []UserCount
}

type UserCount struct {
	UserID string
	Count  int
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time, topN int) (Report, error) {
	logs, err := s.store.ListAuditLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{Since: since, ByLevel: make(map[string]int), ByEvent: make(map[string]int)}
	perUser := make(map[string]int)
	for _, log := range logs {
		report.Total++
		report.ByLevel[log.Level]++
		report.ByEvent[log.Event]++
		if log.UserID != "" && log.Level != "INFO" {
			perUser[log.UserID]++
		}
	}

	for userID, count := range perUser {
		report.TopUsers = append(report.TopUsers, UserCount{UserID: userID, Count: count})
	}
	sort.Slice(report.TopUsers, func(i, j int) bool {
		if report.TopUsers[i].Count != report.TopUsers[j].Count {
			return report.TopUsers[i].Count > report.TopUsers[j].Count
		}
		return report.TopUsers[i].UserID < report.TopUsers[j].UserID
	})
	if topN >= 0 && len(report.TopUsers) > topN {
		report.TopUsers = report.TopUsers[:topN]
	}
	return report, nil
}

// Events returns the event names of the report sorted by count, highest first.
func (r Report) Events() []string {
	names := make([]string, 0, len(r.ByEvent))
	for name := range r.ByEvent {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if r.ByEvent[names[i]] != r.ByEvent[names[j]] {
			return r.ByEvent[names[i]] > r.ByEvent[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
