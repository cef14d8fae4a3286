package dashboards

import (
	"sort"
	"strings"
	"time"

	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/export"
	"github.com/blackwell-systems/bookdesk/internal/shell"
	"github.com/blackwell-systems/bookdesk/internal/store"
)

// InquiryStatuses in display order. Unknown statuses sort after these.
var InquiryStatuses = []string{"New", "In Progress", "Replied", "Resolved"}

// sampleMarker identifies inquiries generated by sample downloads.
const sampleMarker = "sample download"

// Inquiries are contact-form submissions. Read-only, refreshed on a
// schedule.
func Inquiries(s Settings) *shell.Definition {
	return &shell.Definition{
		Name:   "inquiries",
		Title:  "Inquiries",
		Source: store.Source{Path: "v3/enquries", Keys: []string{"enquiries", "inquiries"}, Order: SortInquiries},
		Search: []string{"name", "email", "subject", "_id"},
		Columns: []export.Column{
			{Header: "Name", Path: "name", Width: 20},
			{Header: "Email", Path: "email", Width: 28},
			{Header: "Phone", Path: "number", Width: 12},
			{Header: "Subject", Path: "subject", Width: 20},
			{Header: "Profession", Path: "profession", Width: 10},
			{Header: "School", Path: "school", Width: 20},
			{Header: "Coaching", Path: "coachingName", Width: 20},
			{Header: "Standard", Path: "standard", Width: 8},
			{Header: "Students", Path: "noOfStudent", Width: 8},
			{Header: "City", Path: "city", Width: 12},
			{Header: "State", Path: "state", Width: 12},
			{Header: "Message", Path: "message", Width: 40},
			{Header: "Status", Path: "status", Width: 12},
			{Header: "Date", Value: inquiryDate, Width: 10},
		},
		Filters: []shell.NamedFilter{{
			Name:    "kind",
			Choices: []string{"sample", "customer"},
			Build: func(v string) store.Predicate {
				switch strings.ToLower(v) {
				case "sample":
					return isSample
				case "customer":
					return store.Not(isSample)
				}
				return nil
			},
		}},
		Stats: func(list []entity.Record, _ time.Time) []store.Stat {
			return []store.Stat{
				total(list),
				count("New", list, statusIs("New")),
				count("In Progress", list, statusIs("In Progress")),
				count("Resolved", list, statusIs("Resolved")),
			}
		},
		Refresh: s.InquiryRefresh,
	}
}

func isSample(r entity.Record) bool {
	return strings.Contains(strings.ToLower(r.String("message")), sampleMarker)
}

func statusIs(status string) store.Predicate {
	return func(r entity.Record) bool { return r.String("status") == status }
}

func statusRank(r entity.Record) int {
	s := r.String("status")
	for i, st := range InquiryStatuses {
		if s == st {
			return i
		}
	}
	return len(InquiryStatuses)
}

func inquiryTime(r entity.Record) time.Time {
	if t, ok := r.Time("createdAt"); ok {
		return t
	}
	t, _ := r.Time("date")
	return t
}

func inquiryDate(r entity.Record) string {
	t := inquiryTime(r)
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02")
}

// SortInquiries orders by status rank, then newest first.
func SortInquiries(list []entity.Record) {
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := statusRank(list[i]), statusRank(list[j])
		if ri != rj {
			return ri < rj
		}
		return inquiryTime(list[i]).After(inquiryTime(list[j]))
	})
}
