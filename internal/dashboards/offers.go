package dashboards

import (
	"time"

	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/export"
	"github.com/blackwell-systems/bookdesk/internal/form"
	"github.com/blackwell-systems/bookdesk/internal/media"
	"github.com/blackwell-systems/bookdesk/internal/shell"
	"github.com/blackwell-systems/bookdesk/internal/store"
)

// Offer endpoints.
const (
	OffersListPath = "v1/offer"
	OfferPath      = "v3/offer/:id"
)

// Offers are time-boxed discounts over a set of books.
func Offers(s Settings) *shell.Definition {
	return &shell.Definition{
		Name:  "offers",
		Title: "Offers",
		Schema: &form.Schema{
			Fields: []form.Field{
				{Name: "discount", Label: "Discount (%)", Kind: form.Number},
				{Name: "start_time", Label: "Start", Kind: form.Date},
				{Name: "end_time", Label: "End", Kind: form.Date},
				{Name: "posterAlt", Label: "Poster alt text"},
				{Name: "offer_details", Label: "Details", Kind: form.HTML},
				{Name: "books", Label: "Books", Kind: form.Refs},
				{Name: "poster", Label: "Poster", Kind: form.Media},
			},
			Rules: []form.Rule{
				form.Positive("discount", "Valid discount is required"),
				form.Required("start_time", "Start date is required"),
				form.Required("end_time", "End date is required"),
				form.After("end_time", "start_time", "End date must be after start date"),
				form.Required("posterAlt", "Alt text is required for accessibility"),
				form.Required("offer_details", "Offer details are required"),
				form.MediaRequired("poster", "Poster image is required"),
				form.MinItems("books", 1, "At least one book must be selected"),
			},
		},
		Source:     store.Source{Path: OffersListPath, Keys: []string{"offers"}},
		CreatePath: "v3/offer",
		UpdatePath: OfferPath,
		DeletePath: OfferPath,
		Multipart:  true,
		Media: []shell.MediaField{{
			Field:     "poster",
			Part:      "file",
			Limits:    media.Limits{Max: 1, MaxBytes: s.ImageBytes, Category: media.Image},
			Persisted: posterSlots,
		}},
		ResultKeys: []string{"offer"},
		Search:     []string{"offer_details", "posterAlt"},
		Columns: []export.Column{
			{Header: "Details", Path: "offer_details", Width: 36},
			{Header: "Discount", Path: "discount", Width: 8},
			{Header: "Start", Value: date("start_time"), Width: 10},
			{Header: "End", Value: date("end_time"), Width: 10},
			{Header: "Books", Value: refCount("books"), Width: 5},
		},
		Filters: []shell.NamedFilter{{
			Name:    "active",
			Choices: []string{"active", "expired"},
			Build: func(v string) store.Predicate {
				now := time.Now()
				switch v {
				case "active":
					return store.Within("start_time", "end_time", now)
				case "expired":
					return func(r entity.Record) bool {
						end, ok := r.Time("end_time")
						return ok && end.Before(now)
					}
				}
				return nil
			},
		}},
		Stats: func(list []entity.Record, now time.Time) []store.Stat {
			return []store.Stat{
				total(list),
				count("Active", list, store.Within("start_time", "end_time", now)),
			}
		},
		Messages: shell.Messages{
			Created: "Offer created successfully",
			Updated: "Offer updated successfully",
			Deleted: "Offer deleted successfully",
		},
	}
}

func posterSlots(r entity.Record) []media.Slot {
	slots := shell.URLSlots(r["poster"])
	for i := range slots {
		if slots[i].Alt == "" {
			slots[i].Alt = r.String("posterAlt")
		}
	}
	return slots
}
