// Package dashboards declares every entity dashboard of the console: its
// endpoints, draft schema, rules, media bounds, search fields, columns,
// filters and statistics.
package dashboards

import (
	"fmt"
	"strings"
	"time"

	"github.com/blackwell-systems/bookdesk/internal/config"
	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/shell"
	"github.com/blackwell-systems/bookdesk/internal/store"
)

// Sidebar order.
var Names = []string{
	"orders",
	"books",
	"inquiries",
	"users",
	"banners",
	"offers",
	"testimonials",
	"pdfs",
	"reviews",
	"videos",
	"referrals",
}

// Settings carries the configurable parts of the definitions.
type Settings struct {
	MaxImages      int
	ImageBytes     int64
	BookImageBytes int64
	PDFBytes       int64
	VideoBytes     int64
	InquiryRefresh time.Duration
}

// DefaultSettings matches the limits the backend enforces.
func DefaultSettings() Settings {
	return Settings{
		MaxImages:      7,
		ImageBytes:     5 * config.MB,
		BookImageBytes: 7 * config.MB,
		PDFBytes:       10 * config.MB,
		InquiryRefresh: 5 * time.Minute,
	}
}

// FromConfig reads Settings from the loaded configuration.
func FromConfig(cfg *config.Config) Settings {
	return Settings{
		MaxImages:      cfg.Media.MaxImages,
		ImageBytes:     cfg.Media.ImageBytes,
		BookImageBytes: cfg.Media.BookImageBytes,
		PDFBytes:       cfg.Media.PDFBytes,
		VideoBytes:     cfg.Media.VideoBytes,
		InquiryRefresh: cfg.Inquiries.EffectiveRefresh(),
	}
}

// All returns every definition in sidebar order.
func All(s Settings) []*shell.Definition {
	out := make([]*shell.Definition, 0, len(Names))
	for _, name := range Names {
		d, _ := Lookup(name, s)
		out = append(out, d)
	}
	return out
}

// Lookup returns the named definition. Singular names and a few aliases
// are accepted.
func Lookup(name string, s Settings) (*shell.Definition, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "orders", "order":
		return Orders(), nil
	case "books", "book", "products":
		return Books(s), nil
	case "inquiries", "inquiry", "enquiries":
		return Inquiries(s), nil
	case "users", "user":
		return Users(), nil
	case "banners", "banner":
		return Banners(s), nil
	case "offers", "offer":
		return Offers(s), nil
	case "testimonials", "testimonial":
		return Testimonials(), nil
	case "pdfs", "pdf":
		return PDFs(s), nil
	case "reviews", "review":
		return Reviews(s), nil
	case "videos", "video":
		return Videos(s), nil
	case "referrals", "referral":
		return Referrals(), nil
	}
	return nil, fmt.Errorf("unknown dashboard %q (want one of %s)", name, strings.Join(Names, ", "))
}

// --- shared helpers ---

func total(list []entity.Record) store.Stat {
	return store.Stat{Label: "Total", Value: fmt.Sprint(len(list))}
}

func count(label string, list []entity.Record, p store.Predicate) store.Stat {
	return store.Stat{Label: label, Value: fmt.Sprint(store.Count(list, p))}
}

func isTrue(path string) store.Predicate {
	return func(r entity.Record) bool { return r.Bool(path) }
}

// activeFilter selects records by a boolean flag: "active" or "inactive".
func activeFilter(path string) shell.NamedFilter {
	return shell.NamedFilter{
		Name:    "active",
		Choices: []string{"active", "inactive"},
		Build: func(v string) store.Predicate {
			switch strings.ToLower(v) {
			case "active":
				return isTrue(path)
			case "inactive":
				return store.Not(isTrue(path))
			}
			return nil
		},
	}
}

func equalsFilter(name, path string, choices ...string) shell.NamedFilter {
	return shell.NamedFilter{
		Name:    name,
		Choices: choices,
		Build:   func(v string) store.Predicate { return store.FieldEquals(path, v) },
	}
}

func date(path string) func(entity.Record) string {
	return func(r entity.Record) string {
		t, ok := r.Time(path)
		if !ok {
			return r.String(path)
		}
		return t.Local().Format("2006-01-02")
	}
}

func yesNo(path string) func(entity.Record) string {
	return func(r entity.Record) string {
		if r.Bool(path) {
			return "yes"
		}
		return "no"
	}
}

func refCount(path string) func(entity.Record) string {
	return func(r entity.Record) string { return fmt.Sprint(len(r.Refs(path))) }
}
