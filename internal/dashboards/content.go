package dashboards

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/export"
	"github.com/blackwell-systems/bookdesk/internal/form"
	"github.com/blackwell-systems/bookdesk/internal/media"
	"github.com/blackwell-systems/bookdesk/internal/shell"
	"github.com/blackwell-systems/bookdesk/internal/store"
	"github.com/blackwell-systems/bookdesk/internal/tui/multiselect"
)

// Banners are the storefront hero slides.
func Banners(s Settings) *shell.Definition {
	return &shell.Definition{
		Name:  "banners",
		Title: "Banners",
		Schema: &form.Schema{
			Fields: []form.Field{
				{Name: "title", Label: "Title"},
				{Name: "subtitle", Label: "Subtitle"},
				{Name: "ctaText", Label: "Button text", Default: "Shop Now"},
				{Name: "ctaLink", Label: "Button link", Default: "/books"},
				{Name: "isActive", Label: "Active", Kind: form.Bool},
				{Name: "position", Label: "Position", Kind: form.Number, Default: "1"},
				{Name: "image", Label: "Image", Kind: form.Media},
			},
			Rules: []form.Rule{
				form.Required("title", "Title is required"),
				form.MediaRequired("image", "Image is required"),
			},
		},
		Source:     store.Source{Path: "v3/banner", Keys: []string{"banners"}},
		CreatePath: "v3/banner",
		DeletePath: "v3/banner/:id",
		Multipart:  true,
		Media: []shell.MediaField{
			{Field: "image", Part: "file", Limits: media.Limits{Max: 1, MaxBytes: s.ImageBytes, Category: media.Image}},
		},
		ResultKeys: []string{"banner"},
		Search:     []string{"title", "subtitle"},
		Columns: []export.Column{
			{Header: "Title", Path: "title", Width: 28},
			{Header: "Subtitle", Path: "subtitle", Width: 28},
			{Header: "Button", Path: "ctaText", Width: 12},
			{Header: "Position", Path: "position", Width: 8},
			{Header: "Active", Value: yesNo("isActive"), Width: 6},
		},
		Filters: []shell.NamedFilter{activeFilter("isActive")},
		Stats: func(list []entity.Record, _ time.Time) []store.Stat {
			return []store.Stat{total(list), count("Active", list, isTrue("isActive"))}
		},
		Messages: shell.Messages{
			Created: "Banner added successfully!",
			Deleted: "Banner deleted successfully!",
		},
	}
}

// ToggleBanner flips a listed banner's active flag.
func ToggleBanner(banner entity.Record) shell.Action {
	return func(ctx context.Context, c store.Requester) (entity.Record, error) {
		next := !banner.Bool("isActive")
		env, err := c.Request(ctx, http.MethodPatch, shell.WithID("v3/banner/status/:id", banner.ID()), map[string]any{"isActive": next})
		if err != nil {
			return nil, err
		}
		if rec, err := env.Record("banner"); err == nil && rec.ID() != "" {
			return rec, nil
		}
		out := banner.Clone()
		out["isActive"] = next
		return out, nil
	}
}

// ToggleMessage is the notice shown after ToggleBanner.
func ToggleMessage(banner entity.Record) string {
	if banner.Bool("isActive") {
		return "Banner deactivated"
	}
	return "Banner activated"
}

// Reviews are customer reviews attached to a book.
func Reviews(s Settings) *shell.Definition {
	return &shell.Definition{
		Name:  "reviews",
		Title: "Reviews",
		Schema: &form.Schema{
			Fields: []form.Field{
				{Name: "custumerName", Label: "Customer name"},
				{Name: "book", Label: "Book", Kind: form.Select},
				{Name: "rating", Label: "Rating", Kind: form.Number},
				{Name: "message", Label: "Message"},
				{Name: "image", Label: "Photo", Kind: form.Media},
			},
			Rules: []form.Rule{
				form.Required("custumerName", "Customer name is required"),
				form.Required("book", "Book is required"),
				form.Required("message", "Message is required"),
				form.Range("rating", 1, 5, "Rating must be between 1 and 5"),
			},
		},
		Source:     store.Source{Path: "v3/book-reviews", Keys: []string{"reviews"}},
		CreatePath: "v3/book-reviews",
		DeletePath: "v3/book-reviews/:id",
		Multipart:  true,
		Media: []shell.MediaField{
			{Field: "image", Part: "file", Limits: media.Limits{Max: 1, MaxBytes: s.ImageBytes, Category: media.Image}},
		},
		ResultKeys: []string{"review"},
		Search:     []string{"custumerName", "book.title", "message"},
		Columns: []export.Column{
			{Header: "Customer", Path: "custumerName", Width: 20},
			{Header: "Book", Value: titleOrID("book"), Width: 28},
			{Header: "Rating", Path: "rating", Width: 6},
			{Header: "Message", Path: "message", Width: 40},
		},
		Stats: func(list []entity.Record, now time.Time) []store.Stat {
			return []store.Stat{
				total(list),
				average("Average rating", list, "rating"),
				count("This month", list, store.SameMonth("createdAt", now)),
			}
		},
		Messages: shell.Messages{
			Created: "Review added successfully",
			Deleted: "Review deleted successfully",
		},
	}
}

// Testimonials are storefront quotes. They carry no media and go out as
// JSON.
func Testimonials() *shell.Definition {
	return &shell.Definition{
		Name:  "testimonials",
		Title: "Testimonials",
		Schema: &form.Schema{
			Fields: []form.Field{
				{Name: "userName", Label: "Name"},
				{Name: "message", Label: "Message"},
				{Name: "rating", Label: "Rating", Kind: form.Number, Default: "5"},
			},
			Rules: []form.Rule{
				form.Required("userName", "Name is required"),
				form.Required("message", "Message is required"),
				form.Range("rating", 1, 5, "Rating must be between 1 and 5"),
			},
		},
		Source:     store.Source{Path: "v3/testimonials", Keys: []string{"testimonials"}},
		CreatePath: "v3/testimonials",
		DeletePath: "v3/testimonials/:id",
		ResultKeys: []string{"testimonial"},
		Search:     []string{"userName", "message"},
		Columns: []export.Column{
			{Header: "Name", Path: "userName", Width: 20},
			{Header: "Rating", Path: "rating", Width: 6},
			{Header: "Message", Path: "message", Width: 48},
			{Header: "Date", Value: date("createdAt"), Width: 10},
		},
		Stats: func(list []entity.Record, now time.Time) []store.Stat {
			return []store.Stat{
				total(list),
				count("5-star", list, fiveStar),
				average("Average rating", list, "rating"),
				count("This month", list, store.SameMonth("createdAt", now)),
			}
		},
		Messages: shell.Messages{
			Created: "Testimonial added successfully",
			Deleted: "Testimonial deleted successfully",
		},
	}
}

func fiveStar(r entity.Record) bool {
	n, ok := r.Float("rating")
	return ok && n == 5
}

func average(label string, list []entity.Record, path string) store.Stat {
	avg, ok := store.Average(list, path)
	if !ok {
		return store.Stat{Label: label, Value: "0.0"}
	}
	return store.Stat{Label: label, Value: fmt.Sprintf("%.1f", avg)}
}

// PDFs are downloadable sample chapters, at most one per book.
func PDFs(s Settings) *shell.Definition {
	return &shell.Definition{
		Name:  "pdfs",
		Title: "PDFs",
		Schema: &form.Schema{
			Fields: []form.Field{
				{Name: "pdfName", Label: "Name"},
				{Name: "bookId", Label: "Book", Kind: form.Select},
				{Name: "pdf", Label: "File", Kind: form.Media},
			},
			Rules: []form.Rule{
				form.Required("pdfName", "PDF name is required"),
				form.Required("bookId", "Please select a book"),
				form.MediaRequired("pdf", "Please select a PDF file"),
			},
		},
		Source:     store.Source{Path: "v3/pdf", Keys: []string{"pdfs"}},
		CreatePath: "v3/pdf",
		DeletePath: "v3/pdf/:id",
		Multipart:  true,
		Media: []shell.MediaField{
			{Field: "pdf", Part: "file", Limits: media.Limits{Max: 1, MaxBytes: s.PDFBytes, Category: media.PDF}},
		},
		ResultKeys: []string{"pdf"},
		Search:     []string{"pdfName", "bookId.title"},
		Columns: []export.Column{
			{Header: "Name", Path: "pdfName", Width: 28},
			{Header: "Book", Value: titleOrID("bookId"), Width: 28},
			{Header: "URL", Path: "pdfUrl", Width: 40},
			{Header: "Uploaded", Value: date("createdAt"), Width: 10},
		},
		Stats: func(list []entity.Record, now time.Time) []store.Stat {
			return []store.Stat{total(list), count("This month", list, store.SameMonth("createdAt", now))}
		},
		Messages: shell.Messages{
			Created: "PDF uploaded successfully!",
			Deleted: "PDF deleted successfully",
		},
	}
}

// AllPDFsPath lists every PDF with its book, for option filtering.
const AllPDFsPath = "v1/all-pdf"

// PDFBookOptions lists the books that do not have a PDF yet.
func PDFBookOptions(ctx context.Context, c store.Requester, books []entity.Record) ([]multiselect.Option, error) {
	env, err := c.Request(ctx, http.MethodGet, AllPDFsPath, nil)
	if err != nil {
		return nil, err
	}
	pdfs, err := env.Records("pdfs")
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(pdfs))
	for _, p := range pdfs {
		for _, id := range entity.RefIDs(p["bookId"]) {
			taken[id] = true
		}
	}
	return multiselect.Without(BookOptions(books), taken), nil
}

// Videos are standalone review videos.
func Videos(s Settings) *shell.Definition {
	return &shell.Definition{
		Name:  "videos",
		Title: "Videos",
		Schema: &form.Schema{
			Fields: []form.Field{
				{Name: "title", Label: "Title"},
				{Name: "description", Label: "Description"},
				{Name: "video", Label: "Video", Kind: form.Media},
			},
			Rules: []form.Rule{
				form.Required("title", "Title is required"),
				form.MediaRequired("video", "Please select a video"),
			},
		},
		Source:     store.Source{Path: "v3/videos", Keys: []string{"videos"}},
		CreatePath: "v3/videos",
		DeletePath: "v3/videos/:id",
		Multipart:  true,
		Media: []shell.MediaField{
			{Field: "video", Limits: media.Limits{Max: 1, MaxBytes: s.VideoBytes, Category: media.Video}},
		},
		ResultKeys: []string{"video"},
		Search:     []string{"title", "description"},
		Columns: []export.Column{
			{Header: "Title", Path: "title", Width: 28},
			{Header: "Description", Path: "description", Width: 40},
			{Header: "URL", Path: "videoUrl", Width: 40},
		},
		Messages: shell.Messages{
			Created: "Video uploaded successfully",
			Deleted: "Video deleted successfully",
		},
	}
}

// titleOrID renders a populated reference by title, else its ID.
func titleOrID(path string) func(entity.Record) string {
	return func(r entity.Record) string {
		if t := r.String(path + ".title"); t != "" {
			return t
		}
		return r.String(path)
	}
}
