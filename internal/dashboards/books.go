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

// Vocabularies offered by the book form.
var (
	Subjects = []string{
		"Mathematics", "Maths(Basic)", "Maths(Standard)", "Science", "English",
		"Hindi", "Social Studies", "Physics", "Chemistry", "Biology",
		"Computer Science", "History", "Geography", "Economics",
		"Business Studies", "Accountancy", "Physical Education", "Art",
		"Music", "Sanskrit", "Environmental Studies", "General Knowledge",
	}
	Classes = []string{
		"Nursery", "KG", "1", "2", "3", "4", "5", "6", "7", "8",
		"9", "10", "11", "12", "College", "Competitive Exams",
	}
	Streams    = []string{"PCM", "PCB", "commerce"}
	Languages  = []string{"English", "Hindi", "Sanskrit", "Regional Languages"}
	Categories = []string{"set", "featured", "question bank", "sample paper", "book", "all in one"}
)

// BooksListPath is the book list endpoint, also used for option lists.
const BooksListPath = "books?limit=100"

// Books is the product catalogue. A "set" bundles other books by ID.
func Books(s Settings) *shell.Definition {
	return &shell.Definition{
		Name:  "books",
		Title: "Books",
		Schema: &form.Schema{
			Fields: []form.Field{
				{Name: "title", Label: "Title"},
				{Name: "author", Label: "Author"},
				{Name: "price", Label: "Price", Kind: form.Number},
				{Name: "MRP", Label: "MRP", Kind: form.Number},
				{Name: "stock", Label: "Stock", Kind: form.Number},
				{Name: "description", Label: "Description", Kind: form.HTML},
				{Name: "subject", Label: "Subject", Kind: form.Select, Options: Subjects},
				{Name: "subjects", Label: "Subjects", Kind: form.List, Options: Subjects},
				{Name: "class", Label: "Class", Kind: form.Select, Options: Classes},
				{Name: "isbn", Label: "ISBN"},
				{Name: "publisher", Label: "Publisher"},
				{Name: "publishYear", Label: "Publish year", Kind: form.Number},
				{Name: "pages", Label: "Pages", Kind: form.Number},
				{Name: "language", Label: "Language", Kind: form.Select, Options: Languages, Default: "English"},
				{Name: "category", Label: "Category", Kind: form.Select, Options: Categories, Default: "book"},
				{Name: "stream", Label: "Stream", Kind: form.Select, Options: Streams},
				{Name: "books", Label: "Books in set", Kind: form.Refs},
				{Name: "images", Label: "Images", Kind: form.Media},
				{Name: "video", Label: "Video", Kind: form.Media},
			},
			Rules: []form.Rule{
				form.Required("title", "Title is required"),
				form.Required("author", "Author is required"),
				form.Required("price", "Price is required"),
				form.Required("subject", "Subject is required"),
				form.Required("class", "Class is required"),
			},
		},
		Source:     store.Source{Path: BooksListPath, Keys: []string{"books"}},
		CreatePath: "v3/books",
		UpdatePath: "books/:id",
		DeletePath: "books/:id",
		Multipart:  true,
		Media: []shell.MediaField{
			{Field: "images", Limits: media.Limits{Max: s.MaxImages, MaxBytes: s.BookImageBytes, Category: media.Image}},
			{Field: "video", Limits: media.Limits{Max: 1, MaxBytes: s.VideoBytes, Category: media.Video}},
		},
		ResultKeys: []string{"book"},
		Search:     []string{"title", "author", "subject", "class"},
		Columns: []export.Column{
			{Header: "Title", Path: "title", Width: 32},
			{Header: "Author", Path: "author", Width: 20},
			{Header: "Price", Path: "price", Width: 8},
			{Header: "Category", Path: "category", Width: 14},
			{Header: "Class", Path: "class", Width: 8},
			{Header: "Stock", Path: "stock", Width: 6},
		},
		Filters: []shell.NamedFilter{
			equalsFilter("category", "category", Categories...),
			equalsFilter("class", "class", Classes...),
			equalsFilter("subject", "subject", Subjects...),
		},
		Stats: func(list []entity.Record, now time.Time) []store.Stat {
			return []store.Stat{
				total(list),
				count("Sets", list, store.FieldEquals("category", "set")),
				count("Out of stock", list, outOfStock),
				count("This month", list, store.SameMonth("createdAt", now)),
			}
		},
		Messages: shell.Messages{
			Created: "Book added successfully",
			Updated: "Book updated successfully",
			Deleted: "Book deleted successfully",
		},
	}
}

func outOfStock(r entity.Record) bool {
	n, ok := r.Float("stock")
	return ok && n <= 0
}

// BookOptions turns a book list into multi-select options tagged by
// category.
func BookOptions(books []entity.Record) []multiselect.Option {
	out := make([]multiselect.Option, 0, len(books))
	for _, b := range books {
		id := b.ID()
		if id == "" {
			continue
		}
		label := b.String("title")
		if cls := b.String("class"); cls != "" {
			label = fmt.Sprintf("%s (Class %s)", label, cls)
		}
		out = append(out, multiselect.Option{Value: id, Label: label, Tag: b.String("category")})
	}
	return out
}

// FetchBooks loads the book list for option pickers on other dashboards.
func FetchBooks(ctx context.Context, c store.Requester) ([]entity.Record, error) {
	env, err := c.Request(ctx, http.MethodGet, BooksListPath, nil)
	if err != nil {
		return nil, err
	}
	return env.Records("books")
}

// RemoveBookVideo detaches the video of a listed book.
func RemoveBookVideo(book entity.Record) shell.Action {
	return func(ctx context.Context, c store.Requester) (entity.Record, error) {
		env, err := c.Request(ctx, http.MethodPatch, shell.WithID("books/remove-video-from-book/:id", book.ID()), nil)
		if err != nil {
			return nil, err
		}
		if rec, err := env.Record("book"); err == nil && rec.ID() != "" {
			return rec, nil
		}
		out := book.Clone()
		delete(out, "video")
		return out, nil
	}
}
