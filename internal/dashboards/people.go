package dashboards

import (
	"math"
	"time"

	"github.com/blackwell-systems/bookdesk/internal/entity"
	"github.com/blackwell-systems/bookdesk/internal/export"
	"github.com/blackwell-systems/bookdesk/internal/form"
	"github.com/blackwell-systems/bookdesk/internal/shell"
	"github.com/blackwell-systems/bookdesk/internal/store"
)

// OwnerTypes are the referral owner kinds.
var OwnerTypes = []string{"student", "teacher"}

// Referrals are generated referral codes. Codes are issued by the server;
// the draft only names the owner.
func Referrals() *shell.Definition {
	return &shell.Definition{
		Name:  "referrals",
		Title: "Referral Codes",
		Schema: &form.Schema{
			Fields: []form.Field{
				{Name: "ownerName", Label: "Owner name"},
				{Name: "ownerEmail", Label: "Owner email"},
				{Name: "ownerType", Label: "Owner type", Kind: form.Select, Options: OwnerTypes, Default: "student"},
				{Name: "maxUses", Label: "Max uses", Kind: form.Number, Default: "5"},
				{Name: "redeemableamount", Label: "Redeemable amount", Kind: form.Number},
			},
			Rules: []form.Rule{
				form.Required("ownerName", "Owner name is required"),
				form.Required("ownerEmail", "Owner email is required"),
				form.Email("ownerEmail", "Enter a valid email"),
				form.Range("maxUses", 1, math.MaxInt32, "Max uses must be at least 1"),
			},
		},
		Source:     store.Source{Path: "v3/referral/getAll", Keys: []string{"referrals"}},
		CreatePath: "v3/referral/generate-teacher-referral",
		ResultKeys: []string{"referral"},
		Search:     []string{"code", "ownerEmail", "ownerName"},
		Columns: []export.Column{
			{Header: "Code", Path: "code", Width: 12},
			{Header: "Owner", Path: "ownerName", Width: 20},
			{Header: "Email", Path: "ownerEmail", Width: 28},
			{Header: "Type", Path: "ownerType", Width: 8},
			{Header: "Used", Path: "usedCount", Width: 5},
			{Header: "Max", Path: "maxUses", Width: 5},
			{Header: "Amount", Path: "redeemableamount", Width: 8},
			{Header: "Active", Value: yesNo("isActive"), Width: 6},
		},
		Filters: []shell.NamedFilter{
			equalsFilter("ownerType", "ownerType", OwnerTypes...),
			activeFilter("isActive"),
		},
		Stats: func(list []entity.Record, _ time.Time) []store.Stat {
			active := store.Count(list, isTrue("isActive"))
			return []store.Stat{
				total(list),
				count("Active", list, isTrue("isActive")),
				{Label: "Inactive", Value: itoa(len(list) - active)},
			}
		},
		Messages: shell.Messages{Created: "Referral Code Generated Successfully"},
	}
}

// Users are registered storefront customers. Read-only.
func Users() *shell.Definition {
	return &shell.Definition{
		Name:   "users",
		Title:  "users",
		Source: store.Source{Path: "v3/getAllRegisterUsers", Keys: []string{"users"}},
		Search: []string{"name", "email", "number", "address.city"},
		Columns: []export.Column{
			{Header: "Name", Path: "name", Width: 20},
			{Header: "Email", Path: "email", Width: 28},
			{Header: "Phone", Path: "number", Width: 12},
			{Header: "City", Path: "address.city", Width: 14},
			{Header: "Role", Path: "role", Width: 8},
		},
		Stats: func(list []entity.Record, now time.Time) []store.Stat {
			return []store.Stat{total(list), count("This month", list, store.SameMonth("createdAt", now))}
		},
	}
}
