// Package migrate rewrites records the old console stored under legacy
// field names. Each rewrite is logged to a ledger so reruns skip finished
// records.
package migrate

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/blackwell-systems/bookdesk/internal/api"
	"github.com/blackwell-systems/bookdesk/internal/store"
)

// Outcome is what happened to one candidate.
type Outcome string

const (
	Migrated Outcome = "migrated"
	Skipped  Outcome = "skipped"
	Planned  Outcome = "planned"
	Failed   Outcome = "failed"
)

// Result reports one candidate.
type Result struct {
	Candidate
	Outcome Outcome
	Err     error
}

// Runner applies a Rename.
type Runner struct {
	Client store.Requester
	Ledger *Ledger
	Logger *zap.Logger
	DryRun bool
}

// Run scans for candidates and rewrites each one not yet in the ledger.
// A failed record does not stop the run.
func (r *Runner) Run(ctx context.Context, m Rename) ([]Result, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("migrate").With(zap.String("resource", m.Resource))

	candidates, err := Scan(ctx, r.Client, m)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := Result{Candidate: c}
		done, err := r.Ledger.Contains(m.Resource, c.ID)
		switch {
		case err != nil:
			return results, fmt.Errorf("reading ledger: %w", err)
		case done:
			res.Outcome = Skipped
		case r.DryRun:
			res.Outcome = Planned
		default:
			if err := r.apply(ctx, m, c); err != nil {
				log.Warn("rewrite failed", zap.String("id", c.ID), zap.Error(err))
				res.Outcome, res.Err = Failed, err
				break
			}
			if err := r.Ledger.Append(LedgerEntry{Resource: m.Resource, ID: c.ID, Field: m.Field, Values: c.Values}); err != nil {
				return results, fmt.Errorf("writing ledger: %w", err)
			}
			log.Info("rewrote", zap.String("id", c.ID), zap.Int("values", len(c.Values)))
			res.Outcome = Migrated
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *Runner) apply(ctx context.Context, m Rename, c Candidate) error {
	form := api.NewForm()
	if err := form.SetJSON(m.Field, c.Values); err != nil {
		return err
	}
	path := strings.ReplaceAll(m.Update, ":id", c.ID)
	_, err := r.Client.Request(ctx, http.MethodPut, path, form)
	return err
}

// Count tallies results by outcome.
func Count(results []Result) map[Outcome]int {
	out := make(map[Outcome]int, 4)
	for _, res := range results {
		out[res.Outcome]++
	}
	return out
}
