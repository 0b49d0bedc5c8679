// Package resolve repairs on-disk asset state: misnamed files are
// renamed, completed transfers replace their placeholders, and stubs
// with no real successor are removed. All mutations for a reconcile
// pass run on the calling goroutine, grouped and ordered by logical
// name, so the delete-then-rename sequence for a name can never race
// with itself.
package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/modelkeep/modelkeep/internal/classify"
	"github.com/modelkeep/modelkeep/internal/scan"
	"github.com/modelkeep/modelkeep/pkg/logger"
)

// ActionKind labels one resolver outcome.
type ActionKind string

const (
	ActionFixed                ActionKind = "fixed"
	ActionReplaced             ActionKind = "replaced"
	ActionSkippedExistingValid ActionKind = "skipped_existing_valid"
	ActionRemoved              ActionKind = "removed"
	ActionNone                 ActionKind = "none"
)

// Action records one decision, taken or skipped, with its reason.
type Action struct {
	Kind     ActionKind    `json:"kind"`
	Name     string        `json:"name"`
	Category scan.Category `json:"category"`
	Path     string        `json:"path"`
	NewPath  string        `json:"new_path,omitempty"`
	Reason   string        `json:"reason"`
	Warning  bool          `json:"warning,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// Report enumerates everything a reconcile pass did or declined to do.
type Report struct {
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Scanned     int           `json:"scanned"`
	ValidAssets int           `json:"valid_assets"`
	Mutations   int           `json:"mutations"`
	Warnings    int           `json:"warnings"`
	DryRun      bool          `json:"dry_run,omitempty"`
	Actions     []Action      `json:"actions"`
}

// Resolver applies the conflict rule table to a classified candidate set.
type Resolver struct {
	classifier *classify.Classifier
	dryRun     bool
}

// New creates a resolver. In dry-run mode the full report is produced
// but the filesystem is never touched.
func New(classifier *classify.Classifier, dryRun bool) *Resolver {
	return &Resolver{classifier: classifier, dryRun: dryRun}
}

// member pairs a candidate with its classification for one pass.
type member struct {
	cand scan.Candidate
	res  classify.Result
}

// groupKey identifies one logical name within one directory. Grouping
// by directory keeps repairs local: a candidate never migrates across
// storage roots or categories.
type groupKey struct {
	dir  string
	name string
}

// Resolve classifies every candidate and applies the rule table group
// by group. It never deletes a file classified Valid, and it never
// aborts the pass for a single candidate's failure.
func (r *Resolver) Resolve(ctx context.Context, candidates []scan.Candidate) (*Report, error) {
	report := &Report{StartedAt: time.Now(), Scanned: len(candidates), DryRun: r.dryRun}

	groups := make(map[groupKey][]member)
	for _, cand := range candidates {
		res := r.classifier.Classify(cand)
		if res.Class == classify.Valid {
			report.ValidAssets++
		}
		key := groupKey{dir: filepath.Dir(cand.Path), name: cand.Name}
		groups[key] = append(groups[key], member{cand: cand, res: res})
	}

	keys := make([]groupKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].dir != keys[j].dir {
			return keys[i].dir < keys[j].dir
		}
		return keys[i].name < keys[j].name
	})

	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(report.StartedAt)
			return report, err
		}
		r.resolveGroup(key, groups[key], report)
	}

	report.Duration = time.Since(report.StartedAt)
	return report, nil
}

// resolveGroup applies the ordered rules to all candidates sharing one
// logical name in one directory.
func (r *Resolver) resolveGroup(key groupKey, members []member, report *Report) {
	var canon *member
	var repairs []member
	for i := range members {
		m := members[i]
		switch m.cand.Shape {
		case scan.ShapeSingle:
			canon = &members[i]
		default:
			repairs = append(repairs, m)
		}
	}
	// Doubles before parts, then larger first, so the promotion slot
	// goes to the strongest candidate deterministically.
	sort.Slice(repairs, func(i, j int) bool {
		if repairs[i].cand.Shape != repairs[j].cand.Shape {
			return repairs[i].cand.Shape == scan.ShapeDouble
		}
		return repairs[i].cand.SizeBytes > repairs[j].cand.SizeBytes
	})

	canonical := filepath.Join(key.dir, scan.CanonicalName(key.name))
	canonValid := canon != nil && canon.res.Class == classify.Valid
	promoted := false
	canonHandled := false

	for _, repair := range repairs {
		large := repair.cand.SizeBytes >= r.classifier.MinValid()

		switch {
		case canonValid || promoted:
			if large {
				// Two plausible real files for one name is an operator
				// problem, never an automatic one.
				r.record(report, Action{
					Kind:     ActionSkippedExistingValid,
					Name:     key.name,
					Category: repair.cand.Category,
					Path:     repair.cand.Path,
					Reason:   "ambiguous conflict: a valid asset already occupies the canonical name",
					Warning:  true,
				})
			} else {
				r.record(report, Action{
					Kind:     ActionNone,
					Name:     key.name,
					Category: repair.cand.Category,
					Path:     repair.cand.Path,
					Reason:   fmt.Sprintf("%s variant left in place; canonical name already valid", repair.cand.Shape),
				})
			}

		case large && canon == nil:
			// Misnamed or completed download with a free canonical slot:
			// rename in place.
			r.mutateRename(report, repair, canonical, ActionFixed, "renamed to canonical name")
			promoted = true

		case large && canon.res.Class == classify.Placeholder && !canon.res.Suspect:
			// Delete-then-rename: the canonical path must never hold two
			// files for one name, and the rename is the commit point. An
			// interruption between the two steps leaves no canonical file
			// at all, which is safe: the large candidate survives under
			// its original name and the next pass retries.
			canonHandled = true
			if !r.mutateRemove(report, *canon, ActionRemoved, "placeholder superseded by completed asset") {
				continue
			}
			if r.mutateRename(report, repair, canonical, ActionReplaced, "completed asset replaces removed placeholder") {
				promoted = true
			}

		case large:
			r.record(report, Action{
				Kind:     ActionNone,
				Name:     key.name,
				Category: repair.cand.Category,
				Path:     repair.cand.Path,
				Reason:   "canonical name held by an unverified mid-sized file; not replaced automatically",
				Warning:  true,
			})

		case repair.cand.Shape == scan.ShapeDouble:
			// Small malformed names resolve to their terminal state in one
			// pass, so a follow-up run has nothing left to do. What the
			// file would be under its canonical name decides the outcome.
			single := repair.cand
			single.Shape = scan.ShapeSingle
			res := r.classifier.Classify(single)
			switch {
			case res.Class == classify.Placeholder && !res.Suspect:
				r.mutateRemove(report, member{cand: repair.cand, res: res},
					ActionRemoved, "placeholder stub behind a duplicated suffix")
			case canon == nil:
				if r.mutateRename(report, repair, canonical, ActionFixed, "stripped duplicated suffix") {
					promoted = true
				}
			case canon.res.Class == classify.Placeholder && !canon.res.Suspect:
				canonHandled = true
				if !r.mutateRemove(report, *canon, ActionRemoved, "stale placeholder removed to free the canonical name") {
					continue
				}
				if r.mutateRename(report, repair, canonical, ActionFixed, "stripped duplicated suffix") {
					promoted = true
				}
			default:
				r.record(report, Action{
					Kind:     ActionNone,
					Name:     key.name,
					Category: repair.cand.Category,
					Path:     repair.cand.Path,
					Reason:   "canonical name held by an unverified mid-sized file; malformed variant left for manual review",
					Warning:  true,
				})
			}

		case repair.cand.Shape == scan.ShapePart:
			r.record(report, Action{
				Kind:     ActionNone,
				Name:     key.name,
				Category: repair.cand.Category,
				Path:     repair.cand.Path,
				Reason:   "transfer may still be in progress; left in place",
			})

		default:
			r.record(report, Action{
				Kind:     ActionNone,
				Name:     key.name,
				Category: repair.cand.Category,
				Path:     repair.cand.Path,
				Reason:   "no safe resolution rule applies; left for manual review",
				Warning:  true,
			})
		}
	}

	// Canonical file housekeeping after repairs are decided.
	if canon == nil || canonValid || promoted || canonHandled {
		return
	}
	switch {
	case canon.res.Class == classify.Placeholder && canon.res.Suspect:
		r.record(report, Action{
			Kind:     ActionNone,
			Name:     key.name,
			Category: canon.cand.Category,
			Path:     canon.cand.Path,
			Reason:   canon.res.Note,
			Warning:  true,
		})
	case canon.res.Class == classify.Placeholder:
		r.mutateRemove(report, *canon, ActionRemoved, "placeholder with no completed asset to supersede it")
	}
}

func (r *Resolver) record(report *Report, action Action) {
	if action.Warning {
		report.Warnings++
		logger.Warn("reconcile: "+action.Reason,
			logger.String("name", action.Name),
			logger.String("path", action.Path))
	}
	report.Actions = append(report.Actions, action)
}

// mutateRename renames a candidate onto the canonical path, retrying a
// transient failure once. Returns true when the rename took effect (or
// would have, in dry-run mode).
func (r *Resolver) mutateRename(report *Report, m member, canonical string, kind ActionKind, reason string) bool {
	action := Action{
		Kind:     kind,
		Name:     m.cand.Name,
		Category: m.cand.Category,
		Path:     m.cand.Path,
		NewPath:  canonical,
		Reason:   reason,
	}
	if !r.dryRun {
		if err := retryOnce(func() error { return os.Rename(m.cand.Path, canonical) }); err != nil {
			action.Kind = ActionNone
			action.Error = err.Error()
			action.Reason = "rename failed after retry; candidate skipped: " + reason
			action.Warning = true
			r.record(report, action)
			return false
		}
	}
	report.Mutations++
	logger.Info("reconcile: "+reason,
		logger.String("name", m.cand.Name),
		logger.String("from", m.cand.Path),
		logger.String("to", canonical))
	r.record(report, action)
	return true
}

// mutateRemove deletes a non-valid file, retrying a transient failure
// once. The valid class is re-checked here as a last line of defense.
func (r *Resolver) mutateRemove(report *Report, m member, kind ActionKind, reason string) bool {
	if m.res.Class == classify.Valid {
		// The rule table never routes a valid file here; refuse anyway.
		r.record(report, Action{
			Kind:     ActionNone,
			Name:     m.cand.Name,
			Category: m.cand.Category,
			Path:     m.cand.Path,
			Reason:   "refusing to delete a valid asset",
			Warning:  true,
		})
		return false
	}

	action := Action{
		Kind:     kind,
		Name:     m.cand.Name,
		Category: m.cand.Category,
		Path:     m.cand.Path,
		Reason:   reason,
	}
	if !r.dryRun {
		if err := retryOnce(func() error { return os.Remove(m.cand.Path) }); err != nil {
			action.Kind = ActionNone
			action.Error = err.Error()
			action.Reason = "remove failed after retry; candidate skipped: " + reason
			action.Warning = true
			r.record(report, action)
			return false
		}
	}
	report.Mutations++
	logger.Info("reconcile: "+reason,
		logger.String("name", m.cand.Name),
		logger.String("path", m.cand.Path))
	r.record(report, action)
	return true
}

// retryOnce runs op, retrying a single time on failure. One flaky
// candidate must not block fixing the rest of the pass.
func retryOnce(op func() error) error {
	if err := op(); err == nil {
		return nil
	}
	return op()
}
