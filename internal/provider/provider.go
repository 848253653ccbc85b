// Package provider implements the language data sources consumed by the
// session controller.
package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/jask/hwexplorer/internal/database/repository"
	"github.com/jask/hwexplorer/internal/session"
)

// ErrUnknownLanguage is wrapped in the FetchError for an id with no bundle.
var ErrUnknownLanguage = errors.New("unknown language")

// Summary is one entry of the language picker.
type Summary struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Lister enumerates the languages a provider can fetch.
type Lister interface {
	Languages(ctx context.Context) ([]Summary, error)
}

// maxSuggestDistance bounds how far a typo may be from a known id.
const maxSuggestDistance = 2

// Repo serves bundles from the sqlite language repository.
type Repo struct {
	Store *repository.LanguageRepo
}

// NewRepo returns a provider backed by repo.
func NewRepo(repo *repository.LanguageRepo) *Repo {
	return &Repo{Store: repo}
}

// Fetch loads the bundle for lang.
func (p *Repo) Fetch(ctx context.Context, lang string) (session.LanguageBundle, error) {
	l, err := p.Store.Get(ctx, lang)
	if err != nil {
		return session.LanguageBundle{}, &session.FetchError{Lang: lang, Err: err}
	}
	if l == nil {
		err := fmt.Errorf("%w %q", ErrUnknownLanguage, lang)
		if s := p.suggest(ctx, lang); s != "" {
			err = fmt.Errorf("%w (did you mean %q?)", err, s)
		}
		return session.LanguageBundle{}, &session.FetchError{Lang: lang, Err: err}
	}
	return toBundle(*l), nil
}

// Languages lists the stored languages in display order.
func (p *Repo) Languages(ctx context.Context) ([]Summary, error) {
	list, err := p.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	out := make([]Summary, 0, len(list))
	for _, l := range list {
		out = append(out, Summary{ID: l.ID, DisplayName: l.DisplayName})
	}
	return out, nil
}

func (p *Repo) suggest(ctx context.Context, lang string) string {
	list, err := p.Store.List(ctx)
	if err != nil || len(list) == 0 {
		return ""
	}
	ids := make([]string, 0, len(list))
	for _, l := range list {
		ids = append(ids, l.ID)
	}
	return Closest(lang, ids)
}

// Closest returns the candidate nearest to id by edit distance, or "" when
// none is within a couple of edits. Ties resolve alphabetically.
func Closest(id string, candidates []string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return ""
	}
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range sorted {
		d := levenshtein.ComputeDistance(id, strings.ToLower(c))
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func toBundle(l repository.Language) session.LanguageBundle {
	b := session.LanguageBundle{
		ID:              l.ID,
		DisplayName:     l.DisplayName,
		SourceFilename:  l.SourceFilename,
		SourceText:      l.SourceText,
		CompileSteps:    make([]session.CompileStep, 0, len(l.Steps)),
		Disassembly:     l.Disassembly,
		HexView:         l.HexView,
		BitsExplanation: l.BitsExplanation,
		DeepDiveText:    l.DeepDive,
	}
	for _, s := range l.Steps {
		b.CompileSteps = append(b.CompileSteps, session.CompileStep{Step: s.Step, Command: s.Command, Explanation: s.Explanation})
	}
	return b
}
