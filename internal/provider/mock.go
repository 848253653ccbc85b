package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/jask/hwexplorer/internal/session"
)

// Mock returns placeholder bundles for any language id. It stands in for the
// real catalogue during development.
type Mock struct {
	IDs []string
}

// Fetch always succeeds unless ctx is done.
func (m Mock) Fetch(ctx context.Context, lang string) (session.LanguageBundle, error) {
	if err := ctx.Err(); err != nil {
		return session.LanguageBundle{}, &session.FetchError{Lang: lang, Err: err}
	}
	return session.LanguageBundle{
		ID:             lang,
		DisplayName:    strings.ToUpper(lang),
		SourceFilename: "hello." + lang,
		SourceText:     fmt.Sprintf("; Mock source for %s - load the language database for real data", lang),
		CompileSteps: []session.CompileStep{
			{Step: 1, Command: "compile " + lang, Explanation: "Mock - load the language database"},
		},
		Disassembly:     "; Disassembly mock for " + lang,
		HexView:         "00 01 02 03  (mock)",
		BitsExplanation: "Bits mock for " + lang,
		DeepDiveText:    fmt.Sprintf("Load the language database for full deep-dive content on %s.", lang),
	}, nil
}

// Languages lists the configured ids.
func (m Mock) Languages(context.Context) ([]Summary, error) {
	out := make([]Summary, 0, len(m.IDs))
	for _, id := range m.IDs {
		out = append(out, Summary{ID: id, DisplayName: strings.ToUpper(id)})
	}
	return out, nil
}
