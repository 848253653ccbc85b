package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/jask/hwexplorer/internal/database/repository"
)

//go:embed seed/*.toml
var seedFS embed.FS

type seedStep struct {
	Step        int    `toml:"step"`
	Command     string `toml:"command"`
	Explanation string `toml:"explanation"`
}

type seedLanguage struct {
	ID             string     `toml:"id"`
	DisplayName    string     `toml:"display_name"`
	SourceFilename string     `toml:"source_filename"`
	SortOrder      int        `toml:"sort_order"`
	Source         string     `toml:"source"`
	Disassembly    string     `toml:"disassembly"`
	HexView        string     `toml:"hex_view"`
	Bits           string     `toml:"bits"`
	DeepDive       string     `toml:"deep_dive"`
	CompileSteps   []seedStep `toml:"compile_steps"`
}

func (s seedLanguage) language() repository.Language {
	l := repository.Language{
		ID:              s.ID,
		DisplayName:     s.DisplayName,
		SourceFilename:  s.SourceFilename,
		SourceText:      s.Source,
		Disassembly:     s.Disassembly,
		HexView:         s.HexView,
		BitsExplanation: s.Bits,
		DeepDive:        s.DeepDive,
		SortOrder:       s.SortOrder,
	}
	for _, st := range s.CompileSteps {
		l.Steps = append(l.Steps, repository.CompileStep{Step: st.Step, Command: st.Command, Explanation: st.Explanation})
	}
	return l
}

// DefaultLanguages decodes the bundled language seeds, ordered by sort order.
func DefaultLanguages() ([]repository.Language, error) {
	files, err := fs.Glob(seedFS, "seed/*.toml")
	if err != nil {
		return nil, err
	}
	out := make([]repository.Language, 0, len(files))
	for _, name := range files {
		data, err := seedFS.ReadFile(name)
		if err != nil {
			return nil, err
		}
		var s seedLanguage
		if err := toml.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path.Base(name), err)
		}
		if s.ID == "" || s.DisplayName == "" {
			return nil, fmt.Errorf("decode %s: id and display_name are required", path.Base(name))
		}
		for i, st := range s.CompileSteps {
			if st.Step <= 0 {
				return nil, fmt.Errorf("decode %s: step %d must be positive", path.Base(name), i)
			}
		}
		out = append(out, s.language())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

// SeedDefaults upserts the bundled languages. It is idempotent and safe to
// run on every startup; bundled content wins over local edits.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	langs, err := DefaultLanguages()
	if err != nil {
		return err
	}
	repo := repository.NewLanguageRepo(db)
	return WithTx(ctx, db, func(tx *sql.Tx) error {
		for _, l := range langs {
			if err := repo.UpsertTx(ctx, tx, l); err != nil {
				return err
			}
		}
		return nil
	})
}
