package repository

import "time"

// Language represents a languages row together with its compile steps.
type Language struct {
	ID              string
	DisplayName     string
	SourceFilename  string
	SourceText      string
	Disassembly     string
	HexView         string
	BitsExplanation string
	DeepDive        string
	SortOrder       int
	Steps           []CompileStep
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CompileStep represents a compile_steps row. Position orders steps for
// display; Step is the number shown to the user.
type CompileStep struct {
	ID          string
	LanguageID  string
	Position    int
	Step        int
	Command     string
	Explanation string
}

// LanguageSummary is the list-view projection of a language.
type LanguageSummary struct {
	ID          string
	DisplayName string
	SortOrder   int
}
