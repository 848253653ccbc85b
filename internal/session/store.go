package session

import "github.com/jask/hwexplorer/internal/deepdive"

// Store holds the current language bundle and its derived deep-dive document.
// It is replaced wholesale on each successful selection.
type Store struct {
	bundle *LanguageBundle
	doc    deepdive.Document
}

// Replace installs b and re-derives the deep-dive document.
func (s *Store) Replace(b LanguageBundle) {
	cp := b.Clone()
	s.bundle = &cp
	s.doc = deepdive.Format(cp.DeepDiveText)
}

// Bundle returns a copy of the current bundle.
func (s *Store) Bundle() (LanguageBundle, bool) {
	if s.bundle == nil {
		return LanguageBundle{}, false
	}
	return s.bundle.Clone(), true
}

// Document returns a copy of the derived deep-dive document.
func (s *Store) Document() deepdive.Document {
	return s.doc.Clone()
}
