package runner

import (
	_ "embed"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

//go:embed languages.hcl
var defaultCatalog []byte

// Mode is how a language's hello-world program is executed.
type Mode string

const (
	ModeBinary      Mode = "binary"
	ModeInterpreter Mode = "interpreter"
	ModeWasm        Mode = "wasm"
	ModeUnavailable Mode = "unavailable"
)

// Entry is one `language` block of the catalog.
type Entry struct {
	Lang        string   `hcl:"lang,label"`
	Binary      string   `hcl:"binary,optional"`
	Interpreter string   `hcl:"interpreter,optional"`
	Script      string   `hcl:"script,optional"`
	Wasm        string   `hcl:"wasm,optional"`
	Args        []string `hcl:"args,optional"`
}

// Mode reports the execution mode the entry describes.
func (e Entry) Mode() Mode {
	switch {
	case e.Binary != "":
		return ModeBinary
	case e.Interpreter != "":
		return ModeInterpreter
	case e.Wasm != "":
		return ModeWasm
	default:
		return ModeUnavailable
	}
}

func (e Entry) validate() error {
	set := 0
	for _, v := range []string{e.Binary, e.Interpreter, e.Wasm} {
		if v != "" {
			set++
		}
	}
	if set > 1 {
		return fmt.Errorf("language %q: binary, interpreter and wasm are mutually exclusive", e.Lang)
	}
	if e.Interpreter != "" && e.Script == "" {
		return fmt.Errorf("language %q: interpreter needs a script", e.Lang)
	}
	if e.Script != "" && e.Interpreter == "" {
		return fmt.Errorf("language %q: script without interpreter", e.Lang)
	}
	return nil
}

type catalogFile struct {
	Languages []*Entry `hcl:"language,block"`
}

// Catalog maps language ids to execution entries.
type Catalog struct {
	entries map[string]Entry
	order   []string
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog, "languages.hcl")
}

// LoadCatalog reads a catalog file from disk.
func LoadCatalog(path string) (*Catalog, error) {
	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, diags)
	}
	return decodeCatalog(file.Body, path)
}

// ParseCatalog decodes catalog source. filename is used in diagnostics.
func ParseCatalog(src []byte, filename string) (*Catalog, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", filename, diags)
	}
	return decodeCatalog(file.Body, filename)
}

func decodeCatalog(body hcl.Body, filename string) (*Catalog, error) {
	var f catalogFile
	if diags := gohcl.DecodeBody(body, nil, &f); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", filename, diags)
	}
	c := &Catalog{entries: make(map[string]Entry, len(f.Languages))}
	for _, e := range f.Languages {
		if _, dup := c.entries[e.Lang]; dup {
			return nil, fmt.Errorf("catalog %s: language %q declared twice", filename, e.Lang)
		}
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("catalog %s: %w", filename, err)
		}
		c.entries[e.Lang] = *e
		c.order = append(c.order, e.Lang)
	}
	return c, nil
}

// Lookup returns the entry for lang.
func (c *Catalog) Lookup(lang string) (Entry, bool) {
	e, ok := c.entries[lang]
	return e, ok
}

// ModeOf reports how lang would run. Unlisted languages are unavailable.
func (c *Catalog) ModeOf(lang string) Mode {
	if e, ok := c.entries[lang]; ok {
		return e.Mode()
	}
	return ModeUnavailable
}

// Entries returns every entry in declaration order.
func (c *Catalog) Entries() []Entry {
	out := make([]Entry, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.entries[id])
	}
	return out
}
