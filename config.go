package marionette

// Config holds the settings of a new document and its editor.
type Config struct {
	// Name, Width and Height describe the document created by New.
	Name          string
	Width, Height int
	// HistoryLimit caps the undo stack. Zero means DefaultHistoryLimit.
	HistoryLimit int
	// X3Preview warms the x3 texture caches after a document is opened.
	X3Preview bool
	// Debug enables render stats and tree-depth warnings on stderr.
	Debug bool
}

// DefaultConfig returns the settings of the editor's "new project" dialog.
func DefaultConfig() Config {
	return Config{
		Name:         DefaultProjectName,
		Width:        64,
		Height:       64,
		HistoryLimit: DefaultHistoryLimit,
	}
}

// New creates a default document (one layer, one animation) drawn through
// r. r may be nil for headless use.
func New(cfg Config, r Renderer) *Project {
	p := NewProject(cfg.Name, cfg.Width, cfg.Height, r)
	p.SetDebugMode(cfg.Debug)
	p.CreateNew(cfg.Name, cfg.Width, cfg.Height)
	return p
}
