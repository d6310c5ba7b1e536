package catalog

// TranslationType mirrors the type attribute of <translation>. The zero value
// is a finished translation.
type TranslationType string

const (
	TypeFinished   TranslationType = ""
	TypeUnfinished TranslationType = "unfinished"
	TypeObsolete   TranslationType = "obsolete"
	TypeVanished   TranslationType = "vanished"
)

// Usable reports whether a translation of this type may be installed at runtime.
func (t TranslationType) Usable() bool {
	return t == TypeFinished || t == TypeUnfinished
}

// Location points at the UI source line a string was extracted from.
type Location struct {
	Filename string `json:"filename"`
	Line     int    `json:"line"`
}

// Message is one source string and its translation.
type Message struct {
	Locations   []Location      `json:"locations,omitempty"`
	Source      string          `json:"source"`
	Comment     string          `json:"comment,omitempty"`
	Translation string          `json:"translation"`
	Type        TranslationType `json:"type,omitempty"`
}

// Context groups the messages of one window, dialog or widget.
type Context struct {
	Name     string    `json:"name"`
	Messages []Message `json:"messages"`
}

// Catalog is a whole TS document in document order.
type Catalog struct {
	Version        string    `json:"version"`
	Language       string    `json:"language"`
	SourceLanguage string    `json:"source_language,omitempty"`
	Contexts       []Context `json:"contexts"`
}

// Key identifies a message at lookup time.
type Key struct {
	Context string `json:"context"`
	Source  string `json:"source"`
}

// Entry is the flat view of a message.
type Entry struct {
	Context     string `json:"context"`
	Source      string `json:"source"`
	Translation string `json:"translation"`
	OriginFile  string `json:"origin_file"`
	OriginLine  int    `json:"origin_line"`
}

// Entries flattens the catalog in document order. Messages with several
// locations report the first one.
func (c *Catalog) Entries() []Entry {
	var ret []Entry
	for _, ctx := range c.Contexts {
		for _, msg := range ctx.Messages {
			e := Entry{
				Context:     ctx.Name,
				Source:      msg.Source,
				Translation: msg.Translation,
			}
			if len(msg.Locations) > 0 {
				e.OriginFile = msg.Locations[0].Filename
				e.OriginLine = msg.Locations[0].Line
			}
			ret = append(ret, e)
		}
	}
	return ret
}

// Context returns the first context with the given name.
func (c *Catalog) Context(name string) (*Context, bool) {
	for i := range c.Contexts {
		if c.Contexts[i].Name == name {
			return &c.Contexts[i], true
		}
	}
	return nil, false
}

// MessageCount returns the number of messages across all contexts.
func (c *Catalog) MessageCount() int {
	n := 0
	for _, ctx := range c.Contexts {
		n += len(ctx.Messages)
	}
	return n
}
