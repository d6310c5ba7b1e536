package catalog

import (
	"fmt"
	"strings"

	"github.com/cometa-app/tscatalog/internal/apperr"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding of Validate.
type Issue struct {
	Severity Severity `json:"severity"`
	Context  string   `json:"context"`
	Source   string   `json:"source,omitempty"`
	Location Location `json:"location"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	where := i.Context
	if i.Location.Filename != "" {
		where = fmt.Sprintf("%s (%s:%d)", i.Context, i.Location.Filename, i.Location.Line)
	}
	if i.Source != "" {
		return fmt.Sprintf("%s: %s: %s %q", i.Severity, where, i.Message, i.Source)
	}
	return fmt.Sprintf("%s: %s: %s", i.Severity, where, i.Message)
}

type Report struct {
	Issues []Issue `json:"issues"`
}

func (r Report) Errors() []Issue {
	return r.filter(SeverityError)
}

func (r Report) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r Report) filter(s Severity) []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == s {
			out = append(out, issue)
		}
	}
	return out
}

// Err returns a validation error listing every error-severity issue, or nil.
func (r Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	lines := make([]string, 0, len(errs))
	for _, issue := range errs {
		lines = append(lines, issue.String())
	}
	return apperr.NewError(apperr.ErrValidation, strings.Join(lines, "; ")).
		WithContext("errors", len(errs))
}

// Validate checks the catalog against the rules the lookup table relies on.
// Several messages sharing one location line are fine; a source string
// repeated within a context is not.
func Validate(c *Catalog) Report {
	var r Report
	if c == nil {
		return r
	}

	seen := make(map[Key]Location)
	for _, ctx := range c.Contexts {
		if ctx.Name == "" {
			r.add(SeverityError, ctx.Name, "", Location{}, "context name is empty")
		}
		for _, msg := range ctx.Messages {
			loc := Location{}
			if len(msg.Locations) > 0 {
				loc = msg.Locations[0]
			} else {
				r.add(SeverityWarning, ctx.Name, msg.Source, loc, "message has no location")
			}

			if strings.TrimSpace(msg.Source) == "" {
				r.add(SeverityError, ctx.Name, "", loc, "source text is empty")
				continue
			}

			key := Key{Context: ctx.Name, Source: msg.Source}
			if first, dup := seen[key]; dup {
				r.add(SeverityError, ctx.Name, msg.Source, loc,
					fmt.Sprintf("duplicate source string (first at %s:%d)", first.Filename, first.Line))
				continue
			}
			seen[key] = loc

			switch {
			case msg.Type == TypeObsolete || msg.Type == TypeVanished:
			case msg.Type == TypeUnfinished:
				r.add(SeverityWarning, ctx.Name, msg.Source, loc, "translation is unfinished")
			case msg.Translation == "":
				r.add(SeverityWarning, ctx.Name, msg.Source, loc, "translation is empty")
			}
		}
	}
	return r
}

func (r *Report) add(sev Severity, context, source string, loc Location, msg string) {
	r.Issues = append(r.Issues, Issue{
		Severity: sev,
		Context:  context,
		Source:   source,
		Location: loc,
		Message:  msg,
	})
}
