package citekit

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/citekit/internal/document"
	"github.com/roach88/citekit/internal/refstore"
	"github.com/roach88/citekit/internal/schedule"
	"github.com/roach88/citekit/internal/styleengine"
	"github.com/roach88/citekit/internal/styles"
)

// Defaults applied when the corresponding option is not given.
const (
	DefaultStyle  = "apa"
	DefaultLocale = "en-US"
)

type config struct {
	style            string
	locale           string
	linkCitations    bool
	linkBibliography bool

	doc       document.Document
	importer  refstore.Importer
	factory   styleengine.Factory
	resources *styles.Cache
	frame     schedule.Frame
	newID     func() string
	logger    *slog.Logger
}

// Option configures session creation.
type Option func(*config)

func defaultConfig() config {
	return config{
		style:     DefaultStyle,
		locale:    DefaultLocale,
		doc:       document.NewMemDocument(),
		importer:  refstore.YAMLImporter{},
		factory:   styleengine.SimpleFactory{},
		resources: styles.NewCache(styles.EmbeddedFetcher{}),
		frame:     schedule.TimerFrame{},
		newID:     uuid.NewString,
		logger:    slog.Default(),
	}
}

// WithStyle selects the citation style resource ("apa", "ieee", ...).
func WithStyle(name string) Option {
	return func(c *config) { c.style = name }
}

// WithLocale selects the locale resource ("en-US", "de-DE", ...).
func WithLocale(name string) Option {
	return func(c *config) { c.locale = name }
}

// WithLinkCitations wraps every rendered citation item in link markup
// targeting its bibliography entry, and installs the session's
// click-to-scroll listener.
func WithLinkCitations(enabled bool) Option {
	return func(c *config) { c.linkCitations = enabled }
}

// WithLinkBibliography reserves anchor targets on bibliography entries even
// when citation linking is off, so hosts can deep-link into the list.
func WithLinkBibliography(enabled bool) Option {
	return func(c *config) { c.linkBibliography = enabled }
}

// WithDocument sets the document the session renders into. Defaults to a
// fresh in-memory document.
func WithDocument(doc document.Document) Option {
	return func(c *config) { c.doc = doc }
}

// WithImporter sets the bibliographic importer. Defaults to the YAML
// importer.
func WithImporter(imp refstore.Importer) Option {
	return func(c *config) { c.importer = imp }
}

// WithEngineFactory sets the style-engine factory. Defaults to the built-in
// processor.
func WithEngineFactory(f styleengine.Factory) Option {
	return func(c *config) { c.factory = f }
}

// WithResourceCache sets the style/locale resource cache, e.g. one opened
// with styles.OpenCache for persistence. Defaults to a memory-only cache
// over the embedded resources.
func WithResourceCache(cache *styles.Cache) Option {
	return func(c *config) { c.resources = cache }
}

// WithFrame sets the scheduler's frame primitive. Defaults to a short
// one-shot timer; tests pass a manually advanced frame.
func WithFrame(frame schedule.Frame) Option {
	return func(c *config) { c.frame = frame }
}

// WithIDSource sets the id generator used for the session id, engine
// instance ids, and cluster ids. Defaults to random UUIDs; tests pass a
// sequential source so rendered markup is stable.
func WithIDSource(next func() string) Option {
	return func(c *config) { c.newID = next }
}

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}
