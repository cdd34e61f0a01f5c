package testutil

import (
	"github.com/roach88/citekit/internal/cluster"
	"github.com/roach88/citekit/internal/styleengine"
)

// ScriptedEngine is a styleengine.Engine whose behavior is set per test.
// Unset hooks fall back to benign defaults.
type ScriptedEngine struct {
	Scope   []string
	Uncited []string

	PreviewFn func(*cluster.Cluster) (string, error)
	ProcessFn func(*cluster.Cluster) ([]styleengine.ClusterUpdate, error)
	BibFn     func() (*styleengine.Bibliography, error)

	Processed []string // cluster ids fed to ProcessCluster, in order
}

var _ styleengine.Engine = (*ScriptedEngine)(nil)

// UpdateItems implements styleengine.Engine.
func (e *ScriptedEngine) UpdateItems(ids []string) error {
	e.Scope = append([]string(nil), ids...)
	return nil
}

// UpdateUncitedItems implements styleengine.Engine.
func (e *ScriptedEngine) UpdateUncitedItems(ids []string) error {
	e.Uncited = append([]string(nil), ids...)
	return nil
}

// PreviewCluster implements styleengine.Engine.
func (e *ScriptedEngine) PreviewCluster(c *cluster.Cluster) (string, error) {
	if e.PreviewFn != nil {
		return e.PreviewFn(c)
	}
	return "[preview " + c.ID + "]", nil
}

// ProcessCluster implements styleengine.Engine.
func (e *ScriptedEngine) ProcessCluster(c *cluster.Cluster) ([]styleengine.ClusterUpdate, error) {
	e.Processed = append(e.Processed, c.ID)
	if e.ProcessFn != nil {
		return e.ProcessFn(c)
	}
	return []styleengine.ClusterUpdate{{ClusterID: c.ID, HTML: "[processed " + c.ID + "]"}}, nil
}

// MakeBibliography implements styleengine.Engine.
func (e *ScriptedEngine) MakeBibliography() (*styleengine.Bibliography, error) {
	if e.BibFn != nil {
		return e.BibFn()
	}
	bib := &styleengine.Bibliography{
		Start:       `<div class="csl-bib-body">`,
		End:         `</div>`,
		LineSpacing: 1,
	}
	for _, id := range append(append([]string(nil), e.Scope...), e.Uncited...) {
		bib.EntryIDs = append(bib.EntryIDs, id)
		bib.Entries = append(bib.Entries, `<div class="csl-entry">`+id+`</div>`)
	}
	return bib, nil
}

// ScriptedFactory builds ScriptedEngine instances and records how many were
// built, so cache invalidation is observable.
type ScriptedFactory struct {
	Built   int
	Engines []*ScriptedEngine
	Err     error // returned by New when set
}

var _ styleengine.Factory = (*ScriptedFactory)(nil)

// New implements styleengine.Factory.
func (f *ScriptedFactory) New(styleengine.SystemCallbacks, string, string) (styleengine.Engine, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.Built++
	eng := &ScriptedEngine{}
	f.Engines = append(f.Engines, eng)
	return eng, nil
}
