package materialize

import (
	"errors"
	"fmt"

	"shardctl/internal/config"
)

// Materializer ensures the two sharding artifacts exist.
type Materializer struct {
	specs []Spec
}

// New builds a Materializer from the artifact configuration.
func New(cfg config.ArtifactsConfig) (*Materializer, error) {
	var specs []Spec
	for _, a := range []config.ArtifactConfig{cfg.ProxyVariable, cfg.ShardMap} {
		mode, err := a.FileMode()
		if err != nil {
			return nil, fmt.Errorf("artifact %s: %w", a.Path, err)
		}
		specs = append(specs, Spec{
			Path:    a.Path,
			Owner:   a.Owner,
			Group:   a.Group,
			Mode:    mode,
			Content: []byte(a.Content),
		})
	}
	return &Materializer{specs: specs}, nil
}

// Run ensures every artifact and returns the paths it created. One
// artifact's failure does not suppress the others.
func (m *Materializer) Run() (created []string, err error) {
	var errs []error
	for _, spec := range m.specs {
		madeIt, err := Ensure(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if madeIt {
			created = append(created, spec.Path)
		}
	}
	return created, errors.Join(errs...)
}
