package services

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/statline-io/statline-engine/pkg/apperrors"
	"github.com/statline-io/statline-engine/pkg/models"
	"github.com/statline-io/statline-engine/pkg/retry"
)

// PathMapping binds a path prefix to a component name. Longest prefix wins
// when several mappings match one path.
type PathMapping struct {
	Prefix    string `yaml:"prefix"`
	Component string `yaml:"component"`
}

type mappingsFile struct {
	Mappings []PathMapping `yaml:"mappings"`
}

// LoadMappings reads path mappings from a YAML file.
func LoadMappings(path string) ([]PathMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read mappings file: %w", err)
	}
	var f mappingsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse mappings file: %w", err)
	}
	for i, m := range f.Mappings {
		if m.Prefix == "" || m.Component == "" {
			return nil, fmt.Errorf("mapping %d is missing prefix or component", i)
		}
	}
	return f.Mappings, nil
}

// IngestAdapter translates raw change events into component mutations.
type IngestAdapter interface {
	HandleChangeEvent(ctx context.Context, event models.ChangeEvent) error
}

type ingestAdapter struct {
	store    EntityStore
	mappings []PathMapping
	logger   *zap.Logger
}

// NewIngestAdapter creates an IngestAdapter over the given path mappings.
func NewIngestAdapter(store EntityStore, mappings []PathMapping, logger *zap.Logger) IngestAdapter {
	sorted := make([]PathMapping, len(mappings))
	copy(sorted, mappings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &ingestAdapter{
		store:    store,
		mappings: sorted,
		logger:   logger.Named("ingest-adapter"),
	}
}

var _ IngestAdapter = (*ingestAdapter)(nil)

// HandleChangeEvent maps the event path onto a component and records
// activity against it. Unmapped paths and unknown components are skipped
// without error.
func (a *ingestAdapter) HandleChangeEvent(ctx context.Context, event models.ChangeEvent) error {
	if !models.ValidChangeType(event.ChangeType) {
		return apperrors.NewValidationError("change_type_enum", "unknown change type %q", event.ChangeType)
	}

	componentName := a.lookup(event.Path)
	if componentName == "" {
		a.logger.Debug("Ignoring unmapped path", zap.String("path", event.Path))
		return nil
	}

	ctx = models.WithActor(ctx, models.ActorWatcher)
	component, err := a.store.GetComponentByName(ctx, componentName)
	if err != nil {
		if apperrors.IsNotFound(err) {
			a.logger.Warn("Mapped component does not exist",
				zap.String("path", event.Path),
				zap.String("component", componentName))
			return nil
		}
		return err
	}

	patch := models.ComponentPatch{Touch: true}
	version := component.Version
	return retry.Do(ctx, retry.ConflictConfig(), func() error {
		_, uerr := a.store.UpdateComponent(ctx, component.ID, version, patch)
		if uerr != nil && apperrors.IsVersionConflict(uerr) {
			fresh, ferr := a.store.GetComponent(ctx, component.ID)
			if ferr != nil {
				return ferr
			}
			version = fresh.Version
		}
		return uerr
	})
}

func (a *ingestAdapter) lookup(path string) string {
	for _, m := range a.mappings {
		if strings.HasPrefix(path, m.Prefix) {
			return m.Component
		}
	}
	return ""
}
