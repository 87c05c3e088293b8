package source

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/infiniscroll/internal/adapter"
	"github.com/mmcdole/infiniscroll/internal/domain"
	"github.com/mmcdole/infiniscroll/internal/source/remote"
	"github.com/mmcdole/infiniscroll/internal/source/synthetic"
)

// Source is an item source together with the items the list shows before the first fetch
type Source struct {
	domain.ItemSource
	Kind    domain.SourceKind
	Initial []domain.Item
}

// SourceConfig contains the configuration needed to create a Source
type SourceConfig struct {
	Kind     domain.SourceKind
	Endpoint string        // Remote only
	Delay    time.Duration // Synthetic only
	Seed     int           // Synthetic only
	Limit    int           // Synthetic only
	Store    domain.SnapshotStore
}

// New creates the item source selected by cfg.Kind
func New(cfg *SourceConfig, logger *slog.Logger) (*Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("source config is nil")
	}

	switch cfg.Kind {
	case domain.SourceRemote:
		var opts []remote.Option
		if cfg.Store != nil {
			opts = append(opts, remote.WithStore(cfg.Store))
		}
		return &Source{
			ItemSource: remote.NewClient(cfg.Endpoint, logger, opts...),
			Kind:       cfg.Kind,
		}, nil

	case domain.SourceSynthetic:
		gen := synthetic.NewGenerator(cfg.Delay, cfg.Limit)
		return &Source{
			ItemSource: gen,
			Kind:       cfg.Kind,
			Initial:    gen.Seed(cfg.Seed),
		}, nil

	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Kind)
	}
}

// NewFromConfig creates a Source from the application config
func NewFromConfig(cfg *adapter.Config, store domain.SnapshotStore, logger *slog.Logger) (*Source, error) {
	return New(&SourceConfig{
		Kind:     cfg.Source.Type,
		Endpoint: cfg.Source.Endpoint,
		Delay:    cfg.Source.Delay,
		Seed:     cfg.Source.Seed,
		Limit:    cfg.Source.Limit,
		Store:    store,
	}, logger)
}
