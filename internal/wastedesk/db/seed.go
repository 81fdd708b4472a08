package db

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	e "github.com/gartstein/wastedesk/internal/wastedesk/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/seed.yaml
var seedFixtures []byte

// Transactor is implemented by stores that can group writes atomically.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(store DocumentStore) error) error
}

// Fixtures is a versioned set of seed documents keyed by collection.
type Fixtures struct {
	Version   int                    `yaml:"version"`
	Documents map[string]interface{} `yaml:"documents"`
}

// SeedReport describes what a seeding run did.
type SeedReport struct {
	PreviousVersion int
	Version         int
	Written         []string
}

// LoadFixtures parses the embedded seed fixtures.
func LoadFixtures() (*Fixtures, error) {
	return ParseFixtures(seedFixtures)
}

// ParseFixtures decodes a fixtures document and rejects unknown collections.
func ParseFixtures(raw []byte) (*Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed fixtures: %w", err)
	}
	if f.Version <= 0 {
		return nil, fmt.Errorf("%w: seed fixtures need a positive version", e.ErrInvalidInput)
	}
	for key := range f.Documents {
		if !slices.Contains(CollectionKeys, key) {
			return nil, fmt.Errorf("%w: unknown seed collection %q", e.ErrInvalidInput, key)
		}
	}
	return &f, nil
}

// Seeder writes fixtures into a store without touching collections that already exist.
type Seeder struct {
	store    DocumentStore
	fixtures *Fixtures
	logger   *zap.Logger
}

func NewSeeder(store DocumentStore, fixtures *Fixtures, logger *zap.Logger) *Seeder {
	return &Seeder{
		store:    store,
		fixtures: fixtures,
		logger:   logger.Named("seeder"),
	}
}

type seedVersion struct {
	Version int `json:"version"`
}

// InitializeIfAbsent seeds every collection missing from the store when the
// stored seed version is older than the fixtures. Running it twice is a no-op.
func (s *Seeder) InitializeIfAbsent(ctx context.Context) (*SeedReport, error) {
	if tx, ok := s.store.(Transactor); ok {
		var report *SeedReport
		err := tx.WithTransaction(ctx, func(store DocumentStore) error {
			var err error
			report, err = s.seed(ctx, store)
			return err
		})
		return report, err
	}
	return s.seed(ctx, s.store)
}

func (s *Seeder) seed(ctx context.Context, store DocumentStore) (*SeedReport, error) {
	previous, err := storedSeedVersion(ctx, store)
	if err != nil {
		return nil, err
	}
	report := &SeedReport{PreviousVersion: previous, Version: previous}
	if previous >= s.fixtures.Version {
		s.logger.Debug("Seed fixtures already applied", zap.Int("version", previous))
		return report, nil
	}

	for _, key := range CollectionKeys {
		docs, ok := s.fixtures.Documents[key]
		if !ok {
			continue
		}
		if docs == nil {
			docs = []interface{}{}
		}
		data, err := json.Marshal(docs)
		if err != nil {
			return nil, fmt.Errorf("failed to encode seed collection %s: %w", key, err)
		}
		written, err := store.PutIfAbsent(ctx, key, data)
		if err != nil {
			return nil, fmt.Errorf("failed to seed %s: %w", key, err)
		}
		if written {
			report.Written = append(report.Written, key)
		}
	}

	data, err := json.Marshal(seedVersion{Version: s.fixtures.Version})
	if err != nil {
		return nil, err
	}
	if err := store.Put(ctx, KeySeedVersion, data); err != nil {
		return nil, fmt.Errorf("failed to record seed version: %w", err)
	}
	report.Version = s.fixtures.Version

	s.logger.Info("Seed fixtures applied",
		zap.Int("previous_version", previous),
		zap.Int("version", report.Version),
		zap.Strings("written", report.Written),
	)
	return report, nil
}

func storedSeedVersion(ctx context.Context, store DocumentStore) (int, error) {
	data, err := store.Get(ctx, KeySeedVersion)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read seed version: %w", err)
	}
	var v seedVersion
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("failed to decode seed version: %w", err)
	}
	return v.Version, nil
}
