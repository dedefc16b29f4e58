// Package dataset reads the seed dataset and applies it to the stores.
package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/acadworld/internal/checksum"
	"github.com/starford/acadworld/internal/models"
)

// Parse decodes a YAML dataset and checks it for consistency.
// Unknown keys are rejected.
func Parse(data []byte) (*models.Dataset, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var ds models.Dataset
	if err := dec.Decode(&ds); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("dataset: decode: %w", err)
	}
	if err := Validate(&ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// ReadFile parses the dataset at path and returns it with the file's checksum.
func ReadFile(path string) (*models.Dataset, string, error) {
	data, sum, err := checksum.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", path, err)
	}
	return ds, sum, nil
}

// Validate checks field rules and that every reference resolves.
func Validate(ds *models.Dataset) error {
	universities := make(map[int64]bool, len(ds.Universities))
	for i := range ds.Universities {
		u := &ds.Universities[i]
		err := validation.ValidateStruct(u,
			validation.Field(&u.ID, validation.Required, validation.Min(int64(1))),
			validation.Field(&u.Name, validation.Required),
		)
		if err != nil {
			return fmt.Errorf("dataset: university %d: %w", i, err)
		}
		if universities[u.ID] {
			return fmt.Errorf("dataset: duplicate university id %d", u.ID)
		}
		universities[u.ID] = true
	}

	faculty := make(map[int64]bool, len(ds.Faculty))
	names := make(map[string]bool, len(ds.Faculty))
	for i := range ds.Faculty {
		f := &ds.Faculty[i]
		err := validation.ValidateStruct(f,
			validation.Field(&f.ID, validation.Required, validation.Min(int64(1))),
			validation.Field(&f.Name, validation.Required),
			validation.Field(&f.UniversityID, validation.When(f.UniversityID != 0,
				validation.By(func(any) error {
					if !universities[f.UniversityID] {
						return fmt.Errorf("unknown university %d", f.UniversityID)
					}
					return nil
				}))),
		)
		if err != nil {
			return fmt.Errorf("dataset: faculty %d: %w", i, err)
		}
		if faculty[f.ID] {
			return fmt.Errorf("dataset: duplicate faculty id %d", f.ID)
		}
		if names[f.Name] {
			return fmt.Errorf("dataset: duplicate faculty name %q", f.Name)
		}
		faculty[f.ID] = true
		names[f.Name] = true
	}

	publications := make(map[int64]bool, len(ds.Publications))
	for i := range ds.Publications {
		p := &ds.Publications[i]
		err := validation.ValidateStruct(p,
			validation.Field(&p.ID, validation.Required, validation.Min(int64(1))),
			validation.Field(&p.Title, validation.Required),
			validation.Field(&p.Year, validation.Required, validation.Min(1000), validation.Max(9999)),
			validation.Field(&p.Authors, validation.Each(validation.By(func(v any) error {
				id, _ := v.(int64)
				if !faculty[id] {
					return fmt.Errorf("unknown author %d", id)
				}
				return nil
			}))),
		)
		if err != nil {
			return fmt.Errorf("dataset: publication %d: %w", i, err)
		}
		if publications[p.ID] {
			return fmt.Errorf("dataset: duplicate publication id %d", p.ID)
		}
		publications[p.ID] = true
	}
	return nil
}

// Loader is a store that can ingest the dataset.
type Loader interface {
	Load(ctx context.Context, ds *models.Dataset) error
}

// Target names a Loader for logging.
type Target struct {
	Name   string
	Loader Loader
}

// Apply loads ds into every target in order and stops at the first failure.
// Loads are idempotent, so a failed apply can be retried as a whole.
func Apply(ctx context.Context, ds *models.Dataset, targets ...Target) error {
	for _, t := range targets {
		start := time.Now()
		if err := t.Loader.Load(ctx, ds); err != nil {
			slog.Error("dataset: load failed", slog.String("store", t.Name), slog.String("error", err.Error()))
			return fmt.Errorf("dataset: load %s: %w", t.Name, err)
		}
		slog.Info("dataset: loaded",
			slog.String("store", t.Name),
			slog.Int("universities", len(ds.Universities)),
			slog.Int("faculty", len(ds.Faculty)),
			slog.Int("publications", len(ds.Publications)),
			slog.Duration("took", time.Since(start)),
		)
	}
	return nil
}
