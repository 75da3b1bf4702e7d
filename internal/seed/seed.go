// Package seed загружает справочники (препараты, аптеки, остатки) из YAML.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/repository"
)

// File формат файла импорта
type File struct {
	Drugs      []domain.Drug          `yaml:"drugs"`
	Pharmacies []domain.Pharmacy      `yaml:"pharmacies"`
	Stock      []domain.PharmacyStock `yaml:"stock"`
}

// Load разбирает и проверяет файл; id должны быть заданы явно, чтобы stock
// мог на них ссылаться
func Load(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("decode seed file: %w", err)
	}
	return f, f.validate()
}

func (f File) validate() error {
	var errs []error
	drugs := make(map[int64]bool, len(f.Drugs))
	for i, d := range f.Drugs {
		switch {
		case d.ID <= 0:
			errs = append(errs, fmt.Errorf("drugs[%d]: id is required", i))
		case d.Name == "":
			errs = append(errs, fmt.Errorf("drugs[%d]: name is required", i))
		case d.Price != nil && *d.Price < 0:
			errs = append(errs, fmt.Errorf("drugs[%d]: negative price", i))
		}
		drugs[d.ID] = true
	}
	pharmacies := make(map[int64]bool, len(f.Pharmacies))
	for i, p := range f.Pharmacies {
		if p.ID <= 0 || p.Name == "" {
			errs = append(errs, fmt.Errorf("pharmacies[%d]: id and name are required", i))
		}
		pharmacies[p.ID] = true
	}
	for i, s := range f.Stock {
		switch {
		case !drugs[s.DrugID]:
			errs = append(errs, fmt.Errorf("stock[%d]: unknown drug %d", i, s.DrugID))
		case !pharmacies[s.PharmacyID]:
			errs = append(errs, fmt.Errorf("stock[%d]: unknown pharmacy %d", i, s.PharmacyID))
		case s.Residual < 0:
			errs = append(errs, fmt.Errorf("stock[%d]: negative residual", i))
		}
	}
	return errors.Join(errs...)
}

// Apply сохраняет содержимое файла одной транзакцией
func Apply(ctx context.Context, repos repository.Repositories, f File) error {
	err := repos.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		for i := range f.Drugs {
			if err := repos.Drugs.Save(ctx, &f.Drugs[i]); err != nil {
				return fmt.Errorf("save drug %d: %w", f.Drugs[i].ID, err)
			}
		}
		for i := range f.Pharmacies {
			if err := repos.Pharmacies.Save(ctx, &f.Pharmacies[i]); err != nil {
				return fmt.Errorf("save pharmacy %d: %w", f.Pharmacies[i].ID, err)
			}
		}
		for _, s := range f.Stock {
			if err := repos.Stock.Upsert(ctx, s); err != nil {
				return fmt.Errorf("save stock %d/%d: %w", s.PharmacyID, s.DrugID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Info().
		Int("drugs", len(f.Drugs)).
		Int("pharmacies", len(f.Pharmacies)).
		Int("stock", len(f.Stock)).
		Msg("Seed applied")
	return nil
}
