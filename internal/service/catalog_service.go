package service

import (
	"context"
	"strings"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/repository"
)

// CatalogService поиск и ведение каталога препаратов
type CatalogService struct {
	repo repository.DrugRepository
}

func NewCatalogService(repo repository.DrugRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func (s *CatalogService) Create(ctx context.Context, d domain.Drug) (*domain.Drug, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" || (d.Price != nil && *d.Price < 0) {
		return nil, ErrInvalidInput
	}
	cp := d
	if err := s.repo.Save(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (*domain.Drug, error) {
	if id <= 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

// Search по подстроке в name, category и manufacturer без учёта регистра
func (s *CatalogService) Search(ctx context.Context, query string, limit int) ([]domain.Drug, error) {
	if limit < 0 {
		return nil, ErrInvalidInput
	}
	return s.repo.Search(ctx, repository.DrugFilter{Query: strings.TrimSpace(query), Limit: limit})
}

// UpdatePrice точка синхронизации цен с внешним каталогом
func (s *CatalogService) UpdatePrice(ctx context.Context, id int64, price int64) (*domain.Drug, error) {
	if id <= 0 || price < 0 {
		return nil, ErrInvalidInput
	}
	if err := s.repo.UpdatePrice(ctx, id, price); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}
