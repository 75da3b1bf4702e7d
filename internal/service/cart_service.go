package service

import (
	"context"
	"errors"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/repository"
)

// CartService корзина пользователя: одна строка на (user, drug), quantity >= 1
type CartService struct {
	carts repository.CartRepository
	drugs repository.DrugRepository
}

func NewCartService(carts repository.CartRepository, drugs repository.DrugRepository) *CartService {
	return &CartService{carts: carts, drugs: drugs}
}

// Add добавляет препарат или увеличивает количество уже добавленного на 1
func (s *CartService) Add(ctx context.Context, userID, drugID int64) (*domain.CartItem, error) {
	if userID <= 0 || drugID <= 0 {
		return nil, ErrInvalidInput
	}
	if _, err := s.drugs.GetByID(ctx, drugID); err != nil {
		return nil, err
	}
	return s.carts.Add(ctx, userID, drugID)
}

func (s *CartService) Increase(ctx context.Context, itemID, userID int64) (*domain.CartItem, error) {
	return s.adjust(ctx, itemID, userID, 1)
}

// Decrease уменьшает количество на 1; последняя единица удаляет строку,
// в этом случае возвращается nil
func (s *CartService) Decrease(ctx context.Context, itemID, userID int64) (*domain.CartItem, error) {
	return s.adjust(ctx, itemID, userID, -1)
}

// adjust меняет количество относительно текущего значения в хранилище,
// поэтому параллельные нажатия не теряют друг друга
func (s *CartService) adjust(ctx context.Context, itemID, userID, delta int64) (*domain.CartItem, error) {
	it, err := s.owned(ctx, itemID, userID)
	if err != nil {
		return nil, err
	}
	return s.carts.AdjustQuantity(ctx, it.ID, userID, delta)
}

func (s *CartService) Remove(ctx context.Context, itemID, userID int64) error {
	it, err := s.owned(ctx, itemID, userID)
	if err != nil {
		return err
	}
	return s.carts.Delete(ctx, it.ID)
}

// Snapshot строки корзины с препаратами и итог по текущим ценам
func (s *CartService) Snapshot(ctx context.Context, userID int64) (domain.CartSnapshot, error) {
	if userID <= 0 {
		return domain.CartSnapshot{}, ErrInvalidInput
	}
	lines, err := s.carts.ListLines(ctx, userID)
	if err != nil {
		return domain.CartSnapshot{}, err
	}
	return domain.NewCartSnapshot(userID, lines), nil
}

func (s *CartService) Clear(ctx context.Context, userID int64) (int64, error) {
	if userID <= 0 {
		return 0, ErrInvalidInput
	}
	return s.carts.Clear(ctx, userID)
}

func (s *CartService) owned(ctx context.Context, itemID, userID int64) (*domain.CartItem, error) {
	if itemID <= 0 || userID <= 0 {
		return nil, ErrInvalidInput
	}
	it, err := s.carts.GetByID(ctx, itemID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if it.UserID != userID {
		return nil, ErrForbidden
	}
	return it, nil
}
