package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = errors.New("not found")

// ErrDuplicate нарушение уникальности (например pickup_code)
var ErrDuplicate = errors.New("duplicate key")

// DefaultSearchLimit как в inline-поиске бота
const DefaultSearchLimit = 20

// DrugFilter параметры поиска по каталогу
type DrugFilter struct {
	Query string
	Limit int
}

func (f DrugFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultSearchLimit
	}
	return f.Limit
}

// DrugRepository каталог препаратов
type DrugRepository interface {
	// Save создаёт препарат или обновляет существующий по id
	Save(ctx context.Context, d *domain.Drug) error
	GetByID(ctx context.Context, id int64) (*domain.Drug, error)
	UpdatePrice(ctx context.Context, id int64, price int64) error
	Search(ctx context.Context, f DrugFilter) ([]domain.Drug, error)
}

// PharmacyRepository справочник аптек
type PharmacyRepository interface {
	Save(ctx context.Context, p *domain.Pharmacy) error
	GetByID(ctx context.Context, id int64) (*domain.Pharmacy, error)
	ListActive(ctx context.Context) ([]domain.Pharmacy, error)
}

// StockRepository остатки по аптекам
type StockRepository interface {
	Upsert(ctx context.Context, s domain.PharmacyStock) error
	Get(ctx context.Context, pharmacyID, drugID int64) (*domain.PharmacyStock, error)
	// ListAvailable строки с residual > 0 по указанным препаратам во всех аптеках
	ListAvailable(ctx context.Context, drugIDs []int64) ([]domain.PharmacyStock, error)
	// Decrement атомарно уменьшает residual, только если residual >= qty.
	// false означает, что остатка не хватило (или строки нет).
	Decrement(ctx context.Context, pharmacyID, drugID, qty int64) (bool, error)
	Increment(ctx context.Context, pharmacyID, drugID, qty int64) error
}

// CartRepository корзины пользователей
type CartRepository interface {
	// Add вставляет строку с quantity=1 или увеличивает существующую на 1
	Add(ctx context.Context, userID, drugID int64) (*domain.CartItem, error)
	GetByID(ctx context.Context, id int64) (*domain.CartItem, error)
	// AdjustQuantity атомарно прибавляет delta к quantity строки пользователя.
	// Строка, у которой quantity стала бы меньше 1, удаляется; тогда возвращается nil.
	AdjustQuantity(ctx context.Context, id, userID, delta int64) (*domain.CartItem, error)
	Delete(ctx context.Context, id int64) error
	// ListLines строки корзины с препаратами в порядке добавления
	ListLines(ctx context.Context, userID int64) ([]domain.CartLine, error)
	// LockLines как ListLines, но блокирует строки до конца транзакции
	LockLines(ctx context.Context, userID int64) ([]domain.CartLine, error)
	Clear(ctx context.Context, userID int64) (int64, error)
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями; ErrDuplicate при повторе pickup_code
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByPickupCode(ctx context.Context, code string) (*domain.Order, error)
	// UpdateStatus сохраняет status, payment_status и completed_at
	UpdateStatus(ctx context.Context, o *domain.Order) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]domain.Order, error)
	// ListByPharmacy пустой status означает все статусы
	ListByPharmacy(ctx context.Context, pharmacyID int64, status domain.OrderStatus, limit int) ([]domain.Order, error)
	PharmacyStats(ctx context.Context, pharmacyID int64) (*domain.PharmacyStats, error)
}

// TxManager абстракция транзакции. Для in-memory: глобальная блокировка записи.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Repositories набор репозиториев одного хранилища
type Repositories struct {
	Drugs      DrugRepository
	Pharmacies PharmacyRepository
	Stock      StockRepository
	Carts      CartRepository
	Orders     OrderRepository
	Tx         TxManager
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func matchesDrug(d domain.Drug, q string) bool {
	return containsIgnoreCase(d.Name, q) ||
		containsIgnoreCase(d.Category, q) ||
		containsIgnoreCase(d.Manufacturer, q)
}
