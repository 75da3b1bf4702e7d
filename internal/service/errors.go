package service

import (
	"errors"
	"fmt"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/repository"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound drug, cart item, pharmacy или order не существует
	ErrNotFound = repository.ErrNotFound
	// ErrForbidden чужая строка корзины; наружу отдаётся как not found
	ErrForbidden           = errors.New("forbidden")
	ErrEmptyCart           = errors.New("cart is empty")
	ErrCartChanged         = errors.New("cart changed since pharmacy selection")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidState        = errors.New("invalid state")
	ErrDeliveryUnsupported = errors.New("delivery is not supported, choose pickup")
	ErrNoCheckout          = errors.New("no pending checkout")
	// ErrTransactionFailed сбой хранилища при оформлении, можно повторить
	ErrTransactionFailed = errors.New("transaction failed")
)

// StockShortageError остатка в аптеке не хватило на строку заказа
type StockShortageError struct {
	PharmacyID int64
	DrugID     int64
	Requested  int64
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for drug %d at pharmacy %d (requested %d)", e.DrugID, e.PharmacyID, e.Requested)
}

func (e *StockShortageError) Is(target error) bool { return target == ErrInsufficientStock }

// businessErrors проходят через finalize как есть, остальное считается сбоем хранилища
var businessErrors = []error{
	ErrInvalidInput, ErrNotFound, ErrForbidden, ErrEmptyCart, ErrCartChanged,
	ErrInsufficientStock, ErrInvalidState, ErrDeliveryUnsupported,
}

func isBusinessError(err error) bool {
	for _, target := range businessErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func storageError(err error) error {
	if err == nil || isBusinessError(err) || errors.Is(err, ErrTransactionFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransactionFailed, err)
}
