package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/service"
)

func mapErrorToStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrForbidden):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDeliveryUnsupported):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrCartChanged),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrNoCheckout):
		return http.StatusConflict
	case errors.Is(err, service.ErrTransactionFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError не раскрывает детали хранилища; чужие строки корзины выглядят отсутствующими
func writeError(c *gin.Context, err error) {
	status := mapErrorToStatus(err)
	msg := err.Error()
	switch {
	case errors.Is(err, service.ErrForbidden):
		msg = service.ErrNotFound.Error()
	case status == http.StatusServiceUnavailable:
		msg = "order could not be placed, please retry"
	case status == http.StatusInternalServerError:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unhandled error")
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
