package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
)

type transitionReq struct {
	Status domain.OrderStatus `json:"status" binding:"required"`
}

type pickupReq struct {
	Code string `json:"code" binding:"required"`
}

// listOrders godoc
// @Summary Последние заказы пользователя
// @Tags orders
// @Produce json
// @Param X-User-ID header int true "ID пользователя"
// @Param limit query int false "лимит"
// @Success 200 {array} domain.Order
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	items, err := s.svc.Orders.ListForUser(c.Request.Context(), currentUser(c), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// getOrder godoc
// @Summary Получить заказ
// @Tags orders
// @Produce json
// @Param X-User-ID header int true "ID пользователя"
// @Param id path int true "ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	o, err := s.svc.Orders.Get(c.Request.Context(), currentUser(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// cancelOrder godoc
// @Summary Отменить свой заказ
// @Description Списанные остатки возвращаются в аптеку
// @Tags orders
// @Produce json
// @Param X-User-ID header int true "ID пользователя"
// @Param id path int true "ID"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/cancel [post]
func (s *Server) cancelOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	o, err := s.svc.Orders.Cancel(c.Request.Context(), currentUser(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// transitionOrder godoc
// @Summary Сменить статус заказа (оператор аптеки)
// @Tags orders
// @Accept json
// @Produce json
// @Param X-User-ID header int true "ID оператора"
// @Param id path int true "ID"
// @Param input body transitionReq true "Новый статус"
// @Success 200 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /orders/{id}/status [post]
func (s *Server) transitionOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	o, err := s.svc.Orders.Transition(c.Request.Context(), id, req.Status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// listPharmacyOrders godoc
// @Summary Заказы аптеки
// @Tags pharmacies
// @Produce json
// @Param X-User-ID header int true "ID оператора"
// @Param id path int true "ID аптеки"
// @Param status query string false "pending, confirmed, ready, completed или cancelled"
// @Param limit query int false "лимит"
// @Success 200 {array} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /pharmacies/{id}/orders [get]
func (s *Server) listPharmacyOrders(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	status := domain.OrderStatus(c.Query("status"))
	items, err := s.svc.Orders.ListForPharmacy(c.Request.Context(), id, status, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// pharmacyStats godoc
// @Summary Статистика аптеки
// @Description Количество заказов по статусам и выручка по завершённым
// @Tags pharmacies
// @Produce json
// @Param X-User-ID header int true "ID оператора"
// @Param id path int true "ID аптеки"
// @Success 200 {object} domain.PharmacyStats
// @Failure 404 {object} map[string]string
// @Router /pharmacies/{id}/stats [get]
func (s *Server) pharmacyStats(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	st, err := s.svc.Orders.PharmacyStats(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// redeemPickup godoc
// @Summary Выдать заказ по коду получения
// @Tags pharmacies
// @Accept json
// @Produce json
// @Param X-User-ID header int true "ID оператора"
// @Param id path int true "ID аптеки"
// @Param input body pickupReq true "Код получения"
// @Success 200 {object} domain.Order
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /pharmacies/{id}/pickup [post]
func (s *Server) redeemPickup(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req pickupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	o, err := s.svc.Orders.RedeemPickup(c.Request.Context(), id, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
