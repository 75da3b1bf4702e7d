package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/domain"
	"github.com/PharmaUz/Uz-Pharma-Bot/internal/geo"
)

// Drug handlers

// searchDrugs godoc
// @Summary Поиск препаратов
// @Tags drugs
// @Produce json
// @Param q query string false "подстрока названия, категории или производителя"
// @Param limit query int false "лимит"
// @Success 200 {array} domain.Drug
// @Failure 400 {object} map[string]string
// @Router /drugs [get]
func (s *Server) searchDrugs(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	items, err := s.svc.Catalog.Search(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// getDrug godoc
// @Summary Получить препарат
// @Tags drugs
// @Produce json
// @Param id path int true "ID"
// @Success 200 {object} domain.Drug
// @Failure 404 {object} map[string]string
// @Router /drugs/{id} [get]
func (s *Server) getDrug(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	d, err := s.svc.Catalog.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Cart handlers

type addCartItemReq struct {
	DrugID int64 `json:"drug_id" binding:"required,min=1"`
}

// getCart godoc
// @Summary Корзина пользователя с итогом по текущим ценам
// @Tags cart
// @Produce json
// @Param X-User-ID header int true "ID пользователя"
// @Success 200 {object} domain.CartSnapshot
// @Router /cart [get]
func (s *Server) getCart(c *gin.Context) {
	snap, err := s.svc.Carts.Snapshot(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if snap.Lines == nil {
		snap.Lines = []domain.CartLine{}
	}
	c.JSON(http.StatusOK, snap)
}

// addCartItem godoc
// @Summary Добавить препарат в корзину
// @Description Повторное добавление увеличивает количество на 1
// @Tags cart
// @Accept json
// @Produce json
// @Param X-User-ID header int true "ID пользователя"
// @Param input body addCartItemReq true "Препарат"
// @Success 201 {object} domain.CartItem
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /cart/items [post]
func (s *Server) addCartItem(c *gin.Context) {
	var req addCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	it, err := s.svc.Carts.Add(c.Request.Context(), currentUser(c), req.DrugID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, it)
}

// increaseCartItem godoc
// @Summary Увеличить количество на 1
// @Tags cart
// @Produce json
// @Param X-User-ID header int true "ID пользователя"
// @Param id path int true "ID строки корзины"
// @Success 200 {object} domain.CartItem
// @Failure 404 {object} map[string]string
// @Router /cart/items/{id}/increase [post]
func (s *Server) increaseCartItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	it, err := s.svc.Carts.Increase(c.Request.Context(), id, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, it)
}

// decreaseCartItem godoc
// @Summary Уменьшить количество на 1
// @Description Последняя единица удаляет строку, ответ 204
// @Tags cart
// @Produce json
// @Param X-User-ID header int true "ID пользователя"
// @Param id path int true "ID строки корзины"
// @Success 200 {object} domain.CartItem
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /cart/items/{id}/decrease [post]
func (s *Server) decreaseCartItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	it, err := s.svc.Carts.Decrease(c.Request.Context(), id, currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if it == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, it)
}

// removeCartItem godoc
// @Summary Удалить строку корзины
// @Tags cart
// @Param X-User-ID header int true "ID пользователя"
// @Param id path int true "ID строки корзины"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /cart/items/{id} [delete]
func (s *Server) removeCartItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := s.svc.Carts.Remove(c.Request.Context(), id, currentUser(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// clearCart godoc
// @Summary Очистить корзину
// @Tags cart
// @Produce json
// @Param X-User-ID header int true "ID пользователя"
// @Success 200 {object} map[string]int64
// @Router /cart [delete]
func (s *Server) clearCart(c *gin.Context) {
	n, err := s.svc.Carts.Clear(c.Request.Context(), currentUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	s.svc.Checkout.Abandon(currentUser(c))
	c.JSON(http.StatusOK, gin.H{"removed": n})
}

// Checkout handlers

type findPharmaciesReq struct {
	DeliveryType string   `json:"delivery_type"`
	Latitude     *float64 `json:"latitude" binding:"required"`
	Longitude    *float64 `json:"longitude" binding:"required"`
}

type findPharmaciesResp struct {
	Covered    bool                `json:"covered"`
	Snapshot   domain.CartSnapshot `json:"snapshot"`
	Candidates []matchResp         `json:"candidates"`
}

type matchResp struct {
	Pharmacy   domain.Pharmacy `json:"pharmacy"`
	DistanceKm float64         `json:"distance_km"`
}

type confirmReq struct {
	PharmacyID int64 `json:"pharmacy_id" binding:"required,min=1"`
}

// findPharmacies godoc
// @Summary Подобрать аптеки для корзины
// @Description До трёх ближайших аптек, в которых есть весь набор. Пустой список значит, что набор не собрать ни в одной аптеке.
// @Tags checkout
// @Accept json
// @Produce json
// @Param X-User-ID header int true "ID пользователя"
// @Param input body findPharmaciesReq true "Способ получения и координаты"
// @Success 200 {object} findPharmaciesResp
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /checkout/pharmacies [post]
func (s *Server) findPharmacies(c *gin.Context) {
	var req findPharmaciesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	at := geo.Point{Lat: *req.Latitude, Lon: *req.Longitude}
	co, err := s.svc.Checkout.Begin(c.Request.Context(), currentUser(c), req.DeliveryType, at)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := findPharmaciesResp{Covered: co.Covered(), Snapshot: co.Snapshot, Candidates: make([]matchResp, 0, len(co.Candidates))}
	for _, m := range co.Candidates {
		resp.Candidates = append(resp.Candidates, matchResp{Pharmacy: m.Pharmacy, DistanceKm: m.DistanceKm})
	}
	c.JSON(http.StatusOK, resp)
}

// confirmCheckout godoc
// @Summary Оформить заказ в выбранной аптеке
// @Tags checkout
// @Accept json
// @Produce json
// @Param X-User-ID header int true "ID пользователя"
// @Param input body confirmReq true "Аптека из предложенных"
// @Success 201 {object} domain.Order
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /checkout/confirm [post]
func (s *Server) confirmCheckout(c *gin.Context) {
	var req confirmReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	o, err := s.svc.Checkout.Confirm(c.Request.Context(), currentUser(c), req.PharmacyID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		badRequest(c, "invalid limit")
		return 0, false
	}
	return n, true
}
