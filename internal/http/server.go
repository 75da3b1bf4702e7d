package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/PharmaUz/Uz-Pharma-Bot/internal/service"
)

// Services то, что вызывает диалоговый фронтенд
type Services struct {
	Catalog  *service.CatalogService
	Carts    *service.CartService
	Checkout *service.CheckoutService
	Orders   *service.OrderService
}

type Server struct {
	engine *gin.Engine
	svc    Services
}

func NewServer(svc Services) *Server {
	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())
	s := &Server{engine: r, svc: svc}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	v1 := s.engine.Group("/api/v1")
	{
		drugs := v1.Group("/drugs")
		drugs.GET("", s.searchDrugs)
		drugs.GET(":id", s.getDrug)

		user := v1.Group("", requireUser())

		cart := user.Group("/cart")
		cart.GET("", s.getCart)
		cart.DELETE("", s.clearCart)
		cart.POST("/items", s.addCartItem)
		cart.POST("/items/:id/increase", s.increaseCartItem)
		cart.POST("/items/:id/decrease", s.decreaseCartItem)
		cart.DELETE("/items/:id", s.removeCartItem)

		checkout := user.Group("/checkout")
		checkout.POST("/pharmacies", s.findPharmacies)
		checkout.POST("/confirm", s.confirmCheckout)

		orders := user.Group("/orders")
		orders.GET("", s.listOrders)
		orders.GET(":id", s.getOrder)
		orders.POST(":id/cancel", s.cancelOrder)
		orders.POST(":id/status", s.transitionOrder)

		pharmacies := user.Group("/pharmacies")
		pharmacies.GET(":id/orders", s.listPharmacyOrders)
		pharmacies.GET(":id/stats", s.pharmacyStats)
		pharmacies.POST(":id/pickup", s.redeemPickup)
	}
}
