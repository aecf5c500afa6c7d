package handler

import (
	"slices"
	"time"

	"storefront/internal/database"
	"storefront/internal/domain"
	"storefront/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type RouterConfig struct {
	Orders  service.OrderService
	Carts   service.CartService
	Catalog service.CatalogService
	DB      database.Service

	JWTSecret          string
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
	Logger             logrus.FieldLogger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(
		gin.Recovery(),
		RequestLogger(cfg.Logger),
		cors.New(corsConfig(cfg.CORSAllowedOrigins)),
		RequestTimeout(cfg.RequestTimeout),
	)

	health := NewHealthHandler(cfg.DB)
	orders := NewOrderHandler(cfg.Orders, cfg.Logger)
	carts := NewCartHandler(cfg.Carts, cfg.Logger)
	products := NewProductHandler(cfg.Catalog, cfg.Logger)

	r.GET("/health", health.Health)
	r.GET("/products/recommendations/search", products.Recommendations)

	auth := Authenticate(cfg.JWTSecret)

	o := r.Group("/orders", auth)
	o.POST("", orders.Create)
	o.GET("", orders.List)
	o.GET("/:id", orders.Get)
	o.PUT("/:id", AuthorizeRoles(domain.RoleAdmin), orders.UpdateStatus)

	c := r.Group("/carts", auth)
	c.POST("/add", carts.Add)
	c.POST("/update", carts.Update)
	c.DELETE("/remove", carts.Remove)
	c.DELETE("/clear", carts.Clear)
	c.GET("", carts.List)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
