package delivery

import (
	"context"
	"net/http"
	"time"

	"store_service/internal/domain"
	"store_service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Pinger reports whether a backing store is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type RouterDeps struct {
	Log            *logrus.Logger
	AuthMode       string
	JWTSecret      string
	// TrustedProxies may set X-Forwarded-For. Nil trusts none, so the client
	// IP is always the connection address.
	TrustedProxies []string
	Limiter        *middleware.RateLimiter
	DB             Pinger
	Categories     domain.CategoryUseCase
	Products       domain.ProductUseCase
	Carts          domain.CartUseCase
	Orders         domain.OrderUseCase
	Accounts       domain.AccountUseCase
}

func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(deps.TrustedProxies); err != nil {
		deps.Log.Errorf("Router: Invalid trusted proxies %v, trusting none: %v", deps.TrustedProxies, err)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery(), middleware.RequestLogger(deps.Log))
	if deps.Limiter != nil {
		router.Use(deps.Limiter.Limit())
	}

	router.GET("/healthz", healthz(deps.DB))

	protected := router.Group("", middleware.Authenticate(deps.AuthMode, deps.JWTSecret, deps.Log))
	admin := protected.Group("", middleware.RequireRole(middleware.RoleAdmin, deps.Log))

	NewAccountHandler(deps.Accounts, deps.Log).RegisterRoutes(router, protected)
	NewCategoryHandler(deps.Categories, deps.Log).RegisterRoutes(router, admin)
	NewProductHandler(deps.Products, deps.Log).RegisterRoutes(router, admin)
	NewCartHandler(deps.Carts, deps.Log).RegisterRoutes(protected)
	NewOrderHandler(deps.Orders, deps.Log).RegisterRoutes(protected, admin)

	return router
}

func healthz(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				ErrorResponse(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Database unreachable")
				return
			}
		}
		SuccessResponse(c, http.StatusOK, "OK", nil)
	}
}
