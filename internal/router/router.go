package router

import (
	"time"

	"sellsmart/internal/config"
	"sellsmart/internal/handler"
	"sellsmart/internal/middleware"
	"sellsmart/internal/repository"
	"sellsmart/internal/service"
	"sellsmart/internal/store"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← Store
func New(cfg *config.Config, st store.Store) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	attrRepo := repository.NewAttributeRepository(st)
	productRepo := repository.NewProductRepository(st)
	detailRepo := repository.NewVariantDetailRepository(st)

	// ── Services ─────────────────────────────────────────────────────────────
	// The cross-process import lock is only meaningful when the redis store
	// backs the records; the CAS retry loop covers correctness either way.
	var locker *redislock.Client
	if cfg.ImportLockEnabled {
		if rs, ok := st.(*store.Redis); ok {
			l := redislock.New(rs.Client())
			locker = l
		}
	}

	catalogSvc := service.NewCatalogService(attrRepo, cfg.ImportRetryAttempts)
	inventorySvc := service.NewInventoryService(productRepo, detailRepo, catalogSvc, cfg.ImportRetryAttempts, locker)
	productSvc := service.NewProductService(productRepo, inventorySvc)

	// ── Handlers ─────────────────────────────────────────────────────────────
	productsH := handler.NewProductsHandler(productSvc)
	inventoryH := handler.NewInventoryHandler(inventorySvc)
	attributesH := handler.NewAttributesHandler(catalogSvc)

	// ── Routes ───────────────────────────────────────────────────────────────
	r.GET("/health", handler.Health(st))

	v1 := r.Group("/v1")
	{
		v1.POST("/products", productsH.Create)
		v1.GET("/products", productsH.List)
		v1.GET("/products/:id", productsH.Get)
		v1.GET("/products/:id/batches", productsH.BatchHistory)
		v1.POST("/products/:id/variants", productsH.DeclareVariant)
		v1.POST("/products/:id/recompute", inventoryH.RecomputeAggregates)

		v1.POST("/inventory/batches", inventoryH.ImportBatch)

		v1.GET("/attributes", attributesH.List)
	}

	return r
}
