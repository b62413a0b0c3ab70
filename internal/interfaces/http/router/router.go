package router

import (
	"net/http"

	"github.com/astracore/gl-service/internal/infrastructure/logger"
	"github.com/astracore/gl-service/internal/interfaces/http/dto"
	"github.com/astracore/gl-service/internal/interfaces/http/handler"
	"github.com/astracore/gl-service/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// apiPrefix is where the read-only ledger API lives
const apiPrefix = "/api/v1"

// route is one GET endpoint relative to its group
type route struct {
	path    string
	handler gin.HandlerFunc
}

// routeGroup is a prefix with its routes and any group-only middleware
type routeGroup struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
}

// mount registers every group under base. The API is read-only so all
// routes are GETs.
func mount(base *gin.RouterGroup, groups ...routeGroup) {
	for _, g := range groups {
		rg := base.Group(g.prefix, g.middleware...)
		for _, rt := range g.routes {
			rg.GET(rt.path, rt.handler)
		}
	}
}

// Options wires the operational HTTP surface
type Options struct {
	Logger         *zap.Logger
	Mode           string // gin mode: debug, release, test
	ServiceName    string
	TracingEnabled bool
	Meter          metric.Meter // nil disables HTTP metrics
	TrustedProxies []string

	Health *handler.HealthHandler
	Ledger *handler.LedgerHandler
	Outbox *handler.OutboxHandler // optional
}

// NewEngine builds the gin engine with health checks at the root and the read-only
// ledger API under /api/v1
func NewEngine(opts Options) (*gin.Engine, error) {
	if opts.Mode != "" {
		gin.SetMode(opts.Mode)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}

	middleware.SetupValidator()

	engine.Use(logger.Recovery(opts.Logger))
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: opts.ServiceName,
		Enabled:     opts.TracingEnabled,
	})...)
	if opts.Meter != nil {
		metrics, err := middleware.HTTPMetrics(opts.Meter)
		if err != nil {
			return nil, err
		}
		engine.Use(metrics)
	}
	engine.Use(logger.GinMiddleware(opts.Logger))

	engine.GET("/health", opts.Health.Health)
	engine.GET("/ready", opts.Health.Ready)

	groups := []routeGroup{
		{prefix: "/accounts", routes: []route{
			{"", opts.Ledger.ListAccounts},
			{"/:code", opts.Ledger.GetAccount},
		}},
		{prefix: "/transactions", routes: []route{
			{"", opts.Ledger.FindTransaction},
			{"/:id", opts.Ledger.GetTransaction},
		}},
	}
	if opts.Outbox != nil {
		groups = append(groups, routeGroup{prefix: "/outbox", routes: []route{
			{"/stats", opts.Outbox.Stats},
			{"/dead", opts.Outbox.DeadEntries},
		}})
	}
	mount(engine.Group(apiPrefix), groups...)

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponseWithRequestID(dto.ErrCodeNotFound,
			"route not found", logger.GetRequestID(c.Request.Context())))
	})

	return engine, nil
}
