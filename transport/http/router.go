package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/ridegate/core"
	"github.com/layer-3/ridegate/service"
	"github.com/sirupsen/logrus"
)

// RouterConfig wires the edge router together.
type RouterConfig struct {
	Auth     *service.AuthService
	Services []core.ServiceDescriptor
	Log      *logrus.Logger

	ProxyTimeout time.Duration
	ProbeTimeout time.Duration
	CORSOrigins  []string

	// Per-route-class budgets
	GeneralLimiter    *RateLimiter
	CredentialLimiter *RateLimiter
	MoneyLimiter      *RateLimiter
	RideLimiter       *RateLimiter
}

// SetupRouter builds the gin engine: identity endpoints served locally,
// every other prefix forwarded to its backend under the route policy.
func SetupRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(cfg.Log))
	router.Use(RequestLogger(cfg.Log))
	router.Use(CORS(cfg.CORSOrigins))
	if cfg.GeneralLimiter != nil {
		router.Use(cfg.GeneralLimiter.Middleware())
	}

	handlers := NewAuthHandlers(cfg.Auth)
	proxy := NewProxy(cfg.ProxyTimeout, cfg.Log)
	checker := NewHealthChecker(cfg.Services, cfg.ProbeTimeout, cfg.Log)

	// Liveness
	router.GET("/health", GatewayHealthHandler)
	router.GET("/health/services", checker.ServicesHandler())

	// Identity endpoints, served by this process. Credential endpoints
	// share a strict success-exempt budget.
	auth := router.Group("/auth")
	{
		credential := cfg.CredentialLimiter
		if credential != nil {
			auth.POST("/register", credential.Middleware(), handlers.Register)
			auth.POST("/login", credential.Middleware(), handlers.Login)
			auth.POST("/refresh-token", credential.Middleware(), handlers.Refresh)
		} else {
			auth.POST("/register", handlers.Register)
			auth.POST("/login", handlers.Login)
			auth.POST("/refresh-token", handlers.Refresh)
		}

		authenticated := auth.Group("")
		authenticated.Use(Authenticate(cfg.Auth))
		{
			authenticated.POST("/logout", handlers.Logout)
			authenticated.GET("/profile", handlers.Profile)
			authenticated.PUT("/profile", handlers.UpdateProfile)
			authenticated.POST("/change-password", handlers.ChangePassword)
			authenticated.PUT("/deactivate", handlers.Deactivate)
		}
	}

	// Proxied backends
	for _, desc := range cfg.Services {
		group := router.Group(desc.PathPrefix)
		group.Use(Authenticate(cfg.Auth))

		switch desc.PathPrefix {
		case "/drivers":
			group.Use(RequireRoleFor(map[string][]core.Role{
				http.MethodPost:   {core.RoleAdmin},
				http.MethodPut:    {core.RoleAdmin, core.RoleDriver},
				http.MethodDelete: {core.RoleAdmin},
			}))
		case "/pricing":
			group.Use(RequireRoleFor(map[string][]core.Role{
				http.MethodPost:   {core.RoleAdmin},
				http.MethodDelete: {core.RoleAdmin},
			}))
		case "/payments":
			if cfg.MoneyLimiter != nil {
				group.Use(cfg.MoneyLimiter.Middleware())
			}
		case "/rides":
			if cfg.RideLimiter != nil {
				group.Use(cfg.RideLimiter.MiddlewareFor(http.MethodPost))
			}
		}

		group.Any("/*proxyPath", proxy.Forward(desc))
	}

	return router
}
