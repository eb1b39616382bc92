package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/perchnet/user-service/internal/core/ports"
	customMiddleware "github.com/perchnet/user-service/internal/infrastructure/httpserver/middleware"
	"github.com/perchnet/user-service/internal/infrastructure/ws"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type ServerDeps struct {
	UserService    ports.UserService
	AuthService    ports.AuthService
	FollowService  ports.FollowService
	ChatService    ports.ChatService
	RateLimiter    ports.RateLimiter
	Presence       ports.PresenceTracker
	Hub            *ws.Hub
	HealthCheckers []ports.HealthChecker
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	userService    ports.UserService
	authSvc        ports.AuthService
	followService  ports.FollowService
	chatService    ports.ChatService
	presence       ports.PresenceTracker
	hub            *ws.Hub
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()
	e.HideBanner = true

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		userService:    deps.UserService,
		authSvc:        deps.AuthService,
		followService:  deps.FollowService,
		chatService:    deps.ChatService,
		presence:       deps.Presence,
		hub:            deps.Hub,
		healthCheckers: deps.HealthCheckers,
		middleware: customMiddleware.NewMiddlewareCollection(
			deps.AuthService,
			deps.RateLimiter,
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
