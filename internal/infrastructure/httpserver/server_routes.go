package httpserver

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/metrics", s.metricsEndpoint)

	api := s.echo.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/login", s.login)
	auth.POST("/refresh", s.refreshToken)

	api.POST("/users", s.register)
	api.GET("/profiles/:username", s.getPublicProfile)
	api.GET("/users/search", s.searchUsernames)

	protected := api.Group("")
	protected.Use(s.middleware.JWT.RequireJWT())

	protected.GET("/users/me", s.getOwnProfile)
	protected.PUT("/users/me", s.updateOwnProfile)

	protected.POST("/users/:id/follow", s.followUser)
	protected.DELETE("/users/:id/follow", s.unfollowUser)

	protected.GET("/presence/:id", s.getPresence)

	chats := protected.Group("/chats")
	chats.POST("", s.openChat)
	chats.GET("", s.listChats)
	chats.POST("/:id/messages", s.sendMessage)
	chats.GET("/:id/messages", s.listMessages)

	// Websocket upgrade authenticates inside the handler so browser clients
	// can pass the token as a query parameter.
	s.echo.GET("/ws/chat", s.chatWebsocket)
}
