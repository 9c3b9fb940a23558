package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/deifi86/TeamChat/internal/config"
	"github.com/deifi86/TeamChat/internal/db"
	"github.com/deifi86/TeamChat/internal/encryption"
	"github.com/deifi86/TeamChat/internal/handlers"
	"github.com/deifi86/TeamChat/internal/middleware"
	"github.com/deifi86/TeamChat/internal/observability"
	"github.com/deifi86/TeamChat/internal/rabbitmq"
	"github.com/deifi86/TeamChat/internal/repositories"
	"github.com/deifi86/TeamChat/internal/session"
	"github.com/deifi86/TeamChat/internal/telemetry"
	"github.com/deifi86/TeamChat/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	key, err := cfg.EncryptionKey()
	if err != nil {
		log.Fatalf("invalid encryption key: %v", err)
	}
	encryptor, err := encryption.NewEncryptor(key)
	if err != nil {
		log.Fatalf("failed to build encryptor: %v", err)
	}

	sessions, err := session.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	shutdownTracing, err := telemetry.SetupTracing(context.Background(), cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
	defer publisher.Close()
	audit := telemetry.NewAuditEmitter(publisher, "audit.teamchat", cfg.Telemetry.ServiceName, cfg.Server.Environment)

	userRepo := repositories.NewUserRepo(database)
	companyRepo := repositories.NewCompanyRepo(database)
	channelRepo := repositories.NewChannelRepo(database)
	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)
	fileRepo := repositories.NewFileRepo(database)
	receiptRepo := repositories.NewReceiptRepo(database)

	hub := ws.NewHub()

	userHandler := handlers.NewUserHandler(userRepo, companyRepo, hub, audit)
	companyHandler := handlers.NewCompanyHandler(companyRepo, audit)
	channelHandler := handlers.NewChannelHandler(channelRepo, companyRepo, audit)
	messageHandler := handlers.NewMessageHandler(messageRepo, channelRepo, conversationRepo, companyRepo, userRepo, receiptRepo, encryptor, hub, audit)
	conversationHandler := handlers.NewConversationHandler(conversationRepo, messageRepo, userRepo, companyRepo, encryptor, hub, audit)
	reactionHandler := handlers.NewReactionHandler(reactionRepo, messageRepo, userRepo, channelRepo, conversationRepo, hub, audit)
	fileHandler := handlers.NewFileHandler(fileRepo, messageRepo, channelRepo, conversationRepo, audit)

	subscribeHandler := ws.NewSubscribeHandler(hub, sessions, userRepo, companyRepo, channelRepo, conversationRepo, publisher)

	router := gin.Default()
	router.Use(otelgin.Middleware(cfg.Telemetry.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(sessions)
	api := router.Group("/", authMiddleware)

	api.GET("/users/me", userHandler.Me)
	api.PUT("/users/me", userHandler.UpdateProfile)
	api.PUT("/users/me/status", userHandler.UpdateStatus)
	api.GET("/users/search", userHandler.Search)

	api.GET("/companies", companyHandler.MyCompanies)
	api.POST("/companies", companyHandler.Create)
	api.GET("/companies/search", companyHandler.Search)
	api.POST("/companies/:company_id/join", companyHandler.Join)
	api.POST("/companies/:company_id/leave", companyHandler.Leave)
	api.PUT("/companies/:company_id/members/:user_id", companyHandler.UpdateMember)
	api.DELETE("/companies/:company_id/members/:user_id", companyHandler.RemoveMember)
	api.GET("/companies/:company_id/members", companyHandler.ListMembers)
	api.POST("/companies/:company_id/channels", channelHandler.CreateChannel)
	api.GET("/companies/:company_id/channels", channelHandler.ListChannels)

	api.GET("/channels/:channel_id", channelHandler.GetChannel)
	api.PUT("/channels/:channel_id", channelHandler.UpdateChannel)
	api.DELETE("/channels/:channel_id", channelHandler.DeleteChannel)
	api.GET("/channels/:channel_id/members", channelHandler.ListMembers)
	api.POST("/channels/:channel_id/members", channelHandler.AddMember)
	api.DELETE("/channels/:channel_id/members/:user_id", channelHandler.RemoveMember)
	api.POST("/channels/:channel_id/join-requests", channelHandler.CreateJoinRequest)
	api.GET("/channels/:channel_id/join-requests", channelHandler.ListJoinRequests)
	api.PUT("/channels/:channel_id/join-requests/:request_id", channelHandler.ResolveJoinRequest)

	api.GET("/channels/:channel_id/messages", messageHandler.ListChannelMessages)
	api.POST("/channels/:channel_id/messages", messageHandler.PostChannelMessage)
	api.POST("/channels/:channel_id/typing", messageHandler.ChannelTyping)
	api.POST("/channels/:channel_id/read", messageHandler.ChannelRead)
	api.POST("/channels/:channel_id/files", fileHandler.CreateChannelFile)
	api.GET("/channels/:channel_id/files", fileHandler.ListChannelFiles)

	api.GET("/conversations", conversationHandler.ListConversations)
	api.POST("/conversations", conversationHandler.CreateConversation)
	api.GET("/conversations/:conversation_id", conversationHandler.GetConversation)
	api.POST("/conversations/:conversation_id/accept", conversationHandler.AcceptConversation)
	api.POST("/conversations/:conversation_id/reject", conversationHandler.RejectConversation)
	api.DELETE("/conversations/:conversation_id", conversationHandler.DeleteConversation)
	api.GET("/conversations/:conversation_id/messages", messageHandler.ListConversationMessages)
	api.POST("/conversations/:conversation_id/messages", messageHandler.PostConversationMessage)
	api.POST("/conversations/:conversation_id/typing", messageHandler.ConversationTyping)
	api.POST("/conversations/:conversation_id/read", messageHandler.ConversationRead)
	api.POST("/conversations/:conversation_id/files", fileHandler.CreateConversationFile)
	api.GET("/conversations/:conversation_id/files", fileHandler.ListConversationFiles)

	api.PUT("/messages/:message_id", messageHandler.EditMessage)
	api.DELETE("/messages/:message_id", messageHandler.DeleteMessage)
	api.POST("/messages/:message_id/reactions", reactionHandler.AddReaction)
	api.GET("/messages/:message_id/reactions", reactionHandler.ListReactions)
	api.POST("/messages/:message_id/reactions/toggle", reactionHandler.ToggleReaction)
	api.DELETE("/messages/:message_id/reactions/:emoji", reactionHandler.RemoveReaction)

	router.GET("/ws/user", subscribeHandler.HandleUser)
	router.GET("/ws/channels/:channel_id", subscribeHandler.HandleChannel)
	router.GET("/ws/conversations/:conversation_id", subscribeHandler.HandleConversation)
	router.GET("/ws/companies/:company_id", subscribeHandler.HandleCompany)

	handlers.RegisterDebugRoutes(router, audit, cfg.Server.Environment != "production")

	log.Printf("listening on :%s amqp=%s", cfg.Server.Port, rabbitmq.PublisherMode(publisher))
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
