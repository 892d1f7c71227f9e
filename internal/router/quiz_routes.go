// Quiz platform API configuration - mirrors the MotherFactory/QuizHandler/
// QuizEscrow contract triad.
package router

import (
	"quiz-backend/internal/app"
	"quiz-backend/internal/handlers"
	"quiz-backend/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SetupQuizRoutes registers the quiz platform API routes
func SetupQuizRoutes(r *gin.Engine, container *app.ServiceContainer, localhostOnly *middleware.LocalhostOnly) {
	authMiddleware := middleware.NewAuthMiddleware(logrus.New())

	registryHandler := handlers.NewRegistryHandler(container.RegistryService, container.AvailableHandlers)
	quizHandler := handlers.NewQuizHandler(container.QuizEscrowService, container.QuizHandlerService, container.EscrowRepo)
	accountHandler := handlers.NewAdminAccountHandler(container.AccountRepo)
	wsHandler := handlers.NewWebSocketHandler(container.PushService)

	api := r.Group("/api")
	{
		// ============ Health ============
		api.GET("/health", handlers.HealthCheckHandler)

		// ============ Auth ============
		authHandler := handlers.NewAuthHandler()
		auth := api.Group("/auth")
		{
			// nonce + message to sign
			auth.GET("/nonce", authHandler.GenerateNonceHandler)

			// wallet signature login
			auth.POST("/login", authHandler.AuthenticateHandler)
		}

		// ============ Admin Auth ============
		adminAuthHandler := handlers.NewAdminAuthHandler()
		adminAuth := api.Group("/admin/auth")
		adminAuth.Use(localhostOnly.Restrict())
		{
			adminAuth.POST("/login", adminAuthHandler.AdminLoginHandler)
			adminAuth.POST("/totp/generate", adminAuthHandler.GenerateTOTPSecretHandler)
		}

		// ============ Registry (public views) ============
		registry := api.Group("/registry")
		{
			registry.GET("/owner", registryHandler.GetOwnerHandler)
			registry.GET("/types", registryHandler.ListContractTypesHandler)
			registry.GET("/handlers/:type", registryHandler.GetHandlerInfoHandler)
			registry.GET("/handlers/:type/fee", registryHandler.GetDeploymentFeeHandler)
			registry.GET("/deployments", registryHandler.ListDeploymentsHandler)
			registry.GET("/deployments/total", registryHandler.TotalDeployedHandler)
		}

		// ============ Registry (authenticated) ============
		secureRegistry := api.Group("/registry")
		secureRegistry.Use(authMiddleware.RequireAuth())
		{
			// owner-gated inside the service
			secureRegistry.POST("/handlers", registryHandler.RegisterHandlerHandler)
			secureRegistry.DELETE("/handlers/:type", registryHandler.RemoveHandlerHandler)
			secureRegistry.POST("/ownership", registryHandler.TransferOwnershipHandler)
			secureRegistry.POST("/ownership/renounce", registryHandler.RenounceOwnershipHandler)

			// any funded caller
			secureRegistry.POST("/deploy", registryHandler.DeployQuizHandler)
			secureRegistry.GET("/deployments/mine", registryHandler.MyDeploymentsHandler)
		}

		// ============ Quiz escrows (public views) ============
		quiz := api.Group("/quiz")
		{
			quiz.GET("/active", quizHandler.ListActiveQuizzesHandler)
			quiz.GET("/:address", quizHandler.GetQuizStatsHandler)
			quiz.GET("/:address/remaining", quizHandler.GetRemainingTimeHandler)
			quiz.GET("/:address/balance", quizHandler.GetQuizBalanceHandler)
			quiz.GET("/:address/participants", quizHandler.ListParticipantsHandler)
			quiz.GET("/:address/participants/:participant", quizHandler.GetParticipantHandler)
		}

		// ============ Quiz escrows (authenticated) ============
		secureQuiz := api.Group("/quiz")
		secureQuiz.Use(authMiddleware.RequireAuth())
		{
			secureQuiz.GET("/mine", quizHandler.MyQuizzesHandler)

			// operator-gated inside the service
			secureQuiz.POST("/:address/results", quizHandler.RecordResultHandler)

			// operator anytime, anyone after expiry
			secureQuiz.POST("/:address/end", quizHandler.EndQuizHandler)
		}

		// ============ Handler fees ============
		handlerFees := api.Group("/handler")
		{
			handlerFees.GET("/fees", quizHandler.FeeBalanceHandler)
			handlerFees.POST("/fees/withdraw", authMiddleware.RequireAuth(), quizHandler.WithdrawFeesHandler)
		}

		// ============ Accounts ============
		accounts := api.Group("/accounts")
		{
			accounts.GET("/:address/balance", accountHandler.GetAccountBalanceHandler)
		}

		// ============ Admin (IP whitelisted) ============
		admin := api.Group("/admin")
		admin.Use(localhostOnly.Restrict())
		{
			admin.POST("/accounts/credit", accountHandler.CreditAccountHandler)
		}

		// ============ WebSocket stats ============
		api.GET("/ws/stats", wsHandler.ConnectionStatsHandler)
	}
}
