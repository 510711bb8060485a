package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"careconnect-server/internal/config"
	"careconnect-server/internal/handlers"
	"careconnect-server/internal/middleware"
	"careconnect-server/internal/models"
	"careconnect-server/internal/realtime"
	"careconnect-server/internal/session"
	"careconnect-server/internal/storage"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, hub *realtime.Hub, sessions *session.Manager, blobs *storage.BlobStore, log *logrus.Logger) {
	authHandler := handlers.NewAuthHandler(db, cfg, sessions)
	userHandler := handlers.NewUserHandler(db, hub, log)
	appointmentHandler := handlers.NewAppointmentHandler(db, hub, log)
	medicineHandler := handlers.NewMedicineHandler(db, hub, log)
	orderHandler := handlers.NewOrderHandler(db, cfg, hub, log)
	messageHandler := handlers.NewMessageHandler(db, hub, log)
	notificationHandler := handlers.NewNotificationHandler(db, hub, log)
	attachmentHandler := handlers.NewAttachmentHandler(db, blobs, log)
	wsHandler := realtime.NewHandler(hub)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
			authRoutes.POST("/forgot-password", authHandler.ForgotPassword)
			authRoutes.POST("/reset-password", authHandler.ResetPassword)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(db, cfg, sessions))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// Directory + user management routes
		userRoutes := private.Group("/users")
		{
			// Directory endpoints for all authenticated users
			userRoutes.GET("/doctors", userHandler.GetDoctors)
			userRoutes.GET("/pharmacies", userHandler.GetPharmacies)
			userRoutes.GET("/doctor-patients", userHandler.GetDoctorPatients)

			// Admin-only routes
			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
				adminRoutes.PATCH("/:id/approve", userHandler.ApproveDoctor)
			}
		}

		// Appointment routes
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.PATCH("/:id/notes", middleware.RoleAuthMiddleware(models.RoleDoctor), appointmentHandler.UpdateAppointmentNotes)
		}

		// Pharmacy inventory routes; reads are open so patients can browse
		medicineRoutes := private.Group("/medicines")
		{
			medicineRoutes.GET("", medicineHandler.GetMedicines)
			pharmacyRoutes := medicineRoutes.Group("")
			pharmacyRoutes.Use(middleware.RoleAuthMiddleware(models.RolePharmacy))
			{
				pharmacyRoutes.POST("", medicineHandler.CreateMedicine)
				pharmacyRoutes.PUT("/:id", medicineHandler.UpdateMedicine)
				pharmacyRoutes.DELETE("/:id", medicineHandler.DeleteMedicine)
			}
		}

		// Order routes
		orderRoutes := private.Group("/orders")
		{
			orderRoutes.POST("", middleware.RoleAuthMiddleware(models.RolePatient), orderHandler.CreateOrder)
			orderRoutes.GET("", orderHandler.GetOrdersForUser)
			orderRoutes.GET("/:id", orderHandler.GetOrderByID)
			orderRoutes.PATCH("/:id/status", middleware.RoleAuthMiddleware(models.RolePharmacy), orderHandler.UpdateOrderStatus)
		}

		// Messaging routes
		messageRoutes := private.Group("/messages")
		{
			messageRoutes.POST("/send", messageHandler.SendMessage)
			messageRoutes.GET("/conversations", messageHandler.GetConversations)
			messageRoutes.GET("/conversations/:userId", messageHandler.GetConversation)
			messageRoutes.PATCH("/:messageId/read", messageHandler.MarkMessageAsRead)
		}

		// Notification feed routes
		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.GetNotifications)
			notificationRoutes.GET("/unread-count", notificationHandler.GetUnreadCount)
			notificationRoutes.PATCH("/:id/read", notificationHandler.MarkNotificationAsRead)
			notificationRoutes.PATCH("/read-all", notificationHandler.MarkAllNotificationsAsRead)
		}

		// Attachment routes
		attachmentRoutes := private.Group("/attachments")
		{
			attachmentRoutes.POST("", attachmentHandler.UploadAttachment)
			attachmentRoutes.GET("/:id", attachmentHandler.DownloadAttachment)
			attachmentRoutes.DELETE("/:id", attachmentHandler.DeleteAttachment)
		}

		// Live updates over WebSocket; token comes from the Authorization
		// header or the access_token query param for browser clients.
		private.GET("/ws", wsHandler.HandleConnect)
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
