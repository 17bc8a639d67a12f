package routes

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/scholarstream/api/docs" // generated swagger docs
	"github.com/scholarstream/api/internal/app/controllers"
	"github.com/scholarstream/api/internal/middleware"
	"github.com/scholarstream/api/internal/pkg/metrics"
)

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	ctrl *controllers.Controllers,
	authMiddleware *middleware.AuthMiddleware,
) {
	// --- System routes ---
	router.GET("/", ctrl.Health.Banner)
	router.GET("/health", ctrl.Health.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json"), ginSwagger.DefaultModelsExpandDepth(1)))

	// Provider callbacks authenticate by signature, not by bearer token
	router.POST("/webhooks/stripe", ctrl.Payment.StripeWebhook)

	authenticated := authMiddleware.Authenticate()
	admin := authMiddleware.RequireAdmin()
	staff := authMiddleware.RequireModerator()

	users := router.Group("/users")
	{
		users.POST("", ctrl.User.Register)
		users.GET("/:email/role", ctrl.User.GetRole)
		users.GET("/me", authenticated, ctrl.User.Me)

		users.GET("", admin, ctrl.User.ListUsers)
		users.PATCH("/:id/role", admin, ctrl.User.UpdateRole)
		users.DELETE("/:id", admin, ctrl.User.DeleteUser)
	}

	scholarships := router.Group("/scholarships")
	{
		scholarships.GET("", ctrl.Scholarship.GetScholarships)
		scholarships.GET("/:id", ctrl.Scholarship.GetScholarship)

		scholarships.POST("", admin, ctrl.Scholarship.CreateScholarship)
		scholarships.PATCH("/:id", admin, ctrl.Scholarship.UpdateScholarship)
		scholarships.PUT("/:id", admin, ctrl.Scholarship.UpdateScholarship)
		scholarships.DELETE("/:id", admin, ctrl.Scholarship.DeleteScholarship)
	}

	reviews := router.Group("/reviews")
	{
		reviews.GET("", ctrl.Review.GetReviews)
		reviews.POST("", authenticated, ctrl.Review.CreateReview)
		reviews.DELETE("/:id", authenticated, ctrl.Review.DeleteReview)
	}

	applications := router.Group("/applications")
	{
		applications.GET("/check", ctrl.Application.CheckApplication)

		applications.GET("", staff, ctrl.Application.GetApplications)
		applications.PATCH("/:id", staff, ctrl.Application.UpdateStatus)

		// Feedback-only updates check the staff role in the service
		applications.PATCH("/feedback/:id", authenticated, ctrl.Application.UpdateFeedback)

		applications.POST("", authenticated, ctrl.Application.CreateApplication)
		applications.GET("/student", authenticated, ctrl.Application.GetMyApplications)
		applications.GET("/student/:email", authenticated, ctrl.Application.GetStudentApplications)
		applications.GET("/:id", authenticated, ctrl.Application.GetApplication)
		applications.DELETE("/:id", authenticated, ctrl.Application.CancelApplication)

		applications.PATCH("/:id/payment-success", authenticated, ctrl.Payment.PaymentSuccess)
		applications.PATCH("/:id/payment-cancel", authenticated, ctrl.Payment.PaymentCancel)
	}

	router.POST("/create-checkout-session", authenticated, ctrl.Payment.CreateCheckoutSession)
	router.PATCH("/update-payment-status", authenticated, ctrl.Payment.UpdatePaymentStatus)
}
