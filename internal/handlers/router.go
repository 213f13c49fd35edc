package handlers

import (
	"github.com/gin-gonic/gin"
)

// Routes groups the handlers served by the API
type Routes struct {
	Tours     *TourHandler
	Bookings  *BookingHandler
	Enquiries *EnquiryHandler
	Admin     *AdminHandler
}

// Register mounts the API under /api/v1. auth authenticates a caller and
// operator additionally requires the operator role.
func (r Routes) Register(router *gin.Engine, auth, operator gin.HandlerFunc) {
	v1 := router.Group("/api/v1")

	tours := v1.Group("/tours")
	{
		tours.GET("", r.Tours.ListTours)
		tours.GET("/:id", r.Tours.GetTour)
	}

	v1.POST("/bookings/quote", r.Bookings.Quote)
	v1.POST("/enquiries", r.Enquiries.CreateEnquiry)

	bookings := v1.Group("/bookings")
	bookings.Use(auth)
	{
		bookings.POST("", r.Bookings.CreateBooking)
		bookings.GET("", r.Bookings.ListMyBookings)
		bookings.GET("/:id", r.Bookings.GetMyBooking)
	}

	admin := v1.Group("/admin")
	admin.Use(auth, operator)
	{
		admin.GET("/bookings", r.Admin.ListBookings)
		admin.PATCH("/bookings/:id/status", r.Admin.UpdateBookingStatus)
		admin.GET("/enquiries", r.Admin.ListEnquiries)
		admin.PATCH("/enquiries/:id/status", r.Admin.UpdateEnquiryStatus)
		admin.GET("/stats", r.Admin.GetStats)
		admin.GET("/stats/tours", r.Admin.GetTourStats)
		admin.GET("/reconcile", r.Admin.ReconcileStatus)
		admin.POST("/reconcile", r.Admin.Reconcile)
	}
}
