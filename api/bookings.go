package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/avelinag/skyfare/internal/domain"
	"github.com/avelinag/skyfare/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type startHoldRequest struct {
	FlightID  int64  `json:"flight_id" binding:"required"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" binding:"required,email"`
}

type payRequest struct {
	SimulateSuccess *bool `json:"simulate_success"`
}

type cancelRequest struct {
	PNR string `json:"pnr" binding:"required"`
}

type bookingResponse struct {
	BookingID     int64   `json:"booking_id"`
	FlightID      int64   `json:"flight_id"`
	PassengerID   int64   `json:"passenger_id"`
	SeatLabel     string  `json:"seat_label"`
	Price         float64 `json:"price"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	PNR           string  `json:"pnr,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.start)
	router.POST("/:id/pay", h.pay)
	router.POST("/cancel", h.cancel)
	router.GET("/history/:email", h.history)
	router.GET("/:id", h.get)
}

func (h *BookingHandler) start(c *gin.Context) {
	var req startHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.StartHold(c.Request.Context(), booking.StartHoldInput{
		FlightID:  req.FlightID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) pay(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	var req payRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	settled, err := h.service.Pay(c.Request.Context(), id, req.SimulateSuccess)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(settled))
}

func (h *BookingHandler) cancel(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cancelled, err := h.service.Cancel(c.Request.Context(), req.PNR)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(cancelled))
}

// get looks a booking up by confirmation code (PNR).
func (h *BookingHandler) get(c *gin.Context) {
	found, err := h.service.GetByCode(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(found))
}

func (h *BookingHandler) history(c *gin.Context) {
	history, err := h.service.HistoryByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]bookingResponse, 0, len(history))
	for i := range history {
		resp = append(resp, toBookingResponse(&history[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		BookingID:     b.ID,
		FlightID:      b.FlightID,
		PassengerID:   b.PassengerID,
		SeatLabel:     b.SeatLabel,
		Price:         b.Price,
		Status:        string(b.Status),
		PaymentStatus: string(b.PaymentStatus),
		PNR:           b.PNR,
		CreatedAt:     b.CreatedAt.Format(time.RFC3339),
	}
}
