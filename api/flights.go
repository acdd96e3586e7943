package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/avelinag/skyfare/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
}

type flightQuoteResponse struct {
	FlightID       int64   `json:"flight_id"`
	FlightNumber   string  `json:"flight_number"`
	Origin         string  `json:"origin"`
	Destination    string  `json:"destination"`
	DepartureTime  string  `json:"departure_time"`
	ArrivalTime    string  `json:"arrival_time"`
	BaseFare       float64 `json:"base_fare"`
	DynamicPrice   float64 `json:"dynamic_price"`
	SeatsAvailable int     `json:"seats_available"`
	TotalSeats     int     `json:"total_seats"`
}

func NewFlightHandler(service flights.FlightUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/search", h.search)
	router.GET("/:id", h.quote)
	router.GET("/:id/fares", h.fareHistory)
}

func (h *FlightHandler) list(c *gin.Context) {
	quotes, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuoteResponses(quotes))
}

func (h *FlightHandler) quote(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	quote, err := h.service.Quote(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuoteResponse(*quote))
}

func (h *FlightHandler) search(c *gin.Context) {
	origin := c.Query("origin")
	destination := c.Query("destination")
	if origin == "" || destination == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "origin and destination are required"})
		return
	}
	date, err := time.Parse("2006-01-02", c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	quotes, err := h.service.Search(c.Request.Context(), origin, destination, date, c.Query("sort"))
	if err != nil {
		if errors.Is(err, flights.ErrBadSort) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toQuoteResponses(quotes))
}

func (h *FlightHandler) fareHistory(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	entries, err := h.service.FareHistory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	type fareEntryResponse struct {
		BaseFare       float64 `json:"base_fare"`
		Price          float64 `json:"price"`
		SeatsAvailable int     `json:"seats_available"`
		Reason         string  `json:"reason"`
		RecordedAt     string  `json:"recorded_at"`
	}
	resp := make([]fareEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, fareEntryResponse{
			BaseFare:       e.BaseFare,
			Price:          e.Price,
			SeatsAvailable: e.SeatsAvailable,
			Reason:         string(e.Reason),
			RecordedAt:     e.RecordedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, resp)
}

func toQuoteResponse(q flights.FlightQuote) flightQuoteResponse {
	return flightQuoteResponse{
		FlightID:       q.Flight.ID,
		FlightNumber:   q.Flight.FlightNumber,
		Origin:         q.Flight.Origin,
		Destination:    q.Flight.Destination,
		DepartureTime:  q.Flight.DepartureTime.Format(time.RFC3339),
		ArrivalTime:    q.Flight.ArrivalTime.Format(time.RFC3339),
		BaseFare:       q.Flight.BaseFare,
		DynamicPrice:   q.DynamicPrice,
		SeatsAvailable: q.Flight.AvailableSeats,
		TotalSeats:     q.Flight.TotalSeats,
	}
}

func toQuoteResponses(quotes []flights.FlightQuote) []flightQuoteResponse {
	resp := make([]flightQuoteResponse, 0, len(quotes))
	for _, q := range quotes {
		resp = append(resp, toQuoteResponse(q))
	}
	return resp
}
