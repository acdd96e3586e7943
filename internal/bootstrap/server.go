package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/avelinag/skyfare/api"
	"github.com/avelinag/skyfare/config"
	"github.com/avelinag/skyfare/internal/service/booking"
	"github.com/avelinag/skyfare/internal/service/flights"
	"github.com/gin-gonic/gin"
)

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, flightSvc flights.FlightUseCase, bookingSvc booking.BookingUseCase) error {
	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.NewFlightHandler(flightSvc).Register(router.Group("/flights"))
	api.NewBookingHandler(bookingSvc).Register(router.Group("/bookings"))

	httpSrv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}
