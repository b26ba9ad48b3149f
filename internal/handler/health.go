package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sellsmart/internal/store"

	"github.com/gin-gonic/gin"
)

// Health returns a JSON health check response. Probes the record store with a
// cheap read; never exposes credentials or internals.
func Health(st store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		storeStatus := "connected"
		var probe struct{}
		if _, err := st.Get(ctx, "health", "probe", &probe); err != nil && !errors.Is(err, store.ErrNotFound) {
			storeStatus = "error"
		}

		status := http.StatusOK
		if storeStatus != "connected" {
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"ok":    status == http.StatusOK,
			"store": storeStatus,
		})
	}
}
