package middleware

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"selfserve-api/internal/models"
	"selfserve-api/internal/repository"
)

// Buffered channel for async logging
var logChannel chan models.RequestLog

// Initializes the request logger
func InitRequestLogger(repo *repository.RequestLogRepository, bufferSize int) {
	logChannel = make(chan models.RequestLog, bufferSize)

	// Background worker batches inserts so the request path never waits
	// on postgres.
	go func() {
		batch := make([]models.RequestLog, 0, 100)
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case entry := <-logChannel:
				batch = append(batch, entry)

				if len(batch) >= 100 {
					insertBatch(repo, batch)
					batch = make([]models.RequestLog, 0, 100)
				}
			case <-ticker.C:
				if len(batch) > 0 {
					insertBatch(repo, batch)
					batch = make([]models.RequestLog, 0, 100)
				}
			}
		}
	}()
}

func insertBatch(repo *repository.RequestLogRepository, logs []models.RequestLog) {
	if len(logs) == 0 {
		return
	}

	if err := repo.CreateBatch(context.Background(), logs); err != nil {
		log.Printf("Failed to insert request logs: %v", err)
	}
}

func contextUUID(c *gin.Context, key string) *uuid.UUID {
	raw := c.GetString(key)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

// Logs all HTTP requests
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)

		logEntry := models.RequestLog{
			Timestamp:      start,
			RequestID:      c.GetString("request_id"),
			UserID:         contextUUID(c, "user_id"),
			OrganizationID: contextUUID(c, "org_id"),
			Method:         c.Request.Method,
			Path:           c.Request.URL.Path,
			StatusCode:     c.Writer.Status(),
			ResponseTimeMs: int(duration.Milliseconds()),
			IPAddress:      c.ClientIP(),
			UserAgent:      c.Request.UserAgent(),
		}

		select {
		case logChannel <- logEntry:
			// Successfully queued
		default:
			// Channel full, skip logging to avoid blocking
		}
	}
}
