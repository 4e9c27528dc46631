package repository

import (
	"context"
	"time"

	"selfserve-api/internal/models"
	"selfserve-api/internal/storage"
)

type RequestLogRepository struct {
	db *storage.Postgres
}

func NewRequestLogRepository(db *storage.Postgres) *RequestLogRepository {
	return &RequestLogRepository{db: db}
}

// Inserts multiple request logs (for batch insertion)
func (r *RequestLogRepository) CreateBatch(ctx context.Context, logs []models.RequestLog) error {
	if len(logs) == 0 {
		return nil
	}

	return r.db.DB.WithContext(ctx).Create(&logs).Error
}

// Counts logs in a time range
func (r *RequestLogRepository) CountByTimeRange(ctx context.Context, from, to time.Time) (int64, error) {
	var count int64

	err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Count(&count).Error

	return count, err
}

// Calculates average response time
func (r *RequestLogRepository) GetAverageResponseTime(ctx context.Context, from, to time.Time) (float64, error) {
	var avg float64

	err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Where("timestamp BETWEEN ? AND ?", from, to).
		Select("COALESCE(AVG(response_time_ms), 0)").
		Scan(&avg).Error

	return avg, err
}

// Count logs by status code range (e.g., 4xx, 5xx)
func (r *RequestLogRepository) CountByStatusCodeRange(ctx context.Context, minStatusCode, maxStatusCode int, from, to time.Time) (int64, error) {
	var count int64

	err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Where("status_code BETWEEN ? AND ? AND timestamp BETWEEN ? AND ?", minStatusCode, maxStatusCode, from, to).
		Count(&count).Error

	return count, err
}

// Returns most frequently accessed endpoints
func (r *RequestLogRepository) GetTopEndpoints(ctx context.Context, from, to time.Time, limit int) ([]map[string]interface{}, error) {
	var results []map[string]interface{}

	rows, err := r.db.DB.WithContext(ctx).
		Model(&models.RequestLog{}).
		Select("path, COUNT(*) as count").
		Where("timestamp BETWEEN ? AND ?", from, to).
		Group("path").
		Order("count DESC").
		Limit(limit).
		Rows()

	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var path string
		var count int64

		if err := rows.Scan(&path, &count); err != nil {
			return nil, err
		}

		results = append(results, map[string]interface{}{
			"path":  path,
			"count": count,
		})
	}

	return results, nil
}

// Deletes logs older than the specified time
func (r *RequestLogRepository) DeleteOldLogs(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.DB.WithContext(ctx).
		Where("timestamp < ?", before).
		Delete(&models.RequestLog{})

	return result.RowsAffected, result.Error
}
