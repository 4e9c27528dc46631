package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"selfserve-api/internal/models"
	"selfserve-api/internal/repository"
	"selfserve-api/internal/storage"
)

var ErrAPIKeyNotFound = errors.New("api key not found")

type APIKeyService struct {
	repository *repository.APIKeyRepository
	redis      *storage.RedisClient
}

func NewAPIKeyService(repo *repository.APIKeyRepository, redis *storage.RedisClient) *APIKeyService {
	return &APIKeyService{
		repository: repo,
		redis:      redis,
	}
}

// Create mints a new key scoped to the caller and their organization.
// The plaintext key is returned exactly once; only the hash is stored.
func (s *APIKeyService) Create(ctx context.Context, userID, orgID uuid.UUID, name string) (string, *models.APIKey, error) {
	keyBytes := make([]byte, 32)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", nil, fmt.Errorf("failed to generate random key: %w", err)
	}

	key := "ss_" + base64.URLEncoding.EncodeToString(keyBytes)

	hash := sha256.Sum256([]byte(key))
	keyHash := hex.EncodeToString(hash[:])

	apiKey := &models.APIKey{
		KeyHash:        keyHash,
		Name:           name,
		UserID:         userID,
		OrganizationID: orgID,
		IsActive:       true,
	}

	if err := s.repository.Create(ctx, apiKey); err != nil {
		return "", nil, fmt.Errorf("failed to create API key: %w", err)
	}

	return key, apiKey, nil
}

// Validate resolves a plaintext key to its record, cache first.
func (s *APIKeyService) Validate(ctx context.Context, key string) (*models.APIKey, error) {
	hash := sha256.Sum256([]byte(key))
	keyHash := hex.EncodeToString(hash[:])

	cacheKey := fmt.Sprintf("apikey:cache:%s", keyHash)
	cached, err := s.redis.Get(ctx, cacheKey)

	if err == nil && cached != "" {
		var apiKey models.APIKey
		if err := json.Unmarshal([]byte(cached), &apiKey); err == nil {
			return &apiKey, nil
		}
	}

	apiKey, err := s.repository.FindByHash(ctx, keyHash)
	if err != nil {
		return nil, err
	}

	if apiKey == nil {
		return nil, nil
	}

	apiKeyJSON, _ := json.Marshal(apiKey)
	s.redis.Set(ctx, cacheKey, apiKeyJSON, 5*time.Minute)

	return apiKey, nil
}

func (s *APIKeyService) List(ctx context.Context, userID uuid.UUID) ([]models.APIKey, error) {
	return s.repository.ListByUser(ctx, userID)
}

// Revoke deactivates one of the caller's keys and drops it from the
// cache so the revocation takes effect immediately.
func (s *APIKeyService) Revoke(ctx context.Context, userID, keyID uuid.UUID) error {
	apiKey, err := s.repository.FindByID(ctx, keyID)
	if err != nil {
		return err
	}
	if apiKey == nil || apiKey.UserID != userID {
		return ErrAPIKeyNotFound
	}

	if err := s.repository.Deactivate(ctx, keyID); err != nil {
		return err
	}

	s.redis.Del(ctx, fmt.Sprintf("apikey:cache:%s", apiKey.KeyHash))
	return nil
}

func (s *APIKeyService) UpdateLastUsed(ctx context.Context, id uuid.UUID) {
	// Update asynchronously - don't block request
	s.repository.UpdateLastUsed(ctx, id)
}
