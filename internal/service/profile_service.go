package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/lingua-go-api/internal/dto"
	"github.com/noah-isme/lingua-go-api/internal/repository"
)

const profileHistoryLimit = 10

// ProfileService serves the student's level progression view, cached in
// redis until a finalize or override invalidates it.
type ProfileService interface {
	GetLevels(ctx context.Context, studentID uint) (dto.LevelProfileResponse, error)
	Invalidate(ctx context.Context, studentID uint)
}

type profileService struct {
	levels   repository.LevelRecordRepository
	sessions repository.ExamSessionRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewProfileService builds the profile aggregator.
func NewProfileService(levels repository.LevelRecordRepository, sessions repository.ExamSessionRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) ProfileService {
	return &profileService{
		levels:   levels,
		sessions: sessions,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "profile_service").Logger(),
		now:      time.Now,
	}
}

func profileCacheKey(studentID uint) string {
	return fmt.Sprintf("profile:levels:%d", studentID)
}

func (s *profileService) GetLevels(ctx context.Context, studentID uint) (dto.LevelProfileResponse, error) {
	cacheKey := profileCacheKey(studentID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.LevelProfileResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				s.logger.Debug().Uint("student_id", studentID).Msg("profile cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read profile cache")
		}
	}

	record, err := s.levels.GetOrCreate(ctx, studentID)
	if err != nil {
		return dto.LevelProfileResponse{}, err
	}

	sessions, err := s.sessions.ListByStudent(ctx, studentID, profileHistoryLimit)
	if err != nil {
		return dto.LevelProfileResponse{}, err
	}

	response := dto.NewLevelProfileResponse(record, sessions, s.now().UTC())

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store profile cache")
			}
		}
	}

	return response, nil
}

// Invalidate drops the cached view after a score change.
func (s *profileService) Invalidate(ctx context.Context, studentID uint) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Del(ctx, profileCacheKey(studentID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate profile cache")
	}
}
