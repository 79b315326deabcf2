package services

import (
	"context"

	"github.com/careerpilot/backend/internal/cache"
	"github.com/careerpilot/backend/internal/models"
	pgrepo "github.com/careerpilot/backend/internal/repositories/postgres"
	"github.com/careerpilot/backend/internal/utils"
)

type MemoryService interface {
	List(ctx context.Context, userID string, limit int) ([]models.Memory, error)
	Delete(ctx context.Context, userID, memoryID string) error
}

type memoryService struct {
	memories pgrepo.MemoryRepo
	cache    cache.Cache
}

func NewMemoryService(memories pgrepo.MemoryRepo, c cache.Cache) MemoryService {
	return &memoryService{memories: memories, cache: c}
}

func (s *memoryService) List(ctx context.Context, userID string, limit int) ([]models.Memory, error) {
	const op = "MemoryService.List"

	if userID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}
	rows, err := s.memories.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list memories", err)
	}
	return rows, nil
}

// Delete removes a memory owned by the caller; deleting someone else's
// memory looks like not-found.
func (s *memoryService) Delete(ctx context.Context, userID, memoryID string) error {
	const op = "MemoryService.Delete"

	if userID == "" || memoryID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id and memory_id are required", nil)
	}
	n, err := s.memories.Delete(ctx, userID, memoryID)
	if err != nil {
		return utils.E(utils.CodeInternal, op, "failed to delete memory", err)
	}
	if n == 0 {
		return utils.E(utils.CodeNotFound, op, "memory not found", nil)
	}
	_ = s.cache.Del(ctx, contextCacheKey(userID))
	return nil
}
