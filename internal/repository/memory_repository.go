package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"agri-insights/internal/models"
)

// memoryRepository keeps the prediction history in process memory
type memoryRepository struct {
	mu          sync.RWMutex
	predictions []*models.Prediction
	currentID   int64
	nextID      int64
}

// NewMemoryRepository creates an in-memory prediction repository
func NewMemoryRepository() PredictionRepository {
	return &memoryRepository{nextID: 1}
}

func clonePrediction(p *models.Prediction) *models.Prediction {
	c := *p
	if p.EnergyData != nil {
		energy := *p.EnergyData
		c.EnergyData = &energy
	}
	return &c
}

func (r *memoryRepository) find(id int64) *models.Prediction {
	for _, p := range r.predictions {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// view returns a copy of stored with IsCurrent derived from the current marker
func (r *memoryRepository) view(stored *models.Prediction) *models.Prediction {
	c := clonePrediction(stored)
	c.IsCurrent = stored.ID == r.currentID
	return c
}

func (r *memoryRepository) CreatePrediction(ctx context.Context, p *models.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p.ID = r.nextID
	p.IsCurrent = true
	r.nextID++
	r.predictions = append(r.predictions, clonePrediction(p))
	r.currentID = p.ID
	return nil
}

func (r *memoryRepository) CreatePredictionsBatch(ctx context.Context, predictions []*models.Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range predictions {
		p.ID = r.nextID
		p.IsCurrent = false
		r.nextID++
		r.predictions = append(r.predictions, clonePrediction(p))
	}
	return nil
}

func (r *memoryRepository) GetPrediction(ctx context.Context, id int64) (*models.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := r.find(id)
	if p == nil {
		return nil, errPredictionNotFound(id)
	}
	return r.view(p), nil
}

func (r *memoryRepository) ListPredictions(ctx context.Context, filter PredictionFilter) ([]*models.Prediction, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*models.Prediction, 0, len(r.predictions))
	for _, p := range r.predictions {
		if filter.Crop != nil && string(p.Crop) != *filter.Crop {
			continue
		}
		if filter.Season != nil && string(p.Season) != *filter.Season {
			continue
		}
		matched = append(matched, p)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := min(filter.Offset, total)
	end := total
	if filter.Limit > 0 {
		end = min(start+filter.Limit, total)
	}

	page := make([]*models.Prediction, 0, end-start)
	for _, p := range matched[start:end] {
		page = append(page, r.view(p))
	}
	return page, total, nil
}

func (r *memoryRepository) GetCurrentPrediction(ctx context.Context) (*models.Prediction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p := r.find(r.currentID)
	if p == nil {
		return nil, errNoCurrent()
	}
	return r.view(p), nil
}

func (r *memoryRepository) SetCurrentPrediction(ctx context.Context, id int64) (*models.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.find(id)
	if p == nil {
		return nil, errPredictionNotFound(id)
	}
	r.currentID = id
	p.UpdatedAt = time.Now().UTC()
	return r.view(p), nil
}

func (r *memoryRepository) UpdateEnergyData(ctx context.Context, id int64, snapshot *models.EnergySnapshot) (*models.Prediction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id != r.currentID {
		return nil, errNotCurrent(id)
	}
	p := r.find(id)
	if p == nil {
		return nil, errNotCurrent(id)
	}
	energy := *snapshot
	p.EnergyData = &energy
	p.UpdatedAt = time.Now().UTC()
	return r.view(p), nil
}

func (r *memoryRepository) HealthCheck(ctx context.Context) error {
	return nil
}
