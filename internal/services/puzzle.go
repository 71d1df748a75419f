package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"reunion-countdown/internal/config"
	"reunion-countdown/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrRoundNotFound   = errors.New("round not found")
	ErrRoundTooLarge   = errors.New("round size exceeds catalog size")
	ErrInvalidRoundLen = errors.New("round size must be positive")
)

// NewRound draws k distinct photos uniformly without replacement (partial Fisher–Yates)
// and returns them in the order they were drawn.
func NewRound(catalog []models.Photo, k int, rng *rand.Rand) ([]models.Photo, error) {
	if k <= 0 {
		return nil, ErrInvalidRoundLen
	}
	if k > len(catalog) {
		return nil, fmt.Errorf("%d > %d: %w", k, len(catalog), ErrRoundTooLarge)
	}

	pool := append([]models.Photo(nil), catalog...)
	for i := 0; i < k; i++ {
		j := i + rng.IntN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k:k], nil
}

// Reorder moves the photo movedID so that it sits immediately before beforeID.
// It is a no-op when the ids are equal or either is absent.
func Reorder(photos []models.Photo, movedID, beforeID string) []models.Photo {
	if movedID == beforeID {
		return photos
	}
	from := indexOf(photos, movedID)
	if from < 0 || indexOf(photos, beforeID) < 0 {
		return photos
	}

	moved := photos[from]
	rest := append(photos[:from:from], photos[from+1:]...)
	to := indexOf(rest, beforeID)

	out := make([]models.Photo, 0, len(photos))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	copy(photos, out)
	return photos
}

// IsChronological reports whether photos are in ascending date order, id for id
func IsChronological(photos []models.Photo) bool {
	correct := append([]models.Photo(nil), photos...)
	sort.SliceStable(correct, func(i, j int) bool {
		return correct[i].Date < correct[j].Date
	})
	for i := range photos {
		if photos[i].ID != correct[i].ID {
			return false
		}
	}
	return true
}

func indexOf(photos []models.Photo, id string) int {
	for i, p := range photos {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// URLResolver turns a stored object key into a fetchable photo URL
type URLResolver interface {
	PhotoURL(ctx context.Context, key string) (string, error)
}

// PuzzleService keeps the in-memory photo rounds, one per player
type PuzzleService struct {
	mu       sync.Mutex
	catalog  []config.PhotoEntry
	size     int
	ttl      time.Duration
	clock    Clock
	rng      *rand.Rand
	resolver URLResolver
	rounds   map[string]*models.PhotoRound
}

// NewPuzzleService creates a new puzzle service. resolver may be nil.
func NewPuzzleService(cfg config.PhotosConfig, clock Clock, rng *rand.Rand, resolver URLResolver) *PuzzleService {
	if clock == nil {
		clock = RealClock{}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &PuzzleService{
		catalog:  append([]config.PhotoEntry(nil), cfg.Catalog...),
		size:     cfg.RoundSize,
		ttl:      cfg.RoundTTL,
		clock:    clock,
		rng:      rng,
		resolver: resolver,
		rounds:   make(map[string]*models.PhotoRound),
	}
}

// NewRound shuffles a fresh round
func (s *PuzzleService) NewRound(ctx context.Context) (*models.PhotoRound, error) {
	catalog := s.photos(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictLocked()

	photos, err := NewRound(catalog, s.size, s.rng)
	if err != nil {
		return nil, err
	}

	round := &models.PhotoRound{
		ID:        uuid.New().String(),
		Photos:    photos,
		CreatedAt: s.clock.Now(),
	}
	s.rounds[round.ID] = round

	return cloneRound(round), nil
}

// Shuffle replaces the photos of an existing round, keeping its id
func (s *PuzzleService) Shuffle(ctx context.Context, roundID string) (*models.PhotoRound, error) {
	catalog := s.photos(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[roundID]
	if !ok {
		return nil, ErrRoundNotFound
	}
	photos, err := NewRound(catalog, s.size, s.rng)
	if err != nil {
		return nil, err
	}
	round.Photos = photos
	round.CreatedAt = s.clock.Now()

	return cloneRound(round), nil
}

// Round returns the current state of a round
func (s *PuzzleService) Round(roundID string) (*models.PhotoRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[roundID]
	if !ok {
		return nil, ErrRoundNotFound
	}
	return cloneRound(round), nil
}

// Move applies one drag-and-drop reorder
func (s *PuzzleService) Move(roundID, movedID, beforeID string) (*models.PhotoRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[roundID]
	if !ok {
		return nil, ErrRoundNotFound
	}
	round.Photos = Reorder(round.Photos, movedID, beforeID)
	return cloneRound(round), nil
}

// Check compares the current order of a round with the chronological one
func (s *PuzzleService) Check(roundID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	round, ok := s.rounds[roundID]
	if !ok {
		return false, ErrRoundNotFound
	}
	return IsChronological(round.Photos), nil
}

// Discard drops a round
func (s *PuzzleService) Discard(roundID string) {
	s.mu.Lock()
	delete(s.rounds, roundID)
	s.mu.Unlock()
}

func (s *PuzzleService) evictLocked() {
	if s.ttl <= 0 {
		return
	}
	cutoff := s.clock.Now().Add(-s.ttl)
	for id, r := range s.rounds {
		if r.CreatedAt.Before(cutoff) {
			delete(s.rounds, id)
		}
	}
}

// photos materializes the catalog, presigning bucket keys when a resolver is set
func (s *PuzzleService) photos(ctx context.Context) []models.Photo {
	out := make([]models.Photo, 0, len(s.catalog))
	for _, e := range s.catalog {
		p := models.Photo{ID: e.ID, URL: e.URL, Caption: e.Caption, Date: e.Date}
		if e.Key != "" && s.resolver != nil {
			url, err := s.resolver.PhotoURL(ctx, e.Key)
			if err != nil {
				log.Error().Err(err).Str("photo_id", e.ID).Str("key", e.Key).Msg("Failed to resolve photo URL")
			} else {
				p.URL = url
			}
		}
		out = append(out, p)
	}
	return out
}

func cloneRound(r *models.PhotoRound) *models.PhotoRound {
	c := *r
	c.Photos = append([]models.Photo(nil), r.Photos...)
	return &c
}
