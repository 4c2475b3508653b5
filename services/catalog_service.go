package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hkbharti77/AI-Counsellor/model"
	"github.com/hkbharti77/AI-Counsellor/utils/logger"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

// CatalogCache is the read-through cache used for university lookups
type CatalogCache interface {
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// CatalogService serves read-only university reference data
type CatalogService struct {
	db    *gorm.DB
	cache CatalogCache
	ttl   time.Duration
	group singleflight.Group
	log   *logger.Logger
}

// NewCatalogService creates a catalog reader. cache may be nil.
func NewCatalogService(db *gorm.DB, cache CatalogCache, log *logger.Logger) *CatalogService {
	return &CatalogService{
		db:    db,
		cache: cache,
		ttl:   10 * time.Minute,
		log:   log.With("service", "CatalogService"),
	}
}

// ListUniversitiesOptions filters the catalog listing
type ListUniversitiesOptions struct {
	Search     string
	Country    string
	Program    string
	MaxTuition int
	MaxRanking int
	Page       int
	Limit      int
}

func universityCacheKey(id uint) string {
	return "university:" + strconv.FormatUint(uint64(id), 10)
}

// Get returns one university, or ErrUniversityNotFound
func (s *CatalogService) Get(ctx context.Context, universityID uint) (*model.University, error) {
	if s.cache != nil {
		var cached model.University
		if err := s.cache.GetJSON(ctx, universityCacheKey(universityID), &cached); err == nil {
			return &cached, nil
		}
	}

	v, err, _ := s.group.Do(universityCacheKey(universityID), func() (interface{}, error) {
		var university model.University
		if err := s.db.WithContext(ctx).Take(&university, universityID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUniversityNotFound
			}
			return nil, fmt.Errorf("failed to fetch university: %w", err)
		}

		if s.cache != nil {
			if err := s.cache.SetJSON(ctx, universityCacheKey(universityID), &university, s.ttl); err != nil {
				s.log.Warn("catalog cache write failed", "university_id", universityID, "error", err)
			}
		}
		return &university, nil
	})
	if err != nil {
		return nil, err
	}

	university := *v.(*model.University)
	return &university, nil
}

// Exists reports whether the university is in the catalog
func (s *CatalogService) Exists(ctx context.Context, universityID uint) (bool, error) {
	if universityID == 0 {
		return false, nil
	}
	_, err := s.Get(ctx, universityID)
	if err != nil {
		if errors.Is(err, ErrUniversityNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns a filtered page of the catalog ordered by ranking
func (s *CatalogService) List(ctx context.Context, opts ListUniversitiesOptions) ([]model.University, int64, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit < 1 {
		opts.Limit = 10
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}

	query := s.db.WithContext(ctx).Model(&model.University{})

	if search := strings.ToLower(strings.TrimSpace(opts.Search)); search != "" {
		pattern := "%" + search + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(country) LIKE ? OR LOWER(city) LIKE ?",
			pattern, pattern, pattern)
	}
	if opts.Country != "" {
		query = query.Where("LOWER(country) = ?", strings.ToLower(opts.Country))
	}
	if opts.MaxTuition > 0 {
		query = query.Where("tuition_min <= ?", opts.MaxTuition)
	}
	if opts.MaxRanking > 0 {
		query = query.Where("ranking <= ?", opts.MaxRanking)
	}
	if opts.Program != "" {
		if s.db.Dialector.Name() == "postgres" {
			query = query.Where("? = ANY(programs)", opts.Program)
		} else {
			query = query.Where("programs LIKE ?", "%"+opts.Program+"%")
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count universities: %w", err)
	}

	var universities []model.University
	if err := query.Order("ranking ASC, id ASC").
		Limit(opts.Limit).
		Offset((opts.Page - 1) * opts.Limit).
		Find(&universities).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch universities: %w", err)
	}

	return universities, total, nil
}
