package data

import (
	"context"
	"errors"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/just-nibble/pr-tracker/internal/config"
	"github.com/just-nibble/pr-tracker/pkg/errcodes"
)

// Store defines the backing-store operations used by the ingestion engine.
type Store interface {
	MemberIDByUsername(ctx context.Context, username string) (uint, error)
	ContributionByNaturalKey(ctx context.Context, prID int64, owner, name string) (*Contribution, error)
	CreateContribution(ctx context.Context, contribution *Contribution) error
	ContributionsByRepo(ctx context.Context, owner, name string) ([]Contribution, error)
}

// GormStore is a GORM-based implementation of Store
type GormStore struct {
	db *gorm.DB
}

// NewGormStore initializes a new GormStore
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// InitDB opens the PostgreSQL connection and migrates the schema.
func InitDB(cfg config.DatabaseConfig) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&MemberProfile{}, &Contribution{}); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

// MemberIDByUsername looks up a member's internal id by GitHub username.
// Returns errcodes.ErrNoRecordFound when no such member exists.
func (s *GormStore) MemberIDByUsername(ctx context.Context, username string) (uint, error) {
	if ctx.Err() == context.Canceled {
		return 0, errcodes.ErrContextCancelled
	}

	var member MemberProfile
	err := s.db.WithContext(ctx).Where("github_username = ?", username).First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, errcodes.ErrNoRecordFound
	}
	if err != nil {
		return 0, err
	}
	return member.ID, nil
}

// ContributionByNaturalKey fetches the contribution matching the composite
// natural key. Returns errcodes.ErrNoRecordFound when absent.
func (s *GormStore) ContributionByNaturalKey(ctx context.Context, prID int64, owner, name string) (*Contribution, error) {
	if ctx.Err() == context.Canceled {
		return nil, errcodes.ErrContextCancelled
	}

	var contribution Contribution
	err := s.db.WithContext(ctx).
		Where("github_pr_id = ? AND repo_owner = ? AND repo_name = ?", prID, owner, name).
		First(&contribution).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errcodes.ErrNoRecordFound
	}
	if err != nil {
		return nil, err
	}
	return &contribution, nil
}

// CreateContribution inserts a contribution row.
func (s *GormStore) CreateContribution(ctx context.Context, contribution *Contribution) error {
	if ctx.Err() == context.Canceled {
		return errcodes.ErrContextCancelled
	}
	return s.db.WithContext(ctx).Create(contribution).Error
}

// ContributionsByRepo lists the stored contributions of a repository.
func (s *GormStore) ContributionsByRepo(ctx context.Context, owner, name string) ([]Contribution, error) {
	if ctx.Err() == context.Canceled {
		return nil, errcodes.ErrContextCancelled
	}

	var contributions []Contribution
	err := s.db.WithContext(ctx).
		Where("repo_owner = ? AND repo_name = ?", owner, name).
		Order("pr_number").
		Find(&contributions).Error
	return contributions, err
}
