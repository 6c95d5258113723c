package config

import (
	"fmt"

	"loanhub/internal/adapters/persistence/models"
	"loanhub/internal/core/domain"
	"loanhub/internal/pkg/password"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, log *zap.Logger) *Seeder {
	return &Seeder{db: db, log: log}
}

// Run executes all seeders. Seeding is idempotent.
func (s *Seeder) Run() error {
	branch, err := s.seedOrganization()
	if err != nil {
		return fmt.Errorf("seed organization: %w", err)
	}
	if err := s.seedAdminUser(branch); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.log.Info("database seeding completed")
	return nil
}

// seedOrganization makes sure a head office branch exists
func (s *Seeder) seedOrganization() (*models.Branch, error) {
	branch := &models.Branch{Name: "본점"}
	if err := s.db.Where(models.Branch{Name: branch.Name}).FirstOrCreate(branch).Error; err != nil {
		return nil, err
	}
	team := &models.Team{BranchID: branch.ID, Name: "영업1팀"}
	if err := s.db.Where(models.Team{BranchID: branch.ID, Name: team.Name}).FirstOrCreate(team).Error; err != nil {
		return nil, err
	}
	return branch, nil
}

// seedAdminUser creates the first administrator when none exists.
// The password comes from SEED_ADMIN_PASSWORD and must be changed after first login.
func (s *Seeder) seedAdminUser(branch *models.Branch) error {
	var count int64
	if err := s.db.Model(&models.User{}).Where("role = ?", string(domain.RoleAdmin)).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	plain := getEnv("SEED_ADMIN_PASSWORD", "")
	if plain == "" {
		s.log.Warn("skipping admin seed: SEED_ADMIN_PASSWORD is not set")
		return nil
	}
	hashed, err := password.Hash(plain)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:   getEnv("SEED_ADMIN_USERNAME", "admin"),
		Password:   hashed,
		LastName:   "관리자",
		Department: "본사",
		Role:       string(domain.RoleAdmin),
		IsStaff:    true,
		IsActive:   true,
		BranchID:   &branch.ID,
	}
	if err := s.db.Omit("Branch", "Team").Create(admin).Error; err != nil {
		return err
	}

	s.log.Info("admin user created", zap.String("username", admin.Username))
	return nil
}
