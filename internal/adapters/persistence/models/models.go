package models

import (
	"time"

	"loanhub/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Organization & Users
// ============================================================

// Branch 지점
type Branch struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Branch) TableName() string {
	return "branches"
}

// Team 팀 (belongs to a branch)
type Team struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	BranchID  uint      `gorm:"not null;index" json:"branch_id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Branch *Branch `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
}

func (Team) TableName() string {
	return "teams"
}

// User represents users table
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Username   string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Password   string         `gorm:"size:255;not null" json:"-"`
	FirstName  string         `gorm:"size:50" json:"first_name"`
	LastName   string         `gorm:"size:50" json:"last_name"`
	Email      string         `gorm:"size:100" json:"email"`
	Phone      string         `gorm:"size:20" json:"phone"`
	Department string         `gorm:"size:50" json:"department"`
	Role       string         `gorm:"size:20;default:'staff'" json:"role"`
	IsStaff    bool           `gorm:"default:false" json:"is_staff"`
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	BranchID   *uint          `gorm:"index" json:"branch_id"`
	TeamID     *uint          `gorm:"index" json:"team_id"`
	JoinDate   *time.Time     `gorm:"type:date" json:"join_date"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Branch *Branch `gorm:"foreignKey:BranchID" json:"branch,omitempty"`
	Team   *Team   `gorm:"foreignKey:TeamID" json:"team,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// FullName follows the Korean family-name-first convention
func (u *User) FullName() string {
	return u.LastName + u.FirstName
}

// Affiliation derives the organizational placement of the user.
// A team without a loaded branch falls back to the user's own branch id.
func (u *User) Affiliation() domain.Affiliation {
	if u.TeamID != nil {
		var branchID uint
		if u.Team != nil {
			branchID = u.Team.BranchID
		} else if u.BranchID != nil {
			branchID = *u.BranchID
		}
		return domain.InTeam(branchID, *u.TeamID)
	}
	if u.BranchID != nil {
		return domain.InBranch(*u.BranchID)
	}
	return domain.NoAffiliation()
}

// ToActor converts the user into the identity used by access checks
func (u *User) ToActor() *domain.Actor {
	return &domain.Actor{
		ID:          u.ID,
		Username:    u.Username,
		Role:        domain.Role(u.Role),
		IsStaff:     u.IsStaff,
		Affiliation: u.Affiliation(),
	}
}

// UserResponse DTO
type UserResponse struct {
	ID         uint       `json:"id"`
	Username   string     `json:"username"`
	FullName   string     `json:"full_name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	Department string     `json:"department"`
	Role       string     `json:"role"`
	RoleLabel  string     `json:"role_label"`
	IsStaff    bool       `json:"is_staff"`
	IsActive   bool       `json:"is_active"`
	BranchID   *uint      `json:"branch_id"`
	TeamID     *uint      `json:"team_id"`
	JoinDate   *time.Time `json:"join_date"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		FullName:   u.FullName(),
		Email:      u.Email,
		Phone:      u.Phone,
		Department: u.Department,
		Role:       u.Role,
		RoleLabel:  domain.Role(u.Role).Label(),
		IsStaff:    u.IsStaff,
		IsActive:   u.IsActive,
		BranchID:   u.BranchID,
		TeamID:     u.TeamID,
		JoinDate:   u.JoinDate,
		CreatedAt:  u.CreatedAt,
	}
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Branch{},
		&Team{},
		&User{},
		// Cases
		&LoanCase{},
		&CaseStatusChange{},
		&SecurityProvider{},
		&PriorLoan{},
		&ConsultingLog{},
		&CaseComment{},
		&Event{},
		// Board
		&Notice{},
		&Todo{},
		&TodoTemplate{},
		&TodoHistory{},
	)
}
