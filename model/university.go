package model

import (
	"time"

	"github.com/lib/pq"
)

// University represents a catalog entry a student can shortlist
type University struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	Name           string         `gorm:"not null;uniqueIndex" json:"name"`
	Country        string         `gorm:"type:varchar(120);not null;index" json:"country"`
	City           string         `gorm:"type:varchar(120)" json:"city"`
	Ranking        int            `gorm:"not null;check:ranking > 0" json:"ranking"` // lower is better
	TuitionMin     int            `gorm:"not null;default:0;check:tuition_min >= 0" json:"tuition_min"`
	TuitionMax     int            `gorm:"not null;default:0;check:tuition_max >= tuition_min" json:"tuition_max"`
	AcceptanceRate float64        `gorm:"not null;default:0" json:"acceptance_rate"` // 0-100
	Programs       pq.StringArray `gorm:"type:text[]" json:"programs"`
	Website        string         `gorm:"type:varchar(255)" json:"website,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// TableName specifies the table name for University
func (University) TableName() string {
	return "universities"
}

// Valid reports whether the catalog invariants hold for u
func (u *University) Valid() bool {
	if u.Ranking <= 0 {
		return false
	}
	if u.TuitionMin < 0 || u.TuitionMin > u.TuitionMax {
		return false
	}
	return u.AcceptanceRate >= 0 && u.AcceptanceRate <= 100
}

// HasProgram reports whether the university offers the named program (case-sensitive)
func (u *University) HasProgram(program string) bool {
	for _, p := range u.Programs {
		if p == program {
			return true
		}
	}
	return false
}
