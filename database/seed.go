package database

import (
	"fmt"
	"log"

	"github.com/hkbharti77/AI-Counsellor/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seeder handles database seeding operations
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// SeedAll runs all seed functions
func (s *Seeder) SeedAll() error {
	log.Println("🌱 Starting database seeding...")

	if err := s.SeedUniversities(); err != nil {
		return fmt.Errorf("failed to seed universities: %w", err)
	}

	log.Println("✅ Database seeding completed successfully!")
	return nil
}

// SampleUniversities is the catalog shipped for local development and demos
func SampleUniversities() []model.University {
	return []model.University{
		{
			Name:           "Massachusetts Institute of Technology",
			Country:        "United States",
			City:           "Cambridge",
			Ranking:        1,
			TuitionMin:     57000,
			TuitionMax:     62000,
			AcceptanceRate: 4,
			Programs:       []string{"Computer Science", "Electrical Engineering", "Mechanical Engineering", "Data Science"},
			Website:        "https://www.mit.edu",
		},
		{
			Name:           "University of Oxford",
			Country:        "United Kingdom",
			City:           "Oxford",
			Ranking:        3,
			TuitionMin:     35000,
			TuitionMax:     48000,
			AcceptanceRate: 15,
			Programs:       []string{"Computer Science", "Economics", "Law", "Medicine"},
			Website:        "https://www.ox.ac.uk",
		},
		{
			Name:           "ETH Zurich",
			Country:        "Switzerland",
			City:           "Zurich",
			Ranking:        7,
			TuitionMin:     1500,
			TuitionMax:     3000,
			AcceptanceRate: 27,
			Programs:       []string{"Computer Science", "Physics", "Civil Engineering", "Data Science"},
			Website:        "https://ethz.ch",
		},
		{
			Name:           "University of Toronto",
			Country:        "Canada",
			City:           "Toronto",
			Ranking:        21,
			TuitionMin:     45000,
			TuitionMax:     60000,
			AcceptanceRate: 43,
			Programs:       []string{"Computer Science", "Business Administration", "Psychology", "Data Science"},
			Website:        "https://www.utoronto.ca",
		},
		{
			Name:           "University of Melbourne",
			Country:        "Australia",
			City:           "Melbourne",
			Ranking:        14,
			TuitionMin:     30000,
			TuitionMax:     45000,
			AcceptanceRate: 70,
			Programs:       []string{"Information Technology", "Engineering", "Business Analytics", "Public Health"},
			Website:        "https://www.unimelb.edu.au",
		},
		{
			Name:           "Technical University of Munich",
			Country:        "Germany",
			City:           "Munich",
			Ranking:        28,
			TuitionMin:     0,
			TuitionMax:     6000,
			AcceptanceRate: 8,
			Programs:       []string{"Computer Science", "Mechanical Engineering", "Management", "Data Science"},
			Website:        "https://www.tum.de",
		},
		{
			Name:           "National University of Singapore",
			Country:        "Singapore",
			City:           "Singapore",
			Ranking:        8,
			TuitionMin:     25000,
			TuitionMax:     38000,
			AcceptanceRate: 5,
			Programs:       []string{"Computer Science", "Business Analytics", "Engineering", "Law"},
			Website:        "https://nus.edu.sg",
		},
		{
			Name:           "University of British Columbia",
			Country:        "Canada",
			City:           "Vancouver",
			Ranking:        38,
			TuitionMin:     28000,
			TuitionMax:     52000,
			AcceptanceRate: 52,
			Programs:       []string{"Computer Science", "Forestry", "Business Administration", "Psychology"},
			Website:        "https://www.ubc.ca",
		},
		{
			Name:           "Arizona State University",
			Country:        "United States",
			City:           "Tempe",
			Ranking:        200,
			TuitionMin:     29000,
			TuitionMax:     33000,
			AcceptanceRate: 88,
			Programs:       []string{"Computer Science", "Information Technology", "Business Administration", "Data Science"},
			Website:        "https://www.asu.edu",
		},
		{
			Name:           "University College Dublin",
			Country:        "Ireland",
			City:           "Dublin",
			Ranking:        126,
			TuitionMin:     20000,
			TuitionMax:     30000,
			AcceptanceRate: 60,
			Programs:       []string{"Computer Science", "Data Science", "Finance", "Public Health"},
			Website:        "https://www.ucd.ie",
		},
	}
}

// SeedUniversities inserts the sample catalog. Existing rows (matched by
// name) are left untouched, so the seeder can run on every deploy.
func (s *Seeder) SeedUniversities() error {
	universities := SampleUniversities()
	for i := range universities {
		if !universities[i].Valid() {
			return fmt.Errorf("invalid sample university %q", universities[i].Name)
		}
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&universities)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		log.Println("⏭️  Universities already exist, skipping...")
		return nil
	}

	log.Printf("✅ Created %d universities\n", result.RowsAffected)
	return nil
}

// RunSeeds is a convenience function to run all seeds
func RunSeeds(db *gorm.DB) error {
	seeder := NewSeeder(db)
	return seeder.SeedAll()
}
