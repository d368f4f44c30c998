package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence. Dates are stored as YYYY-MM-DD text so
// range filters compare the same way on every dialect.
type MealModel struct {
	ID          string    `gorm:"primaryKey"`
	UserID      string    `gorm:"not null;uniqueIndex:idx_meal_slot,priority:1"`
	MealDate    string    `gorm:"size:10;not null;uniqueIndex:idx_meal_slot,priority:2;index"`
	MealType    string    `gorm:"not null;uniqueIndex:idx_meal_slot,priority:3"`
	InputMethod string    `gorm:"not null"`
	Notes       string
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type MealItemModel struct {
	ID              string `gorm:"primaryKey"`
	MealID          string `gorm:"not null;index"`
	Position        int    `gorm:"not null"`
	FoodName        string `gorm:"not null"`
	Quantity        float64
	Unit            string
	Calories        float64
	Protein         float64
	Carbs           float64
	Fats            float64
	Fiber           float64
	Sugar           float64
	Sodium          float64
	Barcode         string
	SourceImageRef  string
	ConfidenceScore float64
	IsEdited        bool
}

type DailySummaryModel struct {
	UserID           string `gorm:"primaryKey"`
	SummaryDate      string `gorm:"primaryKey;size:10"`
	TotalCalories    float64
	TotalProtein     float64
	TotalCarbs       float64
	TotalFats        float64
	TotalFiber       float64
	TotalSugar       float64
	TotalSodium      float64
	TotalWater       float64
	MealCount        int
	LastCalculatedAt time.Time
}

type NutritionGoalModel struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"not null;index"`
	CaloriesTarget float64
	ProteinTarget  float64
	CarbsTarget    float64
	FatsTarget     float64
	FiberTarget    float64
	SodiumTarget   float64
	SugarTarget    float64
	WaterTarget    float64
	StartDate      string    `gorm:"size:10;not null"`
	EndDate        string    `gorm:"size:10"`
	IsActive       bool      `gorm:"not null;index"`
	CreatedAt      time.Time `gorm:"not null"`
}

type AllergyModel struct {
	ID                  string `gorm:"primaryKey"`
	UserID              string `gorm:"not null;uniqueIndex:idx_allergy_name,priority:1"`
	NameKey             string `gorm:"not null;uniqueIndex:idx_allergy_name,priority:2"`
	AllergenName        string `gorm:"not null"`
	AllergenCategory    string
	Severity            string `gorm:"not null"`
	ReactionDescription string
	DiagnosedBy         string
	DiagnosedDate       string    `gorm:"size:10"`
	IsActive            bool      `gorm:"not null"`
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}

type HealthConditionModel struct {
	ID            string `gorm:"primaryKey"`
	UserID        string `gorm:"not null;index"`
	ConditionName string `gorm:"not null"`
	Notes         string
	Restrictions  datatypes.JSON
	IsActive      bool      `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

type WeightEntryModel struct {
	ID        string  `gorm:"primaryKey"`
	UserID    string  `gorm:"not null;uniqueIndex:idx_weight_day,priority:1"`
	EntryDate string  `gorm:"size:10;not null;uniqueIndex:idx_weight_day,priority:2"`
	WeightKg  float64 `gorm:"not null"`
	Notes     string
	CreatedAt time.Time `gorm:"not null"`
}
