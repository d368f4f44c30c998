package domain

import "time"

// DateLayout is the calendar-date format used for every date field.
const DateLayout = "2006-01-02"

type MealType string

const (
	MealEarlyAM   MealType = "early_am"
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

type InputMethod string

const (
	InputText    InputMethod = "text"
	InputVoice   InputMethod = "voice"
	InputImage   InputMethod = "image"
	InputBarcode InputMethod = "barcode"
	InputManual  InputMethod = "manual"
)

type Severity string

const (
	SeverityMild            Severity = "mild"
	SeverityModerate        Severity = "moderate"
	SeveritySevere          Severity = "severe"
	SeverityLifeThreatening Severity = "life_threatening"
)

type AlertLevel string

const (
	AlertInfo     AlertLevel = "info"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// NutrientRecord is one food entry in the canonical nutrient schema.
type NutrientRecord struct {
	FoodName        string  `json:"foodName"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
	Calories        float64 `json:"calories"`
	Protein         float64 `json:"protein"`
	Carbs           float64 `json:"carbs"`
	Fats            float64 `json:"fats"`
	Fiber           float64 `json:"fiber"`
	Sugar           float64 `json:"sugar"`
	Sodium          float64 `json:"sodium"`
	Barcode         string  `json:"barcode,omitempty"`
	SourceImageRef  string  `json:"sourceImageRef,omitempty"`
	ConfidenceScore float64 `json:"confidenceScore"`
	IsEdited        bool    `json:"isEdited"`
}

// Meal is the single entry for one user, date and meal slot.
type Meal struct {
	ID          string           `json:"id"`
	UserID      string           `json:"userId"`
	MealDate    string           `json:"mealDate"`
	MealType    MealType         `json:"mealType"`
	InputMethod InputMethod      `json:"inputMethod"`
	Notes       string           `json:"notes,omitempty"`
	Items       []NutrientRecord `json:"items"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// DayTotals holds summed nutrients for one date.
type DayTotals struct {
	Date          string  `json:"date"`
	TotalCalories float64 `json:"totalCalories"`
	TotalProtein  float64 `json:"totalProtein"`
	TotalCarbs    float64 `json:"totalCarbs"`
	TotalFats     float64 `json:"totalFats"`
	TotalFiber    float64 `json:"totalFiber"`
	TotalSugar    float64 `json:"totalSugar"`
	TotalSodium   float64 `json:"totalSodium"`
	TotalWater    float64 `json:"totalWater"`
	MealCount     int     `json:"mealCount"`
}

// DailySummary is the cached per-user, per-date totals row.
type DailySummary struct {
	UserID string `json:"userId"`
	DayTotals
	LastCalculatedAt time.Time `json:"lastCalculatedAt"`
}

type NutritionGoal struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	CaloriesTarget float64   `json:"caloriesTarget"`
	ProteinTarget  float64   `json:"proteinTarget"`
	CarbsTarget    float64   `json:"carbsTarget"`
	FatsTarget     float64   `json:"fatsTarget"`
	FiberTarget    float64   `json:"fiberTarget"`
	SodiumTarget   float64   `json:"sodiumTarget"`
	SugarTarget    float64   `json:"sugarTarget"`
	WaterTarget    float64   `json:"waterTarget"`
	StartDate      string    `json:"startDate"`
	EndDate        string    `json:"endDate,omitempty"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
}

type Allergy struct {
	ID                  string    `json:"id"`
	UserID              string    `json:"userId"`
	AllergenName        string    `json:"allergenName"`
	AllergenCategory    string    `json:"allergenCategory,omitempty"`
	Severity            Severity  `json:"severity"`
	ReactionDescription string    `json:"reactionDescription,omitempty"`
	DiagnosedBy         string    `json:"diagnosedBy,omitempty"`
	DiagnosedDate       string    `json:"diagnosedDate,omitempty"`
	IsActive            bool      `json:"isActive"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// HealthCondition is informational and only feeds advisory text.
type HealthCondition struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	ConditionName string    `json:"conditionName"`
	Notes         string    `json:"notes,omitempty"`
	Restrictions  []string  `json:"restrictions,omitempty"`
	IsActive      bool      `json:"isActive"`
	CreatedAt     time.Time `json:"createdAt"`
}

type WeightEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	EntryDate string    `json:"entryDate"`
	WeightKg  float64   `json:"weightKg"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AllergenAlert is produced by screening and never persisted.
type AllergenAlert struct {
	AllergenID   string     `json:"allergenId"`
	AllergenName string     `json:"allergenName"`
	Severity     Severity   `json:"severity"`
	DetectedIn   string     `json:"detectedIn"`
	AlertLevel   AlertLevel `json:"alertLevel"`
}

// FoodProduct is a packaged product from the barcode database, with
// nutrients per 100 g.
type FoodProduct struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Brands   string  `json:"brands,omitempty"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
	Fiber    float64 `json:"fiber"`
	Sugar    float64 `json:"sugar"`
	Sodium   float64 `json:"sodium"`
}
