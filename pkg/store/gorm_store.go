package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
	"nutrilog/pkg/domain"
)

const migrateLockID int64 = 73217321

const itemBatchSize = 200

type GormStoreOptions struct {
	Dialector gorm.Dialector
	LogLevel  gormlogger.LogLevel
}

type GormStoreOption func(*GormStoreOptions)

// WithDialector replaces the postgres dialector built from the DSN.
func WithDialector(d gorm.Dialector) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.Dialector = d
	}
}

// WithLogLevel overrides the gorm logger level (default Warn).
func WithLogLevel(level gormlogger.LogLevel) GormStoreOption {
	return func(opts *GormStoreOptions) {
		opts.LogLevel = level
	}
}

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string, options ...GormStoreOption) (*GormStore, error) {
	opts := GormStoreOptions{LogLevel: gormlogger.Warn}
	for _, option := range options {
		if option != nil {
			option(&opts)
		}
	}
	dialector := opts.Dialector
	if dialector == nil {
		if strings.TrimSpace(dsn) == "" {
			return nil, errors.New("database dsn required")
		}
		dialector = postgres.Open(dsn)
	}

	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  opts.LogLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	migrate := func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&MealModel{}, &MealItemModel{}, &DailySummaryModel{}, &NutritionGoalModel{},
			&AllergyModel{}, &HealthConditionModel{}, &WeightEntryModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		return nil
	}
	if db.Dialector.Name() == "postgres" {
		err = withMigrationLock(db, migrate)
	} else {
		// sqlite serialises writers; one connection also keeps :memory: databases shared.
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.SetMaxOpenConns(1)
		}
		err = migrate(db)
	}
	if err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks database connectivity.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// ReplaceMeal stores the meal for its (user, date, slot). An existing meal in
// that slot keeps its ID and creation time; its items are replaced wholesale.
func (s *GormStore) ReplaceMeal(ctx context.Context, meal domain.Meal) (domain.Meal, error) {
	now := time.Now().UTC()
	model := mealToModel(meal)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	model.CreatedAt = now
	model.UpdatedAt = now

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "meal_date"}, {Name: "meal_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"input_method", "notes", "updated_at"}),
		}).Create(&model).Error; err != nil {
			return fmt.Errorf("upsert meal: %w", err)
		}
		var stored MealModel
		if err := tx.Where("user_id = ? AND meal_date = ? AND meal_type = ?", model.UserID, model.MealDate, model.MealType).
			First(&stored).Error; err != nil {
			return fmt.Errorf("reload meal: %w", err)
		}
		model = stored
		if err := tx.Where("meal_id = ?", stored.ID).Delete(&MealItemModel{}).Error; err != nil {
			return fmt.Errorf("clear meal items: %w", err)
		}
		items := itemsToModels(stored.ID, meal.Items)
		if len(items) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(items, itemBatchSize).Error; err != nil {
			return fmt.Errorf("insert meal items: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Meal{}, err
	}
	out := mealFromModel(model)
	out.Items = append([]domain.NutrientRecord{}, meal.Items...)
	return out, nil
}

// GetMeal returns one meal with its items.
func (s *GormStore) GetMeal(ctx context.Context, userID, mealID string) (domain.Meal, error) {
	var model MealModel
	if err := s.db.WithContext(ctx).First(&model, "id = ? AND user_id = ?", mealID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Meal{}, ErrNotFound
		}
		return domain.Meal{}, err
	}
	meals, err := s.withItems(ctx, []MealModel{model})
	if err != nil {
		return domain.Meal{}, err
	}
	return meals[0], nil
}

// ListMealsInRange returns meals with start <= meal_date <= end, by date and slot.
func (s *GormStore) ListMealsInRange(ctx context.Context, userID, start, end string) ([]domain.Meal, error) {
	var models []MealModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND meal_date >= ? AND meal_date <= ?", userID, start, end).
		Order("meal_date ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	meals, err := s.withItems(ctx, models)
	if err != nil {
		return nil, err
	}
	sortMeals(meals)
	return meals, nil
}

func (s *GormStore) withItems(ctx context.Context, models []MealModel) ([]domain.Meal, error) {
	out := make([]domain.Meal, 0, len(models))
	if len(models) == 0 {
		return out, nil
	}
	ids := make([]string, 0, len(models))
	for _, m := range models {
		ids = append(ids, m.ID)
	}
	var items []MealItemModel
	if err := s.db.WithContext(ctx).
		Where("meal_id IN ?", ids).
		Order("meal_id ASC").Order("position ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	byMeal := make(map[string][]domain.NutrientRecord, len(models))
	for _, item := range items {
		byMeal[item.MealID] = append(byMeal[item.MealID], itemFromModel(item))
	}
	for _, m := range models {
		meal := mealFromModel(m)
		meal.Items = byMeal[m.ID]
		if meal.Items == nil {
			meal.Items = []domain.NutrientRecord{}
		}
		out = append(out, meal)
	}
	return out, nil
}

// DeleteMeal removes a meal and its items, returning what was removed.
func (s *GormStore) DeleteMeal(ctx context.Context, userID, mealID string) (domain.Meal, error) {
	meal, err := s.GetMeal(ctx, userID, mealID)
	if err != nil {
		return domain.Meal{}, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&MealItemModel{}, "meal_id = ?", mealID).Error; err != nil {
			return err
		}
		res := tx.Delete(&MealModel{}, "id = ? AND user_id = ?", mealID, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return domain.Meal{}, err
	}
	return meal, nil
}

// ListDailySummaries returns cached summary rows in the inclusive range.
func (s *GormStore) ListDailySummaries(ctx context.Context, userID, start, end string) ([]domain.DailySummary, error) {
	var models []DailySummaryModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND summary_date >= ? AND summary_date <= ?", userID, start, end).
		Order("summary_date ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.DailySummary, 0, len(models))
	for _, m := range models {
		out = append(out, summaryFromModel(m))
	}
	return out, nil
}

// UpsertMealTotals writes the meal-derived columns for one date. The water
// column of an existing row is left untouched.
func (s *GormStore) UpsertMealTotals(ctx context.Context, userID string, totals domain.DayTotals) error {
	model := DailySummaryModel{
		UserID:           userID,
		SummaryDate:      totals.Date,
		TotalCalories:    totals.TotalCalories,
		TotalProtein:     totals.TotalProtein,
		TotalCarbs:       totals.TotalCarbs,
		TotalFats:        totals.TotalFats,
		TotalFiber:       totals.TotalFiber,
		TotalSugar:       totals.TotalSugar,
		TotalSodium:      totals.TotalSodium,
		MealCount:        totals.MealCount,
		LastCalculatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "summary_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_calories", "total_protein", "total_carbs", "total_fats",
			"total_fiber", "total_sugar", "total_sodium", "meal_count", "last_calculated_at",
		}),
	}).Create(&model).Error
}

// AddWater adds ml to the day's water total and returns the updated row.
func (s *GormStore) AddWater(ctx context.Context, userID, date string, ml float64) (domain.DailySummary, error) {
	model := DailySummaryModel{
		UserID:           userID,
		SummaryDate:      date,
		TotalWater:       ml,
		LastCalculatedAt: time.Now().UTC(),
	}
	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "summary_date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_water": gorm.Expr("daily_summary_models.total_water + ?", ml),
		}),
	}).Create(&model).Error; err != nil {
		return domain.DailySummary{}, fmt.Errorf("add water: %w", err)
	}
	var stored DailySummaryModel
	if err := db.First(&stored, "user_id = ? AND summary_date = ?", userID, date).Error; err != nil {
		return domain.DailySummary{}, err
	}
	return summaryFromModel(stored), nil
}

// CreateGoal stores a goal. An active goal deactivates the user's other goals.
func (s *GormStore) CreateGoal(ctx context.Context, goal domain.NutritionGoal) (domain.NutritionGoal, error) {
	model := goalToModel(goal)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if model.IsActive {
			if err := lockUserGoals(tx, model.UserID); err != nil {
				return err
			}
			if err := tx.Model(&NutritionGoalModel{}).
				Where("user_id = ? AND is_active = ?", model.UserID, true).
				Update("is_active", false).Error; err != nil {
				return fmt.Errorf("deactivate goals: %w", err)
			}
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return domain.NutritionGoal{}, err
	}
	return goalFromModel(model), nil
}

// lockUserGoals serialises goal writes of one user until the transaction
// ends. Row locks alone miss the case where no goal is active yet. sqlite
// already runs a single writer.
func lockUserGoals(tx *gorm.DB, userID string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "goals:"+userID).Error; err != nil {
		return fmt.Errorf("lock goals: %w", err)
	}
	return nil
}

// ListGoals returns every goal of the user, newest first.
func (s *GormStore) ListGoals(ctx context.Context, userID string) ([]domain.NutritionGoal, error) {
	var models []NutritionGoalModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.NutritionGoal, 0, len(models))
	for _, m := range models {
		out = append(out, goalFromModel(m))
	}
	return out, nil
}

// DeactivateGoal clears the active flag of one goal.
func (s *GormStore) DeactivateGoal(ctx context.Context, userID, goalID string) error {
	res := s.db.WithContext(ctx).Model(&NutritionGoalModel{}).
		Where("id = ? AND user_id = ?", goalID, userID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpsertAllergy records an allergy keyed by its case-folded name. Re-adding
// a known allergen updates and reactivates the existing row.
func (s *GormStore) UpsertAllergy(ctx context.Context, allergy domain.Allergy) (domain.Allergy, error) {
	now := time.Now().UTC()
	model := allergyToModel(allergy)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	model.IsActive = true
	model.CreatedAt = now
	model.UpdatedAt = now
	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "name_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"allergen_name", "allergen_category", "severity", "reaction_description",
			"diagnosed_by", "diagnosed_date", "is_active", "updated_at",
		}),
	}).Create(&model).Error; err != nil {
		return domain.Allergy{}, fmt.Errorf("upsert allergy: %w", err)
	}
	var stored AllergyModel
	if err := db.First(&stored, "user_id = ? AND name_key = ?", model.UserID, model.NameKey).Error; err != nil {
		return domain.Allergy{}, err
	}
	return allergyFromModel(stored), nil
}

// ListActiveAllergies returns the user's active allergies, oldest first.
func (s *GormStore) ListActiveAllergies(ctx context.Context, userID string) ([]domain.Allergy, error) {
	return s.listAllergies(ctx, "user_id = ? AND is_active = ?", userID, true)
}

// ListAllergies returns every allergy of the user, including inactive ones.
func (s *GormStore) ListAllergies(ctx context.Context, userID string) ([]domain.Allergy, error) {
	return s.listAllergies(ctx, "user_id = ?", userID)
}

func (s *GormStore) listAllergies(ctx context.Context, query string, args ...any) ([]domain.Allergy, error) {
	var models []AllergyModel
	if err := s.db.WithContext(ctx).Where(query, args...).
		Order("created_at ASC").Order("id ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Allergy, 0, len(models))
	for _, m := range models {
		out = append(out, allergyFromModel(m))
	}
	return out, nil
}

// UpdateAllergy applies the non-nil patch fields.
func (s *GormStore) UpdateAllergy(ctx context.Context, userID, allergyID string, patch AllergyPatch) (domain.Allergy, error) {
	db := s.db.WithContext(ctx)
	updates := patch.columns()
	updates["updated_at"] = time.Now().UTC()
	res := db.Model(&AllergyModel{}).Where("id = ? AND user_id = ?", allergyID, userID).Updates(updates)
	if res.Error != nil {
		return domain.Allergy{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.Allergy{}, ErrNotFound
	}
	var stored AllergyModel
	if err := db.First(&stored, "id = ?", allergyID).Error; err != nil {
		return domain.Allergy{}, err
	}
	return allergyFromModel(stored), nil
}

// DeactivateAllergy soft-deletes an allergy.
func (s *GormStore) DeactivateAllergy(ctx context.Context, userID, allergyID string) error {
	inactive := false
	_, err := s.UpdateAllergy(ctx, userID, allergyID, AllergyPatch{IsActive: &inactive})
	return err
}

// CreateCondition stores a health condition.
func (s *GormStore) CreateCondition(ctx context.Context, cond domain.HealthCondition) (domain.HealthCondition, error) {
	model, err := conditionToModel(cond)
	if err != nil {
		return domain.HealthCondition{}, err
	}
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.HealthCondition{}, err
	}
	return conditionFromModel(model), nil
}

// ListActiveConditions returns active health conditions, oldest first.
func (s *GormStore) ListActiveConditions(ctx context.Context, userID string) ([]domain.HealthCondition, error) {
	var models []HealthConditionModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.HealthCondition, 0, len(models))
	for _, m := range models {
		out = append(out, conditionFromModel(m))
	}
	return out, nil
}

// UpsertWeight records one weight entry per user and date.
func (s *GormStore) UpsertWeight(ctx context.Context, entry domain.WeightEntry) (domain.WeightEntry, error) {
	model := weightToModel(entry)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	model.CreatedAt = time.Now().UTC()
	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "entry_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"weight_kg", "notes"}),
	}).Create(&model).Error; err != nil {
		return domain.WeightEntry{}, fmt.Errorf("upsert weight: %w", err)
	}
	var stored WeightEntryModel
	if err := db.First(&stored, "user_id = ? AND entry_date = ?", model.UserID, model.EntryDate).Error; err != nil {
		return domain.WeightEntry{}, err
	}
	return weightFromModel(stored), nil
}

// ListWeights returns weight entries in the inclusive range by date.
func (s *GormStore) ListWeights(ctx context.Context, userID, start, end string) ([]domain.WeightEntry, error) {
	var models []WeightEntryModel
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND entry_date >= ? AND entry_date <= ?", userID, start, end).
		Order("entry_date ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.WeightEntry, 0, len(models))
	for _, m := range models {
		out = append(out, weightFromModel(m))
	}
	return out, nil
}

// PurgeUser removes all of the user's rows in one transaction.
func (s *GormStore) PurgeUser(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		mealIDs := tx.Model(&MealModel{}).Select("id").Where("user_id = ?", userID)
		if err := tx.Where("meal_id IN (?)", mealIDs).Delete(&MealItemModel{}).Error; err != nil {
			return fmt.Errorf("purge meal items: %w", err)
		}
		for _, model := range []any{
			&MealModel{}, &DailySummaryModel{}, &NutritionGoalModel{},
			&AllergyModel{}, &HealthConditionModel{}, &WeightEntryModel{},
		} {
			if err := tx.Where("user_id = ?", userID).Delete(model).Error; err != nil {
				return fmt.Errorf("purge %T: %w", model, err)
			}
		}
		return nil
	})
}

func sortMeals(meals []domain.Meal) {
	sort.SliceStable(meals, func(i, j int) bool {
		if meals[i].MealDate != meals[j].MealDate {
			return meals[i].MealDate < meals[j].MealDate
		}
		return meals[i].MealType.Rank() < meals[j].MealType.Rank()
	})
}

func mealToModel(m domain.Meal) MealModel {
	return MealModel{
		ID:          m.ID,
		UserID:      m.UserID,
		MealDate:    m.MealDate,
		MealType:    string(m.MealType),
		InputMethod: string(m.InputMethod),
		Notes:       m.Notes,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func mealFromModel(m MealModel) domain.Meal {
	return domain.Meal{
		ID:          m.ID,
		UserID:      m.UserID,
		MealDate:    m.MealDate,
		MealType:    domain.MealType(m.MealType),
		InputMethod: domain.InputMethod(m.InputMethod),
		Notes:       m.Notes,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func itemsToModels(mealID string, items []domain.NutrientRecord) []MealItemModel {
	out := make([]MealItemModel, 0, len(items))
	for i, r := range items {
		out = append(out, MealItemModel{
			ID:              uuid.NewString(),
			MealID:          mealID,
			Position:        i,
			FoodName:        r.FoodName,
			Quantity:        r.Quantity,
			Unit:            r.Unit,
			Calories:        r.Calories,
			Protein:         r.Protein,
			Carbs:           r.Carbs,
			Fats:            r.Fats,
			Fiber:           r.Fiber,
			Sugar:           r.Sugar,
			Sodium:          r.Sodium,
			Barcode:         r.Barcode,
			SourceImageRef:  r.SourceImageRef,
			ConfidenceScore: r.ConfidenceScore,
			IsEdited:        r.IsEdited,
		})
	}
	return out
}

func itemFromModel(m MealItemModel) domain.NutrientRecord {
	return domain.NutrientRecord{
		FoodName:        m.FoodName,
		Quantity:        m.Quantity,
		Unit:            m.Unit,
		Calories:        m.Calories,
		Protein:         m.Protein,
		Carbs:           m.Carbs,
		Fats:            m.Fats,
		Fiber:           m.Fiber,
		Sugar:           m.Sugar,
		Sodium:          m.Sodium,
		Barcode:         m.Barcode,
		SourceImageRef:  m.SourceImageRef,
		ConfidenceScore: m.ConfidenceScore,
		IsEdited:        m.IsEdited,
	}
}

func summaryFromModel(m DailySummaryModel) domain.DailySummary {
	return domain.DailySummary{
		UserID: m.UserID,
		DayTotals: domain.DayTotals{
			Date:          m.SummaryDate,
			TotalCalories: m.TotalCalories,
			TotalProtein:  m.TotalProtein,
			TotalCarbs:    m.TotalCarbs,
			TotalFats:     m.TotalFats,
			TotalFiber:    m.TotalFiber,
			TotalSugar:    m.TotalSugar,
			TotalSodium:   m.TotalSodium,
			TotalWater:    m.TotalWater,
			MealCount:     m.MealCount,
		},
		LastCalculatedAt: m.LastCalculatedAt,
	}
}

func goalToModel(g domain.NutritionGoal) NutritionGoalModel {
	return NutritionGoalModel{
		ID:             g.ID,
		UserID:         g.UserID,
		CaloriesTarget: g.CaloriesTarget,
		ProteinTarget:  g.ProteinTarget,
		CarbsTarget:    g.CarbsTarget,
		FatsTarget:     g.FatsTarget,
		FiberTarget:    g.FiberTarget,
		SodiumTarget:   g.SodiumTarget,
		SugarTarget:    g.SugarTarget,
		WaterTarget:    g.WaterTarget,
		StartDate:      g.StartDate,
		EndDate:        g.EndDate,
		IsActive:       g.IsActive,
		CreatedAt:      g.CreatedAt,
	}
}

func goalFromModel(m NutritionGoalModel) domain.NutritionGoal {
	return domain.NutritionGoal{
		ID:             m.ID,
		UserID:         m.UserID,
		CaloriesTarget: m.CaloriesTarget,
		ProteinTarget:  m.ProteinTarget,
		CarbsTarget:    m.CarbsTarget,
		FatsTarget:     m.FatsTarget,
		FiberTarget:    m.FiberTarget,
		SodiumTarget:   m.SodiumTarget,
		SugarTarget:    m.SugarTarget,
		WaterTarget:    m.WaterTarget,
		StartDate:      m.StartDate,
		EndDate:        m.EndDate,
		IsActive:       m.IsActive,
		CreatedAt:      m.CreatedAt,
	}
}

// allergyNameKey folds an allergen name for per-user uniqueness.
func allergyNameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func allergyToModel(a domain.Allergy) AllergyModel {
	return AllergyModel{
		ID:                  a.ID,
		UserID:              a.UserID,
		NameKey:             allergyNameKey(a.AllergenName),
		AllergenName:        strings.TrimSpace(a.AllergenName),
		AllergenCategory:    a.AllergenCategory,
		Severity:            string(a.Severity),
		ReactionDescription: a.ReactionDescription,
		DiagnosedBy:         a.DiagnosedBy,
		DiagnosedDate:       a.DiagnosedDate,
		IsActive:            a.IsActive,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}

func allergyFromModel(m AllergyModel) domain.Allergy {
	return domain.Allergy{
		ID:                  m.ID,
		UserID:              m.UserID,
		AllergenName:        m.AllergenName,
		AllergenCategory:    m.AllergenCategory,
		Severity:            domain.Severity(m.Severity),
		ReactionDescription: m.ReactionDescription,
		DiagnosedBy:         m.DiagnosedBy,
		DiagnosedDate:       m.DiagnosedDate,
		IsActive:            m.IsActive,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

func conditionToModel(c domain.HealthCondition) (HealthConditionModel, error) {
	restrictions := c.Restrictions
	if restrictions == nil {
		restrictions = []string{}
	}
	raw, err := json.Marshal(restrictions)
	if err != nil {
		return HealthConditionModel{}, fmt.Errorf("encode restrictions: %w", err)
	}
	return HealthConditionModel{
		ID:            c.ID,
		UserID:        c.UserID,
		ConditionName: c.ConditionName,
		Notes:         c.Notes,
		Restrictions:  raw,
		IsActive:      c.IsActive,
		CreatedAt:     c.CreatedAt,
	}, nil
}

func conditionFromModel(m HealthConditionModel) domain.HealthCondition {
	var restrictions []string
	if len(m.Restrictions) > 0 {
		_ = json.Unmarshal(m.Restrictions, &restrictions)
	}
	return domain.HealthCondition{
		ID:            m.ID,
		UserID:        m.UserID,
		ConditionName: m.ConditionName,
		Notes:         m.Notes,
		Restrictions:  restrictions,
		IsActive:      m.IsActive,
		CreatedAt:     m.CreatedAt,
	}
}

func weightToModel(w domain.WeightEntry) WeightEntryModel {
	return WeightEntryModel{
		ID:        w.ID,
		UserID:    w.UserID,
		EntryDate: w.EntryDate,
		WeightKg:  w.WeightKg,
		Notes:     w.Notes,
		CreatedAt: w.CreatedAt,
	}
}

func weightFromModel(m WeightEntryModel) domain.WeightEntry {
	return domain.WeightEntry{
		ID:        m.ID,
		UserID:    m.UserID,
		EntryDate: m.EntryDate,
		WeightKg:  m.WeightKg,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
	}
}

var _ Store = (*GormStore)(nil)
