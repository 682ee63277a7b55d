package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yama-lei/plantodo/internal"
	"github.com/yama-lei/plantodo/internal/storage"
)

var validate = validator.New()

// Experience rewards for task completion.
const (
	RewardNormalTask    = 25
	RewardImportantTask = 50
	RewardSystemDefault = 35
)

// Stage thresholds: stage 2 at level 4, stage 3 at level 8.
const (
	stageGrowingLevel = 4
	stageMatureLevel  = 8
)

// CompletionReward returns the experience a completed task grants the
// owner's main plant.
func CompletionReward(task *internal.Task) int {
	if task.System {
		if task.Reward > 0 {
			return task.Reward
		}
		return RewardSystemDefault
	}
	if task.Important {
		return RewardImportantTask
	}
	return RewardNormalTask
}

func stageForLevel(level int) int {
	switch {
	case level >= stageMatureLevel:
		return 3
	case level >= stageGrowingLevel:
		return 2
	default:
		return 1
	}
}

func stateForStage(stage int) string {
	switch stage {
	case 3:
		return internal.StateMature
	case 2:
		return internal.StateGrowing
	default:
		return internal.StateSeedling
	}
}

// ApplyExperience adds experience to a plant and levels it up while the
// total crosses the next threshold (level * 100), so large grants never
// lose experience. The growth stage only moves forward. LastInteraction
// is refreshed on every call.
func ApplyExperience(plant *internal.Plant, amount int) (leveledUp, stageChanged bool, err error) {
	if amount <= 0 {
		return false, false, internal.ValidationError("experience amount must be a positive integer")
	}

	plant.Experience += amount
	for plant.Experience >= plant.Level*100 {
		plant.Level++
		leveledUp = true
	}

	if stage := stageForLevel(plant.Level); stage > plant.GrowthStage {
		plant.GrowthStage = stage
		plant.State = stateForStage(stage)
		stageChanged = true
	}

	plant.LastInteraction = time.Now()
	return leveledUp, stageChanged, nil
}

// ExperienceResult is returned by GrantExperience for the API layer.
type ExperienceResult struct {
	Plant        *internal.Plant `json:"plant"`
	LeveledUp    bool            `json:"leveled_up"`
	StageChanged bool            `json:"stage_changed"`
}

type PlantService struct {
	plants storage.PlantRepository
	logger internal.Logger
}

func NewPlantService(plants storage.PlantRepository, logger internal.Logger) *PlantService {
	return &PlantService{plants: plants, logger: logger}
}

// GrantExperience applies an experience grant to one plant and persists
// the result.
func (s *PlantService) GrantExperience(ctx context.Context, userID, plantID string, amount int) (*ExperienceResult, error) {
	plant, err := s.plants.GetPlant(ctx, plantID, userID)
	if err != nil {
		return nil, err
	}

	leveledUp, stageChanged, err := ApplyExperience(plant, amount)
	if err != nil {
		return nil, err
	}

	if err := s.plants.UpdatePlant(ctx, plant); err != nil {
		return nil, err
	}
	if leveledUp {
		s.logger.Infof("plant %s leveled up to %d (stage %d)", plant.ID, plant.Level, plant.GrowthStage)
	}
	return &ExperienceResult{Plant: plant, LeveledUp: leveledUp, StageChanged: stageChanged}, nil
}

// RewardMainPlant grants experience to the user's main plant. Users
// without a main plant simply earn nothing, which is not an error.
func (s *PlantService) RewardMainPlant(ctx context.Context, userID string, amount int) (*ExperienceResult, error) {
	plant, err := s.plants.GetMainPlant(ctx, userID)
	if err != nil {
		if internal.KindOf(err) == internal.KindNotFound {
			return nil, nil
		}
		return nil, err
	}
	return s.GrantExperience(ctx, userID, plant.ID, amount)
}

type PlantRequest struct {
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type" validate:"required"`
	Emoji       string `json:"emoji"`
	IsMainPlant bool   `json:"is_main_plant"`
}

func ValidatePlantRequest(req *PlantRequest) error {
	if err := validate.Struct(req); err != nil {
		return internal.ValidationError("invalid plant request: %v", err)
	}
	return nil
}

// CreatePlant creates a plant at level 1, stage 1. The user's first
// plant always becomes the main plant.
func (s *PlantService) CreatePlant(ctx context.Context, userID string, req *PlantRequest) (*internal.Plant, error) {
	if err := ValidatePlantRequest(req); err != nil {
		return nil, err
	}

	existing, err := s.plants.ListPlants(ctx, userID)
	if err != nil {
		return nil, err
	}
	isMain := req.IsMainPlant || len(existing) == 0
	if isMain {
		if err := s.plants.ClearMainPlant(ctx, userID); err != nil {
			return nil, err
		}
	}

	emoji := req.Emoji
	if emoji == "" {
		emoji = "🌱"
	}
	now := time.Now()
	plant := &internal.Plant{
		ID:              uuid.NewString(),
		UserID:          userID,
		Name:            req.Name,
		Type:            req.Type,
		Emoji:           emoji,
		Level:           1,
		Experience:      0,
		GrowthStage:     1,
		State:           internal.StateSeedling,
		Mood:            internal.MoodNeutral,
		IsMainPlant:     isMain,
		CreatedAt:       now,
		LastInteraction: now,
	}
	if err := s.plants.SavePlant(ctx, plant); err != nil {
		return nil, err
	}
	return plant, nil
}

func (s *PlantService) ListPlants(ctx context.Context, userID string) ([]internal.Plant, error) {
	return s.plants.ListPlants(ctx, userID)
}

// SetMainPlant promotes one plant and demotes any other main plant the
// user owns.
func (s *PlantService) SetMainPlant(ctx context.Context, userID, plantID string) (*internal.Plant, error) {
	plant, err := s.plants.GetPlant(ctx, plantID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.plants.ClearMainPlant(ctx, userID); err != nil {
		return nil, err
	}
	plant.IsMainPlant = true
	plant.LastInteraction = time.Now()
	if err := s.plants.UpdatePlant(ctx, plant); err != nil {
		return nil, err
	}
	return plant, nil
}

// DeletePlant removes a plant. The main plant cannot be deleted.
func (s *PlantService) DeletePlant(ctx context.Context, userID, plantID string) error {
	plant, err := s.plants.GetPlant(ctx, plantID, userID)
	if err != nil {
		return err
	}
	if plant.IsMainPlant {
		return internal.ValidationError("cannot delete the main plant")
	}
	return s.plants.DeletePlant(ctx, plantID, userID)
}
