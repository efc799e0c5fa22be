package fertilizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimind/agrimind/internal/apperr"
	"github.com/agrimind/agrimind/internal/crop"
	"github.com/agrimind/agrimind/internal/fertilizer"
)

const testMetadata = `
maize:
  duration_days: 75
  growth_stages:
    seedling: 20
    vegetative: 30
    flowering: 25
  recommended_fertilizers:
    urea: [45, 25]
    dap: [0]
    potash: [25]
`

func newScheduler(t *testing.T) *fertilizer.Scheduler {
	t.Helper()
	cat, err := crop.LoadCatalog([]byte(testMetadata), []byte("crop,yield_kg_per_acre\nmaize,1800\n"), nil)
	require.NoError(t, err)
	return fertilizer.NewScheduler(cat)
}

func TestStage_Boundaries(t *testing.T) {
	stages := crop.Stages{
		{Name: "seedling", Days: 20},
		{Name: "vegetative", Days: 30},
		{Name: "flowering", Days: 25},
	}

	tests := []struct {
		age  int
		want string
	}{
		{0, "seedling"},
		{20, "seedling"},
		{21, "vegetative"},
		{50, "vegetative"},
		{51, "flowering"},
		{75, "flowering"},
		{76, fertilizer.StagePostHarvest},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fertilizer.Stage(stages, tt.age), "age %d", tt.age)
	}
}

func TestScheduler_Schedule(t *testing.T) {
	s := newScheduler(t)

	got, err := s.Schedule("MAIZE", 20)
	require.NoError(t, err)

	assert.Equal(t, "Maize", got.Crop)
	assert.Equal(t, 20, got.CropAgeDays)
	assert.Equal(t, "seedling", got.Stage)
	assert.False(t, got.Exhausted)
	assert.Equal(t, []fertilizer.Entry{
		{Fertilizer: "Potash", DayOfApplication: 25, Stage: "seedling"},
		{Fertilizer: "Urea", DayOfApplication: 25, Stage: "seedling"},
		{Fertilizer: "Urea", DayOfApplication: 45, Stage: "seedling"},
	}, got.Entries)
}

func TestScheduler_ApplicationDayInclusive(t *testing.T) {
	s := newScheduler(t)

	got, err := s.Schedule("maize", 45)
	require.NoError(t, err)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, 45, got.Entries[0].DayOfApplication)
	assert.Equal(t, "vegetative", got.Entries[0].Stage)
}

func TestScheduler_Exhausted(t *testing.T) {
	s := newScheduler(t)

	got, err := s.Schedule("maize", 46)
	require.NoError(t, err)
	assert.True(t, got.Exhausted)
	assert.Empty(t, got.Entries)
	assert.Equal(t, fertilizer.ExhaustedMessage, got.Message)

	got, err = s.Schedule("maize", 200)
	require.NoError(t, err)
	assert.True(t, got.Exhausted)
	assert.Equal(t, fertilizer.StagePostHarvest, got.Stage)
}

func TestScheduler_Errors(t *testing.T) {
	s := newScheduler(t)

	_, err := s.Schedule("unobtainium", 10)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = s.Schedule("maize", -1)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestScheduler_DefaultCatalog(t *testing.T) {
	cat, err := crop.DefaultCatalog()
	require.NoError(t, err)
	s := fertilizer.NewScheduler(cat)

	got, err := s.Schedule("Rice", 30)
	require.NoError(t, err)
	assert.Equal(t, "tillering", got.Stage)
	for i := 1; i < len(got.Entries); i++ {
		assert.LessOrEqual(t, got.Entries[i-1].DayOfApplication, got.Entries[i].DayOfApplication)
	}
}
