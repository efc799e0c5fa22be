package market_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimind/agrimind/internal/market"
)

func TestCommodityMap(t *testing.T) {
	m := market.DefaultCommodityMap()

	assert.Equal(t, "Paddy", m.Commodity("rice"))
	assert.Equal(t, "Paddy", m.Commodity("  Rice "))
	assert.Equal(t, "Gram", m.Commodity("chickpea"))
	assert.Equal(t, "jute", m.Commodity(" jute "), "unmapped labels pass through")
}

func TestLoadCommodityMap_NormalizesKeys(t *testing.T) {
	m, err := market.LoadCommodityMap([]byte("\"  Groundnut \": Groundnut\nKidneyBeans: Rajmah\n"))
	require.NoError(t, err)

	assert.Equal(t, "Groundnut", m.Commodity("groundnut"))
	assert.Equal(t, "Rajmah", m.Commodity("kidneybeans"))
}

func TestLoadCommodityMap_Invalid(t *testing.T) {
	_, err := market.LoadCommodityMap([]byte("- not a map"))
	assert.Error(t, err)
}
