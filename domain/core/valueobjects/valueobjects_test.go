package valueobjects

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvas2/domain/config"
)

func TestNewPosition_RejectsNonFiniteCoordinates(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := NewPosition(v, 0)
		assert.Error(t, err)
		_, err = NewPosition(0, v)
		assert.Error(t, err)
	}

	// The canvas itself is unbounded; any finite value is fine
	p, err := NewPosition(-1e12, 1e12)
	require.NoError(t, err)
	assert.Equal(t, -1e12, p.X())
}

func TestPosition_EqualsWithinEpsilon(t *testing.T) {
	a, err := NewPosition(1, 1)
	require.NoError(t, err)
	b, err := NewPosition(1+1e-12, 1)
	require.NoError(t, err)
	c, err := NewPosition(1.1, 1)
	require.NoError(t, err)

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}

func TestPosition_Translate(t *testing.T) {
	p, err := NewPosition(10, 20)
	require.NoError(t, err)

	moved, err := p.Translate(5, -5)
	require.NoError(t, err)
	assert.Equal(t, 15.0, moved.X())
	assert.Equal(t, 15.0, moved.Y())

	// Translating into infinity fails
	_, err = p.Translate(math.Inf(1), 0)
	assert.Error(t, err)
}

func TestPosition_DistanceTo(t *testing.T) {
	a, err := NewPosition(0, 0)
	require.NoError(t, err)
	b, err := NewPosition(3, 4)
	require.NoError(t, err)
	assert.Equal(t, 5.0, a.DistanceTo(b))
}

func TestNewSizeWithConfig_EnforcesBounds(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	_, err := NewSizeWithConfig(cfg.MinNodeWidth-1, cfg.MinNodeHeight, cfg)
	assert.Error(t, err)
	_, err = NewSizeWithConfig(cfg.MinNodeWidth, cfg.MaxNodeHeight+1, cfg)
	assert.Error(t, err)
	_, err = NewSizeWithConfig(math.NaN(), 100, cfg)
	assert.Error(t, err)

	s, err := NewSizeWithConfig(cfg.MinNodeWidth, cfg.MaxNodeHeight, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg.MinNodeWidth, s.Width())
}

func TestRawSize_BypassesBounds(t *testing.T) {
	// Stored sizes reload even when the config has tightened since
	s := RawSize(5, 5)
	assert.Equal(t, 5.0, s.Width())
	assert.Equal(t, 5.0, s.Height())
	assert.False(t, s.IsZero())
	assert.True(t, RawSize(0, 0).IsZero())
}

func TestNodeID_RoundTrip(t *testing.T) {
	id := NewNodeID()
	require.False(t, id.IsZero())

	parsed, err := NewNodeIDFromString(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equals(parsed))

	_, err = NewNodeIDFromString("")
	assert.Error(t, err)
	_, err = NewNodeIDFromString("not-a-uuid")
	assert.Error(t, err)
}

func TestEdgeID_RoundTrip(t *testing.T) {
	id := NewEdgeID()
	parsed, err := NewEdgeIDFromString(id.String())
	require.NoError(t, err)
	assert.True(t, id.Equals(parsed))
}

func TestColorToken(t *testing.T) {
	assert.False(t, NoColor.IsSet())
	assert.True(t, ColorToken("amber").IsSet())
	assert.Equal(t, "amber", ColorToken("amber").String())
}
