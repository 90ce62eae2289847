package quant

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/entity"
)

func TestChooseDirection_FavorsEstimate(t *testing.T) {
	dir, err := ChooseDirection(0.40, 0.60)
	require.NoError(t, err)
	assert.Equal(t, entity.DirectionYes, dir)

	dir, err = ChooseDirection(0.60, 0.40)
	require.NoError(t, err)
	assert.Equal(t, entity.DirectionNo, dir)

	// Tie goes to yes.
	dir, err = ChooseDirection(0.50, 0.50)
	require.NoError(t, err)
	assert.Equal(t, entity.DirectionYes, dir)
}

func TestChooseDirection_InvalidInputs(t *testing.T) {
	_, err := ChooseDirection(-0.1, 0.5)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = ChooseDirection(0.5, 1.1)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = ChooseDirection(math.NaN(), 0.5)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestEdge_Scenario(t *testing.T) {
	// price=0.40, prob=0.60 -> yes, edge=0.20
	edge, err := Edge(entity.DirectionYes, 0.40, 0.60)
	require.NoError(t, err)
	assert.InDelta(t, 0.20, edge, 1e-9)

	// Mirror: price=0.60, prob=0.40 -> no, edge=0.20
	edge, err = Edge(entity.DirectionNo, 0.60, 0.40)
	require.NoError(t, err)
	assert.InDelta(t, 0.20, edge, 1e-9)
}

func TestEdge_NonNegativeByConstruction(t *testing.T) {
	for price := 0.0; price <= 1.0; price += 0.05 {
		for prob := 0.0; prob <= 1.0; prob += 0.05 {
			dir, err := ChooseDirection(price, prob)
			require.NoError(t, err)
			edge, err := Edge(dir, price, prob)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, edge, 0.0, "price=%v prob=%v", price, prob)
		}
	}
}

func TestExpectedValue_Scenario(t *testing.T) {
	// EV = 0.60*(1-0.40) - 0.40*0.40 = 0.36 - 0.16 = 0.20
	ev, err := ExpectedValue(entity.DirectionYes, 0.40, 0.60)
	require.NoError(t, err)
	assert.InDelta(t, 0.20, ev, 1e-9)
}

func TestExpectedValue_NoSideMirrors(t *testing.T) {
	// no side at price 0.40 is a yes at price 0.60 with prob 0.40
	evNo, err := ExpectedValue(entity.DirectionNo, 0.40, 0.60)
	require.NoError(t, err)
	evYes, err := ExpectedValue(entity.DirectionYes, 0.60, 0.40)
	require.NoError(t, err)
	assert.InDelta(t, evYes, evNo, 1e-9)
}

func TestExpectedValue_FairPriceIsZero(t *testing.T) {
	ev, err := ExpectedValue(entity.DirectionYes, 0.55, 0.55)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, ev, 1e-9)
}

func TestKellyFraction_Scenario(t *testing.T) {
	// full Kelly f* = 0.60 - 0.40*0.40/0.60 = 0.3333; x0.33 -> ~0.11
	f, err := KellyFraction(entity.DirectionYes, 0.40, 0.60, 0.33)
	require.NoError(t, err)
	assert.InDelta(t, 0.11, f, 0.001)
}

func TestKellyFraction_NoEdgeIsZero(t *testing.T) {
	// Estimate below price: no positive edge for the yes side.
	f, err := KellyFraction(entity.DirectionYes, 0.60, 0.40, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f)
}

func TestKellyFraction_NeverNegativeAndBounded(t *testing.T) {
	const mult = 0.5
	for price := 0.0; price <= 1.0; price += 0.05 {
		for prob := 0.0; prob <= 1.0; prob += 0.05 {
			dir, err := ChooseDirection(price, prob)
			require.NoError(t, err)
			f, err := KellyFraction(dir, price, prob, mult)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, f, 0.0, "price=%v prob=%v", price, prob)
			assert.LessOrEqual(t, f, 1.0, "price=%v prob=%v", price, prob)
			if price > 0 && price < 1 {
				// full Kelly is at most 1, so the fraction stays under the multiplier
				assert.LessOrEqual(t, f, mult+1e-9, "price=%v prob=%v", price, prob)
			}
		}
	}
}

func TestKellyFraction_DegeneratePrices(t *testing.T) {
	f, err := KellyFraction(entity.DirectionYes, 0.0, 0.9, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f)

	f, err = KellyFraction(entity.DirectionYes, 1.0, 0.9, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, f)
}

func TestStakeSize_Caps(t *testing.T) {
	// kelly 0.11 of 1000 = 110, under the 5% cap of 50 -> capped
	assert.InDelta(t, 50.0, StakeSize(0.11, 1000, 0.05), 1e-9)
	// small kelly stays uncapped
	assert.InDelta(t, 20.0, StakeSize(0.02, 1000, 0.05), 1e-9)
	// never exceeds bankroll even with a cap above 1
	assert.InDelta(t, 1000.0, StakeSize(1.0, 1000, 2.0), 1e-9)
	// never negative
	assert.Equal(t, 0.0, StakeSize(-0.1, 1000, 0.05))
	assert.Equal(t, 0.0, StakeSize(0.1, 0, 0.05))
}

func TestBrierScore_Identities(t *testing.T) {
	s, err := BrierScore(0.7, true)
	require.NoError(t, err)
	assert.InDelta(t, 0.09, s, 1e-9) // (1-0.7)^2

	s, err = BrierScore(0.7, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.49, s, 1e-9) // 0.7^2

	s, err = BrierScore(1.0, true)
	require.NoError(t, err)
	assert.Equal(t, 0.0, s)

	s, err = BrierScore(0.0, true)
	require.NoError(t, err)
	assert.Equal(t, 1.0, s)
}

func TestAggregateBrier(t *testing.T) {
	avg, err := AggregateBrier([]float64{1.0, 0.0}, []bool{true, true})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, avg, 1e-9)

	avg, err = AggregateBrier(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0.0, avg)

	_, err = AggregateBrier([]float64{0.5}, nil)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
