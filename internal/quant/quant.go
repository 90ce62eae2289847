// Package quant holds the pure decision math of the engine: edge, expected
// value, Kelly sizing, Brier scoring and calibration. No I/O, no state.
package quant

import (
	"fmt"
	"math"

	"market-edge-engine/internal/apperrors"
	"market-edge-engine/internal/entity"
)

// validateProb rejects NaN and out-of-range probabilities/prices.
func validateProb(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return fmt.Errorf("%w: %s=%v outside [0,1]", apperrors.ErrInvalidInput, name, v)
	}
	return nil
}

// ChooseDirection picks the side the estimate favors: yes when the AI
// probability is at or above the market price, no otherwise.
func ChooseDirection(marketPrice, aiProbability float64) (entity.Direction, error) {
	if err := validateProb("market_price", marketPrice); err != nil {
		return "", err
	}
	if err := validateProb("ai_probability", aiProbability); err != nil {
		return "", err
	}
	if aiProbability >= marketPrice {
		return entity.DirectionYes, nil
	}
	return entity.DirectionNo, nil
}

// Edge returns the signed advantage of the chosen direction. Positive means
// the estimate favors that side; with the direction from ChooseDirection the
// edge is non-negative by construction.
func Edge(direction entity.Direction, marketPrice, aiProbability float64) (float64, error) {
	if err := validateProb("market_price", marketPrice); err != nil {
		return 0, err
	}
	if err := validateProb("ai_probability", aiProbability); err != nil {
		return 0, err
	}
	if direction == entity.DirectionYes {
		return aiProbability - marketPrice, nil
	}
	return marketPrice - aiProbability, nil
}

// ExpectedValue returns the expected profit per unit staked on a binary
// contract: cost basis is the price paid, payoff 1 if correct, 0 otherwise.
// The no side mirrors the yes side with price' = 1-price, prob' = 1-prob.
func ExpectedValue(direction entity.Direction, marketPrice, aiProbability float64) (float64, error) {
	if err := validateProb("market_price", marketPrice); err != nil {
		return 0, err
	}
	if err := validateProb("ai_probability", aiProbability); err != nil {
		return 0, err
	}
	price, prob := marketPrice, aiProbability
	if direction == entity.DirectionNo {
		price = 1 - marketPrice
		prob = 1 - aiProbability
	}
	return prob*(1-price) - (1-prob)*price, nil
}

// KellyFraction returns the fraction of bankroll to stake: full Kelly for a
// binary bet at the odds implied by the price, scaled by the configured
// multiplier and clamped to [0, 1]. A non-positive full Kelly yields 0, never
// a negative stake.
func KellyFraction(direction entity.Direction, marketPrice, aiProbability, kellyMultiplier float64) (float64, error) {
	if err := validateProb("market_price", marketPrice); err != nil {
		return 0, err
	}
	if err := validateProb("ai_probability", aiProbability); err != nil {
		return 0, err
	}
	if math.IsNaN(kellyMultiplier) || kellyMultiplier < 0 {
		return 0, fmt.Errorf("%w: kelly_multiplier=%v", apperrors.ErrInvalidInput, kellyMultiplier)
	}

	price, prob := marketPrice, aiProbability
	if direction == entity.DirectionNo {
		price = 1 - marketPrice
		prob = 1 - aiProbability
	}
	// Degenerate prices carry no payout on one side; nothing to stake.
	if price <= 0 || price >= 1 {
		return 0, nil
	}

	full := prob - (1-prob)*price/(1-price)
	if full <= 0 {
		return 0, nil
	}
	f := full * kellyMultiplier
	if f > 1 {
		f = 1
	}
	return f, nil
}

// StakeSize converts a Kelly fraction into a currency stake, capped by the
// single-bet fraction and never exceeding the bankroll.
func StakeSize(kellyFraction, bankroll, maxSingleBetFraction float64) float64 {
	if kellyFraction <= 0 || bankroll <= 0 {
		return 0
	}
	stake := kellyFraction * bankroll
	if maxCap := maxSingleBetFraction * bankroll; maxCap >= 0 && stake > maxCap {
		stake = maxCap
	}
	if stake > bankroll {
		stake = bankroll
	}
	return stake
}

// BrierScore is the squared error between a forecast probability and the
// realized binary outcome. 0 is perfect, 0.25 is uninformative.
func BrierScore(probability float64, outcome bool) (float64, error) {
	if err := validateProb("probability", probability); err != nil {
		return 0, err
	}
	target := 0.0
	if outcome {
		target = 1.0
	}
	d := probability - target
	return d * d, nil
}

// AggregateBrier is the arithmetic mean Brier score over resolved forecasts.
// It returns 0 for an empty input.
func AggregateBrier(probabilities []float64, outcomes []bool) (float64, error) {
	if len(probabilities) != len(outcomes) {
		return 0, fmt.Errorf("%w: %d probabilities vs %d outcomes", apperrors.ErrInvalidInput, len(probabilities), len(outcomes))
	}
	if len(probabilities) == 0 {
		return 0, nil
	}
	var sum float64
	for i, p := range probabilities {
		s, err := BrierScore(p, outcomes[i])
		if err != nil {
			return 0, err
		}
		sum += s
	}
	return sum / float64(len(probabilities)), nil
}
