package domain

import "math"

// ComputePoints derives the points due for a monetary amount:
//
//	points = floor(amount / (unit_cost * inflation_factor))
//
// The computation is pure, which is what makes idempotent re-application
// safe: replaying the same purchase always yields the same delta. Zero or
// negative results mean "no points due", not an error.
func ComputePoints(amount int64, unitCost int64, inflationFactor float64) int64 {
	if amount <= 0 || unitCost < 1 {
		return 0
	}
	if inflationFactor < 1 {
		inflationFactor = 1
	}
	points := math.Floor(float64(amount) / (float64(unitCost) * inflationFactor))
	if points <= 0 || math.IsNaN(points) || math.IsInf(points, 0) {
		return 0
	}
	return int64(points)
}
