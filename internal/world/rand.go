package world

import "math/rand"

// randFloat64 backs the unseeded branch of AddRandomObstacles.
func randFloat64() float64 {
	return rand.Float64()
}
