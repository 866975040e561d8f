package playback

import "time"

// Predict returns the position the authoritative player is expected to be at
// on now. Negative elapsed time caused by clock skew counts as zero.
func Predict(state State, now time.Time) float64 {
	position := state.Time
	if state.Playing {
		elapsed := now.Sub(state.LastUpdateTime()).Seconds()
		if elapsed > 0 {
			position += elapsed
		}
	}

	if position < 0 {
		return 0
	}

	return position
}

// Drift is the absolute distance between a local position and a prediction.
func Drift(local, predicted float64) float64 {
	d := local - predicted
	if d < 0 {
		return -d
	}

	return d
}
