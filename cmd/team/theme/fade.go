package theme

import "github.com/gigurra/aegis/cmd/common/sound"

// FadeSteps is the number of volume changes in every fade.
const FadeSteps = 50

// Ramp returns the volumes of a linear fade from one level to another,
// excluding the starting level and ending exactly on to. Rising from zero
// gives to*k/steps; falling to zero gives from*(1-k/steps).
func Ramp(from, to float64, steps int) []float64 {
	if steps <= 0 {
		steps = FadeSteps
	}
	out := make([]float64, steps)
	for k := 1; k <= steps; k++ {
		out[k-1] = sound.Clamp(from + (to-from)*float64(k)/float64(steps))
	}
	out[steps-1] = sound.Clamp(to)
	return out
}
