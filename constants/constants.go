package constants

import "math"

const (
	Pi   = 3.14159265358979323846264338327950288
	Eps0 = 8.854e-12     // permittivity of free space
	Mu0  = Pi * 4.0e-7   // permeability of free space
	C0   = 2.99792458e+8 // speed of light in a vacuum
)

// Imp0 is the free space impedance sqrt(Mu0/Eps0), evaluated once at startup
var Imp0 = Sqrt(Mu0 / Eps0)

// Sqrt returns the square root of x by Newton-Raphson iteration, stopping when
// two successive iterates agree. Negative, infinite and NaN inputs return NaN.
func Sqrt(x float64) float64 {
	if !(x >= 0) || math.IsInf(x, 1) {
		return math.NaN()
	}
	if x == 0 {
		return 0
	}
	curr, prev := x, 0.0
	for i := 0; i < 2048 && curr != prev; i++ {
		next := 0.5 * (curr + x/curr)
		// Iterates can oscillate between two neighbouring floats near the root
		if next == prev {
			return math.Min(curr, next)
		}
		prev, curr = curr, next
	}
	return curr
}
