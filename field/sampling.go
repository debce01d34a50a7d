package field

import "math"

// Source yields uniform samples in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// SampleInSphere draws a point uniformly by volume inside a sphere of the given radius.
//
// The radius uses the cube root of a uniform sample so that shell volume, not
// shell thickness, is what's uniform. The polar angle goes through acos(2u-1)
// so that points are uniform over the sphere's surface rather than bunched at
// the poles.
func SampleInSphere(src Source, radius float64) (x, y, z float64) {
	r := radius * math.Cbrt(src.Float64())
	theta := src.Float64() * 2 * math.Pi
	phi := math.Acos(2*src.Float64() - 1)
	return sphericalToCartesian(r, theta, phi)
}

// SampleOnShell draws a point uniformly over the surface of a sphere.
func SampleOnShell(src Source, radius float64) (x, y, z float64) {
	theta := src.Float64() * 2 * math.Pi
	phi := math.Acos(2*src.Float64() - 1)
	return sphericalToCartesian(radius, theta, phi)
}

// sphericalToCartesian converts (r, azimuth, polar) to Cartesian coordinates.
func sphericalToCartesian(r, theta, phi float64) (x, y, z float64) {
	sinPhi := math.Sin(phi)
	x = r * sinPhi * math.Cos(theta)
	y = r * sinPhi * math.Sin(theta)
	z = r * math.Cos(phi)
	return x, y, z
}

// generate builds a complete buffer set for p. Nothing is shared with any
// previous set, so the caller can swap it in whole.
func generate(p Params, src Source) (*BufferSet, error) {
	set, err := allocate(p.Count)
	if err != nil {
		return nil, err
	}

	for i := 0; i < p.Count; i++ {
		i3 := i * 3

		x, y, z := SampleInSphere(src, p.Radius)
		set.Positions[i3] = float32(x)
		set.Positions[i3+1] = float32(y)
		set.Positions[i3+2] = float32(z)

		set.Colors[i3] = p.Color.R
		set.Colors[i3+1] = p.Color.G
		set.Colors[i3+2] = p.Color.B

		set.Scales[i] = float32(src.Float64())

		set.Randomness[i3] = float32(src.Float64()*2 - 1)
		set.Randomness[i3+1] = float32(src.Float64()*2 - 1)
		set.Randomness[i3+2] = float32(src.Float64()*2 - 1)
	}

	return set, nil
}
