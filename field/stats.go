package field

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the spatial distribution of a buffer set.
type Summary struct {
	Count      int
	MeanRadius float64
	StdRadius  float64
	MaxRadius  float64
	MeanScale  float64

	// VolumeRatio is mean((r/R)^3). Volume-uniform sampling puts it near 0.5.
	VolumeRatio float64
}

// Radii returns the distance of every particle from the origin.
func Radii(b *BufferSet) []float64 {
	radii := make([]float64, b.Count)
	for i := range radii {
		p := b.Position(i)
		radii[i] = float64(p.Len())
	}
	return radii
}

// Summarize computes distribution statistics for b sampled with the given radius.
func Summarize(b *BufferSet, radius float64) Summary {
	if b == nil || b.Released() || b.Count == 0 {
		return Summary{}
	}

	radii := Radii(b)
	mean, std := stat.MeanStdDev(radii, nil)

	scales := make([]float64, b.Count)
	for i, s := range b.Scales {
		scales[i] = float64(s)
	}

	cubes := make([]float64, b.Count)
	for i, r := range radii {
		cubes[i] = math.Pow(r/radius, 3)
	}

	return Summary{
		Count:       b.Count,
		MeanRadius:  mean,
		StdRadius:   std,
		MaxRadius:   floats.Max(radii),
		MeanScale:   stat.Mean(scales, nil),
		VolumeRatio: stat.Mean(cubes, nil),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("count", s.Count),
		slog.Float64("mean_radius", s.MeanRadius),
		slog.Float64("std_radius", s.StdRadius),
		slog.Float64("max_radius", s.MaxRadius),
		slog.Float64("mean_scale", s.MeanScale),
		slog.Float64("volume_ratio", s.VolumeRatio),
	)
}
