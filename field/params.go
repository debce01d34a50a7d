package field

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Key names a tunable particle parameter.
type Key string

const (
	KeyCount      Key = "count"
	KeySize       Key = "size"
	KeyColor      Key = "color"
	KeySpeed      Key = "speed"
	KeyRadius     Key = "radius"
	KeyRandomness Key = "randomness"
)

// Keys lists every parameter in export order.
var Keys = []Key{KeyCount, KeySize, KeyColor, KeySpeed, KeyRadius, KeyRandomness}

// RegenerateKeys are baked into the buffers at generation time.
// Changing any of them rebuilds the whole buffer set.
var RegenerateKeys = map[Key]struct{}{
	KeyCount:  {},
	KeyRadius: {},
	KeyColor:  {},
}

// UniformKeys are consumed per frame as scalars and never touch the buffers.
var UniformKeys = map[Key]struct{}{
	KeySize:       {},
	KeySpeed:      {},
	KeyRandomness: {},
}

// Color is a linear RGB triple with channels in [0, 1].
type Color struct {
	R, G, B float32
}

// ParseColor parses "#rrggbb", "#rgb" or the same without the leading '#'.
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, fmt.Errorf("%w: color %q: %v", ErrInvalidConfiguration, s, err)
	}
	return Color{R: float32(c.R), G: float32(c.G), B: float32(c.B)}, nil
}

// MustParseColor is like ParseColor but panics on error.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex returns the "#rrggbb" encoding.
func (c Color) Hex() string {
	return colorful.Color{R: float64(c.R), G: float64(c.G), B: float64(c.B)}.Clamped().Hex()
}

func (c Color) String() string { return c.Hex() }

// MarshalJSON encodes the color as a hex string.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// UnmarshalJSON decodes a hex string.
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Params is the full particle configuration. Field order is the export order.
type Params struct {
	Count      int     `json:"count"`
	Size       float64 `json:"size"`
	Color      Color   `json:"color"`
	Speed      float64 `json:"speed"`
	Radius     float64 `json:"radius"`
	Randomness float64 `json:"randomness"`
}

// DefaultParams returns the startup configuration.
func DefaultParams() Params {
	return Params{
		Count:      10000,
		Size:       0.5,
		Color:      Color{R: 0, G: 1, B: 1},
		Speed:      1.0,
		Radius:     10,
		Randomness: 0.5,
	}
}

// Validate checks every field. maxCount <= 0 disables the upper count bound.
func (p Params) Validate(maxCount int) error {
	if p.Count <= 0 {
		return fmt.Errorf("%w: count must be positive, got %d", ErrInvalidConfiguration, p.Count)
	}
	if maxCount > 0 && p.Count > maxCount {
		return fmt.Errorf("%w: count %d exceeds limit %d", ErrInvalidConfiguration, p.Count, maxCount)
	}
	if !finite(p.Radius) || p.Radius <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %v", ErrInvalidConfiguration, p.Radius)
	}
	if !finite(p.Size) || p.Size <= 0 {
		return fmt.Errorf("%w: size must be positive, got %v", ErrInvalidConfiguration, p.Size)
	}
	if !finite(p.Speed) || p.Speed < 0 {
		return fmt.Errorf("%w: speed must be non-negative, got %v", ErrInvalidConfiguration, p.Speed)
	}
	if !finite(p.Randomness) || p.Randomness < 0 {
		return fmt.Errorf("%w: randomness must be non-negative, got %v", ErrInvalidConfiguration, p.Randomness)
	}
	for _, ch := range []float32{p.Color.R, p.Color.G, p.Color.B} {
		if ch < 0 || ch > 1 {
			return fmt.Errorf("%w: color channel out of range: %v", ErrInvalidConfiguration, p.Color)
		}
	}
	return nil
}

// With returns a copy of p with value merged in at key.
// Numbers may be any Go numeric type or a numeric string; color accepts a
// hex string or a Color. The result is not range-checked; see Validate.
func (p Params) With(key Key, value any) (Params, error) {
	if key == KeyColor {
		switch v := value.(type) {
		case Color:
			p.Color = v
		case string:
			c, err := ParseColor(v)
			if err != nil {
				return p, err
			}
			p.Color = c
		default:
			return p, fmt.Errorf("%w: color expects a hex string, got %T", ErrInvalidConfiguration, value)
		}
		return p, nil
	}

	n, err := toFloat(value)
	if err != nil {
		return p, fmt.Errorf("%w: %s: %v", ErrInvalidConfiguration, key, err)
	}
	if !finite(n) {
		return p, fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidConfiguration, key, n)
	}

	switch key {
	case KeyCount:
		if n != math.Trunc(n) {
			return p, fmt.Errorf("%w: count must be a whole number, got %v", ErrInvalidConfiguration, n)
		}
		if math.Abs(n) >= float64(math.MaxInt) {
			return p, fmt.Errorf("%w: count %v out of range", ErrInvalidConfiguration, n)
		}
		p.Count = int(n)
	case KeySize:
		p.Size = n
	case KeySpeed:
		p.Speed = n
	case KeyRadius:
		p.Radius = n
	case KeyRandomness:
		p.Randomness = n
	default:
		return p, fmt.Errorf("%w: %q", ErrUnknownParameter, key)
	}
	return p, nil
}

// Value returns the current value for key formatted as it appears in logs.
func (p Params) Value(key Key) string {
	switch key {
	case KeyCount:
		return strconv.Itoa(p.Count)
	case KeySize:
		return formatFloat(p.Size)
	case KeyColor:
		return p.Color.Hex()
	case KeySpeed:
		return formatFloat(p.Speed)
	case KeyRadius:
		return formatFloat(p.Radius)
	case KeyRandomness:
		return formatFloat(p.Randomness)
	}
	return ""
}

// WriteJSON writes the flat key/value snapshot, two-space indented.
func (p Params) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("encoding params: %w", err)
	}
	return nil
}

// ReadParams decodes a snapshot written by WriteJSON on top of base, so
// missing keys keep their base values.
func ReadParams(r io.Reader, base Params) (Params, error) {
	p := base
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return base, fmt.Errorf("decoding params: %w", err)
	}
	return p, nil
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return f, nil
	}
	return 0, fmt.Errorf("unsupported value type %T", value)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
