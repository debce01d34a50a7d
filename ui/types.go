// Package ui draws the viewer's overlay: the parameter panel and the HUD.
// Widgets only produce control events; they never touch the field directly.
package ui

import rl "github.com/gen2brain/raylib-go/raylib"

// Theme holds UI styling constants.
type Theme struct {
	PanelBg        rl.Color
	PanelBorder    rl.Color
	SectionHeader  rl.Color
	LabelColor     rl.Color
	ValueColor     rl.Color
	RecordingColor rl.Color
	Padding        int32
	LineHeight     int32
	LabelWidth     int32
	SliderHeight   int32
	ButtonHeight   int32
	FontSize       int32
	HeaderFontSize int32
}

// DefaultTheme returns the default UI theme.
func DefaultTheme() Theme {
	return Theme{
		PanelBg:        rl.Color{R: 20, G: 25, B: 30, A: 220},
		PanelBorder:    rl.Color{R: 60, G: 70, B: 80, A: 255},
		SectionHeader:  rl.Color{R: 0, G: 220, B: 220, A: 255},
		LabelColor:     rl.LightGray,
		ValueColor:     rl.White,
		RecordingColor: rl.Color{R: 230, G: 60, B: 60, A: 255},
		Padding:        10,
		LineHeight:     16,
		LabelWidth:     60,
		SliderHeight:   16,
		ButtonHeight:   26,
		FontSize:       12,
		HeaderFontSize: 14,
	}
}
