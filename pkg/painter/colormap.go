package painter

import "github.com/spettro-go/spettro/pkg/display"

// ApplyColorMap maps a normalized value in [0, 1] to a color under the
// given color map. Values outside [0, 1] are clamped.
func ApplyColorMap(cm display.ColorMap, normalized float64) Color {
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	switch cm {
	case display.Gray:
		return grayColor(normalized)
	case display.Print:
		return printColor(normalized)
	default:
		return heatColor(normalized)
	}
}

// heatColor is a perceptually warm black -> red -> yellow -> white
// gradient, 0 maps to black and 1 to white.
func heatColor(v float64) Color {
	switch {
	case v < 1.0/3:
		frac := v * 3
		return Color{R: scale(frac), G: 0, B: 0}
	case v < 2.0/3:
		frac := (v - 1.0/3) * 3
		return Color{R: 255, G: scale(frac), B: 0}
	default:
		frac := (v - 2.0/3) * 3
		return Color{R: 255, G: 255, B: scale(frac)}
	}
}

// grayColor is linear luminance, 0 black, 1 white.
func grayColor(v float64) Color {
	g := scale(v)
	return Color{R: g, G: g, B: g}
}

// printColor is grayColor inverted, suitable for ink-on-paper output:
// 0 maps to white, 1 to black.
func printColor(v float64) Color {
	g := scale(1 - v)
	return Color{R: g, G: g, B: g}
}

func scale(v float64) uint8 {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return uint8(v * 255)
}
