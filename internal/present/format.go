package present

import (
	"fmt"
	"math"

	"stockdash/internal/provider"
)

const NA = "N/A"

const (
	ColorPositive = "#26A69A"
	ColorNegative = "#EF5350"
	ColorNeutral  = "black"
)

// Color is a display hint for a signed value.
type Color struct {
	Hex  string `json:"hex"`
	Name string `json:"name"`
}

// ChangeColor is green for non-negative changes and red otherwise.
func ChangeColor(change float64) Color {
	if change >= 0 {
		return Color{Hex: ColorPositive, Name: "green"}
	}
	return Color{Hex: ColorNegative, Name: "red"}
}

// CellColor is the table variant: zero is neutral.
func CellColor(v float64) string {
	switch {
	case v > 0:
		return ColorPositive
	case v < 0:
		return ColorNegative
	}
	return ColorNeutral
}

// FormatNumber abbreviates large values with K, M, B or T and two decimals.
func FormatNumber(v *float64) string {
	if v == nil {
		return NA
	}
	n := *v
	switch {
	case n >= 1e12:
		return fmt.Sprintf("%.2fT", n/1e12)
	case n >= 1e9:
		return fmt.Sprintf("%.2fB", n/1e9)
	case n >= 1e6:
		return fmt.Sprintf("%.2fM", n/1e6)
	case n >= 1e3:
		return fmt.Sprintf("%.2fK", n/1e3)
	}
	return fmt.Sprintf("%.2f", n)
}

// FormatValue is FormatNumber for a known value.
func FormatValue(v float64) string { return FormatNumber(&v) }

func FormatPercent(p float64) string { return fmt.Sprintf("%.2f%%", p) }

func FormatRupee(v *float64) string {
	if v == nil {
		return NA
	}
	return fmt.Sprintf("₹%.2f", *v)
}

func FormatPlain(v *float64) string {
	if v == nil {
		return NA
	}
	return fmt.Sprintf("%.2f", *v)
}

// FormatSignedChange renders "+12.30 (1.25%)" style change text.
func FormatSignedChange(change, pct float64) string {
	sign := ""
	if change >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s%.2f (%.2f%%)", sign, change, pct)
}

// PercentChange returns (current-previous)/previous*100, or 0 when previous is 0.
func PercentChange(current, previous float64) float64 {
	return provider.PercentChange(current, previous)
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 { return math.Round(v*100) / 100 }
