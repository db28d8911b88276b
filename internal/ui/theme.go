package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
)

// Brand colors
var (
	colorSpredOrange = color.RGBA{R: 241, G: 90, B: 36, A: 255}
	colorSuccess     = color.RGBA{R: 46, G: 160, B: 67, A: 255}
	colorError       = color.RGBA{R: 183, G: 28, B: 28, A: 255}
	colorDarkSurface = color.RGBA{R: 20, G: 20, B: 22, A: 255}
)

// SpredTheme is the default theme with the Spred palette and tighter spacing
type SpredTheme struct{}

// NewSpredTheme creates the application theme
func NewSpredTheme() fyne.Theme {
	return &SpredTheme{}
}

// Color returns theme colors
func (t *SpredTheme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return colorSpredOrange
	case theme.ColorNameSuccess:
		return colorSuccess
	case theme.ColorNameError:
		return colorError
	case theme.ColorNameBackground:
		if variant == theme.VariantDark {
			return colorDarkSurface
		}
	}
	return theme.DefaultTheme().Color(name, variant)
}

// Font returns theme fonts
func (t *SpredTheme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

// Icon returns theme icons
func (t *SpredTheme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

// Size returns theme sizes
func (t *SpredTheme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNamePadding:
		return 3
	case theme.SizeNameInnerPadding:
		return 6
	case theme.SizeNameText:
		return 13
	}
	return theme.DefaultTheme().Size(name)
}
