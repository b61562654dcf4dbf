// Package geometry converts between .DS_Store coordinates (origin top-left,
// y increases downward) and GNUstep coordinates (origin bottom-left, y
// increases upward). All functions are pure; the encode/decode pairs are
// exact inverses of each other.
package geometry

// Point is a position in either coordinate system.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle anchored at X,Y.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// ContentRectToHostFrame converts a .DS_Store window content rectangle
// (top-left origin, chrome excluded) into a GNUstep frame rectangle
// (bottom-left origin) for a screen of the given height.
func ContentRectToHostFrame(content Rect, screenHeight float64) Rect {
	return Rect{
		X:      content.X,
		Y:      screenHeight - content.Y - content.Height,
		Width:  content.Width,
		Height: content.Height,
	}
}

// HostFrameToContentRect is the inverse of ContentRectToHostFrame.
func HostFrameToContentRect(host Rect, screenHeight float64) Rect {
	return Rect{
		X:      host.X,
		Y:      screenHeight - host.Y - host.Height,
		Width:  host.Width,
		Height: host.Height,
	}
}

// IconCenterToHostOrigin converts a .DS_Store icon position (icon center,
// top-left origin) into a GNUstep icon position (bottom-left corner,
// bottom-left origin). The x coordinate passes through unchanged: the host
// icon view lays out horizontally from the center value as-is.
func IconCenterToHostOrigin(center Point, viewHeight, iconHeight float64) Point {
	return Point{
		X: center.X,
		Y: viewHeight - center.Y - iconHeight,
	}
}

// HostOriginToIconCenter is the inverse of IconCenterToHostOrigin.
func HostOriginToIconCenter(origin Point, viewHeight, iconHeight float64) Point {
	return Point{
		X: origin.X,
		Y: viewHeight - origin.Y - iconHeight,
	}
}
