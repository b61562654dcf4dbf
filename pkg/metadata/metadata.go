// Package metadata decodes the record set of a directory's .DS_Store file
// into a structured view-settings model and encodes mutations back into
// the minimal set of records. Legacy and modern encodings of the same
// setting coexist in the wild; decoding applies modern-first precedence,
// encoding regenerates only the modern forms.
package metadata

import (
	"github.com/gershwin-desktop/gershwin-workspace-sub002/pkg/geometry"
)

// ViewStyle matches the vstl field values.
type ViewStyle int

const (
	ViewStyleIcon      ViewStyle = iota // icnv
	ViewStyleList                       // Nlsv
	ViewStyleColumn                     // clmv
	ViewStyleGallery                    // glyv
	ViewStyleCoverflow                  // Flwv
)

// BackgroundType matches the BKGD tags.
type BackgroundType int

const (
	BackgroundDefault BackgroundType = iota // DefB
	BackgroundColor                         // ClrB
	BackgroundPicture                       // PctB
)

// IconArrangement from icvo/icvp.
type IconArrangement int

const (
	IconArrangementNone IconArrangement = iota
	IconArrangementGrid
)

// LabelPosition from icvo/icvp.
type LabelPosition int

const (
	LabelPositionBottom LabelPosition = iota // botm
	LabelPositionRight                      // rght
)

// SortBy options carried by the icvp arrangeBy key.
type SortBy int

const (
	SortByNone SortBy = iota
	SortByName
	SortByDateModified
	SortByDateCreated
	SortBySize
	SortByKind
	SortByLabel
	SortByDateAdded
)

// LabelColor indices 0-7.
type LabelColor int

const (
	LabelColorNone LabelColor = iota
	LabelColorRed
	LabelColorOrange
	LabelColorYellow
	LabelColorGreen
	LabelColorBlue
	LabelColorPurple
	LabelColorGrey
)

// Color is an RGB triple with channels in [0,1].
type Color struct {
	R float64
	G float64
	B float64
}

// IconInfo holds the per-file records for one directory entry. Positions
// are in .DS_Store coordinates: icon center, origin top-left.
type IconInfo struct {
	Filename string

	Position    geometry.Point
	HasPosition bool

	Comments    string
	HasComments bool

	LabelColor    LabelColor
	HasLabelColor bool

	LogicalSize    int64
	HasLogicalSize bool

	PhysicalSize    int64
	HasPhysicalSize bool

	// ModDate is the raw dutc value (HFS+ ticks); timestamp semantics are
	// carried through untouched.
	ModDate    int64
	HasModDate bool
}

// HostPosition converts the stored icon center into the host icon view's
// bottom-left-corner position.
func (i *IconInfo) HostPosition(viewHeight, iconHeight float64) geometry.Point {
	return geometry.IconCenterToHostOrigin(i.Position, viewHeight, iconHeight)
}

// DirectoryMetadata is the decoded view state for one directory. Each
// optional field pairs with a Has flag; absent means the caller falls back
// to its default. Instances are value-owned by the loader that produced
// them: a reload builds a fresh instance instead of mutating in place.
type DirectoryMetadata struct {
	Dir    string
	Loaded bool

	// Window geometry in .DS_Store coordinates (content rectangle,
	// top-left origin).
	WindowFrame    geometry.Rect
	HasWindowFrame bool

	SidebarWidth    int
	HasSidebarWidth bool

	ShowToolbar    bool
	HasShowToolbar bool

	ShowSidebar    bool
	HasShowSidebar bool

	ShowPathbar    bool
	HasShowPathbar bool

	ShowStatusBar    bool
	HasShowStatusBar bool

	ViewStyle    ViewStyle
	HasViewStyle bool

	IconSize    int
	HasIconSize bool

	IconArrangement    IconArrangement
	HasIconArrangement bool

	LabelPosition    LabelPosition
	HasLabelPosition bool

	GridSpacing    float64
	HasGridSpacing bool

	TextSize    int
	HasTextSize bool

	ShowItemInfo    bool
	HasShowItemInfo bool

	ShowIconPreview    bool
	HasShowIconPreview bool

	SortBy    SortBy
	HasSortBy bool

	BackgroundType      BackgroundType
	BackgroundColor     Color
	HasBackgroundColor  bool
	BackgroundImagePath string

	ListTextSize    int
	HasListTextSize bool

	ListIconSize    int
	HasListIconSize bool

	SortColumn    string
	HasSortColumn bool
	SortAscending bool

	ShowRelativeDates    bool
	HasShowRelativeDates bool

	ColumnWidths  map[string]int
	ColumnVisible map[string]bool

	icons map[string]*IconInfo
}

// NewDirectoryMetadata returns an empty model for dir with every present
// flag false.
func NewDirectoryMetadata(dir string) *DirectoryMetadata {
	return &DirectoryMetadata{
		Dir:           dir,
		SortAscending: true,
		ColumnWidths:  make(map[string]int),
		ColumnVisible: make(map[string]bool),
		icons:         make(map[string]*IconInfo),
	}
}

// IconInfo returns the per-file info for filename, if any field was ever
// recorded for it.
func (m *DirectoryMetadata) IconInfo(filename string) (*IconInfo, bool) {
	info, ok := m.icons[filename]
	return info, ok
}

// AllIconInfo returns the per-file map keyed by filename.
func (m *DirectoryMetadata) AllIconInfo() map[string]*IconInfo {
	return m.icons
}

// FilenamesWithPositions returns the files that carry an icon position.
func (m *DirectoryMetadata) FilenamesWithPositions() []string {
	var names []string
	for name, info := range m.icons {
		if info.HasPosition {
			names = append(names, name)
		}
	}
	return names
}

// HasAnyIconPositions reports whether any file carries an icon position.
func (m *DirectoryMetadata) HasAnyIconPositions() bool {
	for _, info := range m.icons {
		if info.HasPosition {
			return true
		}
	}
	return false
}

// SetIconPosition records an icon position (in .DS_Store coordinates) for
// filename, creating the per-file info on first use.
func (m *DirectoryMetadata) SetIconPosition(filename string, p geometry.Point) {
	info := m.ensureIcon(filename)
	info.Position = p
	info.HasPosition = true
}

// SetComments records per-file comments.
func (m *DirectoryMetadata) SetComments(filename, comments string) {
	info := m.ensureIcon(filename)
	info.Comments = comments
	info.HasComments = true
}

// SetLabelColor records a per-file label color index.
func (m *DirectoryMetadata) SetLabelColor(filename string, c LabelColor) {
	info := m.ensureIcon(filename)
	info.LabelColor = c
	info.HasLabelColor = true
}

// ensureIcon creates the per-file info lazily, the first time any field is
// recorded for the filename.
func (m *DirectoryMetadata) ensureIcon(filename string) *IconInfo {
	if info, ok := m.icons[filename]; ok {
		return info
	}
	info := &IconInfo{Filename: filename}
	m.icons[filename] = info
	return info
}

// HostWindowFrame converts the stored content rectangle into a host frame
// for a screen of the given height.
func (m *DirectoryMetadata) HostWindowFrame(screenHeight float64) geometry.Rect {
	return geometry.ContentRectToHostFrame(m.WindowFrame, screenHeight)
}

// Equal reports field-wise equality of two models, per-file map included.
func (m *DirectoryMetadata) Equal(other *DirectoryMetadata) bool {
	if m.Dir != other.Dir || m.Loaded != other.Loaded {
		return false
	}
	if m.HasWindowFrame != other.HasWindowFrame || m.WindowFrame != other.WindowFrame {
		return false
	}
	if m.HasSidebarWidth != other.HasSidebarWidth || m.SidebarWidth != other.SidebarWidth {
		return false
	}
	if m.HasShowToolbar != other.HasShowToolbar || m.ShowToolbar != other.ShowToolbar ||
		m.HasShowSidebar != other.HasShowSidebar || m.ShowSidebar != other.ShowSidebar ||
		m.HasShowPathbar != other.HasShowPathbar || m.ShowPathbar != other.ShowPathbar ||
		m.HasShowStatusBar != other.HasShowStatusBar || m.ShowStatusBar != other.ShowStatusBar {
		return false
	}
	if m.HasViewStyle != other.HasViewStyle || m.ViewStyle != other.ViewStyle {
		return false
	}
	if m.HasIconSize != other.HasIconSize || m.IconSize != other.IconSize ||
		m.HasIconArrangement != other.HasIconArrangement || m.IconArrangement != other.IconArrangement ||
		m.HasLabelPosition != other.HasLabelPosition || m.LabelPosition != other.LabelPosition ||
		m.HasGridSpacing != other.HasGridSpacing || m.GridSpacing != other.GridSpacing ||
		m.HasTextSize != other.HasTextSize || m.TextSize != other.TextSize ||
		m.HasShowItemInfo != other.HasShowItemInfo || m.ShowItemInfo != other.ShowItemInfo ||
		m.HasShowIconPreview != other.HasShowIconPreview || m.ShowIconPreview != other.ShowIconPreview ||
		m.HasSortBy != other.HasSortBy || m.SortBy != other.SortBy {
		return false
	}
	if m.BackgroundType != other.BackgroundType ||
		m.HasBackgroundColor != other.HasBackgroundColor || m.BackgroundColor != other.BackgroundColor ||
		m.BackgroundImagePath != other.BackgroundImagePath {
		return false
	}
	if m.HasListTextSize != other.HasListTextSize || m.ListTextSize != other.ListTextSize ||
		m.HasListIconSize != other.HasListIconSize || m.ListIconSize != other.ListIconSize ||
		m.HasSortColumn != other.HasSortColumn || m.SortColumn != other.SortColumn ||
		m.SortAscending != other.SortAscending ||
		m.HasShowRelativeDates != other.HasShowRelativeDates || m.ShowRelativeDates != other.ShowRelativeDates {
		return false
	}
	if len(m.ColumnWidths) != len(other.ColumnWidths) || len(m.ColumnVisible) != len(other.ColumnVisible) {
		return false
	}
	for k, v := range m.ColumnWidths {
		if other.ColumnWidths[k] != v {
			return false
		}
	}
	for k, v := range m.ColumnVisible {
		if other.ColumnVisible[k] != v {
			return false
		}
	}
	if len(m.icons) != len(other.icons) {
		return false
	}
	for name, a := range m.icons {
		b, ok := other.icons[name]
		if !ok || *a != *b {
			return false
		}
	}
	return true
}
