package metadata

import (
	"encoding/binary"
	"errors"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/gershwin-desktop/gershwin-workspace-sub002/pkg/dsstore"
	"github.com/gershwin-desktop/gershwin-workspace-sub002/pkg/geometry"
)

// Record codes this package interprets.
const (
	codeBwsp = "bwsp" // window settings plist (modern)
	codeFwi0 = "fwi0" // window geometry struct (legacy)
	codeIcvp = "icvp" // icon view plist (modern)
	codeIcvo = "icvo" // icon view struct (legacy, icvo/icv4 variants)
	codeLsvp = "lsvp" // list view plist (modern)
	codeLsvP = "lsvP" // list view plist (modern, newer)
	codeLsvo = "lsvo" // list view struct (legacy)
	codeVstl = "vstl" // view style
	codeBkgd = "BKGD" // background (legacy, authoritative when present)
	codePict = "pict" // background picture alias (legacy companion of BKGD)
	codeFwsw = "fwsw" // sidebar width (legacy)
	codeIloc = "Iloc" // per-file icon position
	codeCmmt = "cmmt" // per-file comments
	codeLclr = "lclr" // per-file label color
	codeLg1S = "lg1S" // per-file logical size
	codePh1S = "ph1S" // per-file physical size
	codeModD = "moDD" // per-file modification date
	codeIcgo = "icgo" // unparsed, diagnostic only
	codeIcsp = "icsp" // unparsed, diagnostic only
)

var viewStyleForTag = map[string]ViewStyle{
	"icnv": ViewStyleIcon,
	"Nlsv": ViewStyleList,
	"clmv": ViewStyleColumn,
	"glyv": ViewStyleGallery,
	"Flwv": ViewStyleCoverflow,
}

var tagForViewStyle = map[ViewStyle]string{
	ViewStyleIcon:      "icnv",
	ViewStyleList:      "Nlsv",
	ViewStyleColumn:    "clmv",
	ViewStyleGallery:   "glyv",
	ViewStyleCoverflow: "Flwv",
}

var sortByForArrange = map[string]SortBy{
	"name":         SortByName,
	"dateModified": SortByDateModified,
	"dateCreated":  SortByDateCreated,
	"size":         SortBySize,
	"kind":         SortByKind,
	"label":        SortByLabel,
	"dateAdded":    SortByDateAdded,
}

var arrangeForSortBy = map[SortBy]string{
	SortByName:         "name",
	SortByDateModified: "dateModified",
	SortByDateCreated:  "dateCreated",
	SortBySize:         "size",
	SortByKind:         "kind",
	SortByLabel:        "label",
	SortByDateAdded:    "dateAdded",
}

// StorePath returns the sidecar path for a directory.
func StorePath(dir string) string {
	return filepath.Join(dir, dsstore.StoreFileName)
}

// Load reads and decodes the directory's sidecar. A missing or corrupt
// container degrades to an empty model with Loaded false; Load never
// returns an error, so opening a directory cannot fail on bad metadata.
func Load(dir string) *DirectoryMetadata {
	st, err := dsstore.Open(StorePath(dir))
	if err != nil {
		if errors.Is(err, dsstore.ErrNotFound) {
			log.Debugf("metadata: %s: no store file", dir)
		} else {
			log.WithError(err).Warnf("metadata: %s: unreadable store, using defaults", dir)
		}
		return NewDirectoryMetadata(dir)
	}
	return DecodeStore(dir, st)
}

// Reload re-runs Load, producing a fresh instance that replaces the prior
// one wholesale. Invoked by the file watcher when the sidecar changes.
func Reload(dir string) *DirectoryMetadata {
	return Load(dir)
}

// DecodeStore interprets an already-open store for dir.
func DecodeStore(dir string, st *dsstore.Store) *DirectoryMetadata {
	m := NewDirectoryMetadata(dir)
	m.Loaded = true

	dot := make(map[string]dsstore.Record)
	for _, rec := range st.Records() {
		if rec.Filename == "." {
			dot[rec.Code] = rec
			continue
		}
		decodeFileRecord(m, rec)
	}
	decodeDirectoryRecords(m, dot)
	return m
}

// decodeDirectoryRecords applies the "." records in precedence order:
// each modern source first, its legacy fallback only for fields still
// absent afterwards.
func decodeDirectoryRecords(m *DirectoryMetadata, dot map[string]dsstore.Record) {
	if rec, ok := dot[codeBwsp]; ok && rec.Value.Kind == dsstore.KindBlob {
		decodeBwsp(m, rec.Value.Blob)
	}
	if rec, ok := dot[codeFwi0]; ok && !m.HasWindowFrame && rec.Value.Kind == dsstore.KindBlob {
		decodeFwi0(m, rec.Value.Blob)
	}
	if rec, ok := dot[codeIcvp]; ok && rec.Value.Kind == dsstore.KindBlob {
		decodeIcvp(m, rec.Value.Blob)
	}
	if rec, ok := dot[codeIcvo]; ok && rec.Value.Kind == dsstore.KindBlob {
		// Skip the legacy struct entirely once the plist already supplied
		// size, arrangement and label position.
		if !(m.HasIconSize && m.HasIconArrangement && m.HasLabelPosition) {
			decodeIcvoLegacy(m, rec.Value.Blob)
		}
	}
	if rec, ok := dot[codeLsvP]; ok && rec.Value.Kind == dsstore.KindBlob {
		decodeListPlist(m, rec.Value.Blob)
	} else if rec, ok := dot[codeLsvp]; ok && rec.Value.Kind == dsstore.KindBlob {
		decodeListPlist(m, rec.Value.Blob)
	} else if _, ok := dot[codeLsvo]; ok {
		log.Debugf("metadata: %s: legacy lsvo present, no modern list settings", m.Dir)
	}
	if rec, ok := dot[codeVstl]; ok && rec.Value.Kind == dsstore.KindType {
		if style, known := viewStyleForTag[rec.Value.Type]; known {
			m.ViewStyle = style
			m.HasViewStyle = true
		}
	}
	if rec, ok := dot[codeBkgd]; ok && rec.Value.Kind == dsstore.KindBlob {
		var pict []byte
		if p, ok := dot[codePict]; ok && p.Value.Kind == dsstore.KindBlob {
			pict = p.Value.Blob
		}
		decodeBkgd(m, rec.Value.Blob, pict)
	}
	if rec, ok := dot[codeFwsw]; ok && !m.HasSidebarWidth && rec.Value.Kind == dsstore.KindLong {
		m.SidebarWidth = int(rec.Value.Int)
		m.HasSidebarWidth = true
	}
	for _, code := range []string{codeIcgo, codeIcsp} {
		if _, ok := dot[code]; ok {
			log.Debugf("metadata: %s: unparsed code %s present", m.Dir, code)
		}
	}
}

func decodeBwsp(m *DirectoryMetadata, blob []byte) {
	dict, err := decodePlist(blob)
	if err != nil {
		log.WithError(err).Debugf("metadata: %s: bad bwsp plist", m.Dir)
		return
	}
	if bounds, ok := plistString(dict, "WindowBounds"); ok {
		if x, y, w, h, err := parseWindowBounds(bounds); err == nil {
			m.WindowFrame = geometry.Rect{X: x, Y: y, Width: w, Height: h}
			m.HasWindowFrame = true
		}
	}
	if w, ok := plistInt(dict, "SidebarWidth"); ok {
		m.SidebarWidth = w
		m.HasSidebarWidth = true
	}
	if v, ok := plistBool(dict, "ShowToolbar"); ok {
		m.ShowToolbar = v
		m.HasShowToolbar = true
	}
	if v, ok := plistBool(dict, "ShowSidebar"); ok {
		m.ShowSidebar = v
		m.HasShowSidebar = true
	}
	if v, ok := plistBool(dict, "ShowPathbar"); ok {
		m.ShowPathbar = v
		m.HasShowPathbar = true
	}
	if v, ok := plistBool(dict, "ShowStatusBar"); ok {
		m.ShowStatusBar = v
		m.HasShowStatusBar = true
	}
}

// decodeFwi0 parses the 16-byte legacy window struct: top, left, bottom,
// right edges as 16-bit big-endian, trailing bytes ignored.
func decodeFwi0(m *DirectoryMetadata, blob []byte) {
	if len(blob) < 8 {
		log.Debugf("metadata: %s: short fwi0 blob (%d bytes)", m.Dir, len(blob))
		return
	}
	top := int16(binary.BigEndian.Uint16(blob[0:2]))
	left := int16(binary.BigEndian.Uint16(blob[2:4]))
	bottom := int16(binary.BigEndian.Uint16(blob[4:6]))
	right := int16(binary.BigEndian.Uint16(blob[6:8]))
	m.WindowFrame = geometry.Rect{
		X:      float64(left),
		Y:      float64(top),
		Width:  float64(right - left),
		Height: float64(bottom - top),
	}
	m.HasWindowFrame = true
}

func decodeIcvp(m *DirectoryMetadata, blob []byte) {
	dict, err := decodePlist(blob)
	if err != nil {
		log.WithError(err).Debugf("metadata: %s: bad icvp plist", m.Dir)
		return
	}
	if size, ok := plistInt(dict, "iconSize"); ok {
		m.IconSize = clampIconSize(size)
		m.HasIconSize = true
	}
	if arrange, ok := plistString(dict, "arrangeBy"); ok {
		applyArrangeBy(m, arrange)
	}
	if spacing, ok := plistFloat(dict, "gridSpacing"); ok {
		m.GridSpacing = spacing
		m.HasGridSpacing = true
	}
	if onBottom, ok := plistBool(dict, "labelOnBottom"); ok {
		if onBottom {
			m.LabelPosition = LabelPositionBottom
		} else {
			m.LabelPosition = LabelPositionRight
		}
		m.HasLabelPosition = true
	}
	if size, ok := plistInt(dict, "textSize"); ok {
		m.TextSize = size
		m.HasTextSize = true
	}
	if v, ok := plistBool(dict, "showItemInfo"); ok {
		m.ShowItemInfo = v
		m.HasShowItemInfo = true
	}
	if v, ok := plistBool(dict, "showIconPreview"); ok {
		m.ShowIconPreview = v
		m.HasShowIconPreview = true
	}
	if bt, ok := plistInt(dict, "backgroundType"); ok {
		switch BackgroundType(bt) {
		case BackgroundColor:
			r, okR := plistFloat(dict, "backgroundColorRed")
			g, okG := plistFloat(dict, "backgroundColorGreen")
			b, okB := plistFloat(dict, "backgroundColorBlue")
			if okR && okG && okB {
				m.BackgroundType = BackgroundColor
				m.BackgroundColor = Color{R: r, G: g, B: b}
				m.HasBackgroundColor = true
			}
		case BackgroundPicture:
			alias, _ := plistData(dict, "backgroundImageAlias")
			applyBackgroundPicture(m, alias)
		}
	}
}

// applyArrangeBy maps the icvp arrangeBy key onto arrangement and sort
// order: "none" means free placement, "grid" snap without sorting, any
// sort key implies grid placement sorted by that key.
func applyArrangeBy(m *DirectoryMetadata, arrange string) {
	switch arrange {
	case "none":
		m.IconArrangement = IconArrangementNone
		m.HasIconArrangement = true
	case "grid":
		m.IconArrangement = IconArrangementGrid
		m.HasIconArrangement = true
	default:
		if by, ok := sortByForArrange[arrange]; ok {
			m.IconArrangement = IconArrangementGrid
			m.HasIconArrangement = true
			m.SortBy = by
			m.HasSortBy = true
		}
	}
}

// Legacy icvo blob variants, distinguished by their leading magic:
//
//	icv4: [magic 4][iconSize u16][arrangement 4cc][labelPosition 4cc]...
//	icvo: [magic 4][iconSize u16][arrangement 4cc]...
func decodeIcvoLegacy(m *DirectoryMetadata, blob []byte) {
	if len(blob) < 10 {
		log.Debugf("metadata: %s: short icvo blob (%d bytes)", m.Dir, len(blob))
		return
	}
	magic := string(blob[0:4])
	if magic != "icv4" && magic != "icvo" {
		log.Debugf("metadata: %s: unknown icvo variant %q", m.Dir, magic)
		return
	}
	if !m.HasIconSize {
		m.IconSize = clampIconSize(int(binary.BigEndian.Uint16(blob[4:6])))
		m.HasIconSize = true
	}
	if !m.HasIconArrangement {
		if string(blob[6:10]) == "none" {
			m.IconArrangement = IconArrangementNone
		} else {
			m.IconArrangement = IconArrangementGrid
		}
		m.HasIconArrangement = true
	}
	if magic == "icv4" && len(blob) >= 14 && !m.HasLabelPosition {
		if string(blob[10:14]) == "rght" {
			m.LabelPosition = LabelPositionRight
		} else {
			m.LabelPosition = LabelPositionBottom
		}
		m.HasLabelPosition = true
	}
}

func decodeListPlist(m *DirectoryMetadata, blob []byte) {
	dict, err := decodePlist(blob)
	if err != nil {
		log.WithError(err).Debugf("metadata: %s: bad list view plist", m.Dir)
		return
	}
	if size, ok := plistInt(dict, "textSize"); ok {
		m.ListTextSize = size
		m.HasListTextSize = true
	}
	if size, ok := plistInt(dict, "iconSize"); ok {
		m.ListIconSize = size
		m.HasListIconSize = true
	}
	if col, ok := plistString(dict, "sortColumn"); ok {
		m.SortColumn = col
		m.HasSortColumn = true
	}
	if asc, ok := plistBool(dict, "ascending"); ok {
		m.SortAscending = asc
	}
	if v, ok := plistBool(dict, "showRelativeDates"); ok {
		m.ShowRelativeDates = v
		m.HasShowRelativeDates = true
	}
	// Column settings appear either as a dict keyed by column name (lsvp)
	// or as an array of dicts carrying an "identifier" key (lsvP).
	switch cols := dict["columns"].(type) {
	case map[string]interface{}:
		for name, v := range cols {
			col, ok := plistDict(v)
			if !ok {
				continue
			}
			applyColumn(m, name, col)
		}
	case []interface{}:
		for _, v := range cols {
			col, ok := plistDict(v)
			if !ok {
				continue
			}
			name, ok := plistString(col, "identifier")
			if !ok {
				continue
			}
			applyColumn(m, name, col)
		}
	}
}

func applyColumn(m *DirectoryMetadata, name string, col map[string]interface{}) {
	if w, ok := plistInt(col, "width"); ok {
		m.ColumnWidths[name] = w
	}
	if v, ok := plistBool(col, "visible"); ok {
		m.ColumnVisible[name] = v
	}
	if asc, ok := plistBool(col, "ascending"); ok && m.HasSortColumn && m.SortColumn == name {
		m.SortAscending = asc
	}
}

// decodeBkgd applies the legacy background blob, which is authoritative
// over whatever icvp supplied. ClrB carries 16-bit channels scaled to
// [0,1]; PctB pairs with a pict alias blob.
func decodeBkgd(m *DirectoryMetadata, blob, pict []byte) {
	if len(blob) < 4 {
		log.Debugf("metadata: %s: short BKGD blob (%d bytes)", m.Dir, len(blob))
		return
	}
	switch string(blob[0:4]) {
	case "DefB":
		m.BackgroundType = BackgroundDefault
		m.HasBackgroundColor = false
		m.BackgroundImagePath = ""
	case "ClrB":
		if len(blob) < 10 {
			return
		}
		m.BackgroundType = BackgroundColor
		m.BackgroundColor = Color{
			R: float64(binary.BigEndian.Uint16(blob[4:6])) / 65535.0,
			G: float64(binary.BigEndian.Uint16(blob[6:8])) / 65535.0,
			B: float64(binary.BigEndian.Uint16(blob[8:10])) / 65535.0,
		}
		m.HasBackgroundColor = true
		m.BackgroundImagePath = ""
	case "PctB":
		applyBackgroundPicture(m, pict)
	}
}

// applyBackgroundPicture resolves an alias blob to an image path. An
// unresolvable alias falls back to color or default handling and never
// blocks the load.
func applyBackgroundPicture(m *DirectoryMetadata, alias []byte) {
	if path, ok := resolveBackgroundImage(alias, m.Dir); ok {
		m.BackgroundType = BackgroundPicture
		m.BackgroundImagePath = path
		return
	}
	log.Debugf("metadata: %s: background image alias unresolved", m.Dir)
	if m.HasBackgroundColor {
		m.BackgroundType = BackgroundColor
	} else {
		m.BackgroundType = BackgroundDefault
	}
	m.BackgroundImagePath = ""
}

func decodeFileRecord(m *DirectoryMetadata, rec dsstore.Record) {
	switch rec.Code {
	case codeIloc:
		if rec.Value.Kind != dsstore.KindBlob || len(rec.Value.Blob) < 8 {
			log.Debugf("metadata: %s: short Iloc for %q", m.Dir, rec.Filename)
			return
		}
		x := int32(binary.BigEndian.Uint32(rec.Value.Blob[0:4]))
		y := int32(binary.BigEndian.Uint32(rec.Value.Blob[4:8]))
		m.SetIconPosition(rec.Filename, geometry.Point{X: float64(x), Y: float64(y)})
	case codeCmmt:
		if rec.Value.Kind == dsstore.KindUstr {
			m.SetComments(rec.Filename, rec.Value.Str)
		}
	case codeLclr:
		if rec.Value.Kind == dsstore.KindShor || rec.Value.Kind == dsstore.KindLong {
			if c := rec.Value.Int; c >= 0 && c <= 7 {
				m.SetLabelColor(rec.Filename, LabelColor(c))
			}
		}
	case codeLg1S:
		if rec.Value.Kind == dsstore.KindComp {
			info := m.ensureIcon(rec.Filename)
			info.LogicalSize = rec.Value.Int64
			info.HasLogicalSize = true
		}
	case codePh1S:
		if rec.Value.Kind == dsstore.KindComp {
			info := m.ensureIcon(rec.Filename)
			info.PhysicalSize = rec.Value.Int64
			info.HasPhysicalSize = true
		}
	case codeModD:
		if rec.Value.Kind == dsstore.KindDutc {
			info := m.ensureIcon(rec.Filename)
			info.ModDate = rec.Value.Int64
			info.HasModDate = true
		}
	}
}

// clampIconSize bounds icon sizes to the supported 1-512 range.
func clampIconSize(size int) int {
	if size < 1 {
		return 1
	}
	if size > 512 {
		return 512
	}
	return size
}
