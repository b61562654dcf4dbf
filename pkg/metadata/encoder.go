package metadata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/gershwin-desktop/gershwin-workspace-sub002/pkg/dsstore"
)

// Directory-level codes the encoder owns: it removes and regenerates
// these, and only these. Legacy forms (fwi0, icvo, lsvo, BKGD, pict,
// fwsw) are never written and survive a read-modify-write untouched.
var ownedDirectoryCodes = []string{codeBwsp, codeIcvp, codeLsvp, codeLsvP, codeVstl}

// Per-file codes the encoder owns. Size and date records (lg1S, ph1S,
// moDD) are read-only carriage and stay as the origin peer wrote them.
var ownedFileCodes = []string{codeIloc, codeCmmt, codeLclr}

// Save encodes the model into records and writes them over the sidecar at
// path. Existing records for codes the encoder does not own are preserved
// (read-modify-write); a corrupt existing file is replaced outright.
func Save(m *DirectoryMetadata, path string) error {
	st, err := dsstore.Open(path)
	if err != nil {
		if !errors.Is(err, dsstore.ErrNotFound) {
			log.WithError(err).Warnf("metadata: %s: unreadable store, rewriting from scratch", path)
		}
		st = dsstore.New(path)
	}
	return SaveToStore(m, st)
}

// SaveReplacing writes the model as a complete replacement, dropping any
// records the encoder does not regenerate.
func SaveReplacing(m *DirectoryMetadata, path string) error {
	return SaveToStore(m, dsstore.New(path))
}

// SaveToStore applies the model to an open store and saves it atomically.
func SaveToStore(m *DirectoryMetadata, st *dsstore.Store) error {
	if err := EncodeInto(m, st); err != nil {
		return err
	}
	return st.Save()
}

// EncodeInto replaces the store's owned records with the minimal modern
// set representing the model.
func EncodeInto(m *DirectoryMetadata, st *dsstore.Store) error {
	for _, code := range ownedDirectoryCodes {
		st.RemoveEntry(".", code)
	}
	if blob, err := buildBwsp(m); err != nil {
		return err
	} else if blob != nil {
		st.SetEntry(dsstore.Record{Filename: ".", Code: codeBwsp, Value: dsstore.BlobValue(blob)})
	}
	if blob, err := buildIcvp(m); err != nil {
		return err
	} else if blob != nil {
		st.SetEntry(dsstore.Record{Filename: ".", Code: codeIcvp, Value: dsstore.BlobValue(blob)})
	}
	if blob, err := buildListPlist(m); err != nil {
		return err
	} else if blob != nil {
		st.SetEntry(dsstore.Record{Filename: ".", Code: codeLsvP, Value: dsstore.BlobValue(blob)})
	}
	if m.HasViewStyle {
		tag, ok := tagForViewStyle[m.ViewStyle]
		if !ok {
			return fmt.Errorf("unknown view style %d", m.ViewStyle)
		}
		st.SetEntry(dsstore.Record{Filename: ".", Code: codeVstl, Value: dsstore.TypeValue(tag)})
	}
	for _, info := range m.AllIconInfo() {
		encodeIconInfo(st, info)
	}
	return nil
}

// encodeIconInfo replaces the owned per-file codes for one entry: stale
// records are stripped first so a cleared field stays cleared across a
// save.
func encodeIconInfo(st *dsstore.Store, info *IconInfo) {
	for _, code := range ownedFileCodes {
		st.RemoveEntry(info.Filename, code)
	}
	if info.HasPosition {
		blob := make([]byte, 16)
		binary.BigEndian.PutUint32(blob[0:4], uint32(int32(info.Position.X)))
		binary.BigEndian.PutUint32(blob[4:8], uint32(int32(info.Position.Y)))
		// Fixed padding after the coordinates.
		for i := 8; i < 14; i++ {
			blob[i] = 0xff
		}
		st.SetEntry(dsstore.Record{Filename: info.Filename, Code: codeIloc, Value: dsstore.BlobValue(blob)})
	}
	if info.HasComments {
		st.SetEntry(dsstore.Record{Filename: info.Filename, Code: codeCmmt, Value: dsstore.UstrValue(info.Comments)})
	}
	if info.HasLabelColor {
		st.SetEntry(dsstore.Record{Filename: info.Filename, Code: codeLclr, Value: dsstore.ShorValue(int32(info.LabelColor))})
	}
}

func buildBwsp(m *DirectoryMetadata) ([]byte, error) {
	dict := make(map[string]interface{})
	if m.HasWindowFrame {
		dict["WindowBounds"] = formatWindowBounds(m.WindowFrame.X, m.WindowFrame.Y, m.WindowFrame.Width, m.WindowFrame.Height)
	}
	if m.HasSidebarWidth {
		dict["SidebarWidth"] = m.SidebarWidth
	}
	if m.HasShowToolbar {
		dict["ShowToolbar"] = m.ShowToolbar
	}
	if m.HasShowSidebar {
		dict["ShowSidebar"] = m.ShowSidebar
	}
	if m.HasShowPathbar {
		dict["ShowPathbar"] = m.ShowPathbar
	}
	if m.HasShowStatusBar {
		dict["ShowStatusBar"] = m.ShowStatusBar
	}
	if len(dict) == 0 {
		return nil, nil
	}
	return encodePlist(dict)
}

func buildIcvp(m *DirectoryMetadata) ([]byte, error) {
	dict := make(map[string]interface{})
	if m.HasIconSize {
		dict["iconSize"] = float64(m.IconSize)
	}
	if arrange := arrangeByValue(m); arrange != "" {
		dict["arrangeBy"] = arrange
	}
	if m.HasGridSpacing {
		dict["gridSpacing"] = m.GridSpacing
	}
	if m.HasLabelPosition {
		dict["labelOnBottom"] = m.LabelPosition == LabelPositionBottom
	}
	if m.HasTextSize {
		dict["textSize"] = float64(m.TextSize)
	}
	if m.HasShowItemInfo {
		dict["showItemInfo"] = m.ShowItemInfo
	}
	if m.HasShowIconPreview {
		dict["showIconPreview"] = m.ShowIconPreview
	}
	switch m.BackgroundType {
	case BackgroundColor:
		if m.HasBackgroundColor {
			dict["backgroundType"] = int(BackgroundColor)
			dict["backgroundColorRed"] = m.BackgroundColor.R
			dict["backgroundColorGreen"] = m.BackgroundColor.G
			dict["backgroundColorBlue"] = m.BackgroundColor.B
		}
	case BackgroundPicture:
		if m.BackgroundImagePath != "" {
			dict["backgroundType"] = int(BackgroundPicture)
			// The full alias record format is not regenerated; the raw
			// path round-trips through the resolution heuristic.
			dict["backgroundImageAlias"] = []byte(m.BackgroundImagePath)
		}
	}
	if len(dict) == 0 {
		return nil, nil
	}
	return encodePlist(dict)
}

func arrangeByValue(m *DirectoryMetadata) string {
	if m.HasSortBy && m.SortBy != SortByNone {
		return arrangeForSortBy[m.SortBy]
	}
	if !m.HasIconArrangement {
		return ""
	}
	if m.IconArrangement == IconArrangementGrid {
		return "grid"
	}
	return "none"
}

func buildListPlist(m *DirectoryMetadata) ([]byte, error) {
	dict := make(map[string]interface{})
	if m.HasListTextSize {
		dict["textSize"] = float64(m.ListTextSize)
	}
	if m.HasListIconSize {
		dict["iconSize"] = float64(m.ListIconSize)
	}
	if m.HasSortColumn {
		dict["sortColumn"] = m.SortColumn
		dict["ascending"] = m.SortAscending
	}
	if m.HasShowRelativeDates {
		dict["showRelativeDates"] = m.ShowRelativeDates
	}
	if len(m.ColumnWidths) > 0 || len(m.ColumnVisible) > 0 {
		names := make(map[string]bool)
		for name := range m.ColumnWidths {
			names[name] = true
		}
		for name := range m.ColumnVisible {
			names[name] = true
		}
		sorted := make([]string, 0, len(names))
		for name := range names {
			sorted = append(sorted, name)
		}
		sort.Strings(sorted)
		columns := make([]interface{}, 0, len(sorted))
		for _, name := range sorted {
			col := map[string]interface{}{"identifier": name}
			if w, ok := m.ColumnWidths[name]; ok {
				col["width"] = w
			}
			if v, ok := m.ColumnVisible[name]; ok {
				col["visible"] = v
			}
			if m.HasSortColumn && m.SortColumn == name {
				col["ascending"] = m.SortAscending
			}
			columns = append(columns, col)
		}
		dict["columns"] = columns
	}
	if len(dict) == 0 {
		return nil, nil
	}
	return encodePlist(dict)
}
