package dsstore

import (
	"errors"
	"fmt"
	"os"

	"github.com/gershwin-desktop/gershwin-workspace-sub002/pkg/dsstore"
	"github.com/gershwin-desktop/gershwin-workspace-sub002/pkg/metadata"
)

// runDump prints the raw record listing of a container in traversal
// order. A directory argument is resolved to the sidecar inside it.
func runDump(path string) error {
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		path = metadata.StorePath(path)
	}
	st, err := dsstore.Open(path)
	if err != nil {
		if errors.Is(err, dsstore.ErrNotFound) {
			return fmt.Errorf("no store file at %s", path)
		}
		return err
	}
	fmt.Printf("%s: %d records\n", path, st.Len())
	for _, rec := range st.Records() {
		fmt.Printf("  %-32q %s %s %s\n", rec.Filename, rec.Code, rec.Value.Kind.Tag(), rec.Value)
	}
	return nil
}

// runInfo decodes a directory's sidecar and prints the settings that are
// present.
func runInfo(dir string) error {
	if st, err := os.Stat(dir); err != nil || !st.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}
	m := metadata.Load(dir)
	if !m.Loaded {
		fmt.Printf("%s: no metadata, defaults apply\n", dir)
		return nil
	}
	fmt.Printf("%s:\n", dir)
	if m.HasViewStyle {
		fmt.Printf("  view style: %s\n", viewStyleName(m.ViewStyle))
	}
	if m.HasWindowFrame {
		f := m.WindowFrame
		fmt.Printf("  window: %gx%g at (%g, %g)\n", f.Width, f.Height, f.X, f.Y)
	}
	if m.HasSidebarWidth {
		fmt.Printf("  sidebar width: %d\n", m.SidebarWidth)
	}
	if m.HasIconSize {
		fmt.Printf("  icon size: %d\n", m.IconSize)
	}
	if m.HasGridSpacing {
		fmt.Printf("  grid spacing: %g\n", m.GridSpacing)
	}
	switch m.BackgroundType {
	case metadata.BackgroundColor:
		c := m.BackgroundColor
		fmt.Printf("  background: color (%.3f, %.3f, %.3f)\n", c.R, c.G, c.B)
	case metadata.BackgroundPicture:
		fmt.Printf("  background: picture %s\n", m.BackgroundImagePath)
	}
	if m.HasSortColumn {
		dir := "descending"
		if m.SortAscending {
			dir = "ascending"
		}
		fmt.Printf("  list sort: %s (%s)\n", m.SortColumn, dir)
	}
	for _, name := range m.FilenamesWithPositions() {
		info, _ := m.IconInfo(name)
		fmt.Printf("  icon %q at (%g, %g)\n", name, info.Position.X, info.Position.Y)
	}
	return nil
}

func viewStyleName(s metadata.ViewStyle) string {
	switch s {
	case metadata.ViewStyleIcon:
		return "icon"
	case metadata.ViewStyleList:
		return "list"
	case metadata.ViewStyleColumn:
		return "column"
	case metadata.ViewStyleGallery:
		return "gallery"
	case metadata.ViewStyleCoverflow:
		return "coverflow"
	}
	return "unknown"
}
