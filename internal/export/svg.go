// Package export renders world snapshots to image formats.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/san-kum/plife/internal/physics"
)

// Palette is indexed by particle type, cycling when there are more types.
var Palette = []string{
	"#ff4040", "#40ff60", "#4080ff", "#ffd020",
	"#ff60e0", "#40ffe0", "#ff9020", "#f0f0f0",
}

// SnapshotToSVG draws every particle as a dot on a size×size square. The
// world's [-1, 1]² maps onto the full image with y pointing down.
func SnapshotToSVG(snap *physics.Snapshot, size int, radius float64) string {
	if size < 1 {
		size = 1
	}
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, size, size, size, size))

	if snap != nil {
		byType := make(map[int][]physics.Particle)
		for _, p := range snap.Particles {
			byType[p.Type] = append(byType[p.Type], p)
		}
		half := float64(size) / 2
		for typ := 0; typ < snap.Types; typ++ {
			ps := byType[typ]
			if len(ps) == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<g fill="%s">`+"\n", Palette[typ%len(Palette)]))
			for _, p := range ps {
				cx := (p.Pos.X + 1) * half
				cy := (p.Pos.Y + 1) * half
				sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n", cx, cy, radius))
			}
			sb.WriteString("</g>\n")
		}
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}

// WriteSVG writes SnapshotToSVG output to w.
func WriteSVG(w io.Writer, snap *physics.Snapshot, size int, radius float64) error {
	_, err := io.WriteString(w, SnapshotToSVG(snap, size, radius))
	return err
}

// SaveSVG writes the snapshot to path.
func SaveSVG(path string, snap *physics.Snapshot, size int, radius float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSVG(f, snap, size, radius); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
