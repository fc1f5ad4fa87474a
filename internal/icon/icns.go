package icon

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Apple icon family OSTypes for the PNG-payload entry classes, keyed by the
// raster's pixel dimension. Only these six sizes may enter an ICNS container.
var icnsTypes = map[uint]string{
	16:  "icp4",
	32:  "icp5",
	64:  "icp6",
	128: "ic07",
	256: "ic08",
	512: "ic09",
}

// pngEntry pairs an encoded PNG with its square pixel dimension.
type pngEntry struct {
	dim uint
	png []byte
}

// encodeICNS lays out an Apple icon family: the "icns" magic, a big-endian
// total length, then one typed chunk per raster. Chunk order follows the
// input order.
func encodeICNS(entries []pngEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("icon: icns container needs at least one raster")
	}

	total := 8
	for _, e := range entries {
		if _, ok := icnsTypes[e.dim]; !ok {
			return nil, fmt.Errorf("icon: no icns entry type for %dx%d", e.dim, e.dim)
		}
		total += 8 + len(e.png)
	}

	var buf bytes.Buffer
	buf.Grow(total)
	buf.WriteString("icns")
	binary.Write(&buf, binary.BigEndian, uint32(total))
	for _, e := range entries {
		buf.WriteString(icnsTypes[e.dim])
		binary.Write(&buf, binary.BigEndian, uint32(8+len(e.png)))
		buf.Write(e.png)
	}
	return buf.Bytes(), nil
}
