package icon

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// encodeICO lays out a Windows icon directory with PNG payloads: a 6-byte
// header, one 16-byte directory entry per raster, then the PNG blobs at the
// recorded offsets. All integers are little-endian.
func encodeICO(entries []pngEntry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("icon: ico container needs at least one raster")
	}
	if len(entries) > 0xFFFF {
		return nil, fmt.Errorf("icon: ico container holds at most 65535 rasters")
	}

	var buf bytes.Buffer
	// Reserved, type 1 (icon), image count.
	binary.Write(&buf, binary.LittleEndian, uint16(0))
	binary.Write(&buf, binary.LittleEndian, uint16(1))
	binary.Write(&buf, binary.LittleEndian, uint16(len(entries)))

	offset := 6 + 16*len(entries)
	for _, e := range entries {
		// Dimension bytes: 0 encodes 256; larger rasters are still legal
		// because readers take the size from the PNG itself.
		dimByte := byte(e.dim)
		if e.dim >= 256 {
			dimByte = 0
		}
		buf.WriteByte(dimByte)
		buf.WriteByte(dimByte)
		buf.WriteByte(0)                                       // palette size
		buf.WriteByte(0)                                       // reserved
		binary.Write(&buf, binary.LittleEndian, uint16(1))     // color planes
		binary.Write(&buf, binary.LittleEndian, uint16(32))    // bits per pixel
		binary.Write(&buf, binary.LittleEndian, uint32(len(e.png)))
		binary.Write(&buf, binary.LittleEndian, uint32(offset))
		offset += len(e.png)
	}
	for _, e := range entries {
		buf.Write(e.png)
	}
	return buf.Bytes(), nil
}
