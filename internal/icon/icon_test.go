package icon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"takarum/internal/progress"
)

const squareSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="128" height="128" viewBox="0 0 128 128">
  <path d="M0 0h128v128H0z" fill="#3478f6"/>
  <path d="M32 32h64v64H32z" fill="#ffffff"/>
</svg>`

const wideSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="128" height="64" viewBox="0 0 128 64">
  <path d="M0 0h128v64H0z" fill="#3478f6"/>
</svg>`

func writeSVG(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.svg")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRendererRejectsNonSquare(t *testing.T) {
	_, err := NewRendererFromFile(writeSVG(t, wideSVG))
	if !errors.Is(err, ErrNotSquare) {
		t.Fatalf("err = %v, want ErrNotSquare", err)
	}
}

func TestRendererRejectsMalformedSVG(t *testing.T) {
	_, err := NewRendererFromFile(writeSVG(t, "<svg><path"))
	if err == nil {
		t.Fatal("parsing malformed svg should fail")
	}
}

func TestRenderAtProducesRequestedDimensions(t *testing.T) {
	renderer, err := NewRendererFromFile(writeSVG(t, squareSVG))
	if err != nil {
		t.Fatal(err)
	}
	if renderer.Size() != 128 {
		t.Errorf("Size() = %g, want 128", renderer.Size())
	}
	img := renderer.RenderAt(32)
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Errorf("raster is %dx%d, want 32x32", b.Dx(), b.Dy())
	}
	// Opaque buffer: the corner pixel must not be transparent.
	if _, _, _, a := img.At(0, 0).RGBA(); a != 0xFFFF {
		t.Errorf("corner alpha = %#x, want opaque", a)
	}
}

func TestProduceICNSLayout(t *testing.T) {
	out := filepath.Join(t.TempDir(), "app.icns")
	p := &Producer{}
	if err := p.Produce(writeSVG(t, squareSVG), out, ICNS); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[:4]) != "icns" {
		t.Fatalf("magic = %q, want icns", data[:4])
	}
	if total := binary.BigEndian.Uint32(data[4:8]); total != uint32(len(data)) {
		t.Fatalf("declared length %d, file length %d", total, len(data))
	}

	wantTypes := []string{"icp4", "icp5", "icp6", "ic07", "ic08", "ic09"}
	off := 8
	for i, dim := range DefaultDims {
		osType := string(data[off : off+4])
		size := int(binary.BigEndian.Uint32(data[off+4 : off+8]))
		if osType != wantTypes[i] {
			t.Errorf("entry %d type = %q, want %q", i, osType, wantTypes[i])
		}
		img, err := png.Decode(bytes.NewReader(data[off+8 : off+size]))
		if err != nil {
			t.Fatalf("entry %d: %v", i, err)
		}
		if b := img.Bounds(); uint(b.Dx()) != dim || uint(b.Dy()) != dim {
			t.Errorf("entry %d is %dx%d, want %dx%d", i, b.Dx(), b.Dy(), dim, dim)
		}
		off += size
	}
	if off != len(data) {
		t.Errorf("container has %d trailing bytes", len(data)-off)
	}
}

func TestProduceICOLayout(t *testing.T) {
	out := filepath.Join(t.TempDir(), "app.ico")
	p := &Producer{Dims: []uint{16, 256}}
	if err := p.Produce(writeSVG(t, squareSVG), out, ICO); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if binary.LittleEndian.Uint16(data[2:4]) != 1 {
		t.Fatal("image type should be 1 (icon)")
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))
	if count != 2 {
		t.Fatalf("image count = %d, want 2", count)
	}

	wantDims := []uint{16, 256}
	for i, dim := range wantDims {
		entry := data[6+16*i : 6+16*(i+1)]
		wantByte := byte(dim)
		if dim >= 256 {
			wantByte = 0
		}
		if entry[0] != wantByte || entry[1] != wantByte {
			t.Errorf("entry %d dim bytes = %d,%d, want %d", i, entry[0], entry[1], wantByte)
		}
		size := binary.LittleEndian.Uint32(entry[8:12])
		offset := binary.LittleEndian.Uint32(entry[12:16])
		img, err := png.Decode(bytes.NewReader(data[offset : offset+size]))
		if err != nil {
			t.Fatalf("entry %d: %v", i, err)
		}
		if b := img.Bounds(); uint(b.Dx()) != dim {
			t.Errorf("entry %d is %dpx, want %d", i, b.Dx(), dim)
		}
	}
}

func TestProducePNGsWritesSideFiles(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "app.icns")
	p := &Producer{Dims: []uint{16, 32}}
	if err := p.ProducePNGs(writeSVG(t, squareSVG), out, ICNS); err != nil {
		t.Fatal(err)
	}
	for _, dim := range []int{16, 32} {
		path := filepath.Join(dir, fmt.Sprintf("%dx%d.png", dim, dim))
		f, err := os.Open(path)
		if err != nil {
			t.Fatal(err)
		}
		img, err := png.Decode(f)
		f.Close()
		if err != nil {
			t.Fatal(err)
		}
		if img.Bounds().Dx() != dim {
			t.Errorf("%s is %dpx wide, want %d", path, img.Bounds().Dx(), dim)
		}
	}
}

func TestProducerMessageOrder(t *testing.T) {
	var kinds []string
	parent := progress.ProxyFunc(func(m progress.Message) error {
		kinds = append(kinds, m.Kind())
		return nil
	})
	out := filepath.Join(t.TempDir(), "app.icns")
	p := &Producer{Dims: []uint{16, 32}, Proxy: progress.NewIconProxy(parent)}
	if err := p.Produce(writeSVG(t, squareSVG), out, ICNS); err != nil {
		t.Fatal(err)
	}

	want := []string{
		"icon:began-producing-icons",
		"icon:encoding-png",
		"icon:encoding-png",
		"icon:wrote-icons-file",
		"icon:finished-producing-icons",
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %d messages %v, want %d", len(kinds), kinds, len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("message %d = %q, want %q", i, kinds[i], want[i])
		}
	}
}

func TestEncodeICNSRejectsUnknownDimension(t *testing.T) {
	if _, err := encodeICNS([]pngEntry{{dim: 48, png: []byte{1}}}); err == nil {
		t.Fatal("48px has no icns entry type and must be rejected")
	}
}
