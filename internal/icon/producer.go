package icon

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"takarum/internal/progress"
)

// ContainerKind selects the icon container format.
type ContainerKind int

const (
	ICNS ContainerKind = iota
	ICO
)

func (k ContainerKind) String() string {
	if k == ICO {
		return "ICO"
	}
	return "ICNS"
}

// Extension returns the container's file extension, dot included.
func (k ContainerKind) Extension() string {
	if k == ICO {
		return ".ico"
	}
	return ".icns"
}

// DefaultDims are the raster dimensions every container carries, smallest
// first. They coincide with the six PNG entry classes an ICNS family accepts.
var DefaultDims = []uint{16, 32, 64, 128, 256, 512}

// Producer renders a source SVG at a fixed set of dimensions and writes the
// rasters into one icon container. Progress flows through an optional proxy;
// a zero Producer works and reports nothing.
type Producer struct {
	// Dims overrides DefaultDims when non-empty.
	Dims []uint
	// Proxy receives the icon sub-task's progress messages. May be nil.
	Proxy *progress.IconProxy
}

// Produce renders svgPath at every dimension and writes the resulting
// container to outPath. The first error aborts the run; partially written
// output is not cleaned up.
func (p *Producer) Produce(svgPath, outPath string, kind ContainerKind) error {
	entries, err := p.renderAll(svgPath, nil)
	if err != nil {
		return err
	}
	return p.writeContainer(entries, outPath, kind)
}

// ProducePNGs is Produce plus a side file per raster: each PNG also lands
// next to outPath as <dim>x<dim>.png, written right after it is encoded.
func (p *Producer) ProducePNGs(svgPath, outPath string, kind ContainerKind) error {
	dir := filepath.Dir(outPath)
	entries, err := p.renderAll(svgPath, func(e pngEntry) error {
		path := filepath.Join(dir, fmt.Sprintf("%dx%d.png", e.dim, e.dim))
		if err := os.WriteFile(path, e.png, 0o644); err != nil {
			return fmt.Errorf("icon: write png %s: %w", path, err)
		}
		p.emit(progress.WrotePng{Dim: e.dim, Path: path})
		return nil
	})
	if err != nil {
		return err
	}
	return p.writeContainer(entries, outPath, kind)
}

// renderAll parses and rasterises the source at every dimension. perEntry,
// when non-nil, runs after each raster is encoded.
func (p *Producer) renderAll(svgPath string, perEntry func(pngEntry) error) ([]pngEntry, error) {
	renderer, err := NewRendererFromFile(svgPath)
	if err != nil {
		return nil, err
	}
	p.emit(progress.BeganProducingIcons{Source: svgPath})
	slog.Info("[ICON] rendering source", "svg", svgPath, "intrinsic_size", renderer.Size())

	dims := p.Dims
	if len(dims) == 0 {
		dims = DefaultDims
	}
	entries := make([]pngEntry, 0, len(dims))
	for _, dim := range dims {
		p.emit(progress.EncodingPng{Dim: dim, SourceSize: renderer.Size()})
		data, err := EncodePNG(renderer.RenderAt(dim))
		if err != nil {
			return nil, err
		}
		entry := pngEntry{dim: dim, png: data}
		if perEntry != nil {
			if err := perEntry(entry); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (p *Producer) writeContainer(entries []pngEntry, outPath string, kind ContainerKind) error {
	var data []byte
	var err error
	switch kind {
	case ICO:
		data, err = encodeICO(entries)
	default:
		data, err = encodeICNS(entries)
	}
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("icon: write container %s: %w", outPath, err)
	}
	p.emit(progress.WroteIconsFile{Path: outPath, ContainerKind: kind.String()})
	p.emit(progress.FinishedProducingIcons{Path: outPath})
	slog.Info("[ICON] container written", "path", outPath, "kind", kind.String(), "rasters", len(entries))
	return nil
}

func (p *Producer) emit(m progress.IconMessage) {
	if err := p.Proxy.Send(m); err != nil {
		slog.Warn("[ICON] progress message dropped", "kind", m.Kind(), "error", err)
	}
}
