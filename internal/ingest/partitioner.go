// Package ingest performs the one-time PLY to block-file conversion.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"pcview/internal/points"
)

const (
	// batchPoints vertices are read from the PLY per syscall batch.
	batchPoints = 1 << 16
	// flushPoints is the per-block buffer size before a disk flush.
	flushPoints = 4096
	// writerCacheSize bounds the open block-file descriptors.
	writerCacheSize = 128
)

var (
	ErrHeaderInvalid     = errors.New("invalid PLY header")
	ErrFormatUnsupported = errors.New("unsupported PLY layout")
)

// Result is the outcome of a partition run.
type Result struct {
	BBMin       mgl32.Vec3
	BBMax       mgl32.Vec3
	VertexCount uint64
	Blocks      []points.Block
}

type header struct {
	vertexCount uint64
	dataStart   int64
}

// Partition streams plyPath twice: pass one computes the global bounding
// box, pass two bins every vertex into its grid cell and appends it to the
// cell's block file under outDir. Empty cells end up as zero-length files.
func Partition(plyPath, outDir string) (*Result, error) {
	f, err := os.Open(plyPath)
	if err != nil {
		return nil, fmt.Errorf("open ply: %w", err)
	}
	defer f.Close()

	hdr, err := parseHeader(f)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create out dir: %w", err)
	}

	// Pass A: global bbox.
	bbMin := mgl32.Vec3{floatMax, floatMax, floatMax}
	bbMax := mgl32.Vec3{-floatMax, -floatMax, -floatMax}
	err = eachBatch(f, hdr, func(rows []byte) {
		for off := 0; off < len(rows); off += points.FilePointSize {
			fp := points.DecodeFilePoint(rows[off:])
			p := mgl32.Vec3{float32(fp.X), float32(fp.Y), float32(fp.Z)}
			bbMin = mgl32.Vec3{min32(bbMin[0], p[0]), min32(bbMin[1], p[1]), min32(bbMin[2], p[2])}
			bbMax = mgl32.Vec3{max32(bbMax[0], p[0]), max32(bbMax[1], p[1]), max32(bbMax[2], p[2])}
		}
	})
	if err != nil {
		return nil, err
	}

	blocks := points.BuildBlocks(bbMin, bbMax, nil, outDir)
	cell := points.CellSize(bbMin, bbMax)

	cache, err := NewFileStreamCache(writerCacheSize)
	if err != nil {
		return nil, err
	}

	// Touch every block file once so empty cells exist as zero-length files.
	for id := 0; id < points.NumBlocks; id++ {
		if _, err := cache.Get(id, blocks[id].Path); err != nil {
			return nil, err
		}
	}

	// Pass B: bin and append.
	outBuf := make([][]points.Point, points.NumBlocks)
	for i := range outBuf {
		outBuf[i] = make([]points.Point, 0, flushPoints)
	}
	scratch := make([]byte, 0, flushPoints*points.PointSize)

	flush := func(id int) error {
		if len(outBuf[id]) == 0 {
			return nil
		}
		w, err := cache.Get(id, blocks[id].Path)
		if err != nil {
			return err
		}
		scratch = points.AppendPoints(scratch[:0], outBuf[id])
		if _, err := w.Write(scratch); err != nil {
			return fmt.Errorf("write block %d: %w", id, err)
		}
		outBuf[id] = outBuf[id][:0]
		return nil
	}

	var writeErr error
	err = eachBatch(f, hdr, func(rows []byte) {
		if writeErr != nil {
			return
		}
		for off := 0; off < len(rows); off += points.FilePointSize {
			p := points.DecodeFilePoint(rows[off:]).Point()
			id := points.IndexFor(p.Pos, bbMin, cell)
			outBuf[id] = append(outBuf[id], p)
			blocks[id].Count++
			if len(outBuf[id]) >= flushPoints {
				if writeErr = flush(id); writeErr != nil {
					return
				}
			}
		}
	})
	if err == nil {
		err = writeErr
	}
	if err != nil {
		return nil, err
	}

	for id := 0; id < points.NumBlocks; id++ {
		if err := flush(id); err != nil {
			return nil, err
		}
	}
	if err := cache.CloseAll(); err != nil {
		return nil, err
	}

	log.Printf("ingest: %d vertices into %d blocks under %s", hdr.vertexCount, points.NumBlocks, outDir)
	return &Result{BBMin: bbMin, BBMax: bbMax, VertexCount: hdr.vertexCount, Blocks: blocks}, nil
}

// CleanBlockFiles removes block files and the manifest from dir. Called
// before a fresh ingest so leftovers of an aborted run cannot survive.
func CleanBlockFiles(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "block_*.bin"))
	if err != nil {
		return err
	}
	matches = append(matches, filepath.Join(dir, points.ManifestName))
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", m, err)
		}
	}
	return nil
}

// parseHeader consumes the ASCII header and validates the vertex layout:
// x, y, z as float64 followed by r, g, b as uint8, 27 bytes per row.
func parseHeader(f *os.File) (header, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return header{}, fmt.Errorf("seek ply: %w", err)
	}
	r := bufio.NewReader(f)

	var (
		hdr        header
		offset     int64
		format     string
		inVertex   bool
		properties []string
		ended      bool
		first      = true
	)
	for {
		line, err := r.ReadString('\n')
		offset += int64(len(line))
		if err != nil && line == "" {
			break
		}
		fields := strings.Fields(line)
		if first {
			first = false
			if len(fields) != 1 || fields[0] != "ply" {
				return header{}, fmt.Errorf("missing ply magic: %w", ErrHeaderInvalid)
			}
			continue
		}
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) >= 2 {
				format = fields[1]
			}
		case "element":
			inVertex = false
			if len(fields) >= 3 && fields[1] == "vertex" {
				n, perr := strconv.ParseUint(fields[2], 10, 64)
				if perr != nil {
					return header{}, fmt.Errorf("bad vertex count %q: %w", fields[2], ErrHeaderInvalid)
				}
				hdr.vertexCount = n
				inVertex = true
			}
		case "property":
			if inVertex && len(fields) >= 3 {
				properties = append(properties, fields[1]+" "+fields[2])
			}
		case "comment":
		case "end_header":
			ended = true
		}
		if ended {
			break
		}
		if err != nil {
			break
		}
	}

	if !ended || hdr.vertexCount == 0 {
		return header{}, fmt.Errorf("header not terminated or no vertices: %w", ErrHeaderInvalid)
	}
	if format != "binary_little_endian" {
		return header{}, fmt.Errorf("format %q: %w", format, ErrFormatUnsupported)
	}
	if !vertexLayoutOK(properties) {
		return header{}, fmt.Errorf("vertex properties %v: %w", properties, ErrFormatUnsupported)
	}
	hdr.dataStart = offset
	return hdr, nil
}

func vertexLayoutOK(props []string) bool {
	want := [][]string{
		{"double x", "float64 x"},
		{"double y", "float64 y"},
		{"double z", "float64 z"},
		{"uchar red", "uchar r", "uint8 red", "uint8 r"},
		{"uchar green", "uchar g", "uint8 green", "uint8 g"},
		{"uchar blue", "uchar b", "uint8 blue", "uint8 b"},
	}
	if len(props) != len(want) {
		return false
	}
	for i, alternatives := range want {
		ok := false
		for _, alt := range alternatives {
			if props[i] == alt {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// eachBatch seeks to the vertex data and feeds it to fn in batches of at
// most batchPoints rows. A truncated vertex section is a short read.
func eachBatch(f *os.File, hdr header, fn func(rows []byte)) error {
	if _, err := f.Seek(hdr.dataStart, io.SeekStart); err != nil {
		return fmt.Errorf("seek vertex data: %w", err)
	}
	buf := make([]byte, batchPoints*points.FilePointSize)
	remaining := hdr.vertexCount
	for remaining > 0 {
		take := remaining
		if take > batchPoints {
			take = batchPoints
		}
		chunk := buf[:take*points.FilePointSize]
		if _, err := io.ReadFull(f, chunk); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return fmt.Errorf("vertex data truncated: %w", points.ErrShortRead)
			}
			return fmt.Errorf("read vertex data: %w", err)
		}
		fn(chunk)
		remaining -= take
	}
	return nil
}

const floatMax = 3.4028234663852886e+38

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
