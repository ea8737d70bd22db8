package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/kula-app/chiprocker/internal/size"
)

// SDRAMReader reads a region of device memory into w
type SDRAMReader interface {
	ReadSDRAM(ctx context.Context, offset, length int64, w io.Writer) error
}

// Progress receives one tick per chunk read
type Progress interface {
	Add(n int) error
	Finish() error
}

// Request describes a single dump
type Request struct {
	// Offset is the first byte read from SDRAM
	Offset int64

	// Size is the number of bytes to dump
	Size int64

	// ChunkSize is the number of bytes per rkflashtool read
	ChunkSize int64

	// Dir holds the part files and the final dump; created if missing
	Dir string

	// Name is the final dump file name inside Dir
	Name string

	// Progress is optional
	Progress Progress
}

// Result summarizes a finished dump
type Result struct {
	Path     string
	Bytes    int64
	Chunks   int
	Duration time.Duration

	// Checksum is the xxhash64 of the final dump
	Checksum uint64
}

// Dumper reads SDRAM in chunks and stitches the chunks into one file
type Dumper struct {
	reader SDRAMReader
	logger *slog.Logger
}

// NewDumper creates a new dumper
func NewDumper(reader SDRAMReader, logger *slog.Logger) *Dumper {
	return &Dumper{
		reader: reader,
		logger: logger,
	}
}

// PartName returns the temporary file name used for chunk i
func PartName(i int) string {
	return fmt.Sprintf("dump_part_%d.bin", i)
}

// Dump reads every chunk into its own part file, concatenates the parts in
// order into Dir/Name and removes the parts. On failure all part files and
// any partial final file are removed.
func (d *Dumper) Dump(ctx context.Context, req Request) (*Result, error) {
	startTime := time.Now()

	if req.Name == "" {
		return nil, fmt.Errorf("dump file name must not be empty")
	}
	chunks, err := Plan(req.Offset, req.Size, req.ChunkSize)
	if err != nil {
		return nil, err
	}

	dir := req.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create dump folder: %w", err)
	}

	progress := req.Progress
	if progress == nil {
		progress = noProgress{}
	}

	d.logger.Info("dump started",
		"offset", req.Offset,
		"size", size.Format(req.Size),
		"chunks", len(chunks),
		"folder", dir)

	parts := make([]string, 0, len(chunks))
	defer func() {
		d.removeParts(parts)
	}()

	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("dump canceled before chunk %d: %w", chunk.Index, err)
		}

		path := filepath.Join(dir, PartName(chunk.Index))
		parts = append(parts, path)
		if err := d.readChunk(ctx, chunk, path); err != nil {
			return nil, fmt.Errorf("failed to read chunk %d at offset %d: %w", chunk.Index, chunk.Offset, err)
		}

		if err := progress.Add(1); err != nil {
			d.logger.Debug("progress update failed", "error", err)
		}
	}

	finalPath := filepath.Join(dir, req.Name)
	written, sum, err := d.assemble(dir, finalPath, parts)
	parts = nil
	if err != nil {
		return nil, fmt.Errorf("failed to assemble dump: %w", err)
	}
	if err := progress.Finish(); err != nil {
		d.logger.Debug("progress finish failed", "error", err)
	}

	result := &Result{
		Path:     finalPath,
		Bytes:    written,
		Chunks:   len(chunks),
		Duration: time.Since(startTime),
		Checksum: sum,
	}

	d.logger.Info("dump completed",
		"path", result.Path,
		"bytes", result.Bytes,
		"chunks", result.Chunks,
		"xxhash", fmt.Sprintf("%016x", result.Checksum),
		"duration", result.Duration)
	if written != req.Size {
		d.logger.Warn("dump size differs from requested size",
			"requested_bytes", req.Size,
			"written_bytes", written)
	}

	return result, nil
}

func (d *Dumper) readChunk(ctx context.Context, chunk Chunk, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create part file: %w", err)
	}

	d.logger.Debug("reading chunk",
		"chunk", chunk.Index,
		"offset", chunk.Offset,
		"length", chunk.Length,
		"path", path)

	readErr := d.reader.ReadSDRAM(ctx, chunk.Offset, chunk.Length, f)
	closeErr := f.Close()
	if readErr != nil {
		return readErr
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close part file: %w", closeErr)
	}
	return nil
}

func (d *Dumper) removeParts(parts []string) {
	for _, part := range parts {
		if err := os.Remove(part); err != nil && !errors.Is(err, os.ErrNotExist) {
			d.logger.Warn("failed to remove part file", "path", part, "error", err)
		}
	}
}

// assemble concatenates the parts into a temporary file in dir, removes the
// parts and then renames the temporary file to finalPath. finalPath may be
// the name of one of the parts.
func (d *Dumper) assemble(dir, finalPath string, parts []string) (int64, uint64, error) {
	tmp, err := os.CreateTemp(dir, ".chiprocker_assemble_*")
	if err != nil {
		d.removeParts(parts)
		return 0, 0, err
	}
	tmpPath := tmp.Name()

	written, sum, err := concatenate(tmp, parts)
	d.removeParts(parts)
	if err == nil {
		err = os.Rename(tmpPath, finalPath)
	}
	if err != nil {
		if rmErr := os.Remove(tmpPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			d.logger.Warn("failed to remove partial dump", "path", tmpPath, "error", rmErr)
		}
		return 0, 0, err
	}
	return written, sum, nil
}

// concatenate writes the parts, in order, into out and closes it. It returns
// the byte count and the xxhash64 of everything written.
func concatenate(out *os.File, parts []string) (int64, uint64, error) {
	digest := xxhash.New()
	w := io.MultiWriter(out, digest)

	var total int64
	for _, part := range parts {
		n, err := appendFile(w, part)
		total += n
		if err != nil {
			out.Close()
			return total, 0, err
		}
	}
	return total, digest.Sum64(), out.Close()
}

func appendFile(w io.Writer, path string) (int64, error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	return io.Copy(w, in)
}

type noProgress struct{}

func (noProgress) Add(int) error { return nil }
func (noProgress) Finish() error { return nil }
