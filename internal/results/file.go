package results

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/klauspost/compress/zlib"
)

// magic identifies the self-describing tensor container format.
var magic = [8]byte{'S', 'G', 'D', 'T', 'E', 'N', 'S', '1'}

// DefaultCompressionLevel trades write speed for the smallest files; level
// 1 is fastest, 9 most compressed.
const DefaultCompressionLevel = 9

// Meta records provenance for a persisted tensor file.
type Meta struct {
	RunID     string    `json:"run_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// header is the JSON preamble describing the binary blocks that follow.
type header struct {
	Vars []varBlock  `json:"vars"`
	Dims []Dimension `json:"dims"`
	Meta Meta        `json:"meta"`

	Compression string `json:"compression"` // always "zlib"
	Level       int    `json:"level"`
}

type varBlock struct {
	Name            string `json:"name"`
	CompressedBytes int    `json:"compressed_bytes"`
}

// Write serializes the tensor: magic, a length-prefixed JSON header, then
// one zlib-compressed block of little-endian float64s per variable, dense
// over the dimension cross product. Unset cells are written as NaN, so the
// sparse form round-trips losslessly. An all-empty tensor writes a
// well-formed file with zero-length blocks.
func (t *Tensor) Write(w io.Writer, level int, meta Meta) error {
	if level < 1 || level > 9 {
		return fmt.Errorf("results: compression level %d outside [1, 9]", level)
	}

	blocks := make([][]byte, len(t.vars))
	hdr := header{
		Dims:        t.Dims(),
		Meta:        meta,
		Compression: "zlib",
		Level:       level,
	}
	for i, varName := range t.vars {
		block, err := compressDense(t.Dense(varName), level)
		if err != nil {
			return fmt.Errorf("compress variable %q: %w", varName, err)
		}
		blocks[i] = block
		hdr.Vars = append(hdr.Vars, varBlock{Name: varName, CompressedBytes: len(block)})
	}

	headerJSON, err := json.Marshal(hdr)
	if err != nil {
		return fmt.Errorf("encode tensor header: %w", err)
	}

	if _, err := w.Write(magic[:]); err != nil {
		return fmt.Errorf("write tensor magic: %w", err)
	}
	if err := binary.Write(w, binary.BigEndian, uint32(len(headerJSON))); err != nil {
		return fmt.Errorf("write tensor header length: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("write tensor header: %w", err)
	}
	for i, block := range blocks {
		if _, err := w.Write(block); err != nil {
			return fmt.Errorf("write variable %q: %w", t.vars[i], err)
		}
	}
	return nil
}

func compressDense(dense []float64, level int) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, err
	}
	if err := binary.Write(zw, binary.LittleEndian, dense); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Read parses a tensor written by Write, repopulating the sparse form and
// skipping NaN cells.
func Read(r io.Reader) (*Tensor, Meta, error) {
	var gotMagic [8]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, Meta{}, fmt.Errorf("read tensor magic: %w", err)
	}
	if gotMagic != magic {
		return nil, Meta{}, fmt.Errorf("results: bad magic %q, not a tensor file", gotMagic)
	}

	var headerLen uint32
	if err := binary.Read(r, binary.BigEndian, &headerLen); err != nil {
		return nil, Meta{}, fmt.Errorf("read tensor header length: %w", err)
	}
	headerJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, Meta{}, fmt.Errorf("read tensor header: %w", err)
	}
	var hdr header
	if err := json.Unmarshal(headerJSON, &hdr); err != nil {
		return nil, Meta{}, fmt.Errorf("decode tensor header: %w", err)
	}

	vars := make([]string, len(hdr.Vars))
	for i, vb := range hdr.Vars {
		vars[i] = vb.Name
	}
	t := New(vars, hdr.Dims...)

	size := 1
	for _, d := range hdr.Dims {
		size *= len(d.Coords)
	}

	for _, vb := range hdr.Vars {
		// Consume the variable's exact block before moving to the next one;
		// the zlib trailer would otherwise be left behind in the stream.
		block := make([]byte, vb.CompressedBytes)
		if _, err := io.ReadFull(r, block); err != nil {
			return nil, Meta{}, fmt.Errorf("read variable %q: %w", vb.Name, err)
		}
		dense, err := decompressDense(block, size)
		if err != nil {
			return nil, Meta{}, fmt.Errorf("decompress variable %q: %w", vb.Name, err)
		}
		if err := t.populate(vb.Name, dense); err != nil {
			return nil, Meta{}, err
		}
	}
	return t, hdr.Meta, nil
}

func decompressDense(block []byte, size int) ([]float64, error) {
	zr, err := zlib.NewReader(bytes.NewReader(block))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	dense := make([]float64, size)
	if err := binary.Read(zr, binary.LittleEndian, dense); err != nil {
		return nil, err
	}
	return dense, nil
}

// populate fills a variable's sparse cells from a row-major dense array.
func (t *Tensor) populate(varName string, dense []float64) error {
	cells, ok := t.data[varName]
	if !ok {
		return fmt.Errorf("results: unknown variable %q", varName)
	}

	coords := make([]string, len(t.dims))
	var walk func(axis, offset int) error
	walk = func(axis, offset int) error {
		if axis == len(t.dims) {
			if v := dense[offset]; !math.IsNaN(v) {
				key, err := t.key(coords)
				if err != nil {
					return err
				}
				cells[key] = v
			}
			return nil
		}
		for _, c := range t.dims[axis].Coords {
			coords[axis] = c
			if err := walk(axis+1, offset*len(t.dims[axis].Coords)+t.pos[axis][c]); err != nil {
				return err
			}
		}
		return nil
	}
	if len(dense) == 0 {
		return nil
	}
	return walk(0, 0)
}

// WriteFile persists the tensor to path, replacing any existing file only
// on success so a failed write never leaves corrupt output behind.
func WriteFile(path string, t *Tensor, level int, meta Meta) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create tensor file: %w", err)
	}
	if err := t.Write(f, level, meta); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close tensor file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename tensor file: %w", err)
	}
	return nil
}

// ReadFile loads a tensor persisted by WriteFile.
func ReadFile(path string) (*Tensor, Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("open tensor file: %w", err)
	}
	defer f.Close()
	return Read(f)
}
