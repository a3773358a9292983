package export

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ivlev/toyscene/internal/tensor"
)

// NPY v1.0 layout: magic, version, little-endian uint16 header length, an
// ASCII dict padded with spaces to a 64-byte boundary and ending in '\n',
// then the raw C-order data.
var npyMagic = []byte("\x93NUMPY")

const npyAlign = 64

// WriteNPY encodes a as a float64 array of shape (W, H, C).
func WriteNPY(w io.Writer, a *tensor.Array) error {
	header := fmt.Sprintf("{'descr': '<f8', 'fortran_order': False, 'shape': (%d, %d, %d), }", a.W, a.H, a.C)
	preamble := len(npyMagic) + 2 + 2
	pad := npyAlign - (preamble+len(header)+1)%npyAlign
	if pad == npyAlign {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	bw := bufio.NewWriter(w)
	bw.Write(npyMagic)
	bw.Write([]byte{1, 0})
	binary.Write(bw, binary.LittleEndian, uint16(len(header)))
	bw.WriteString(header)

	buf := make([]byte, 8)
	for _, v := range a.Data {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

var npyShape = regexp.MustCompile(`'shape':\s*\(([^)]*)\)`)

// ReadNPY decodes a little-endian float64, C-order array of rank 3. Rank 2
// arrays are read with a single band.
func ReadNPY(r io.Reader) (*tensor.Array, error) {
	br := bufio.NewReader(r)

	magic := make([]byte, len(npyMagic)+2)
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("export: read npy magic: %w", err)
	}
	if !bytes.Equal(magic[:len(npyMagic)], npyMagic) {
		return nil, fmt.Errorf("export: not an npy file")
	}

	var headerLen int
	switch magic[len(npyMagic)] {
	case 1:
		var n uint16
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		headerLen = int(n)
	case 2, 3:
		var n uint32
		if err := binary.Read(br, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		headerLen = int(n)
	default:
		return nil, fmt.Errorf("export: unsupported npy version %d", magic[len(npyMagic)])
	}

	header := make([]byte, headerLen)
	if _, err := io.ReadFull(br, header); err != nil {
		return nil, fmt.Errorf("export: read npy header: %w", err)
	}
	h := string(header)
	if !strings.Contains(h, "'<f8'") {
		return nil, fmt.Errorf("export: unsupported npy dtype in %q", strings.TrimSpace(h))
	}
	if strings.Contains(h, "'fortran_order': True") {
		return nil, fmt.Errorf("export: fortran-ordered npy arrays are not supported")
	}

	m := npyShape.FindStringSubmatch(h)
	if m == nil {
		return nil, fmt.Errorf("export: npy header has no shape")
	}
	var dims []int
	for _, f := range strings.Split(m[1], ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		d, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("export: bad npy shape %q: %w", m[1], err)
		}
		dims = append(dims, d)
	}
	switch len(dims) {
	case 2:
		dims = append(dims, 1)
	case 3:
	default:
		return nil, fmt.Errorf("export: expected rank 2 or 3 npy array, got rank %d", len(dims))
	}

	a := tensor.New(dims[0], dims[1], dims[2])
	buf := make([]byte, 8)
	for i := range a.Data {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("export: npy data truncated at element %d: %w", i, err)
		}
		a.Data[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf))
	}
	return a, nil
}

// SaveNPY writes a to path.
func SaveNPY(path string, a *tensor.Array) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteNPY(f, a); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadNPY reads the array stored at path.
func LoadNPY(path string) (*tensor.Array, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadNPY(f)
}
