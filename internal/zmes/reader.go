package zmes

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/lumen-data/particle.report/internal/paramtree"
)

// Record is one measurement inside an archive: a GUID assigned by the
// acquisition software plus the measurement's full parameter tree.
type Record struct {
	GUID   string
	Params *paramtree.Node
}

// File is a fully decoded measurement archive.
type File struct {
	Version uint16
	Records []Record
}

// Parse decodes a complete .zmes archive from data. It returns an error
// for any structural defect (bad magic, truncation, over-deep nesting);
// a structurally valid archive with zero records parses successfully.
func Parse(data []byte) (*File, error) {
	if len(data) < HEADER_SIZE {
		return nil, fmt.Errorf("zmes: archive too short for header: need %d bytes, have %d", HEADER_SIZE, len(data))
	}
	if string(data[0:4]) != MAGIC {
		return nil, ErrBadMagic
	}

	version := binary.LittleEndian.Uint16(data[4:6])
	if version != VERSION {
		return nil, fmt.Errorf("%w: got %d, support %d", ErrUnsupportedVersion, version, VERSION)
	}

	recordCount := binary.LittleEndian.Uint32(data[6:10])

	file := &File{
		Version: version,
		Records: make([]Record, 0, recordCount),
	}

	d := &decoder{data: data, off: HEADER_SIZE}
	for i := uint32(0); i < recordCount; i++ {
		rec, err := d.record()
		if err != nil {
			return nil, fmt.Errorf("zmes: record %d: %w", i, err)
		}
		file.Records = append(file.Records, rec)
	}

	if d.off != len(data) {
		return nil, fmt.Errorf("zmes: %d trailing bytes after last record", len(data)-d.off)
	}

	return file, nil
}

// decoder is a bounds-checked cursor over the archive bytes.
type decoder struct {
	data []byte
	off  int
}

func (d *decoder) need(n int) error {
	if n < 0 || d.off+n > len(d.data) {
		return fmt.Errorf("truncated at offset %d: need %d bytes, have %d", d.off, n, len(d.data)-d.off)
	}
	return nil
}

func (d *decoder) bytes(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) uint8() (uint8, error) {
	b, err := d.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) uint16() (uint16, error) {
	b, err := d.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (d *decoder) uint32() (uint32, error) {
	b, err := d.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) float64() (float64, error) {
	b, err := d.bytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

func (d *decoder) record() (Record, error) {
	guidBytes, err := d.bytes(GUID_SIZE)
	if err != nil {
		return Record{}, fmt.Errorf("guid: %w", err)
	}
	guid, err := uuid.FromBytes(guidBytes)
	if err != nil {
		return Record{}, fmt.Errorf("guid: %w", err)
	}

	payloadLen, err := d.uint32()
	if err != nil {
		return Record{}, fmt.Errorf("payload length: %w", err)
	}
	if err := d.need(int(payloadLen)); err != nil {
		return Record{}, fmt.Errorf("payload: %w", err)
	}

	start := d.off
	root, err := d.node(0)
	if err != nil {
		return Record{}, err
	}
	if consumed := d.off - start; consumed != int(payloadLen) {
		return Record{}, fmt.Errorf("payload length mismatch: header says %d, node tree used %d", payloadLen, consumed)
	}

	return Record{GUID: guid.String(), Params: root}, nil
}

func (d *decoder) node(depth int) (*paramtree.Node, error) {
	if depth > MAX_NODE_DEPTH {
		return nil, fmt.Errorf("node nesting exceeds %d levels at offset %d", MAX_NODE_DEPTH, d.off)
	}

	nameLen, err := d.uint16()
	if err != nil {
		return nil, fmt.Errorf("name length: %w", err)
	}
	if nameLen > MAX_NAME_LENGTH {
		return nil, fmt.Errorf("name length %d exceeds limit %d", nameLen, MAX_NAME_LENGTH)
	}
	nameBytes, err := d.bytes(int(nameLen))
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}

	n := &paramtree.Node{Name: string(nameBytes)}

	kind, err := d.uint8()
	if err != nil {
		return nil, fmt.Errorf("value kind: %w", err)
	}
	if n.Value, err = d.value(kind); err != nil {
		return nil, fmt.Errorf("node %q: %w", n.Name, err)
	}

	childCount, err := d.uint16()
	if err != nil {
		return nil, fmt.Errorf("child count: %w", err)
	}
	if childCount > 0 {
		n.Children = make([]*paramtree.Node, 0, childCount)
		for i := uint16(0); i < childCount; i++ {
			child, err := d.node(depth + 1)
			if err != nil {
				return nil, err
			}
			n.Children = append(n.Children, child)
		}
	}

	return n, nil
}

func (d *decoder) value(kind uint8) (paramtree.Value, error) {
	switch kind {
	case VALUE_NONE:
		return paramtree.Value{}, nil

	case VALUE_STRING:
		length, err := d.uint32()
		if err != nil {
			return paramtree.Value{}, err
		}
		if length > MAX_STRING_LENGTH {
			return paramtree.Value{}, fmt.Errorf("string length %d exceeds limit %d", length, MAX_STRING_LENGTH)
		}
		b, err := d.bytes(int(length))
		if err != nil {
			return paramtree.Value{}, err
		}
		return paramtree.String(string(b)), nil

	case VALUE_FLOAT:
		f, err := d.float64()
		if err != nil {
			return paramtree.Value{}, err
		}
		return paramtree.Float(f), nil

	case VALUE_INT:
		b, err := d.bytes(8)
		if err != nil {
			return paramtree.Value{}, err
		}
		return paramtree.Int(int64(binary.LittleEndian.Uint64(b))), nil

	case VALUE_BOOL:
		b, err := d.uint8()
		if err != nil {
			return paramtree.Value{}, err
		}
		return paramtree.Bool(b != 0), nil

	case VALUE_FLOAT_ARRAY:
		count, err := d.uint32()
		if err != nil {
			return paramtree.Value{}, err
		}
		if count > MAX_ARRAY_LENGTH {
			return paramtree.Value{}, fmt.Errorf("array length %d exceeds limit %d", count, MAX_ARRAY_LENGTH)
		}
		// Bounds-check the whole array before allocating for it.
		if err := d.need(int(count) * 8); err != nil {
			return paramtree.Value{}, err
		}
		arr := make([]float64, count)
		for i := range arr {
			if arr[i], err = d.float64(); err != nil {
				return paramtree.Value{}, err
			}
		}
		return paramtree.FloatArray(arr), nil

	default:
		return paramtree.Value{}, fmt.Errorf("unknown value kind 0x%02X at offset %d", kind, d.off-1)
	}
}
