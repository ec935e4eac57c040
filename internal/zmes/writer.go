package zmes

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/lumen-data/particle.report/internal/paramtree"
)

// Builder assembles a .zmes archive record by record. It exists for the
// synthetic-archive generator and for tests; the analyzer software is the
// producer of real archives.
type Builder struct {
	records bytes.Buffer
	count   uint32
}

// NewBuilder returns an empty archive builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AppendRecord encodes one measurement record. An empty guid gets a fresh
// random GUID; a non-empty guid must parse as RFC 4122.
func (b *Builder) AppendRecord(guid string, root *paramtree.Node) error {
	if root == nil {
		return fmt.Errorf("zmes: record needs a root parameter node")
	}

	var id uuid.UUID
	if guid == "" {
		id = uuid.New()
	} else {
		parsed, err := uuid.Parse(guid)
		if err != nil {
			return fmt.Errorf("zmes: invalid record guid %q: %w", guid, err)
		}
		id = parsed
	}

	var payload bytes.Buffer
	if err := encodeNode(&payload, root, 0); err != nil {
		return err
	}

	b.records.Write(id[:])
	b.records.Write(binary.LittleEndian.AppendUint32(nil, uint32(payload.Len())))
	b.records.Write(payload.Bytes())
	b.count++
	return nil
}

// Len reports the number of records appended so far.
func (b *Builder) Len() int { return int(b.count) }

// Bytes assembles the final archive: header plus all appended records.
func (b *Builder) Bytes() []byte {
	out := make([]byte, 0, HEADER_SIZE+b.records.Len())
	out = append(out, MAGIC...)
	out = binary.LittleEndian.AppendUint16(out, VERSION)
	out = binary.LittleEndian.AppendUint32(out, b.count)
	out = append(out, b.records.Bytes()...)
	return out
}

func encodeNode(buf *bytes.Buffer, n *paramtree.Node, depth int) error {
	if depth > MAX_NODE_DEPTH {
		return fmt.Errorf("zmes: node nesting exceeds %d levels", MAX_NODE_DEPTH)
	}
	if len(n.Name) > MAX_NAME_LENGTH {
		return fmt.Errorf("zmes: node name %q exceeds %d bytes", n.Name[:32]+"…", MAX_NAME_LENGTH)
	}
	if len(n.Children) > math.MaxUint16 {
		return fmt.Errorf("zmes: node %q has %d children, limit %d", n.Name, len(n.Children), math.MaxUint16)
	}

	buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(len(n.Name))))
	buf.WriteString(n.Name)

	if err := encodeValue(buf, n.Value); err != nil {
		return fmt.Errorf("zmes: node %q: %w", n.Name, err)
	}

	buf.Write(binary.LittleEndian.AppendUint16(nil, uint16(len(n.Children))))
	for _, child := range n.Children {
		if err := encodeNode(buf, child, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func encodeValue(buf *bytes.Buffer, v paramtree.Value) error {
	switch v.Kind {
	case paramtree.KindNone:
		buf.WriteByte(VALUE_NONE)

	case paramtree.KindString:
		if len(v.Str) > MAX_STRING_LENGTH {
			return fmt.Errorf("string value exceeds %d bytes", MAX_STRING_LENGTH)
		}
		buf.WriteByte(VALUE_STRING)
		buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(v.Str))))
		buf.WriteString(v.Str)

	case paramtree.KindFloat:
		buf.WriteByte(VALUE_FLOAT)
		buf.Write(binary.LittleEndian.AppendUint64(nil, math.Float64bits(v.Num)))

	case paramtree.KindInt:
		buf.WriteByte(VALUE_INT)
		buf.Write(binary.LittleEndian.AppendUint64(nil, uint64(v.Int)))

	case paramtree.KindBool:
		buf.WriteByte(VALUE_BOOL)
		if v.Bool {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}

	case paramtree.KindFloatArray:
		if len(v.Array) > MAX_ARRAY_LENGTH {
			return fmt.Errorf("array value has %d entries, limit %d", len(v.Array), MAX_ARRAY_LENGTH)
		}
		buf.WriteByte(VALUE_FLOAT_ARRAY)
		buf.Write(binary.LittleEndian.AppendUint32(nil, uint32(len(v.Array))))
		for _, f := range v.Array {
			buf.Write(binary.LittleEndian.AppendUint64(nil, math.Float64bits(f)))
		}

	default:
		return fmt.Errorf("unknown value kind %d", v.Kind)
	}
	return nil
}
