package zmes

import "errors"

/*
ZMES Measurement Archive Format

A .zmes archive is the analyzer's export container: a flat sequence of
measurement records, each carrying a GUID and one hierarchical parameter
tree. All multi-byte integers are little-endian.

ARCHIVE LAYOUT:
├── Header (10 bytes)
│   ├── Magic "ZMES" (4 bytes)
│   ├── Format version (uint16, currently 1)
│   └── Record count (uint32)
└── Records (record count entries, back to back)
    ├── GUID (16 bytes, RFC 4122 byte order)
    ├── Payload length (uint32) — size of the encoded root node
    └── Root parameter node (payload length bytes)

NODE ENCODING (recursive):
├── Name length (uint16) + name (UTF-8)
├── Value kind (uint8, see VALUE_* constants)
├── Value payload (kind-dependent, absent for VALUE_NONE)
└── Child count (uint16) + children, in document order

VALUE PAYLOADS:
	VALUE_STRING       uint32 length + UTF-8 bytes
	VALUE_FLOAT        float64, IEEE 754 bits
	VALUE_INT          int64
	VALUE_BOOL         1 byte (0x00 false, 0x01 true)
	VALUE_FLOAT_ARRAY  uint32 count + count × float64

The decoder validates structure only: magic, version, lengths, nesting
depth. It never interprets parameter names — semantic extraction is the
converter's job.
*/

// Archive format constants.
const (
	MAGIC              = "ZMES"        // archive magic, first 4 bytes of every file
	VERSION            = 1             // current format version
	HEADER_SIZE        = 10            // magic + version + record count
	GUID_SIZE          = 16            // RFC 4122 binary GUID
	RECORD_HEADER_SIZE = GUID_SIZE + 4 // GUID + payload length

	// Value kind tags. These mirror paramtree.ValueKind but are pinned
	// independently: the wire format must not drift if the in-memory
	// enum is reordered.
	VALUE_NONE        = 0
	VALUE_STRING      = 1
	VALUE_FLOAT       = 2
	VALUE_INT         = 3
	VALUE_BOOL        = 4
	VALUE_FLOAT_ARRAY = 5

	// Structural guards. Real archives hold a few dozen records with
	// trees well under ten levels deep; the limits only bound damage
	// from corrupt or hostile input.
	MAX_NODE_DEPTH    = 64
	MAX_NAME_LENGTH   = 4096
	MAX_STRING_LENGTH = 1 << 20
	MAX_ARRAY_LENGTH  = 1 << 24
)

var (
	// ErrBadMagic reports a buffer that is not a ZMES archive at all.
	ErrBadMagic = errors.New("zmes: bad magic")
	// ErrUnsupportedVersion reports a ZMES archive from a newer format
	// revision than this reader understands.
	ErrUnsupportedVersion = errors.New("zmes: unsupported format version")
)
