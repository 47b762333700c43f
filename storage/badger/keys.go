package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/vitae/core"
)

// Key prefixes for different data types. Each ends in a separator so prefix
// scans never see another type's keys.
const (
	segmentPrefix       = "seg:"
	segmentDocPrefix    = "segdoc:"
	segmentTermPrefix   = "segterm:"
	documentStatePrefix = "docstate:"
)

// makeSegmentKey generates a key for a segment by ID.
func makeSegmentKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s%d", segmentPrefix, id))
}

// makeIndexKey generates a composite key for a secondary index.
// Format: prefix + value + 0x00 + id (8 bytes, BigEndian)
func makeIndexKey(prefix, value string, id core.ID) []byte {
	partial := makePartialIndexKey(prefix, value)
	buf := make([]byte, len(partial)+8)
	offset := copy(buf, partial)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialIndexKey generates the scan prefix for one index value.
// Format: prefix + value + 0x00
func makePartialIndexKey(prefix, value string) []byte {
	buf := make([]byte, 0, len(prefix)+len(value)+1)
	buf = append(buf, prefix...)
	buf = append(buf, value...)
	return append(buf, 0)
}

// makeSegmentDocKey indexes a segment under its document.
func makeSegmentDocKey(documentID string, id core.ID) []byte {
	return makeIndexKey(segmentDocPrefix, documentID, id)
}

// makeSegmentTermKey indexes a segment under one of its terms.
func makeSegmentTermKey(term string, id core.ID) []byte {
	return makeIndexKey(segmentTermPrefix, term, id)
}

// makeDocumentStateKey generates a key for a document state.
func makeDocumentStateKey(documentID string) []byte {
	return []byte(documentStatePrefix + documentID)
}
