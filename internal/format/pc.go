package format

import (
	"fmt"

	"github.com/joshuapare/pstkit/internal/buf"
)

// PCRecord is one property-context leaf record: a 16-bit property id, its
// type tag and the 4-byte value. For fixed types of at most four bytes the
// value is the data itself; otherwise it is an HNID pointing into the heap
// or the sub-node map.
type PCRecord struct {
	PropID uint16
	Type   uint16
	Hnid   uint32
}

// DecodePCRecord decodes one 8-byte property-context record.
func DecodePCRecord(rec []byte) (PCRecord, error) {
	if len(rec) < PCRecordSize {
		return PCRecord{}, fmt.Errorf("pc record: %w", ErrTruncated)
	}
	return PCRecord{
		PropID: buf.U16LE(rec),
		Type:   buf.U16LE(rec[PCRecordTypeOffset:]),
		Hnid:   buf.U32LE(rec[PCRecordHnidOffset:]),
	}, nil
}
