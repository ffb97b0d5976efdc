package cache

import (
	"encoding/binary"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// Key prefixes for the two value types
const (
	queryEntryPrefix     = "qent"
	documentRecordPrefix = "drec"
)

// queryID hashes query text to a fixed-width identifier so arbitrarily long
// query strings map to compact keys. Identical text always produces the
// same key.
func queryID(queryText string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(queryText))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// makeQueryEntryKey generates the key for a query's UUID-set entry.
func makeQueryEntryKey(queryText string) []byte {
	return []byte(fmt.Sprintf("%s:%d", queryEntryPrefix, queryID(queryText)))
}

// makeDocumentRecordKey generates the key for a cached result record.
func makeDocumentRecordKey(uuid string) []byte {
	return []byte(fmt.Sprintf("%s:%s", documentRecordPrefix, uuid))
}
