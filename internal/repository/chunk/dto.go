package chunk

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/kailas-cloud/docqa/internal/domain"
	domchunk "github.com/kailas-cloud/docqa/internal/domain/chunk"
)

// Hash field names.
const (
	fieldText     = "text"
	fieldSourceID = "source_id"
	fieldSource   = "source"
	fieldPosition = "position"
	fieldPage     = "page"
	fieldVector   = "vector"
)

var returnFields = []string{fieldText, fieldSourceID, fieldSource, fieldPosition, fieldPage}

// buildHashFields flattens a chunk and its vector for HSET.
func buildHashFields(c domchunk.Chunk, vec domain.Vector) map[string]string {
	return map[string]string{
		fieldText:     c.Text(),
		fieldSourceID: c.SourceID(),
		fieldSource:   c.Source(),
		fieldPosition: strconv.Itoa(c.Position()),
		fieldPage:     strconv.Itoa(c.Page()),
		fieldVector:   vectorToBytes(vec),
	}
}

// parseHashFields rebuilds a chunk from search fields. Malformed numbers become 0.
func parseHashFields(m map[string]string) domchunk.Chunk {
	position, _ := strconv.Atoi(m[fieldPosition])
	page, _ := strconv.Atoi(m[fieldPage])
	return domchunk.New(m[fieldText], m[fieldSourceID], m[fieldSource], position, page)
}

// vectorToBytes serializes a vector as little-endian float32, the FT VECTOR wire format.
func vectorToBytes(v domain.Vector) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
