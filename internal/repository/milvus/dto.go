package milvus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kailas-cloud/docqa/internal/domain"
	domchunk "github.com/kailas-cloud/docqa/internal/domain/chunk"
	"github.com/kailas-cloud/docqa/internal/domain/retrieval"
)

// Collection field names.
const (
	fieldID       = "id"
	fieldSourceID = "source_id"
	fieldSource   = "source"
	fieldText     = "text"
	fieldPosition = "position"
	fieldPage     = "page"
	fieldVector   = "vector"

	countField = "count(*)"
)

const (
	maxIDLen     = 128
	maxSourceLen = 1024
	maxTextLen   = 65535
)

var outputFields = []string{fieldSourceID, fieldSource, fieldText, fieldPosition, fieldPage}

func collectionSchema(name string, dims int) *entity.Schema {
	return entity.NewSchema().
		WithName(name).
		WithDescription("docqa chunks").
		WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxIDLen).WithIsPrimaryKey(true)).
		WithField(entity.NewField().WithName(fieldSourceID).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxIDLen)).
		WithField(entity.NewField().WithName(fieldSource).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxSourceLen)).
		WithField(entity.NewField().WithName(fieldText).WithDataType(entity.FieldTypeVarChar).
			WithMaxLength(maxTextLen)).
		WithField(entity.NewField().WithName(fieldPosition).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(fieldPage).WithDataType(entity.FieldTypeInt64)).
		WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).
			WithDim(int64(dims)))
}

// buildColumns lays chunks out column-wise for a column based insert.
func buildColumns(chunks []domchunk.Chunk, vectors []domain.Vector, dims int) []column.Column {
	n := len(chunks)
	ids := make([]string, n)
	sourceIDs := make([]string, n)
	sources := make([]string, n)
	texts := make([]string, n)
	positions := make([]int64, n)
	pages := make([]int64, n)
	vecs := make([][]float32, n)
	for i, c := range chunks {
		ids[i] = c.ID()
		sourceIDs[i] = c.SourceID()
		sources[i] = c.Source()
		texts[i] = c.Text()
		positions[i] = int64(c.Position())
		pages[i] = int64(c.Page())
		vecs[i] = vectors[i]
	}
	return []column.Column{
		column.NewColumnVarChar(fieldID, ids),
		column.NewColumnVarChar(fieldSourceID, sourceIDs),
		column.NewColumnVarChar(fieldSource, sources),
		column.NewColumnVarChar(fieldText, texts),
		column.NewColumnInt64(fieldPosition, positions),
		column.NewColumnInt64(fieldPage, pages),
		column.NewColumnFloatVector(fieldVector, dims, vecs),
	}
}

// parseMatches turns the first result set of a search into matches.
// Cosine similarity is clamped to [0,1] like the other backends.
func parseMatches(count int, fields []column.Column, scores []float32) ([]retrieval.Match, error) {
	if count == 0 {
		return nil, nil
	}
	type row struct {
		sourceID, source, text string
		position, page         int
	}
	rows := make([]row, count)

	for _, col := range fields {
		for i := 0; i < count && i < col.Len(); i++ {
			val, err := col.Get(i)
			if err != nil {
				return nil, fmt.Errorf("read %s[%d]: %w", col.Name(), i, err)
			}
			switch col.Name() {
			case fieldSourceID:
				rows[i].sourceID = asString(val)
			case fieldSource:
				rows[i].source = asString(val)
			case fieldText:
				rows[i].text = asString(val)
			case fieldPosition:
				rows[i].position = asInt(val)
			case fieldPage:
				rows[i].page = asInt(val)
			}
		}
	}

	matches := make([]retrieval.Match, count)
	for i, r := range rows {
		score := 0.0
		if i < len(scores) {
			score = min(1, max(0, float64(scores[i])))
		}
		matches[i] = retrieval.Match{
			Chunk: domchunk.New(r.text, r.sourceID, r.source, r.position, r.page),
			Score: score,
		}
	}
	return matches, nil
}

// columnStrings reads a VarChar column. A nil column yields nothing.
func columnStrings(col column.Column) ([]string, error) {
	if col == nil {
		return nil, nil
	}
	out := make([]string, 0, col.Len())
	for i := 0; i < col.Len(); i++ {
		val, err := col.Get(i)
		if err != nil {
			return nil, fmt.Errorf("read %s[%d]: %w", col.Name(), i, err)
		}
		out = append(out, asString(val))
	}
	return out, nil
}

// staleCount returns how many existing row ids the new chunks do not overwrite.
func staleCount(existing []string, chunks []domchunk.Chunk) int {
	kept := make(map[string]struct{}, len(chunks))
	for _, c := range chunks {
		kept[c.ID()] = struct{}{}
	}
	n := 0
	for _, id := range existing {
		if _, ok := kept[id]; !ok {
			n++
		}
	}
	return n
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int32:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	default:
		return 0
	}
}

// sourceExpr selects every row of one source.
func sourceExpr(sourceID string) string {
	return fmt.Sprintf(`%s == "%s"`, fieldSourceID, escapeString(sourceID))
}

var exprEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeString(s string) string {
	return exprEscaper.Replace(s)
}
