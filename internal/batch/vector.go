package batch

import (
	"strconv"
	"strings"
)

// pgvectorLiteral renders an embedding as a pgvector text literal
// ("[0.1,0.2,...]"), the format pgvector's input function accepts when
// cast via ::vector. No pgvector client library exists in the pack, so
// this is the teacher's own driver (pgx) talking to the extension
// through its plain text wire format.
func pgvectorLiteral(embedding []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
