package batch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPgvectorLiteral_FormatsAsBracketedList(t *testing.T) {
	got := pgvectorLiteral([]float32{0.1, -0.25, 3})
	require.Equal(t, "[0.1,-0.25,3]", got)
}

func TestPgvectorLiteral_Empty(t *testing.T) {
	require.Equal(t, "[]", pgvectorLiteral(nil))
}
