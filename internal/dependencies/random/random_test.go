package random_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/quizgame/internal/dependencies/random"
)

func TestStringUsesAlphabet(t *testing.T) {
	r := random.New()
	const alphabet = "XYZ"

	s := r.String(64, alphabet)
	assert.Len(t, s, 64)
	for _, c := range s {
		assert.True(t, strings.ContainsRune(alphabet, c), "unexpected %q", c)
	}
	assert.Empty(t, r.String(0, alphabet))
	assert.Empty(t, r.String(4, ""))
}

func TestUUIDIsV4(t *testing.T) {
	id, err := uuid.Parse(random.New().UUID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
}
