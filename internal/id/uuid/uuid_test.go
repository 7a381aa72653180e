package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewID()
	require.NoError(t, err)
	id2, err := gen.NewID()
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)

	parsed, err := goUUID.Parse(id1)
	require.NoError(t, err)
	assert.Equal(t, goUUID.Version(7), parsed.Version())
}

func TestGeneratorMustRawIDIsOrdered(t *testing.T) {
	t.Parallel()

	gen := New()
	first := gen.MustRawID()
	second := gen.MustRawID()
	assert.Equal(t, goUUID.Version(7), first.Version())
	assert.Less(t, first.String(), second.String())
}
