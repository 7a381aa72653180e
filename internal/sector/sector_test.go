package sector

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveByCodeAndLabel(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"coiffeur":           "coiffeur",
		"Coiffeur":           "coiffeur",
		"  COIFFEUR ":        "coiffeur",
		"Électricien":        "electricien",
		"electricien":        "electricien",
		"Agence immobilière": "immobilier",
		"agence immobiliere": "immobilier",
		"auto-ecole":         "auto-ecole",
	}
	for input, code := range cases {
		s, ok := Resolve(input)
		require.True(t, ok, input)
		require.Equal(t, code, s.Code, input)
	}
}

func TestResolveUnknown(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "   ", "astronaut"} {
		_, ok := Resolve(input)
		require.False(t, ok, input)
	}
}

func TestTableIsWellFormed(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, s := range All() {
		require.NotEmpty(t, s.Code)
		require.NotEmpty(t, s.Label)
		require.NotEmpty(t, s.Primary.Key)
		require.NotEmpty(t, s.Primary.Value)
		require.False(t, seen[s.Code], "duplicate code %s", s.Code)
		seen[s.Code] = true
		require.Equal(t, s.Primary, s.Tags()[0])
	}
}
