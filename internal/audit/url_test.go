package audit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/walt0white1/prospectflow-sub000/internal/prospect"
)

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"plombier-lyon.fr", "https://plombier-lyon.fr/"},
		{"  http://Plombier-Lyon.fr/contact ", "http://plombier-lyon.fr/contact"},
		{"HTTPS://example.fr", "https://example.fr/"},
		{"//cdn.example.fr/x", "https://cdn.example.fr/x"},
	}
	for _, tt := range tests {
		got, err := NormalizeURL(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got)
	}

	for _, bad := range []string{"", "ftp://example.fr", "https://", "mailto:contact@example.fr", "-h", "--config=/etc/x.yaml", "https://-h/"} {
		_, err := NormalizeURL(bad)
		require.ErrorIs(t, err, prospect.ErrInvalidInput, bad)
	}
}
