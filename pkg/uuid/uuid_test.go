package uuid

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uuidV4Pattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

func TestNewV4(t *testing.T) {
	u, err := NewV4()
	require.NoError(t, err)
	assert.NotEqual(t, Nil, u)

	assert.Equal(t, byte(0x40), u[6]&0xf0)
	assert.Equal(t, byte(0x80), u[8]&0xc0)
}

func TestNewString_Format(t *testing.T) {
	s := NewString()
	assert.Regexp(t, uuidV4Pattern, s)
}

func TestNewString_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		s := NewString()
		_, dup := seen[s]
		require.False(t, dup, "duplicate uuid %s", s)
		seen[s] = struct{}{}
	}
}
