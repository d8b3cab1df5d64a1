package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_EmptyTokenIsFirstPage(t *testing.T) {
	c, err := Decode("")
	require.NoError(t, err)
	assert.True(t, c.IsZero())
}

func TestEncodeDecode(t *testing.T) {
	token, err := Encode(Cursor{UserID: "u7", CreatedNano: 1700000000123456789})
	require.NoError(t, err)

	c, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "u7", c.UserID)
	assert.Equal(t, int64(1700000000123456789), c.CreatedNano)
}

func TestDecode_Garbage(t *testing.T) {
	_, err := Decode("!!not-base64!!")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = Decode("bm90LWpzb24=") // "not-json"
	assert.ErrorIs(t, err, ErrInvalidToken)
}
