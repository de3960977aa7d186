package tag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTagOrdering(t *testing.T) {
	assert.True(t, New(0x0008, 0x0018).Less(New(0x0020, 0x000D)))
	assert.True(t, New(0x0028, 0x0010).Less(New(0x0028, 0x0011)))
	assert.False(t, PixelData.Less(Rows))
	assert.False(t, Rows.Less(Rows))
}

func TestTagClassification(t *testing.T) {
	assert.True(t, TransferSyntaxUID.IsFileMeta())
	assert.False(t, Rows.IsFileMeta())
	assert.True(t, New(0x0009, 0x0010).IsPrivate())
	assert.False(t, PixelData.IsPrivate())
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "(7FE0,0010)", PixelData.String())
	assert.Equal(t, "(0028,0010)", Rows.String())
}

func TestLookupName(t *testing.T) {
	assert.Equal(t, "Rows", Rows.LookupName())
	assert.Equal(t, "TransferSyntaxUID", TransferSyntaxUID.LookupName())
	assert.Empty(t, New(0x0009, 0x0001).LookupName())
}
