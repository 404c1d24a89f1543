package repository

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePoint(t *testing.T) {
	raw, err := wkb.Marshal(orb.Point{30.3141, 59.9386})
	require.NoError(t, err)

	p, err := decodePoint(raw)

	require.NoError(t, err)
	assert.Equal(t, orb.Point{30.3141, 59.9386}, p)
}

func TestDecodeLineString(t *testing.T) {
	line := orb.LineString{{30.0, 60.0}, {30.001, 60.0}, {30.002, 60.001}}
	raw, err := wkb.Marshal(line)
	require.NoError(t, err)

	got, err := decodeLineString(raw)

	require.NoError(t, err)
	assert.Equal(t, line, got)
}

func TestDecode_WrongGeometryType(t *testing.T) {
	raw, err := wkb.Marshal(orb.Point{1, 2})
	require.NoError(t, err)

	_, err = decodeLineString(raw)
	assert.ErrorContains(t, err, "expected linestring")

	_, err = decodePoint([]byte{0x01, 0x02})
	assert.Error(t, err)
}
