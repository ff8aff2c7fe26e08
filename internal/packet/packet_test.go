package packet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacket_DCs(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		expects uint64
	}{
		{"empty", 0, 1},
		{"one byte", 1, 1},
		{"exact", 24, 1},
		{"one over", 25, 2},
		{"large", 240, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Packet{Payload: bytes.Repeat([]byte{0xAA}, tt.size)}
			assert.Equal(t, tt.expects, p.DCs())
		})
	}
}

func TestPacket_Hash(t *testing.T) {
	a := &Packet{Payload: []byte("hello"), Frequency: 903.9}
	b := &Packet{Payload: []byte("hello"), Frequency: 904.1}
	c := &Packet{Payload: []byte("world")}

	assert.Len(t, a.Hash(), 32)
	assert.Equal(t, a.Hash(), b.Hash(), "hash covers the payload only")
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestPacket_Clone(t *testing.T) {
	addr := uint32(0x48000001)
	p := &Packet{
		Payload: []byte{1, 2, 3},
		Routing: &RoutingInformation{DevAddr: &addr},
		RxWindow: &Window{
			Timestamp: 10,
			Frequency: 923.3,
			Datarate:  "SF12BW500",
		},
	}

	c := p.Clone()
	require.Equal(t, p, c)

	c.Payload[0] = 9
	*c.Routing.DevAddr = 7
	c.RxWindow.Timestamp = 99
	assert.Equal(t, byte(1), p.Payload[0])
	assert.Equal(t, uint32(0x48000001), *p.Routing.DevAddr)
	assert.Equal(t, uint64(10), p.RxWindow.Timestamp)

	assert.Nil(t, (*Packet)(nil).Clone())
}

func TestParseRegion(t *testing.T) {
	r, err := ParseRegion("eu868")
	require.NoError(t, err)
	assert.Equal(t, RegionEU868, r)
	assert.Equal(t, "EU868", r.String())

	_, err = ParseRegion("MARS1")
	assert.Error(t, err)

	assert.Equal(t, "unknown", Region(99).String())
}
