package world

import (
	"encoding/binary"
	"fmt"
)

// Serialize encodes a TileMap into the wire/file format: an 8-byte
// little-endian (width, height) header followed by one byte per tile,
// scanned row-major. Byte layout: bits 0-1 = type, bits 2-7 = weight.
func Serialize(m *TileMap) []byte {
	buf := make([]byte, 8+m.Width*m.Height)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(m.Width))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(m.Height))

	i := 8
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			t := m.tiles[y][x]
			var b byte
			if t.Type == Blocked {
				b = 1
			}
			weight := t.Weight
			if weight < 0 {
				weight = 0
			}
			if weight > 63 {
				weight = 63
			}
			b |= byte(weight) << 2
			buf[i] = b
			i++
		}
	}
	return buf
}

// Deserialize decodes a TileMap from the wire/file format, rejecting
// truncated, oversized, or dimensionally invalid payloads rather than
// partially constructing a map.
func Deserialize(data []byte) (*TileMap, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("world: map data too short (%d bytes)", len(data))
	}

	width := int(int32(binary.LittleEndian.Uint32(data[0:4])))
	height := int(int32(binary.LittleEndian.Uint32(data[4:8])))
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("world: invalid map dimensions %dx%d", width, height)
	}

	want := 8 + width*height
	if len(data) != want {
		return nil, fmt.Errorf("world: map data length %d does not match expected %d for %dx%d", len(data), want, width, height)
	}

	m := NewTileMap(width, height)
	i := 8
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			b := data[i]
			i++

			tileType := Passable
			if b&0x3 == 1 {
				tileType = Blocked
			}
			weight := int(b >> 2)

			m.tiles[y][x] = Tile{Type: tileType, Weight: weight}
		}
	}
	return m, nil
}
