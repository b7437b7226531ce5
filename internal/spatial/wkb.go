package spatial

import (
	"encoding/binary"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// Codec converts points to and from their storage representation.
type Codec interface {
	Encode(p orb.Point) ([]byte, error)
	Decode(data []byte) (orb.Point, error)
}

// WKBCodec stores points as well-known binary.
type WKBCodec struct {
	ByteOrder binary.ByteOrder // little endian when nil
}

// Encode marshals p to well-known binary.
func (c WKBCodec) Encode(p orb.Point) ([]byte, error) {
	order := c.ByteOrder
	if order == nil {
		order = binary.LittleEndian
	}
	data, err := wkb.Marshal(p, order)
	if err != nil {
		return nil, fmt.Errorf("wkb encode: %w", err)
	}
	return data, nil
}

// Decode unmarshals a well-known binary point.
func (c WKBCodec) Decode(data []byte) (orb.Point, error) {
	g, err := wkb.Unmarshal(data)
	if err != nil {
		return orb.Point{}, fmt.Errorf("wkb decode: %w", err)
	}
	p, ok := g.(orb.Point)
	if !ok {
		return orb.Point{}, fmt.Errorf("wkb decode: %s is not a point", g.GeoJSONType())
	}
	return p, nil
}
