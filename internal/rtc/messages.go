package rtc

import (
	"github.com/spatialmeet/cli/internal/realtime"
	"github.com/vmihailenco/msgpack/v5"
)

// positionTick is the data-channel fast-path frame. msgpack keeps ticks a
// few bytes each; they fire on every local move between coalescing windows.
type positionTick struct {
	X float64 `msgpack:"x"`
	Y float64 `msgpack:"y"`
	Z float64 `msgpack:"z"`
}

func encodeTick(pos realtime.Position) ([]byte, error) {
	return msgpack.Marshal(positionTick{X: pos.X, Y: pos.Y, Z: pos.Z})
}

func decodeTick(data []byte) (realtime.Position, error) {
	var t positionTick
	if err := msgpack.Unmarshal(data, &t); err != nil {
		return realtime.Position{}, err
	}
	return realtime.Position{X: t.X, Y: t.Y, Z: t.Z}, nil
}
