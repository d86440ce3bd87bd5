package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/hupe1980/octgo/octree"
)

// Point-block framing:
//
//	[1]  compressor name length
//	[n]  compressor name
//	[..] compressed body
//
// body (uncompressed):
//
//	uvarint      point count
//	per point:   3x float64 LE, uvarint payload length, payload bytes

// EncodePoints serializes voxels into a self-describing compressed block.
func EncodePoints(voxels []octree.Voxel, comp Compressor) ([]byte, error) {
	if comp == nil {
		comp = DefaultCompressor
	}

	body := make([]byte, 0, 32*len(voxels)+binary.MaxVarintLen64)
	body = binary.AppendUvarint(body, uint64(len(voxels)))
	for _, v := range voxels {
		for axis := 0; axis < 3; axis++ {
			body = binary.LittleEndian.AppendUint64(body, math.Float64bits(v.Point[axis]))
		}
		body = binary.AppendUvarint(body, uint64(len(v.Data)))
		body = append(body, v.Data...)
	}

	compressed, err := comp.Compress(body)
	if err != nil {
		return nil, err
	}

	name := comp.Name()
	if len(name) > 255 {
		return nil, fmt.Errorf("codec: compressor name %q too long", name)
	}
	out := make([]byte, 0, 1+len(name)+len(compressed))
	out = append(out, byte(len(name)))
	out = append(out, name...)
	out = append(out, compressed...)
	return out, nil
}

// DecodePoints deserializes a block written by EncodePoints. The compressor
// is resolved from the block header, not from configuration, so blobs written
// under a different setting still load.
func DecodePoints(data []byte) ([]octree.Voxel, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("codec: short point block")
	}
	nameLen := int(data[0])
	if len(data) < 1+nameLen {
		return nil, fmt.Errorf("codec: short point block header")
	}
	name := string(data[1 : 1+nameLen])
	comp, ok := ByName(name)
	if !ok {
		return nil, fmt.Errorf("codec: unknown compressor %q", name)
	}

	body, err := comp.Decompress(data[1+nameLen:])
	if err != nil {
		return nil, err
	}

	count, n := binary.Uvarint(body)
	if n <= 0 {
		return nil, fmt.Errorf("codec: corrupt point count")
	}
	body = body[n:]

	voxels := make([]octree.Voxel, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(body) < 24 {
			return nil, fmt.Errorf("codec: truncated point %d", i)
		}
		var v octree.Voxel
		for axis := 0; axis < 3; axis++ {
			v.Point[axis] = math.Float64frombits(binary.LittleEndian.Uint64(body))
			body = body[8:]
		}
		payloadLen, n := binary.Uvarint(body)
		if n <= 0 || uint64(len(body[n:])) < payloadLen {
			return nil, fmt.Errorf("codec: truncated payload for point %d", i)
		}
		body = body[n:]
		if payloadLen > 0 {
			v.Data = append([]byte(nil), body[:payloadLen]...)
			body = body[payloadLen:]
		}
		voxels = append(voxels, v)
	}
	return voxels, nil
}
