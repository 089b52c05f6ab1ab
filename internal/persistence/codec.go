package persistence

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	decoder, _ = zstd.NewReader(nil)
)

// EncodeSnapshot compresses a raw database image into the text-safe form kept
// under the snapshot key: base64(zstd(raw)).
func EncodeSnapshot(raw []byte) []byte {
	compressed := encoder.EncodeAll(raw, nil)
	out := make([]byte, base64.StdEncoding.EncodedLen(len(compressed)))
	base64.StdEncoding.Encode(out, compressed)
	return out
}

// DecodeSnapshot reverses EncodeSnapshot.
func DecodeSnapshot(text []byte) ([]byte, error) {
	compressed := make([]byte, base64.StdEncoding.DecodedLen(len(text)))
	n, err := base64.StdEncoding.Decode(compressed, text)
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot text: %w", err)
	}

	raw, err := decoder.DecodeAll(compressed[:n], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("snapshot is empty")
	}
	return raw, nil
}

// EncodeLegacy renders a raw database image in the legacy format: a JSON
// array with one number per byte.
func EncodeLegacy(raw []byte) ([]byte, error) {
	values := make([]int, len(raw))
	for i, b := range raw {
		values[i] = int(b)
	}
	return json.Marshal(values)
}

// DecodeLegacy parses the legacy JSON byte array.
func DecodeLegacy(data []byte) ([]byte, error) {
	var values []int
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse legacy snapshot: %w", err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("legacy snapshot is empty")
	}

	raw := make([]byte, len(values))
	for i, v := range values {
		if v < 0 || v > 255 {
			return nil, fmt.Errorf("legacy snapshot byte %d out of range: %d", i, v)
		}
		raw[i] = byte(v)
	}
	return raw, nil
}
