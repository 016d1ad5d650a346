package leveldata

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// decodeLayerData turns a tile layer "data" field into raw gids. Plain JSON
// arrays and base64 strings (optionally zlib, gzip or zstd compressed) are
// accepted.
func decodeLayerData(msg json.RawMessage, encoding, compression string) ([]uint32, error) {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 || bytes.Equal(msg, []byte("null")) {
		return nil, nil
	}

	if msg[0] == '[' {
		var data []uint32
		if err := json.Unmarshal(msg, &data); err != nil {
			return nil, fmt.Errorf("data: %w", err)
		}
		return data, nil
	}

	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	if encoding != "base64" {
		return nil, &DocumentError{Field: "encoding", Reason: "unsupported layer encoding " + encoding}
	}

	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("data: base64: %w", err)
	}
	raw, err = decompress(raw, compression)
	if err != nil {
		return nil, fmt.Errorf("data: %s: %w", compression, err)
	}
	if len(raw)%4 != 0 {
		return nil, &DocumentError{Field: "data", Reason: fmt.Sprintf("%d bytes is not a whole number of gids", len(raw))}
	}

	data := make([]uint32, len(raw)/4)
	for i := range data {
		data[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return data, nil
}

func decompress(raw []byte, compression string) ([]byte, error) {
	switch compression {
	case "":
		return raw, nil
	case "zstd":
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(raw, nil)
	case "zlib":
		r, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "gzip":
		r, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	default:
		return nil, &DocumentError{Field: "compression", Reason: "unsupported layer compression " + compression}
	}
}
