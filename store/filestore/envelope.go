package filestore

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"

	"github.com/aperturestack/cachecore/store"
)

// envelope is the self-describing on-disk payload: the original key
// (so a directory scan never needs to fall back to the hash) plus the
// entry metadata. Entry.Value holds the gzip-compressed bytes when
// Entry.Compressed is true; Entry.OriginalSize then holds the
// pre-compression length.
type envelope struct {
	OriginalKey string      `json:"originalKey"`
	Entry       store.Entry `json:"entry"`
}

func encodeEnvelope(key string, entry store.Entry, compressionThreshold int) ([]byte, error) {
	if compressionThreshold >= 0 && len(entry.Value) > compressionThreshold {
		compressed, err := gzipCompress(entry.Value)
		if err != nil {
			return nil, err
		}
		entry.OriginalSize = int64(len(entry.Value))
		entry.Value = compressed
		entry.Compressed = true
		entry.Size = int64(len(compressed))
	}
	return json.Marshal(envelope{OriginalKey: key, Entry: entry})
}

func decodeEnvelope(raw []byte) (string, store.Entry, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", store.Entry{}, err
	}
	entry := env.Entry
	if entry.Compressed {
		value, err := gzipDecompress(entry.Value)
		if err != nil {
			return "", store.Entry{}, err
		}
		entry.Value = value
		entry.Compressed = false
	}
	return env.OriginalKey, entry, nil
}

func gzipCompress(value []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(value); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(compressed []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
