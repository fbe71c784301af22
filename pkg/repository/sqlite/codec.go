package sqlite

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"time"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// encodeEmbedding packs e as little-endian float32s
func encodeEmbedding(e model.Embedding) []byte {
	if len(e) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(e))
	for i, f := range e {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(b []byte) (model.Embedding, error) {
	if len(b) == 0 {
		return nil, nil
	}
	if len(b)%4 != 0 {
		return nil, goerr.New("embedding blob is not a float32 array", goerr.V("bytes", len(b)))
	}
	e := make(model.Embedding, len(b)/4)
	for i := range e {
		e[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return e, nil
}

func encodeStrings[T ~string](values []T) (string, error) {
	list := make([]string, 0, len(values))
	for _, v := range values {
		list = append(list, string(v))
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", goerr.Wrap(err, "failed to encode string list")
	}
	return string(data), nil
}

func decodeStrings[T ~string](data string) ([]T, error) {
	if data == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(data), &list); err != nil {
		return nil, goerr.Wrap(err, "failed to decode string list")
	}
	if len(list) == 0 {
		return nil, nil
	}
	values := make([]T, len(list))
	for i, s := range list {
		values[i] = T(s)
	}
	return values, nil
}

func encodeTime(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func decodeTime(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
