package protocol

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// maxDecodedChunk верхняя граница распакованного чанка: 4096 записей по 7 байт
const maxDecodedChunk = 16 * 16 * 16 * blockEntrySize

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

func initZstd() {
	zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if zstdErr != nil {
		return
	}
	zstdDec, zstdErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecodedChunk*2))
}

func compress(raw []byte) ([]byte, error) {
	zstdOnce.Do(initZstd)
	if zstdErr != nil {
		return nil, fmt.Errorf("инициализация zstd: %w", zstdErr)
	}
	return zstdEnc.EncodeAll(raw, make([]byte, 0, len(raw)/2+16)), nil
}

func decompress(data []byte) ([]byte, error) {
	zstdOnce.Do(initZstd)
	if zstdErr != nil {
		return nil, fmt.Errorf("инициализация zstd: %w", zstdErr)
	}
	raw, err := zstdDec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: распаковка чанка: %v", ErrMalformedMessage, err)
	}
	if len(raw) > maxDecodedChunk {
		return nil, fmt.Errorf("%w: чанк слишком велик (%d байт)", ErrMalformedMessage, len(raw))
	}
	return raw, nil
}
