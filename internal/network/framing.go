package network

import (
	"errors"
	"fmt"
	"io"

	"github.com/annel0/blockverse/internal/protocol"
)

// MaxFrameSize ограничение размера одного кадра потока
const MaxFrameSize = 1 << 20

// ErrFrameTooLarge длина кадра превышает MaxFrameSize
var ErrFrameTooLarge = errors.New("кадр слишком велик")

// WriteFrame пишет сообщение с префиксом длины (uint32, big-endian)
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("%w: %d байт", ErrFrameTooLarge, len(payload))
	}
	buf := make([]byte, 0, 4+len(payload))
	buf = append(buf, protocol.WriteUint32(uint32(len(payload)))...)
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}

// ReadFrame читает один кадр, записанный WriteFrame
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	size := protocol.ReadUint32(header[:])
	if size > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d байт", ErrFrameTooLarge, size)
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("неполный кадр: %w", err)
	}
	return payload, nil
}
