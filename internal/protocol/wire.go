package protocol

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// fieldReader последовательно разбирает поля protobuf-сообщения.
// Первая ошибка запоминается, дальнейшие вызовы становятся пустыми.
type fieldReader struct {
	b   []byte
	err error
}

func newFieldReader(b []byte) *fieldReader {
	return &fieldReader{b: b}
}

func (r *fieldReader) fail(format string, args ...interface{}) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s", ErrMalformedMessage, fmt.Sprintf(format, args...))
	}
	r.b = nil
}

// next читает очередной тег. false означает конец сообщения или ошибку.
func (r *fieldReader) next() (protowire.Number, protowire.Type, bool) {
	if r.err != nil || len(r.b) == 0 {
		return 0, 0, false
	}
	num, typ, n := protowire.ConsumeTag(r.b)
	if n < 0 {
		r.fail("тег: %v", protowire.ParseError(n))
		return 0, 0, false
	}
	r.b = r.b[n:]
	return num, typ, true
}

func (r *fieldReader) varint(typ protowire.Type) uint64 {
	if typ != protowire.VarintType {
		r.fail("ожидался varint, получен тип %d", typ)
		return 0
	}
	v, n := protowire.ConsumeVarint(r.b)
	if n < 0 {
		r.fail("varint: %v", protowire.ParseError(n))
		return 0
	}
	r.b = r.b[n:]
	return v
}

func (r *fieldReader) sint(typ protowire.Type) int64 {
	return protowire.DecodeZigZag(r.varint(typ))
}

func (r *fieldReader) bytes(typ protowire.Type) []byte {
	if typ != protowire.BytesType {
		r.fail("ожидались байты, получен тип %d", typ)
		return nil
	}
	v, n := protowire.ConsumeBytes(r.b)
	if n < 0 {
		r.fail("bytes: %v", protowire.ParseError(n))
		return nil
	}
	r.b = r.b[n:]
	return v
}

// floats читает упакованный массив ровно из want конечных чисел
func (r *fieldReader) floats(typ protowire.Type, want int) []float64 {
	raw := r.bytes(typ)
	if r.err != nil {
		return nil
	}
	if len(raw) != want*8 {
		r.fail("ожидалось %d чисел, получено %d байт", want, len(raw))
		return nil
	}
	out := make([]float64, want)
	for i := range out {
		v, n := protowire.ConsumeFixed64(raw)
		if n < 0 {
			r.fail("fixed64: %v", protowire.ParseError(n))
			return nil
		}
		raw = raw[n:]
		f := math.Float64frombits(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			r.fail("нечисловое значение")
			return nil
		}
		out[i] = f
	}
	return out
}

func (r *fieldReader) skip(num protowire.Number, typ protowire.Type) {
	n := protowire.ConsumeFieldValue(num, typ, r.b)
	if n < 0 {
		r.fail("поле %d: %v", num, protowire.ParseError(n))
		return
	}
	r.b = r.b[n:]
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	return appendVarint(b, num, protowire.EncodeZigZag(v))
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

// appendFloats пишет числа упакованным массивом fixed64
func appendFloats(b []byte, num protowire.Number, vals ...float64) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	b = protowire.AppendVarint(b, uint64(len(vals)*8))
	for _, v := range vals {
		b = protowire.AppendFixed64(b, math.Float64bits(v))
	}
	return b
}
