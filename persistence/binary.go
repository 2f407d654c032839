package persistence

import (
	"encoding/binary"
	"io"
	"math"
)

// binaryWriter wraps an io.Writer with little-endian primitive writes.
// The first error sticks; callers check Err once after the last write.
type binaryWriter struct {
	w   io.Writer
	buf [8]byte
	err error
}

func newBinaryWriter(w io.Writer) *binaryWriter {
	return &binaryWriter{w: w}
}

func (bw *binaryWriter) Err() error { return bw.err }

func (bw *binaryWriter) write(b []byte) {
	if bw.err != nil {
		return
	}
	_, bw.err = bw.w.Write(b)
}

func (bw *binaryWriter) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(bw.buf[:4], v)
	bw.write(bw.buf[:4])
}

func (bw *binaryWriter) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(bw.buf[:8], v)
	bw.write(bw.buf[:8])
}

func (bw *binaryWriter) Int64(v int64) {
	bw.Uint64(uint64(v))
}

func (bw *binaryWriter) Float32(v float32) {
	bw.Uint32(math.Float32bits(v))
}

func (bw *binaryWriter) Float32s(v []float32) {
	if bw.err != nil {
		return
	}

	b := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
	bw.write(b)
}

// Bytes writes a uint32 length prefix followed by the raw bytes.
func (bw *binaryWriter) Bytes(b []byte) {
	bw.Uint32(uint32(len(b)))
	bw.write(b)
}

// binaryReader wraps an io.Reader with little-endian primitive reads.
// A clean EOF at a record boundary is reported by AtEOF; EOF mid-value
// surfaces as io.ErrUnexpectedEOF.
type binaryReader struct {
	r   io.Reader
	buf [8]byte
}

func newBinaryReader(r io.Reader) *binaryReader {
	return &binaryReader{r: r}
}

func (br *binaryReader) read(b []byte) error {
	_, err := io.ReadFull(br.r, b)
	return err
}

func (br *binaryReader) Uint32() (uint32, error) {
	if err := br.read(br.buf[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(br.buf[:4]), nil
}

func (br *binaryReader) Uint64() (uint64, error) {
	if err := br.read(br.buf[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(br.buf[:8]), nil
}

func (br *binaryReader) Int64() (int64, error) {
	v, err := br.Uint64()
	return int64(v), err
}

func (br *binaryReader) Float32() (float32, error) {
	v, err := br.Uint32()
	return math.Float32frombits(v), err
}

func (br *binaryReader) Float32s(n int) ([]float32, error) {
	b := make([]byte, n*4)
	if err := br.read(b); err != nil {
		return nil, err
	}

	v := make([]float32, n)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}

// Bytes reads a uint32 length prefix followed by that many raw bytes.
func (br *binaryReader) Bytes() ([]byte, error) {
	n, err := br.Uint32()
	if err != nil {
		return nil, err
	}

	if n > maxStringLen {
		return nil, &ErrCorruptFile{Reason: "length-prefixed field too large"}
	}

	b := make([]byte, n)
	if err := br.read(b); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return b, nil
}
