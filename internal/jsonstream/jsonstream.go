// Package jsonstream encodes and decodes a stream of concatenated JSON values.
//
// Values on the wire are written back to back with no separator. The decoder
// accepts input split at arbitrary byte boundaries and yields complete
// top-level values in arrival order. Nested arrays and objects never cause an
// early emission.
package jsonstream

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"iter"

	"github.com/wagiedev/vim-channel-go/internal/errors"
)

// Marshal returns the JSON encoding of v as a single chunk without a trailing
// newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// Encoder writes one chunk per value to an io.Writer.
type Encoder struct {
	w io.Writer
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes the JSON encoding of v with a single Write call.
func (e *Encoder) Encode(v any) error {
	data, err := Marshal(v)
	if err != nil {
		return err
	}

	_, err = e.w.Write(data)

	return err
}

// Decoder reads top-level JSON values from an io.Reader.
//
// Numbers are decoded as json.Number so integer ids keep their full range.
type Decoder struct {
	dec  *json.Decoder
	base int64
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	return &Decoder{dec: dec}
}

// Resume returns a Decoder that continues where d stopped, reading first the
// bytes d had buffered but not consumed and then r. Offsets keep counting from
// the start of d's input. d must not be used afterwards.
func (d *Decoder) Resume(r io.Reader) *Decoder {
	var rest bytes.Buffer

	_, _ = rest.ReadFrom(d.dec.Buffered())

	next := NewDecoder(io.MultiReader(&rest, r))
	next.base = d.base + d.dec.InputOffset()

	return next
}

// Decode returns the next top-level value.
//
// It returns io.EOF when the input ends cleanly between values. Malformed
// input, including input that ends in the middle of a value, is reported as a
// *errors.DecodeError. Once Decode fails the Decoder keeps returning the same
// error.
func (d *Decoder) Decode() (any, error) {
	var v any

	err := d.dec.Decode(&v)
	if err == nil {
		return v, nil
	}

	if err == io.EOF {
		return nil, io.EOF
	}

	if syntaxErr, ok := stderrors.AsType[*json.SyntaxError](err); ok {
		return nil, &errors.DecodeError{Offset: d.base + syntaxErr.Offset, Err: err}
	}

	if err == io.ErrUnexpectedEOF {
		return nil, &errors.DecodeError{Offset: d.base + d.dec.InputOffset(), Err: err}
	}

	// Reader failure; not a decode problem.
	return nil, err
}

// Values returns an iterator over the remaining values of d.
// Iteration stops silently at io.EOF; any other error is yielded once.
func Values(d *Decoder) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		for {
			v, err := d.Decode()
			if err == io.EOF {
				return
			}

			if err != nil {
				yield(nil, err)

				return
			}

			if !yield(v, nil) {
				return
			}
		}
	}
}

// DecodeChunks decodes values from a sequence of byte chunks. A value may span
// several chunks and a chunk may hold several values.
func DecodeChunks(chunks iter.Seq[[]byte]) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		next, stop := iter.Pull(chunks)
		defer stop()

		for v, err := range Values(NewDecoder(&chunkReader{next: next})) {
			if !yield(v, err) {
				return
			}
		}
	}
}

// chunkReader adapts a pull iterator of chunks to io.Reader.
type chunkReader struct {
	next func() ([]byte, bool)
	buf  []byte
}

func (r *chunkReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		chunk, ok := r.next()
		if !ok {
			return 0, io.EOF
		}

		r.buf = chunk
	}

	n := copy(p, r.buf)
	r.buf = r.buf[n:]

	return n, nil
}
