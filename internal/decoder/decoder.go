// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package decoder turns a stream of arbitrary byte chunks into text.
//
// Network chunk boundaries do not respect character boundaries: a single
// multi-byte UTF-8 character may arrive split across two or more chunks.
// The Decoder holds back an incomplete trailing sequence until the bytes
// that complete it arrive, so every string it returns is valid UTF-8 and
// the concatenation of all returned strings equals the decoding of the
// concatenated input.
package decoder

import (
	"context"
	"io"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder is a stateful UTF-8 chunk decoder. Invalid sequences decode to
// U+FFFD. A Decoder is not safe for concurrent use.
type Decoder struct {
	t       transform.Transformer
	pending []byte
	buf     []byte
}

// New creates a Decoder.
func New() *Decoder {
	return &Decoder{t: unicode.UTF8.NewDecoder()}
}

// Decode consumes chunk and returns all text that is now complete.
// It may return "" when chunk only contained part of a character.
func (d *Decoder) Decode(chunk []byte) string {
	d.pending = append(d.pending, chunk...)
	return d.drain(false)
}

// Flush returns any held-back bytes as replacement characters and resets
// the decoder for reuse.
func (d *Decoder) Flush() string {
	out := d.drain(true)
	d.pending = d.pending[:0]
	d.t.Reset()
	return out
}

// Pending reports how many bytes are held back waiting for completion.
func (d *Decoder) Pending() int {
	return len(d.pending)
}

func (d *Decoder) drain(atEOF bool) string {
	if len(d.pending) == 0 {
		return ""
	}

	// Each invalid byte can expand to a 3-byte U+FFFD.
	if need := 3*len(d.pending) + utf8.UTFMax; cap(d.buf) < need {
		d.buf = make([]byte, need)
	}
	dst := d.buf[:cap(d.buf)]

	var out strings.Builder
	for {
		nDst, nSrc, err := d.t.Transform(dst, d.pending, atEOF)
		out.Write(dst[:nDst])
		d.pending = d.pending[nSrc:]
		if err == transform.ErrShortDst && nSrc > 0 {
			continue
		}
		// nil or ErrShortSrc: the remainder is an incomplete sequence.
		break
	}

	// Copy out so pending never aliases the output buffer.
	d.pending = append([]byte(nil), d.pending...)
	return out.String()
}

// =============================================================================
// STREAMING
// =============================================================================

// DefaultChunkSize is the read size used by Fragments.
const DefaultChunkSize = 4096

// Fragments lazily reads r and yields decoded text as it becomes available.
//
// The next read is issued only after the consumer returns from the previous
// yield. End of input ends the sequence after flushing. A read error or a
// cancelled context yields ("", err) once and ends the sequence.
func Fragments(ctx context.Context, r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		dec := New()
		buf := make([]byte, DefaultChunkSize)

		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}

			n, err := r.Read(buf)
			if n > 0 {
				if text := dec.Decode(buf[:n]); text != "" {
					if !yield(text, nil) {
						return
					}
				}
			}

			if err == io.EOF {
				if text := dec.Flush(); text != "" {
					yield(text, nil)
				}
				return
			}
			if err != nil {
				yield("", errors.Wrap(err, "read stream"))
				return
			}
		}
	}
}

// ReadAll drains r through a Decoder and returns the full text.
func ReadAll(ctx context.Context, r io.Reader) (string, error) {
	var sb strings.Builder
	for text, err := range Fragments(ctx, r) {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(text)
	}
	return sb.String(), nil
}
