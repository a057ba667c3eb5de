/*
Copyright (C) 2026  vbase contributors

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package journal implements the block-framed log file format: a sequence
// of fixed 32KiB blocks, each holding one or more fragments of a record.
// The wire format is the same one LevelDB/Pebble call a "record" file;
// Writer and Reader here expose it as an explicit Begin/Append/Finish
// lifecycle instead of the io.Writer-per-record style, since the core
// coordinator needs to interleave a single varint-LSN write into an
// otherwise opaque batch payload.
package journal

import (
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/nyotadb/vbase/internal/verrors"
	"github.com/nyotadb/vbase/internal/vbaseio"
)

const (
	fullKind   = 1
	firstKind  = 2
	middleKind = 3
	lastKind   = 4
)

const (
	blockSize  = 32 * 1024
	headerSize = 7

	writeBufBlocks = 32
	writeBufSize   = writeBufBlocks * blockSize
)

// crcTable uses the IEEE polynomial, same as the standard library default;
// there is no third-party crc32 implementation in the dependency set, and
// hash/crc32 is the one piece of this package that stays on stdlib.
var crcTable = crc32.IEEETable

func checksum(kindAndData []byte) uint32 {
	return crc32.Checksum(kindAndData, crcTable)
}

// Writer appends records to a vbaseio.SequentialWriter, fragmenting them
// across 32KiB blocks as needed. A single write() syscall batches up to
// writeBufSize (1 MiB) worth of completed fragments.
type Writer struct {
	name string
	w    vbaseio.SequentialWriter

	buf [writeBufSize]byte
	pos int // next free byte in buf; buf[:pos] is unflushed but complete

	blockOff int // offset within the current 32KiB block, independent of pos/flush resets

	fragStart int  // buf offset of the current pending fragment's header
	pending   bool // a fragment header is reserved but not yet finalized
	first     bool // the pending fragment is the first of its record

	flushed int64 // bytes already handed to w.Write
	err     error
}

// NewWriter wraps w. name is used only to decorate Corrupted/Io errors.
func NewWriter(name string, w vbaseio.SequentialWriter) *Writer {
	return &Writer{name: name, w: w}
}

// Begin starts a new record. It is an error to call Begin while a previous
// record has not been Finish-ed.
func (w *Writer) Begin() error {
	if w.err != nil {
		return w.err
	}
	if w.pending {
		return verrors.InvalidArgument("journal: Begin called with a record already open")
	}
	w.first = true
	return nil
}

// reserveFragment pads to a new block if fewer than headerSize bytes remain
// in the current one, then reserves headerSize bytes for the new fragment's
// header. Both steps may need to flush the write buffer first.
func (w *Writer) reserveFragment() {
	if w.err != nil {
		return
	}
	if remaining := blockSize - w.blockOff; remaining < headerSize {
		if w.pos+remaining > writeBufSize {
			w.flushBuffer()
			if w.err != nil {
				return
			}
		}
		for k := 0; k < remaining; k++ {
			w.buf[w.pos+k] = 0
		}
		w.pos += remaining
		w.blockOff = 0
	}
	if w.pos+headerSize > writeBufSize {
		w.flushBuffer()
		if w.err != nil {
			return
		}
	}
	w.fragStart = w.pos
	w.pos += headerSize
	w.blockOff += headerSize
	w.pending = true
}

// fillHeader finalizes the pending fragment's header in place.
func (w *Writer) fillHeader(last bool) {
	var kind byte
	switch {
	case last && w.first:
		kind = fullKind
	case last:
		kind = lastKind
	case w.first:
		kind = firstKind
	default:
		kind = middleKind
	}
	data := w.buf[w.fragStart+headerSize : w.pos]
	w.buf[w.fragStart+6] = kind
	crcInput := w.buf[w.fragStart+6 : w.pos]
	binary.LittleEndian.PutUint32(w.buf[w.fragStart:w.fragStart+4], checksum(crcInput))
	binary.LittleEndian.PutUint16(w.buf[w.fragStart+4:w.fragStart+6], uint16(len(data)))
	w.pending = false
	if !last {
		w.first = false
	}
}

func (w *Writer) flushBuffer() {
	if w.err != nil || w.pos == 0 {
		return
	}
	if _, err := w.w.Write(w.buf[:w.pos]); err != nil {
		w.err = verrors.IO(w.name, err)
		return
	}
	w.flushed += int64(w.pos)
	w.pos = 0
}

// Append writes the next chunk of data belonging to the currently open
// record. A single call may be split across several fragments if it
// crosses a block or write-buffer boundary.
func (w *Writer) Append(p []byte) (int, error) {
	if w.err != nil {
		return 0, w.err
	}
	if !w.pending {
		w.reserveFragment()
		if w.err != nil {
			return 0, w.err
		}
	}
	n0 := len(p)
	for len(p) > 0 {
		avail := blockSize - w.blockOff
		if avail <= 0 || w.pos+avail > writeBufSize {
			w.fillHeader(false)
			w.reserveFragment()
			if w.err != nil {
				return n0 - len(p), w.err
			}
			avail = blockSize - w.blockOff
		}
		n := avail
		if n > len(p) {
			n = len(p)
		}
		if w.pos+n > writeBufSize {
			n = writeBufSize - w.pos
		}
		copy(w.buf[w.pos:], p[:n])
		w.pos += n
		w.blockOff += n
		p = p[n:]
	}
	return n0, nil
}

// Finish closes the current record, writing its final fragment header
// (kind Full or Last).
func (w *Writer) Finish() error {
	if w.err != nil {
		return w.err
	}
	if !w.pending {
		// Append was never called: an empty record is still a legal
		// zero-length Full fragment.
		w.reserveFragment()
		if w.err != nil {
			return w.err
		}
	}
	w.fillHeader(true)
	return nil
}

// Flush closes the in-progress fragment early (as non-last) if one is
// open, and writes all complete fragments to the underlying writer. A
// subsequent Append resumes the same record as additional fragments. Per
// the format, a flush may only occur between fragments, which this
// guarantees by force-closing the pending one first.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if w.pending {
		w.fillHeader(false)
	}
	w.flushBuffer()
	return w.err
}

// Sync flushes then forwards to the underlying writer's Sync.
func (w *Writer) Sync() error {
	if err := w.Flush(); err != nil {
		return err
	}
	if err := w.w.Sync(); err != nil {
		w.err = verrors.IO(w.name, err)
		return w.err
	}
	return nil
}

// Size reports the logical size written so far, including the header
// bytes of any in-progress fragment.
func (w *Writer) Size() int64 {
	return w.flushed + int64(w.pos)
}

// Close flushes and closes the underlying writer.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.w.Close()
		return err
	}
	return w.w.Close()
}

// Reader reads records written by Writer. Next returns one record's bytes
// at a time; it is not safe for concurrent use.
type Reader struct {
	name string
	r    io.Reader

	buf        [blockSize]byte
	i, j, n    int
	started    bool
	recovering bool
}

func NewReader(name string, r io.Reader) *Reader {
	return &Reader{name: name, r: r}
}

func (r *Reader) corrupted(message string) error {
	return verrors.Corrupted(r.name, message)
}

// nextChunk advances r.buf[r.i:r.j] to the next chunk's payload and returns
// its kind, refilling the block buffer from r.r as needed.
func (r *Reader) nextChunk(wantFirst bool) (kind byte, err error) {
	for {
		if r.j+headerSize <= r.n {
			crcGot := binary.LittleEndian.Uint32(r.buf[r.j : r.j+4])
			length := binary.LittleEndian.Uint16(r.buf[r.j+4 : r.j+6])
			k := r.buf[r.j+6]

			if crcGot == 0 && length == 0 && k == 0 {
				if !wantFirst {
					return 0, r.corrupted("unexpected zero padding mid-record")
				}
				// Trailing zero padding to the end of a block.
				r.j = r.n
				continue
			}

			start := r.j + headerSize
			end := start + int(length)
			if end > r.n {
				return 0, r.corrupted("fragment length overflows block")
			}
			if crcGot != checksum(r.buf[r.j+6:end]) {
				return 0, r.corrupted("checksum mismatch")
			}
			if wantFirst && k != fullKind && k != firstKind {
				return 0, r.corrupted("expected first fragment of a record")
			}
			if !wantFirst && (k == fullKind || k == firstKind) {
				return 0, r.corrupted("unexpected start of a new record mid-fragment")
			}
			r.i, r.j = start, end
			return k, nil
		}
		if r.started && r.j != r.n {
			if r.n < blockSize {
				return 0, r.corrupted("truncated fragment header")
			}
			// Fewer than headerSize bytes left in a full block: the
			// writer's zero padding, skipped like the longer kind above.
			r.j = r.n
		}
		n, err := io.ReadFull(r.r, r.buf[:])
		switch err {
		case nil:
			// Full blockSize block read.
		case io.ErrUnexpectedEOF:
			// Legal short final block.
		case io.EOF:
			if !wantFirst {
				return 0, r.corrupted("truncated mid-record")
			}
			return 0, io.EOF
		default:
			return 0, verrors.IO(r.name, err)
		}
		r.i, r.j, r.n = 0, 0, n
		r.started = true
	}
}

// Next returns the next record's bytes, or io.EOF when the journal is
// exhausted.
func (r *Reader) Next() ([]byte, error) {
	kind, err := r.nextChunk(true)
	if err != nil {
		return nil, err
	}
	var out []byte
	out = append(out, r.buf[r.i:r.j]...)
	for kind != fullKind && kind != lastKind {
		kind, err = r.nextChunk(false)
		if err != nil {
			return nil, err
		}
		out = append(out, r.buf[r.i:r.j]...)
	}
	return out, nil
}
