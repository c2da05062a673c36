// Copyright (c) 2024 LevelGraph Go Contributors
//
// Permission is hereby granted, free of charge, to any person
// obtaining a copy of this software and associated documentation
// files (the "Software"), to deal in the Software without
// restriction, including without limitation the rights to use,
// copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the
// Software is furnished to do so, subject to the following
// conditions:
//
// The above copyright notice and this permission notice shall be
// included in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES
// OF MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
// NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT
// HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY,
// WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

// Package persist implements the on-disk vector file format (spec.md
// §4.H, §6): a fixed 40-byte header followed by a contiguous run of
// fixed-width vector records. Only the vectors currently alive in an
// index are ever written; the graph itself is never serialized (see
// DESIGN.md's open-question resolution — rebuilding on import is
// cheaper and safer than trusting a persisted, possibly stale, graph).
package persist

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/benbenbenbenbenben/annidx/pkg/annerr"
	"github.com/benbenbenbenbenben/annidx/pkg/hnsw"
)

// Magic identifies an annidx vector file. Stored little-endian like
// every other header field, so on-disk this reads as the ASCII bytes
// "XNNA".
const Magic uint32 = 0x414e4e58

// HeaderSize is the fixed size in bytes of the file header.
const HeaderSize = 40

const (
	FormatMajor uint8 = 1
	FormatMinor uint8 = 0
	FormatPatch uint8 = 0
)

// Header is the fixed-layout file header spec.md §6 requires before
// any vector record.
type Header struct {
	Magic       uint32
	Major       uint8
	Minor       uint8
	Patch       uint8
	OnlyVectors uint8
	HSize       uint32
	Elements    uint64
	Method      uint16
	Dims        uint16
	DimsAligned uint16
	VSize       uint32
	NSize       uint32
	VOff        uint32
	NOff        uint16
}

// vsize returns 16 (id + tag) plus 4 bytes per aligned dimension.
func vsize(dimsAligned int) uint32 {
	return 16 + uint32(dimsAligned)*4
}

// WriteFile writes method/dims/records to path in the spec.md §6 binary
// format. Only alive records should be passed in; the format has no
// notion of tombstones.
func WriteFile(path string, method uint16, dims, dimsAligned int, records []hnsw.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return annerr.Wrap("persist.write_file", annerr.FileIOError, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	h := Header{
		Magic:       Magic,
		Major:       FormatMajor,
		Minor:       FormatMinor,
		Patch:       FormatPatch,
		OnlyVectors: 1,
		HSize:       HeaderSize,
		Elements:    uint64(len(records)),
		Method:      method,
		Dims:        uint16(dims),
		DimsAligned: uint16(dimsAligned),
		VSize:       vsize(dimsAligned),
		NSize:       0,
		VOff:        HeaderSize,
		NOff:        0,
	}
	if err := writeHeader(w, h); err != nil {
		return annerr.Wrap("persist.write_file", annerr.FileIOError, err)
	}
	for _, rec := range records {
		if err := writeRecord(w, rec, dimsAligned); err != nil {
			return annerr.Wrap("persist.write_file", annerr.FileIOError, err)
		}
	}
	if err := w.Flush(); err != nil {
		return annerr.Wrap("persist.write_file", annerr.FileIOError, err)
	}
	return nil
}

func writeHeader(w io.Writer, h Header) error {
	fields := []any{
		h.Magic, h.Major, h.Minor, h.Patch, h.OnlyVectors,
		h.HSize, h.Elements, h.Method, h.Dims, h.DimsAligned,
		h.VSize, h.NSize, h.VOff, h.NOff,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return err
		}
	}
	return nil
}

func writeRecord(w io.Writer, rec hnsw.Record, dimsAligned int) error {
	if err := binary.Write(w, binary.LittleEndian, rec.ID); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, rec.Tag); err != nil {
		return err
	}
	values := rec.Values
	if len(values) < dimsAligned {
		padded := make([]float32, dimsAligned)
		copy(padded, values)
		values = padded
	}
	return binary.Write(w, binary.LittleEndian, values[:dimsAligned])
}

// ReadFile parses path back into a header and its vector records,
// validating the magic number and declared sizes before trusting the
// element count (spec.md §6, §7 INVALID_FILE).
func ReadFile(path string) (Header, []hnsw.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, nil, annerr.Wrap("persist.read_file", annerr.FileIOError, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	h, err := readHeader(r)
	if err != nil {
		return Header{}, nil, err
	}
	if h.Magic != Magic {
		return Header{}, nil, annerr.New("persist.read_file", annerr.InvalidFile)
	}
	if h.HSize != HeaderSize {
		return Header{}, nil, annerr.New("persist.read_file", annerr.InvalidFile)
	}
	if h.VSize != vsize(int(h.DimsAligned)) {
		return Header{}, nil, annerr.New("persist.read_file", annerr.InvalidFile)
	}

	records := make([]hnsw.Record, 0, h.Elements)
	for i := uint64(0); i < h.Elements; i++ {
		rec, err := readRecord(r, int(h.DimsAligned))
		if err != nil {
			return Header{}, nil, annerr.Wrap("persist.read_file", annerr.InvalidFile, err)
		}
		records = append(records, rec)
	}
	return h, records, nil
}

func readHeader(r io.Reader) (Header, error) {
	var h Header
	fields := []any{
		&h.Magic, &h.Major, &h.Minor, &h.Patch, &h.OnlyVectors,
		&h.HSize, &h.Elements, &h.Method, &h.Dims, &h.DimsAligned,
		&h.VSize, &h.NSize, &h.VOff, &h.NOff,
	}
	for _, f := range fields {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return Header{}, annerr.Wrap("persist.read_header", annerr.InvalidFile, err)
		}
	}
	return h, nil
}

func readRecord(r io.Reader, dimsAligned int) (hnsw.Record, error) {
	var rec hnsw.Record
	if err := binary.Read(r, binary.LittleEndian, &rec.ID); err != nil {
		return rec, err
	}
	if err := binary.Read(r, binary.LittleEndian, &rec.Tag); err != nil {
		return rec, err
	}
	rec.Values = make([]float32, dimsAligned)
	if err := binary.Read(r, binary.LittleEndian, rec.Values); err != nil {
		return rec, err
	}
	return rec, nil
}
