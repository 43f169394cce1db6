// ttc-estimator - estimate time to collision from camera frames
//  Copyright (C) 2020, The Cacophony Project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package capture records raw camera frames to disk so they can be
// replayed through the estimator later.
//
// A capture file is a magic string and version byte, a header section
// and then one section per frame. Sections are a section byte followed
// by CPTV encoded fields. Frame sections are followed by the raw frame
// bytes.
package capture

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/TheCacophonyProject/go-cptv"
	"github.com/google/uuid"

	"github.com/TheCacophonyProject/ttc-estimator/flow"
	"github.com/TheCacophonyProject/ttc-estimator/headers"
)

const (
	magic        = "TTCR"
	version byte = 0x01

	headerSection = 'H'
	frameSection  = 'F'

	// Field keys not defined by go-cptv.
	fpsField       byte = 'r'
	sessionHiField byte = 'S'
	sessionLoField byte = 's'

	FileExt = ".ttcraw"
)

// Header describes the frames in a capture file.
type Header struct {
	Timestamp time.Time
	Size      flow.Size
	FPS       int
	Session   uuid.UUID
}

// NewWriter writes a capture header to w and returns a Writer ready
// for frames.
func NewWriter(w io.WriteCloser, header *Header) (*Writer, error) {
	if header.FPS < 0 {
		return nil, fmt.Errorf("invalid fps %d", header.FPS)
	}
	fields := cptv.NewFieldWriter()
	fields.Timestamp(cptv.Timestamp, header.Timestamp)
	fields.Uint32(cptv.XResolution, uint32(header.Size.Cols))
	fields.Uint32(cptv.YResolution, uint32(header.Size.Rows))
	fields.Uint32(fpsField, uint32(header.FPS))
	fields.Uint64(sessionHiField, binary.BigEndian.Uint64(header.Session[:8]))
	fields.Uint64(sessionLoField, binary.BigEndian.Uint64(header.Session[8:]))

	fieldData, numFields := fields.Bytes()
	_, err := w.Write(append([]byte(magic), version, headerSection, byte(numFields)))
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(fieldData); err != nil {
		return nil, err
	}
	return &Writer{w: w}, nil
}

// Writer handles the low-level construction of capture frame sections.
type Writer struct {
	w      io.WriteCloser
	frames int
}

func (w *Writer) WriteFrame(t time.Time, frame []byte) error {
	fields := cptv.NewFieldWriter()
	fields.Timestamp(cptv.Timestamp, t)
	fields.Uint32(cptv.FrameSize, uint32(len(frame)))
	fieldData, numFields := fields.Bytes()

	if _, err := w.w.Write([]byte{frameSection, byte(numFields)}); err != nil {
		return err
	}
	if _, err := w.w.Write(fieldData); err != nil {
		return err
	}
	if _, err := w.w.Write(frame); err != nil {
		return err
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written.
func (w *Writer) Frames() int {
	return w.frames
}

func (w *Writer) Close() error {
	return w.w.Close()
}

// NewFileWriter creates a new capture file in dir for frames
// described by h.
func NewFileWriter(dir string, t time.Time, h *headers.HeaderInfo, session uuid.UUID) (*Writer, error) {
	name := filepath.Join(dir, t.Format("2006_01_02T15_04_05")+FileExt)
	f, err := newBufferedFile(name)
	if err != nil {
		return nil, err
	}
	log.Println("capturing to", name)
	w, err := NewWriter(f, &Header{
		Timestamp: t,
		Size:      h.Size(),
		FPS:       h.FPS(),
		Session:   session,
	})
	if err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

// NewReader reads the capture header from r.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	start := make([]byte, len(magic)+2)
	if _, err := io.ReadFull(br, start); err != nil {
		return nil, fmt.Errorf("reading capture header: %w", err)
	}
	if string(start[:len(magic)]) != magic {
		return nil, errors.New("not a capture file")
	}
	if start[len(magic)] != version {
		return nil, fmt.Errorf("unsupported capture version %d", start[len(magic)])
	}
	if start[len(magic)+1] != headerSection {
		return nil, errors.New("header section not found")
	}

	fields, err := cptv.ReadFields(br)
	if err != nil {
		return nil, fmt.Errorf("reading capture header: %w", err)
	}
	header, err := parseHeader(fields)
	if err != nil {
		return nil, err
	}
	return &Reader{r: br, header: header}, nil
}

func parseHeader(fields cptv.Fields) (*Header, error) {
	ts, err := fields.Timestamp(cptv.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("timestamp: %w", err)
	}
	cols, err := fields.Uint32(cptv.XResolution)
	if err != nil {
		return nil, fmt.Errorf("x resolution: %w", err)
	}
	rows, err := fields.Uint32(cptv.YResolution)
	if err != nil {
		return nil, fmt.Errorf("y resolution: %w", err)
	}
	h := &Header{
		Timestamp: ts,
		Size:      flow.Size{Rows: int(rows), Cols: int(cols)},
	}
	if fps, err := fields.Uint32(fpsField); err == nil {
		h.FPS = int(fps)
	}
	hi, errHi := fields.Uint64(sessionHiField)
	lo, errLo := fields.Uint64(sessionLoField)
	if errHi == nil && errLo == nil {
		binary.BigEndian.PutUint64(h.Session[:8], hi)
		binary.BigEndian.PutUint64(h.Session[8:], lo)
	}
	return h, nil
}

// Reader reads frames back from a capture file.
type Reader struct {
	r      *bufio.Reader
	header *Header
}

func (r *Reader) Header() *Header {
	return r.header
}

// ReadFrame reads the next frame into buf, growing it if needed, and
// returns the frame and the time it was captured. io.EOF is returned
// after the last frame.
func (r *Reader) ReadFrame(buf []byte) ([]byte, time.Time, error) {
	section, err := r.r.ReadByte()
	if err != nil {
		return nil, time.Time{}, err
	}
	if section != frameSection {
		return nil, time.Time{}, fmt.Errorf("unexpected section %q", section)
	}
	fields, err := cptv.ReadFields(r.r)
	if err != nil {
		return nil, time.Time{}, noEOF(err)
	}
	size, err := fields.Uint32(cptv.FrameSize)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("frame size: %w", err)
	}
	ts, err := fields.Timestamp(cptv.Timestamp)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("frame timestamp: %w", err)
	}

	if cap(buf) < int(size) {
		buf = make([]byte, size)
	}
	buf = buf[:size]
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return nil, time.Time{}, noEOF(err)
	}
	return buf, ts, nil
}

// A section cut short is a truncated file, not the end of it.
func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// OpenFile opens a capture file for reading.
func OpenFile(name string) (*Reader, io.Closer, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return r, f, nil
}
