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

package flow

import "fmt"

const (
	// DefaultRows and DefaultCols are the preview resolution the
	// estimator was tuned for.
	DefaultRows = 480
	DefaultCols = 640
)

// Frame is a single channel brightness image with values in [0, 1],
// stored row-major.
type Frame struct {
	Rows int
	Cols int
	Pix  []float32
}

// NewFrame returns a zeroed frame.
func NewFrame(rows, cols int) *Frame {
	return &Frame{
		Rows: rows,
		Cols: cols,
		Pix:  make([]float32, rows*cols),
	}
}

func (f *Frame) At(i, j int) float32 {
	return f.Pix[i*f.Cols+j]
}

func (f *Frame) Set(i, j int, v float32) {
	f.Pix[i*f.Cols+j] = v
}

// Fill sets every pixel to v.
func (f *Frame) Fill(v float32) {
	for i := range f.Pix {
		f.Pix[i] = v
	}
}

// Copy overwrites f with the contents of src. The frames must have the
// same dimensions.
func (f *Frame) Copy(src *Frame) error {
	if err := f.checkShape(src); err != nil {
		return err
	}
	copy(f.Pix, src.Pix)
	return nil
}

// checkShape checks that other has the same dimensions as f and that
// its pixels fill them.
func (f *Frame) checkShape(other *Frame) error {
	if other.Rows != f.Rows || other.Cols != f.Cols || len(other.Pix) != f.Rows*f.Cols {
		return &ShapeError{
			WantRows:  f.Rows,
			WantCols:  f.Cols,
			GotRows:   other.Rows,
			GotCols:   other.Cols,
			GotPixels: len(other.Pix),
		}
	}
	return nil
}

// ShapeError is returned when a frame doesn't match the dimensions the
// estimator was configured with. The frame is not processed.
type ShapeError struct {
	WantRows int
	WantCols int
	GotRows  int
	GotCols  int
	// GotPixels is the length of the frame's pixel slice, when known.
	GotPixels int
}

func (e *ShapeError) Error() string {
	if e.GotRows == e.WantRows && e.GotCols == e.WantCols {
		return fmt.Sprintf("frame is %dx%d but has %d pixels", e.GotRows, e.GotCols, e.GotPixels)
	}
	return fmt.Sprintf("frame is %dx%d, expected %dx%d", e.GotRows, e.GotCols, e.WantRows, e.WantCols)
}

// Size is an image resolution.
type Size struct {
	Rows int
	Cols int
}

func (s Size) Pixels() int {
	return s.Rows * s.Cols
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Cols, s.Rows)
}

// NearestSize returns the size whose pixel count is closest to pixels.
// Ties go to the earlier size. The zero Size is returned if sizes is
// empty.
func NearestSize(sizes []Size, pixels int) Size {
	var best Size
	bestDiff := -1
	for _, s := range sizes {
		diff := s.Pixels() - pixels
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best = s
			bestDiff = diff
		}
	}
	return best
}
