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

// Package yuv decodes the luma plane of YUV420SP (NV21) camera frames
// into brightness frames.
package yuv

import (
	"fmt"

	"github.com/TheCacophonyProject/ttc-estimator/flow"
)

const (
	// Luma values below blackLevel are treated as black.
	blackLevel = 16
	maxLevel   = 255
)

// FrameSize returns the number of bytes in an NV21 frame: a full
// resolution luma plane followed by interleaved half resolution chroma.
func FrameSize(rows, cols int) int {
	return rows * cols * 3 / 2
}

// LengthError is returned when a raw frame isn't the size of an NV21
// frame for the expected resolution.
type LengthError struct {
	Want int
	Got  int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("raw frame is %d bytes, expected %d", e.Got, e.Want)
}

// DecodeLuma writes the brightness of each pixel of raw into f, in
// the range [0, 1]. The chroma plane is ignored.
func DecodeLuma(raw []byte, f *flow.Frame) error {
	want := FrameSize(f.Rows, f.Cols)
	if len(raw) != want {
		return &LengthError{Want: want, Got: len(raw)}
	}
	for i := range f.Pix {
		y := int(raw[i]) - blackLevel
		if y < 0 {
			y = 0
		}
		f.Pix[i] = float32(y) / maxLevel
	}
	return nil
}

// Parser returns a flow.FrameParser for the given pixel format.
func Parser(pixelFormat string) (flow.FrameParser, error) {
	switch pixelFormat {
	case "", "nv21", "yuv420sp":
		return DecodeLuma, nil
	}
	return nil, fmt.Errorf("unsupported pixel format %q", pixelFormat)
}
