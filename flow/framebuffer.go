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

// NewFrameBuffer returns a FrameBuffer whose previous frame starts out
// as all zeros.
func NewFrameBuffer(rows, cols int) *FrameBuffer {
	return &FrameBuffer{
		current:  NewFrame(rows, cols),
		previous: NewFrame(rows, cols),
	}
}

// FrameBuffer holds the current and previous brightness frames. Both
// frames are allocated once and reused: Update swaps them and
// overwrites the old previous frame with the new one.
type FrameBuffer struct {
	current  *Frame
	previous *Frame
	updates  int
}

// Update stores frame as the current frame, keeping the old current
// frame as previous. The buffer is left unchanged if frame has the
// wrong shape.
func (fb *FrameBuffer) Update(frame *Frame) error {
	if err := fb.previous.checkShape(frame); err != nil {
		return err
	}
	fb.current, fb.previous = fb.previous, fb.current
	copy(fb.current.Pix, frame.Pix)
	fb.updates++
	return nil
}

// Current returns the most recent frame.
// Note: the returned frame is overwritten by the next-but-one Update.
func (fb *FrameBuffer) Current() *Frame {
	return fb.current
}

// Previous returns the frame before Current, or a zero frame before the
// second Update.
func (fb *FrameBuffer) Previous() *Frame {
	return fb.previous
}

// Updates returns how many frames have been stored.
func (fb *FrameBuffer) Updates() int {
	return fb.updates
}

func (fb *FrameBuffer) Rows() int {
	return fb.current.Rows
}

func (fb *FrameBuffer) Cols() int {
	return fb.current.Cols
}
