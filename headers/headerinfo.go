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

package headers

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v1"

	"github.com/TheCacophonyProject/ttc-estimator/flow"
)

// Keys in the header block a camera sends before its frames.
const (
	XResolution    = "ResX"
	YResolution    = "ResY"
	FPS            = "FPS"
	FrameSize      = "FrameSize"
	Brand          = "Brand"
	Model          = "Model"
	PixelFormat    = "PixelFormat"
	SupportedSizes = "SupportedSizes"
)

// HeaderInfo contains the camera description fields returned by a
// camera service.
type HeaderInfo struct {
	resX           int
	resY           int
	fps            int
	framesize      int
	brand          string
	model          string
	pixelFormat    string
	supportedSizes []flow.Size
}

func (h *HeaderInfo) ResX() int {
	return h.resX
}

func (h *HeaderInfo) ResY() int {
	return h.resY
}

func (h *HeaderInfo) FPS() int {
	return h.fps
}

// FrameSize returns the number of bytes in each frame.
func (h *HeaderInfo) FrameSize() int {
	return h.framesize
}

// Model returns the camera model.
func (h *HeaderInfo) Model() string {
	return h.model
}

// Brand returns the camera brand.
func (h *HeaderInfo) Brand() string {
	return h.brand
}

// PixelFormat returns the frame encoding, eg. "nv21".
func (h *HeaderInfo) PixelFormat() string {
	return h.pixelFormat
}

// SupportedSizes returns the preview sizes the camera offers, if it
// said.
func (h *HeaderInfo) SupportedSizes() []flow.Size {
	return h.supportedSizes
}

// Size returns the frame resolution.
func (h *HeaderInfo) Size() flow.Size {
	return flow.Size{Rows: h.resY, Cols: h.resX}
}

func ReadHeaderInfo(reader *bufio.Reader) (*HeaderInfo, error) {
	var buf bytes.Buffer
	for {
		line, err := reader.ReadString(byte('\n'))
		if err != nil {
			return nil, err
		}
		if strings.Trim(line, " \r") == "\n" {
			break
		}
		buf.WriteString(line)
	}
	h := make(map[string]interface{})
	err := yaml.Unmarshal(buf.Bytes(), &h)
	if err != nil {
		return nil, err
	}

	info := &HeaderInfo{
		resX:        toInt(h[XResolution]),
		resY:        toInt(h[YResolution]),
		fps:         toInt(h[FPS]),
		framesize:   toInt(h[FrameSize]),
		brand:       toStr(h[Brand]),
		model:       toStr(h[Model]),
		pixelFormat: toStr(h[PixelFormat]),
	}
	if sizes, ok := h[SupportedSizes].([]interface{}); ok {
		for _, s := range sizes {
			size, err := ParseSize(toStr(s))
			if err != nil {
				return nil, err
			}
			info.supportedSizes = append(info.supportedSizes, size)
		}
	}
	if info.resX <= 0 || info.resY <= 0 {
		return nil, fmt.Errorf("invalid resolution %dx%d", info.resX, info.resY)
	}
	return info, nil
}

// WriteHeaderInfo writes h as a header block, terminated by a blank
// line.
func WriteHeaderInfo(w io.Writer, h *HeaderInfo) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s: %d\n", XResolution, h.resX)
	fmt.Fprintf(&buf, "%s: %d\n", YResolution, h.resY)
	fmt.Fprintf(&buf, "%s: %d\n", FPS, h.fps)
	fmt.Fprintf(&buf, "%s: %d\n", FrameSize, h.framesize)
	if h.brand != "" {
		fmt.Fprintf(&buf, "%s: %q\n", Brand, h.brand)
	}
	if h.model != "" {
		fmt.Fprintf(&buf, "%s: %q\n", Model, h.model)
	}
	if h.pixelFormat != "" {
		fmt.Fprintf(&buf, "%s: %s\n", PixelFormat, h.pixelFormat)
	}
	if len(h.supportedSizes) > 0 {
		fmt.Fprintf(&buf, "%s:\n", SupportedSizes)
		for _, s := range h.supportedSizes {
			fmt.Fprintf(&buf, "  - %s\n", s)
		}
	}
	buf.WriteString("\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// New returns a HeaderInfo for an NV21 camera of the given size.
func New(size flow.Size, fps, frameSize int, brand, model string) *HeaderInfo {
	return &HeaderInfo{
		resX:        size.Cols,
		resY:        size.Rows,
		fps:         fps,
		framesize:   frameSize,
		brand:       brand,
		model:       model,
		pixelFormat: "nv21",
	}
}

// WithSupportedSizes sets the sizes offered by the camera.
func (h *HeaderInfo) WithSupportedSizes(sizes []flow.Size) *HeaderInfo {
	h.supportedSizes = sizes
	return h
}

// ParseSize parses a "<cols>x<rows>" size.
func ParseSize(s string) (flow.Size, error) {
	parts := strings.Split(strings.TrimSpace(s), "x")
	if len(parts) != 2 {
		return flow.Size{}, fmt.Errorf("invalid size %q", s)
	}
	cols, err := strconv.Atoi(parts[0])
	if err != nil {
		return flow.Size{}, fmt.Errorf("invalid size %q", s)
	}
	rows, err := strconv.Atoi(parts[1])
	if err != nil {
		return flow.Size{}, fmt.Errorf("invalid size %q", s)
	}
	return flow.Size{Rows: rows, Cols: cols}, nil
}

func toInt(v interface{}) int {
	out, ok := v.(int)
	if !ok {
		return 0
	}
	return out
}

func toStr(v interface{}) string {
	out, ok := v.(string)
	if !ok {
		return ""
	}
	return out
}
