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

// Package ttcplot charts time to collision estimates over time.
package ttcplot

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/TheCacophonyProject/ttc-estimator/flow"
	"github.com/TheCacophonyProject/ttc-estimator/render"
)

var (
	series = []string{"ttc1", "ttc2/10", "ttc3*1000"}
	colors = []color.Color{
		color.RGBA{R: 220, A: 255},
		color.RGBA{R: 220, G: 180, A: 255},
		color.RGBA{G: 160, A: 255},
	}
)

type sample struct {
	frame   int
	heights [3]float32
}

// Plotter is a flow.ResultSink which keeps the most recent estimates
// so they can be charted.
type Plotter struct {
	mu      sync.Mutex
	conf    Config
	samples []sample
}

func New(conf *Config) *Plotter {
	return &Plotter{
		conf:    *conf,
		samples: make([]sample, 0, conf.MaxSamples),
	}
}

// Publish implements flow.ResultSink. The oldest sample is dropped
// once MaxSamples are held.
func (p *Plotter) Publish(est *flow.Estimate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.samples) == p.conf.MaxSamples {
		copy(p.samples, p.samples[1:])
		p.samples = p.samples[:len(p.samples)-1]
	}
	p.samples = append(p.samples, sample{
		frame:   est.Frame,
		heights: render.BarHeights(est),
	})
	return nil
}

// Len returns the number of samples held.
func (p *Plotter) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.samples)
}

// Save writes a chart of the held samples to <OutputDir>/<name>.png
// and returns the file name. Non-finite values are left out of the
// chart.
func (p *Plotter) Save(name string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conf.OutputDir == "" {
		return "", fmt.Errorf("no output directory configured")
	}
	if err := os.MkdirAll(p.conf.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}

	pl := plot.New()
	pl.Title.Text = "Time to collision"
	pl.X.Label.Text = "Frame"
	pl.Y.Label.Text = "TTC (frames)"

	for i, label := range series {
		pts := make(plotter.XYs, 0, len(p.samples))
		for _, s := range p.samples {
			v := float64(s.heights[i])
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(s.frame), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return "", err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		pl.Add(line)
		pl.Legend.Add(label, line)
	}
	pl.Legend.Top = true
	pl.Legend.Left = false
	pl.Legend.XOffs = -10
	pl.Legend.YOffs = -10

	file := filepath.Join(p.conf.OutputDir, name+".png")
	if err := pl.Save(14*vg.Inch, 6*vg.Inch, file); err != nil {
		return "", fmt.Errorf("save ttc plot: %w", err)
	}
	return file, nil
}
