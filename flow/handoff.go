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

import (
	"context"
	"sync"
)

func NewHandoff(size int) *Handoff {
	return &Handoff{
		next:   make([]byte, 0, size),
		out:    make([]byte, 0, size),
		notify: make(chan struct{}, 1),
	}
}

// Handoff passes raw frames from a reader to a slower consumer. Only
// the most recent frame is kept: a frame that hasn't been taken when
// the next one arrives is dropped.
type Handoff struct {
	mu      sync.Mutex
	next    []byte
	out     []byte
	ready   bool
	dropped int
	notify  chan struct{}
}

// Put stores a copy of frame, replacing any frame not yet taken.
func (h *Handoff) Put(frame []byte) {
	h.mu.Lock()
	h.next = append(h.next[:0], frame...)
	if h.ready {
		h.dropped++
	}
	h.ready = true
	h.mu.Unlock()

	select {
	case h.notify <- struct{}{}:
	default:
	}
}

// Take waits for a frame. The returned slice is only valid until the
// next call to Take.
func (h *Handoff) Take(ctx context.Context) ([]byte, error) {
	for {
		h.mu.Lock()
		if h.ready {
			h.next, h.out = h.out, h.next
			h.ready = false
			h.mu.Unlock()
			return h.out, nil
		}
		h.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-h.notify:
		}
	}
}

// Dropped returns how many frames were overwritten before being taken.
func (h *Handoff) Dropped() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dropped
}
