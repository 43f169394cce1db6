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

package capture

import (
	"bufio"
	"os"
	"path/filepath"
	"syscall"
)

// Capture files are written with this suffix and renamed once closed, so
// a partial capture is never mistaken for a finished one.
const tempExt = ".temp"

func newBufferedFile(filename string) (*bufferedFile, error) {
	f, err := os.Create(filename + tempExt)
	if err != nil {
		return nil, err
	}
	return &bufferedFile{
		name: filename,
		f:    f,
		w:    bufio.NewWriterSize(f, 4*1024*1024),
	}, nil
}

type bufferedFile struct {
	name string
	f    *os.File
	w    *bufio.Writer
}

func (bf *bufferedFile) Write(p []byte) (int, error) {
	return bf.w.Write(p)
}

// Close flushes the file and moves it to its final name.
func (bf *bufferedFile) Close() error {
	if err := bf.w.Flush(); err != nil {
		bf.f.Close()
		return err
	}
	if err := bf.f.Close(); err != nil {
		return err
	}
	return os.Rename(bf.f.Name(), bf.name)
}

// DeleteTempFiles removes captures left unfinished in dir, eg. after a
// crash.
func DeleteTempFiles(dir string) error {
	matches, _ := filepath.Glob(filepath.Join(dir, "*"+FileExt+tempExt))
	for _, filename := range matches {
		if err := os.Remove(filename); err != nil {
			return err
		}
	}
	return nil
}

// CheckDiskSpace reports whether dir has at least mb megabytes free.
func CheckDiskSpace(mb uint64, dir string) (bool, error) {
	var fs syscall.Statfs_t
	if err := syscall.Statfs(dir, &fs); err != nil {
		return false, err
	}
	return fs.Bavail*uint64(fs.Bsize)/1024/1024 >= mb, nil
}
