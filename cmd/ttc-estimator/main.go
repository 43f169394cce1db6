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

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"time"

	arg "github.com/alexflint/go-arg"
	"github.com/coreos/go-systemd/daemon"
	"github.com/maruel/interrupt"
	"golang.org/x/sync/errgroup"
	"periph.io/x/periph/host"

	"github.com/TheCacophonyProject/ttc-estimator/alert"
	"github.com/TheCacophonyProject/ttc-estimator/capture"
	"github.com/TheCacophonyProject/ttc-estimator/flow"
	"github.com/TheCacophonyProject/ttc-estimator/headers"
	"github.com/TheCacophonyProject/ttc-estimator/location"
	"github.com/TheCacophonyProject/ttc-estimator/yuv"
)

const defaultFPS = 30

var version = "<not set>"

type Args struct {
	ConfigFile string `arg:"-c,--config" help:"path to configuration file"`
	ConfigDir  string `arg:"-d,--config-dir" help:"path to device configuration directory"`
	Timestamps bool   `arg:"-t,--timestamps" help:"include timestamps in log output"`
	Replay     string `arg:"-f,--replay" help:"run a capture file through the estimator and exit"`
	Verbose    bool   `arg:"-v,--verbose" help:"log every estimate"`
}

func (Args) Version() string {
	return version
}

func procArgs() Args {
	var args Args
	args.ConfigFile = "/etc/ttc-estimator.yaml"
	args.ConfigDir = location.DefaultConfigDir()
	arg.MustParse(&args)
	return args
}

func main() {
	err := runMain()
	if err != nil {
		log.Fatal(err)
	}
}

func runMain() error {
	args := procArgs()

	if !args.Timestamps {
		log.SetFlags(0) // Removes default timestamp flag
	}

	log.Printf("running version: %s", version)
	conf, err := ParseConfigFiles(args.ConfigFile, args.ConfigDir)
	if err != nil {
		return err
	}
	if args.Verbose {
		conf.Estimator.Verbose = true
	}
	logConfig(conf)

	interrupt.HandleCtrlC()

	if args.Replay != "" {
		return replay(args.Replay, conf)
	}

	log.Println("starting d-bus service")
	svc, err := startService()
	if err != nil {
		return err
	}

	if conf.CaptureDir != "" {
		log.Println("deleting temp files")
		if err := capture.DeleteTempFiles(conf.CaptureDir); err != nil {
			return err
		}
	}

	var pin alert.Pin
	if conf.Alert.Enabled() && conf.Alert.Pin != "" {
		log.Println("host initialisation")
		if _, err := host.Init(); err != nil {
			return err
		}
		p, err := alert.OpenPin(conf.Alert.Pin)
		if err != nil {
			return err
		}
		pin = p
	}

	for !interrupt.IsSet() {
		// Set up listener for frames sent by the camera.
		os.Remove(conf.FrameInput)
		listener, err := net.Listen("unix", conf.FrameInput)
		if err != nil {
			return err
		}
		log.Print("waiting for camera connection")

		// Stop waiting on Ctrl-C.
		accepted := make(chan struct{})
		go func() {
			select {
			case <-interrupt.Channel:
				listener.Close()
			case <-accepted:
			}
		}()
		conn, err := listener.Accept()
		close(accepted)
		if err != nil {
			log.Printf("socket accept failed: %v", err)
			listener.Close()
			continue
		}

		// Prevent concurrent connections.
		listener.Close()

		err = handleConn(conn, conf, svc, pin)
		log.Printf("camera connection ended with: %v", err)
	}
	return nil
}

func handleConn(conn net.Conn, conf *Config, svc *service, pin alert.Pin) error {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	header, err := headers.ReadHeaderInfo(reader)
	if err != nil {
		return err
	}
	log.Printf("new camera connection: %s %s, %s at %d fps", header.Brand(), header.Model(), header.Size(), header.FPS())

	size := header.Size()
	if sizes := header.SupportedSizes(); len(sizes) > 0 {
		want := flow.Size{Rows: conf.Estimator.Rows, Cols: conf.Estimator.Cols}
		if nearest := flow.NearestSize(sizes, want.Pixels()); nearest != size {
			log.Printf("camera is sending %s frames, %s is the closest supported size to %s", size, nearest, want)
		}
	}
	frameSize := header.FrameSize()
	if frameSize == 0 {
		frameSize = yuv.FrameSize(size.Rows, size.Cols)
	}
	fps := header.FPS()
	if fps <= 0 {
		fps = defaultFPS
	}

	sess, err := newSession(conf, size, header.PixelFormat(), pin, alert.DBusEvents{})
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.close(); err != nil {
			log.Printf("failed to close session: %v", err)
		}
	}()

	capWriter, err := startCapture(conf, sess, header)
	if err != nil {
		return err
	}
	if capWriter != nil {
		defer func() {
			log.Printf("captured %d frames", capWriter.Frames())
			if err := capWriter.Close(); err != nil {
				log.Printf("failed to close capture file: %v", err)
			}
		}()
	}

	handoff := flow.NewHandoff(frameSize)
	svc.setSession(sess.id.String(), sess.estimator, handoff)
	defer svc.setSession("", nil, nil)

	g, ctx := errgroup.WithContext(context.Background())

	// Unblock the reader on Ctrl-C.
	go func() {
		select {
		case <-interrupt.Channel:
		case <-ctx.Done():
		}
		conn.Close()
	}()

	g.Go(func() error {
		return readFrames(reader, frameSize, fps, handoff, capWriter)
	})
	g.Go(func() error {
		return estimate(ctx, sess.estimator, handoff, fps)
	})
	err = g.Wait()
	if interrupt.IsSet() {
		return fmt.Errorf("interrupted after %d frames", sess.estimator.Stats().Frames)
	}
	log.Printf("%d frames dropped", handoff.Dropped())
	return err
}

// startCapture opens a capture file for the session if capturing is
// configured and there is enough disk space.
func startCapture(conf *Config, sess *session, header *headers.HeaderInfo) (*capture.Writer, error) {
	if conf.CaptureDir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(conf.CaptureDir, 0755); err != nil {
		return nil, err
	}
	enoughSpace, err := capture.CheckDiskSpace(conf.MinDiskSpace, conf.CaptureDir)
	if err != nil {
		return nil, err
	}
	if !enoughSpace {
		log.Print("not enough free disk space to capture frames")
		return nil, nil
	}
	return capture.NewFileWriter(conf.CaptureDir, sess.start, header, sess.id)
}

// readFrames reads raw frames from the camera and hands them on to the
// estimator. It only returns on error.
func readFrames(reader io.Reader, frameSize, fps int, handoff *flow.Handoff, capWriter *capture.Writer) error {
	var (
		frameLogIntervalFirstMin = 15 * fps
		frameLogInterval         = 60 * 5 * fps
	)

	rawFrame := make([]byte, frameSize)
	totalFrames := 0
	for {
		if _, err := io.ReadFull(reader, rawFrame); err != nil {
			return err
		}
		totalFrames++

		if totalFrames%frameLogIntervalFirstMin == 0 &&
			totalFrames <= 60*fps || totalFrames%frameLogInterval == 0 {
			log.Printf("%d frames for this connection", totalFrames)
		}

		if capWriter != nil {
			if err := capWriter.WriteFrame(time.Now(), rawFrame); err != nil {
				return fmt.Errorf("failed to capture frame: %w", err)
			}
		}
		handoff.Put(rawFrame)
	}
}

// estimate runs the estimator over frames from handoff until ctx is
// done, pinging the systemd watchdog every 5 seconds of frames.
func estimate(ctx context.Context, estimator *flow.Estimator, handoff *flow.Handoff, fps int) error {
	framesPerSdNotify := 5 * fps
	notifyCount := 0
	for {
		rawFrame, err := handoff.Take(ctx)
		if err != nil {
			// The reader has stopped, its error is the interesting one.
			return nil
		}
		// Rejected frames are logged and counted by the estimator.
		estimator.Process(rawFrame)

		if notifyCount++; notifyCount >= framesPerSdNotify {
			daemon.SdNotify(false, "WATCHDOG=1")
			notifyCount = 0
		}
	}
}

func logConfig(conf *Config) {
	log.Printf("frame input: %s", conf.FrameInput)
	if conf.CaptureDir != "" {
		log.Printf("capture dir: %s", conf.CaptureDir)
	}
	log.Printf("estimator: %+v", conf.Estimator)
	if conf.Stream.Address != "" {
		log.Printf("stream: %+v", conf.Stream)
	}
	if conf.Plot.OutputDir != "" {
		log.Printf("plot: %+v", conf.Plot)
	}
	if conf.Alert.Enabled() {
		log.Printf("alert: %+v", conf.Alert)
		if conf.Alert.WindowStart != "" {
			log.Printf("alert window: %s to %s at (%g, %g)", conf.Alert.WindowStart, conf.Alert.WindowEnd,
				conf.Location.Latitude, conf.Location.Longitude)
		}
	}
}
