// Copyright 2026 The go-cf591 Contributors.
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// cfreader is a small interactive tool for CF591 readers: one-shot and
// continuous reads, power control and device inspection.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	cf591 "github.com/openrfid/go-cf591"
	"github.com/openrfid/go-cf591/polling"
	"github.com/openrfid/go-cf591/transport/serial"
	"github.com/openrfid/go-cf591/transport/tcp"
)

var (
	flagConfig   string
	flagEndpoint string
	flagTCP      bool
	flagBaud     int
	flagPower    int
	flagMonitor  bool
	flagTimeout  time.Duration
	flagInfo     bool
	flagVerbose  bool
)

func init() {
	flag.StringVar(&flagConfig, "config", "", "YAML config file")
	flag.StringVar(&flagEndpoint, "endpoint", "/dev/ttyUSB0", "Device path or host:port")
	flag.BoolVar(&flagTCP, "tcp", false, "Use TCP instead of serial")
	flag.IntVar(&flagBaud, "baud", serial.DefaultBaudRate, "Serial baud rate")
	flag.IntVar(&flagPower, "power", -1, "Set RF power (dBm) before reading")
	flag.BoolVar(&flagMonitor, "monitor", false, "Monitor continuously instead of a one-shot read")
	flag.DurationVar(&flagTimeout, "timeout", 5*time.Second, "One-shot read timeout")
	flag.BoolVar(&flagInfo, "info", false, "Print device info and exit")
	flag.BoolVar(&flagVerbose, "v", false, "Verbose logging")
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.TraceLevel
	}
	logger := cf591.NewConsoleLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader, cfg, endpoint, err := buildReader(logger)
	if err != nil {
		return err
	}

	if err := reader.Connect(ctx, endpoint); err != nil {
		return err
	}
	defer func() {
		if err := reader.Disconnect(); err != nil {
			logger.Warn().Err(err).Msg("disconnect failed")
		}
	}()

	if flagInfo {
		return printInfo(ctx, reader)
	}

	if err := applyPower(ctx, reader, cfg, logger); err != nil {
		return err
	}

	if flagMonitor {
		return monitor(ctx, reader, logger)
	}
	return readOnce(ctx, reader)
}

func buildReader(logger zerolog.Logger) (*cf591.Reader, *cf591.Config, string, error) {
	endpoint := flagEndpoint
	opts := []cf591.Option{cf591.WithLogger(logger)}

	var cfg *cf591.Config
	useTCP := flagTCP

	if flagConfig != "" {
		loaded, err := cf591.LoadConfig(flagConfig)
		if err != nil {
			return nil, nil, "", err
		}
		cfg = loaded
		cfgOpts, err := cfg.Options()
		if err != nil {
			return nil, nil, "", err
		}
		opts = append(opts, cfgOpts...)
		if cfg.Endpoint != "" {
			endpoint = cfg.Endpoint
		}
		if cfg.Transport == "tcp" {
			useTCP = true
		}
		if cfg.Baud > 0 {
			flagBaud = cfg.Baud
		}
	}

	var drv cf591.Driver
	if useTCP {
		drv = tcp.New()
	} else {
		drv = serial.New(serial.WithBaudRate(flagBaud))
	}

	reader, err := cf591.New(drv, opts...)
	if err != nil {
		return nil, nil, "", err
	}
	return reader, cfg, endpoint, nil
}

// applyPower sets RF power from the -power flag, or failing that from the
// config file's power or range setting.
func applyPower(ctx context.Context, reader *cf591.Reader, cfg *cf591.Config, logger zerolog.Logger) error {
	switch {
	case flagPower >= 0:
		if err := reader.SetPower(ctx, flagPower); err != nil {
			return err
		}
		logger.Info().Int("power", flagPower).Msg("rf power set")
	case cfg != nil && cfg.Power != nil:
		if err := reader.SetPower(ctx, *cfg.Power); err != nil {
			return err
		}
		logger.Info().Int("power", *cfg.Power).Msg("rf power set from config")
	case cfg != nil && cfg.Range != "":
		bucket, err := cf591.ParseRangeBucket(cfg.Range)
		if err != nil {
			return err
		}
		if err := reader.SetRange(ctx, bucket); err != nil {
			return err
		}
		logger.Info().Str("range", cfg.Range).Msg("rf power set from range")
	}
	return nil
}

func printInfo(ctx context.Context, reader *cf591.Reader) error {
	info, err := reader.GetDeviceInfo(ctx)
	if err != nil {
		return err
	}
	power, err := reader.GetPower(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("firmware: %s\nhardware: %s\nserial:   %s\npower:    %d dBm\n",
		info.FirmwareVersion, info.HardwareVersion, info.SerialNumber, power)
	return nil
}

func readOnce(ctx context.Context, reader *cf591.Reader) error {
	det, err := reader.ReadSingle(ctx, flagTimeout)
	if err != nil {
		return err
	}
	if det == nil {
		fmt.Println("no tag detected")
		return nil
	}
	fmt.Printf("EPC %s  RSSI %.1f dBm  antenna %d\n", det.EPCHex(), det.RSSI, det.Antenna)
	return nil
}

func monitor(ctx context.Context, reader *cf591.Reader, logger zerolog.Logger) error {
	session := polling.NewSession(reader, nil)
	session.OnTagDetected = func(det *cf591.TagDetection) error {
		fmt.Printf("%s  EPC %s  RSSI %.1f dBm\n",
			det.DetectedAt.Format(time.TimeOnly), det.EPCHex(), det.RSSI)
		return nil
	}
	session.OnTagRemoved = func() {
		fmt.Println("field empty")
	}
	session.OnError = func(err error) {
		logger.Warn().Err(err).Msg("monitor error")
	}

	if err := session.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	if err := session.Close(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
