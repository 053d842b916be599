package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"pyrometer-server/api"
	"pyrometer-server/config"
	"pyrometer-server/driver"
	"pyrometer-server/logger"
	"pyrometer-server/protocol"
)

func main() {
	if err := run(); err != nil {
		logger.Error("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load Config
	config.Flags(pflag.CommandLine)
	pflag.Parse()
	cfg, err := config.Load(pflag.CommandLine)
	if err != nil {
		return err
	}

	if err := logger.Init(cfg.Log); err != nil {
		return err
	}
	defer logger.Close()

	// 2. Initialize Port (Serial, TCP or simulator)
	var port driver.Port
	if cfg.Mock {
		logger.Info("Starting in MOCK MODE (in-process pyrometer simulator)")
		port = driver.NewMockPort(driver.NewSimulator(cfg.Device.ID))
	} else {
		logger.Info("Opening Serial Port: %s", cfg.Serial.Port)
		port, err = driver.OpenSerial(cfg.Serial.Port, driver.SerialOptions{
			BaudRate: cfg.Serial.BaudRate,
			DataBits: cfg.Serial.DataBits,
			Parity:   cfg.Serial.Parity,
			StopBits: cfg.Serial.StopBits,
		})
		if err != nil {
			if ports, lerr := driver.ListSerialPorts(); lerr == nil {
				logger.Info("Available serial ports: %v", ports)
			}
			return fmt.Errorf("failed to open serial port: %w", err)
		}
	}

	// 3. Initialize Driver
	opts := []driver.Option{driver.WithResponseTimeout(cfg.Device.ResponseTimeout)}
	if len(cfg.T90) > 0 {
		table, err := protocol.NewT90Table(cfg.T90)
		if err != nil {
			port.Close()
			return err
		}
		opts = append(opts, driver.WithT90Table(table))
	}
	pyro, err := driver.NewPyrometer(port, cfg.Device.ID, opts...)
	if err != nil {
		port.Close()
		return err
	}
	defer pyro.Close()
	logger.Info("Pyrometer driver ready: device %q, T90 settings %v", pyro.DeviceID(), pyro.T90Table().Names())

	// 4. Initialize API Handler
	handler := api.NewHandler(pyro)
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	mux.Handle("/metrics", api.MetricsHandler(api.NewMetricsCollector(pyro)))

	// 5. Start HTTP Server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening on %s", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ListenAndServe: %w", err)
		}
	case s := <-sig:
		logger.Info("Received %s, shutting down", s)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
