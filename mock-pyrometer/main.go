package main

import (
	"errors"
	"net"
	"os"
	"time"

	"github.com/spf13/pflag"

	"pyrometer-server/config"
	"pyrometer-server/driver"
	"pyrometer-server/logger"
)

func main() {
	addr := pflag.String("listen", ":9999", "TCP address to listen on")
	deviceID := pflag.String("device-id", "00", "Device address to answer to")
	temp := pflag.Float64("temperature", 250.0, "Reported temperature (celsius)")
	drift := pflag.Float64("drift", 0.5, "Temperature change per second")
	identity := pflag.String("identity", "", "Instrument id reply (default IGA 6-23 SIM)")
	pflag.Parse()

	if err := logger.Init(config.LogConfig{Level: "debug"}); err != nil {
		os.Exit(1)
	}

	sim := driver.NewSimulator(*deviceID)
	sim.SetTemperature(*temp)
	if *identity != "" {
		sim.SetIdentity(*identity)
	}
	go heat(sim, *temp, *drift)

	listener, err := net.Listen("tcp", *addr)
	if err != nil {
		logger.Error("Failed to start mock pyrometer: %v", err)
		os.Exit(1)
	}
	defer listener.Close()

	logger.Info("=== Mock Pyrometer Simulator ===")
	logger.Info("Listening on TCP %s, device id %q", *addr, *deviceID)

	for {
		conn, err := listener.Accept()
		if errors.Is(err, net.ErrClosed) {
			return
		}
		if err != nil {
			logger.Error("Accept error: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}
		logger.Info("[MockPyrometer] Client connected: %s", conn.RemoteAddr())
		go func(c net.Conn) {
			defer c.Close()
			if err := sim.Serve(c); err != nil {
				logger.Error("[MockPyrometer] %v", err)
			}
			logger.Info("[MockPyrometer] Connection closed")
		}(conn)
	}
}

// heat walks the reported temperature up and down around base.
func heat(sim *driver.Simulator, base, drift float64) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	t, dir := base, 1.0
	for range ticker.C {
		t += dir * drift
		if t > base+10 || t < base-10 {
			dir = -dir
		}
		sim.SetTemperature(t)
	}
}
