// mtpd is the per-switch MTP-DCN control and data plane daemon. One
// process runs per node in the fabric; it learns and propagates VIDs
// over the control ports, tracks their liveness, and on leaves
// encapsulates/decapsulates tenant IPv4 traffic into the fabric.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mtp-dcn/mtpd/internal/config"
	"github.com/mtp-dcn/mtpd/internal/daemon"
	"github.com/mtp-dcn/mtpd/internal/iface"
	log "github.com/mtp-dcn/mtpd/internal/mtplog"
	"github.com/mtp-dcn/mtpd/internal/netinfo"
	"github.com/mtp-dcn/mtpd/internal/vidtab"
	"github.com/mtp-dcn/mtpd/internal/wire"
)

var f_level = flag.String("level", "info", "log level: debug, info, warn, error, fatal")

// pollInterval bounds how long the event loop sleeps between non-blocking
// socket polls when neither socket had anything to read.
const pollInterval = 10 * time.Millisecond

func main() {
	flag.Parse()
	args := flag.Args()
	if len(args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: mtpd <node_name> <config_directory>")
		os.Exit(1)
	}
	node, dir := args[0], args[1]

	level, err := log.LevelFromString(*f_level)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.AddSink(os.Stderr, level)

	logFile, err := os.OpenFile(fmt.Sprintf("%s/%s.log", dir, node), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Fatal("open log file: %v", err)
	}
	log.AddSink(logFile, level)

	cfg, err := config.Load(node, dir)
	if err != nil {
		log.Fatal("load config: %v", err)
	}
	log.Info("loaded config for %v: tier=%d isLeaf=%v isTopSpine=%v controlIfs=%v computeIf=%v",
		cfg.NodeName, cfg.Tier, cfg.IsLeaf, cfg.IsTopSpine, cfg.ControlIfs, cfg.ComputeIf)

	sockets, err := openSockets(cfg)
	if err != nil {
		log.Fatal("open sockets: %v", err)
	}

	d := daemon.New(cfg, sockets, nowMs, netinfo.Present)
	if err := registerControlPorts(d, cfg); err != nil {
		log.Fatal("register control ports: %v", err)
	}
	if cfg.IsLeaf {
		if err := registerComputePort(d, cfg); err != nil {
			log.Fatal("register compute port: %v", err)
		}
	}

	bootstrapped := false
	buf := make([]byte, 65536)

	shutdown := func(s os.Signal) {
		log.Info("received signal %v, shutting down", s)
		sockets.Control.Close()
		if sockets.Compute != nil {
			sockets.Compute.Close()
		}
		logFile.Close()
		recordNodeDown(node)
		os.Exit(0)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	go func() {
		shutdown(<-sig)
	}()

	start := time.Now()
	for {
		if !bootstrapped && cfg.IsLeaf && time.Since(start) >= daemon.SettleMs*time.Millisecond {
			d.StartBootstrap([]vidtab.VID{vidtab.VID(cfg.MyVID)})
			bootstrapped = true
		}

		busy := false
		if pollControl(d, sockets, buf) {
			busy = true
		}
		if sockets.Compute != nil && pollCompute(d, sockets, buf) {
			busy = true
		}

		d.Tick()

		if !busy {
			time.Sleep(pollInterval)
		}
	}
}

func nowMs() int64 {
	return time.Now().UnixMilli()
}

// recordNodeDown appends a millisecond-timestamped line to node_down.log
// in the working directory, matching the shutdown contract.
func recordNodeDown(node string) {
	f, err := os.OpenFile("node_down.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Error("record node down: %v", err)
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%d %s\n", time.Now().UnixMilli(), node)
}

func openSockets(cfg *config.Config) (*iface.Sockets, error) {
	control, err := iface.OpenRaw(wire.EtherTypeMTP)
	if err != nil {
		return nil, fmt.Errorf("open control socket: %w", err)
	}
	s := &iface.Sockets{Control: control}

	if cfg.IsLeaf {
		compute, err := iface.OpenRaw(wire.EtherTypeIPv4)
		if err != nil {
			control.Close()
			return nil, fmt.Errorf("open compute socket: %w", err)
		}
		s.Compute = compute
		s.ComputeIfName = cfg.ComputeIf
	}
	return s, nil
}

func registerControlPorts(d *daemon.Daemon, cfg *config.Config) error {
	for _, name := range cfg.ControlIfs {
		netIf, err := findInterface(name)
		if err != nil {
			return err
		}
		hdr, err := wire.BuildEthHeader(netIf.HardwareAddr, wire.EtherTypeMTP)
		if err != nil {
			return fmt.Errorf("build header for %v: %w", name, err)
		}
		d.Reg.AddControlPort(name, portNum(name), hdr)
	}
	return nil
}

func registerComputePort(d *daemon.Daemon, cfg *config.Config) error {
	netIf, err := findInterface(cfg.ComputeIf)
	if err != nil {
		return err
	}
	hdr, err := wire.BuildEthHeader(netIf.HardwareAddr, wire.EtherTypeIPv4)
	if err != nil {
		return fmt.Errorf("build compute header: %w", err)
	}
	d.SetComputeEthHeader(hdr)
	return nil
}

func pollControl(d *daemon.Daemon, s *iface.Sockets, buf []byte) bool {
	n, ifName, err := s.RecvControl(buf)
	if err != nil {
		if err != iface.ErrWouldBlock {
			log.Error("recv control: %v", err)
		}
		return false
	}
	frame := make([]byte, n)
	copy(frame, buf[:n])
	d.DispatchControl(ifName, frame)
	return true
}

func pollCompute(d *daemon.Daemon, s *iface.Sockets, buf []byte) bool {
	n, _, err := s.RecvCompute(buf)
	if err != nil {
		if err != iface.ErrWouldBlock {
			log.Error("recv compute: %v", err)
		}
		return false
	}
	frame := make([]byte, n)
	copy(frame, buf[:n])
	d.DispatchCompute(frame)
	return true
}

func findInterface(name string) (*net.Interface, error) {
	netIf, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("lookup interface %v: %w", name, err)
	}
	return netIf, nil
}

// portNum extracts the digits following "eth" in an interface name, e.g.
// "leaf1-eth3" -> 3, matching the VID extension suffix convention.
func portNum(name string) int {
	i := strings.LastIndex(name, "eth")
	if i < 0 {
		return 0
	}
	n, err := strconv.Atoi(name[i+3:])
	if err != nil {
		return 0
	}
	return n
}
