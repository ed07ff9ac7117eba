// Package config reads the daemon's bootstrap configuration file and
// classifies the node's live network interfaces into control ports
// (link-layer MTP peers) and a compute port (tenant-facing IPv4, leaves
// only).
package config

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	log "github.com/mtp-dcn/mtpd/internal/mtplog"
)

// VIDOctet is the IPv4 octet (1-indexed) a leaf's root VID is derived
// from. Index 3 is "the third octet" per the specification.
const VIDOctet = 3

// Config is the parsed bootstrap configuration plus the interfaces
// discovered for this node.
type Config struct {
	NodeName   string
	Tier       int
	IsTopSpine bool
	IsLeaf     bool
	ComputeIf  string // "None" on spines
	ControlIfs []string
	MyVID      string // root VID, leaves only
}

// Load reads <dir>/<node>.conf, classifies this node's interfaces, and
// derives the root VID for leaves.
func Load(node, dir string) (*Config, error) {
	path := fmt.Sprintf("%s/%s.conf", dir, node)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %v: %w", path, err)
	}
	defer f.Close()

	c := &Config{NodeName: node, ComputeIf: "None"}

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.Index(line, ":")
		if idx < 0 {
			log.Warn("config: malformed line, skipping: %q", line)
			continue
		}
		key := strings.TrimSpace(line[:idx])
		val := strings.TrimSpace(line[idx+1:])

		switch key {
		case "isTopSpine":
			c.IsTopSpine = strings.EqualFold(val, "true")
		case "tier":
			tier, err := strconv.Atoi(val)
			if err != nil {
				log.Warn("config: invalid tier %q, skipping", val)
				continue
			}
			c.Tier = tier
		default:
			log.Warn("config: unknown key %q, ignoring", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config %v: %w", path, err)
	}
	if c.Tier < 1 {
		return nil, fmt.Errorf("config: tier must be >= 1, got %v", c.Tier)
	}
	c.IsLeaf = c.Tier == 1

	if err := c.classifyInterfaces(); err != nil {
		return nil, err
	}
	if c.IsLeaf {
		vid, err := c.rootVID()
		if err != nil {
			return nil, err
		}
		c.MyVID = vid
	}

	return c, nil
}

// classifyInterfaces scans live interfaces whose name is prefixed by the
// node name. Leaves get one AF_INET compute interface (last match wins)
// and the rest become control ports; spines have only control ports.
func (c *Config) classifyInterfaces() error {
	ifs, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("enumerate interfaces: %w", err)
	}

	for _, iface := range ifs {
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		if !strings.HasPrefix(iface.Name, c.NodeName) {
			continue
		}

		if c.IsLeaf && hasIPv4(iface) {
			if c.ComputeIf != "None" {
				c.ControlIfs = append(c.ControlIfs, c.ComputeIf)
			}
			c.ComputeIf = iface.Name
			continue
		}
		c.ControlIfs = append(c.ControlIfs, iface.Name)
	}

	return nil
}

func hasIPv4(iface net.Interface) bool {
	addrs, err := iface.Addrs()
	if err != nil {
		return false
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if ok && ipn.IP.To4() != nil {
			return true
		}
	}
	return false
}

// rootVID inspects the compute interface's IPv4 address and returns the
// decimal string of octet VIDOctet.
func (c *Config) rootVID() (string, error) {
	if c.ComputeIf == "None" {
		return "", fmt.Errorf("leaf %v has no compute interface", c.NodeName)
	}
	iface, err := net.InterfaceByName(c.ComputeIf)
	if err != nil {
		return "", fmt.Errorf("lookup compute interface %v: %w", c.ComputeIf, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return "", fmt.Errorf("addrs of %v: %w", c.ComputeIf, err)
	}
	for _, a := range addrs {
		ipn, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipn.IP.To4()
		if ip4 == nil {
			continue
		}
		return strconv.Itoa(int(ip4[VIDOctet-1])), nil
	}
	return "", fmt.Errorf("no IPv4 address on compute interface %v", c.ComputeIf)
}
