// Package hostapd drives a Linux hostapd/dnsmasq pair for a soft-AP:
// writing hostapd.conf, restarting or stopping the daemon, and reading the
// DHCP lease file. It does not implement driver.Driver and nothing else in
// this module calls it.
package hostapd

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/nxp-wmsdk/wlcmgr/internal/wcmerrors"
)

// Backend writes hostapd.conf and restarts the hostapd/dnsmasq services to
// bring a soft-AP up or down, and reads the dnsmasq lease file on request
// (see Leases below); it raises no events.
type Backend struct {
	ConfPath    string
	LeasesPath  string
	Interface   string
	RestartCmd  func(service string) error
}

// New creates a Backend targeting the given hostapd.conf and dnsmasq lease
// paths on the given interface.
func New(confPath, leasesPath, iface string) *Backend {
	return &Backend{
		ConfPath:   confPath,
		LeasesPath: leasesPath,
		Interface:  iface,
		RestartCmd: systemctlRestart,
	}
}

func systemctlRestart(service string) error {
	return exec.Command("systemctl", "restart", service).Run()
}

// Config is the subset of hostapd.conf fields Write renders.
type Config struct {
	SSID       string
	Password   string
	Channel    int
	HWMode     string
	Hidden     bool
	CountryCode string
}

// Write renders cfg to hostapd.conf and restarts hostapd, mirroring the
// teacher's SetAPConfig but parameterized on Backend's paths instead of a
// package-level config singleton.
func (b *Backend) Write(cfg Config) error {
	hidden := "0"
	if cfg.Hidden {
		hidden = "1"
	}
	hwMode := cfg.HWMode
	if hwMode == "" {
		hwMode = "g"
	}

	lines := []string{
		fmt.Sprintf("interface=%s", b.Interface),
		"driver=nl80211",
		fmt.Sprintf("ssid=%s", cfg.SSID),
		fmt.Sprintf("hw_mode=%s", hwMode),
		fmt.Sprintf("channel=%d", cfg.Channel),
		"ieee80211n=1",
		"wmm_enabled=1",
		fmt.Sprintf("ignore_broadcast_ssid=%s", hidden),
	}
	if cfg.CountryCode != "" {
		lines = append(lines, fmt.Sprintf("country_code=%s", cfg.CountryCode))
	}
	if cfg.Password != "" {
		lines = append(lines,
			"wpa=2",
			"wpa_key_mgmt=WPA-PSK",
			fmt.Sprintf("wpa_passphrase=%s", cfg.Password),
			"rsn_pairwise=CCMP",
		)
	}

	content := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(b.ConfPath, []byte(content), 0o600); err != nil {
		return wcmerrors.New("hostapd.write", wcmerrors.KindFail, err)
	}

	if err := b.RestartCmd("hostapd"); err != nil {
		return wcmerrors.New("hostapd.write", wcmerrors.KindFail, err)
	}
	return nil
}

// Stop tears down hostapd via systemctl.
func (b *Backend) Stop() error {
	if err := exec.Command("systemctl", "stop", "hostapd").Run(); err != nil {
		return wcmerrors.New("hostapd.stop", wcmerrors.KindFail, err)
	}
	return nil
}

// Lease is one dnsmasq DHCP lease, keyed by client MAC.
type Lease struct {
	MAC      [6]byte
	Address  [4]byte
	Hostname string
	Expiry   time.Time
}

// Leases reads the dnsmasq lease file at b.LeasesPath, mirroring the
// teacher's GetDHCPLeases scanner loop, and returns one Lease per line
// that has at least four fields; shorter lines are skipped.
func (b *Backend) Leases() ([]Lease, error) {
	data, err := os.ReadFile(b.LeasesPath)
	if err != nil {
		return nil, wcmerrors.New("hostapd.leases", wcmerrors.KindFail, err)
	}

	var leases []Lease
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		parts := strings.Fields(scanner.Text())
		if len(parts) < 4 {
			continue
		}

		var lease Lease
		if mac := parseMAC(parts[1]); mac != nil {
			lease.MAC = *mac
		}
		if addr := parseIPv4(parts[2]); addr != nil {
			lease.Address = *addr
		}
		if parts[3] != "*" {
			lease.Hostname = parts[3]
		}
		if ts, err := strconv.ParseInt(parts[0], 10, 64); err == nil && ts > 0 {
			lease.Expiry = time.Unix(ts, 0)
		}

		leases = append(leases, lease)
	}
	return leases, nil
}

func parseMAC(s string) *[6]byte {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return nil
	}
	var mac [6]byte
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return nil
		}
		mac[i] = byte(v)
	}
	return &mac
}

func parseIPv4(s string) *[4]byte {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return nil
	}
	var addr [4]byte
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return nil
		}
		addr[i] = byte(v)
	}
	return &addr
}
