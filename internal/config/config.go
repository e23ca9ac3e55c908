// Package config provides application configuration from environment variables.
package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Settings holds all application configuration.
type Settings struct {
	// Application metadata
	Version  string `envconfig:"VERSION" default:"0.1.0"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Control-plane HTTP server settings
	APIHost string `envconfig:"API_HOST" default:"0.0.0.0"`
	APIPort int    `envconfig:"API_PORT" default:"9420"`

	// Control-plane auth
	APIToken string `envconfig:"API_TOKEN" default:""` // not read by cmd/wlcmgrd; bearer auth is keyed on JWTSecret, and an empty JWTSecret disables it
	JWTSecret string `envconfig:"JWT_SECRET" default:""`

	// Profile store
	MaxKnownNetworks int `envconfig:"MAX_KNOWN_NETWORKS" default:"16"`

	// STA FSM tunables
	RescanLimit       uint          `envconfig:"RESCAN_LIMIT" default:"5"`
	ReconnectLimit    uint          `envconfig:"RECONNECT_LIMIT" default:"5"`
	AssocPauseOnMIC   time.Duration `envconfig:"ASSOC_PAUSE_ON_MIC" default:"60s"`
	NeighborReqPeriod time.Duration `envconfig:"NEIGHBOR_REQ_PERIOD" default:"60s"`
	SupplicantPoll    time.Duration `envconfig:"SUPPLICANT_POLL" default:"2s"`

	// Dispatcher / power-save tunables
	SleepConfirmTick time.Duration `envconfig:"SLEEP_CONFIRM_TICK" default:"10ms"`
	DTIMWaitTimeout  time.Duration `envconfig:"DTIM_WAIT_TIMEOUT" default:"500ms"`
	EventQueueDepth  int           `envconfig:"EVENT_QUEUE_DEPTH" default:"32"`

	// History / diagnostics
	DatabasePath    string `envconfig:"DATABASE_PATH" default:"/var/lib/wlcmgr/wlcmgr.db"`
	HistoryCapacity int    `envconfig:"HISTORY_CAPACITY" default:"500"`

	// Driver backend selection: "sim" or "netlink"
	DriverBackend string `envconfig:"DRIVER_BACKEND" default:"sim"`
	Interface     string `envconfig:"INTERFACE" default:"wlan0"`

	// uAP hostapd/dnsmasq integration (driver/hostapd backend)
	HostapdConf   string `envconfig:"HOSTAPD_CONF" default:"/etc/hostapd/hostapd.conf"`
	DnsmasqLeases string `envconfig:"DNSMASQ_LEASES" default:"/var/lib/misc/dnsmasq.leases"`
}

// ListenAddr returns the address string for the HTTP server to bind to.
func (s *Settings) ListenAddr() string {
	return fmt.Sprintf("%s:%d", s.APIHost, s.APIPort)
}

var (
	cfg  *Settings
	once sync.Once
)

// Get returns the singleton Settings instance.
func Get() *Settings {
	once.Do(func() {
		cfg = &Settings{}
		if err := envconfig.Process("WLCMGR", cfg); err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return cfg
}

// Load creates a new Settings instance from environment variables.
func Load() (*Settings, error) {
	s := &Settings{}
	if err := envconfig.Process("WLCMGR", s); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return s, nil
}
