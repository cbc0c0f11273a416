package srt

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config bundles every tunable governing connection setup, retransmission
// and buffering. The zero value is not ready to use; call Default() for
// the documented defaults.
type Config struct {
	MaxTransportConnections int           `yaml:"max_transport_connections"`
	MaxSegLen               int           `yaml:"max_seg_len"`
	GBNWindow               int           `yaml:"gbn_window"`
	SynTimeout              time.Duration `yaml:"syn_timeout"`
	FinTimeout              time.Duration `yaml:"fin_timeout"`
	DataTimeout             time.Duration `yaml:"data_timeout"`
	SynMaxRetry             int           `yaml:"syn_max_retry"`
	FinMaxRetry             int           `yaml:"fin_max_retry"`
	SendBufPollingInterval  time.Duration `yaml:"sendbuf_polling_interval"`
	RecvBufPollingInterval  time.Duration `yaml:"recvbuf_polling_interval"`
	ReceiveBufSize          int           `yaml:"receive_buf_size"`
	CloseWaitTimeout        time.Duration `yaml:"closewait_timeout"`
	PktLossRate             float64       `yaml:"pkt_loss_rate"`
}

// Default returns the standard tunable defaults.
func Default() Config {
	return Config{
		MaxTransportConnections: 10,
		MaxSegLen:               1000,
		GBNWindow:               10,
		SynTimeout:              200 * time.Millisecond,
		FinTimeout:              200 * time.Millisecond,
		DataTimeout:             300 * time.Millisecond,
		SynMaxRetry:             5,
		FinMaxRetry:             5,
		SendBufPollingInterval:  10 * time.Millisecond,
		RecvBufPollingInterval:  10 * time.Millisecond,
		ReceiveBufSize:          2048,
		CloseWaitTimeout:        1 * time.Second,
		PktLossRate:             0,
	}
}

// Load reads a YAML configuration file at path, starting from Default()
// and overriding only the fields present in the file.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
