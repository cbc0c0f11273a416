// Command srtserver runs an SRT server endpoint over a TCP listener acting
// as the overlay channel.
package main

import (
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/soypat/srt/segio"
	"github.com/soypat/srt/server"
	"github.com/soypat/srt/srt"
	"github.com/soypat/srt/srtmetrics"
)

func main() {
	var (
		listenAddr = flag.String("listen", "127.0.0.1:9000", "overlay channel TCP listen address")
		serverPort = flag.Uint("port", 9000, "SRT logical server port")
		metricAddr = flag.String("metrics", "", "if set, serve Prometheus metrics on this address")
		cfgPath    = flag.String("config", "", "optional YAML config file overriding defaults")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: server.LevelTrace}))

	cfg := srt.Default()
	if *cfgPath != "" {
		loaded, err := srt.Load(*cfgPath)
		if err != nil {
			log.Error("loading config", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	metrics := srtmetrics.NewCollector("server")
	if *metricAddr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(metrics)
		go func() {
			http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			log.Error("metrics server exited", "err", http.ListenAndServe(*metricAddr, nil))
		}()
	}

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		log.Error("listen", "err", err)
		os.Exit(1)
	}
	log.Info("srtserver listening", "addr", *listenAddr, "srt_port", *serverPort)

	conn, err := ln.Accept()
	if err != nil {
		log.Error("accept", "err", err)
		os.Exit(1)
	}

	ch := segio.NewNetChannel(conn)
	ep := server.NewEndpoint(ch, cfg, log, metrics)
	ep.Init()

	sock, err := ep.Sock(uint16(*serverPort))
	if err != nil {
		log.Error("sock", "err", err)
		os.Exit(1)
	}
	if err := sock.Accept(); err != nil {
		log.Error("accept", "err", err)
		os.Exit(1)
	}
	log.Info("client connected")

	buf := make([]byte, 256)
	for {
		if err := sock.Recv(buf); err != nil {
			log.Error("recv", "err", err)
			break
		}
		os.Stdout.Write(buf)
	}
}
