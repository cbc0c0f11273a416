// Command srtclient connects to an srtserver over a TCP overlay channel and
// streams a file to it, showing progress with a progress bar.
package main

import (
	"flag"
	"io"
	"log/slog"
	"net"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/soypat/srt/client"
	"github.com/soypat/srt/segio"
	"github.com/soypat/srt/srt"
)

func main() {
	var (
		dialAddr   = flag.String("dial", "127.0.0.1:9000", "overlay channel TCP dial address")
		clientPort = flag.Uint("clientport", 7000, "SRT logical client port")
		serverPort = flag.Uint("serverport", 9000, "SRT logical server port")
		cfgPath    = flag.String("config", "", "optional YAML config file overriding defaults")
		inputPath  = flag.String("file", "", "file to send; reads stdin if empty")
	)
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: client.LevelTrace}))

	cfg := srt.Default()
	if *cfgPath != "" {
		loaded, err := srt.Load(*cfgPath)
		if err != nil {
			log.Error("loading config", "err", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	conn, err := net.Dial("tcp", *dialAddr)
	if err != nil {
		log.Error("dial", "err", err)
		os.Exit(1)
	}

	ch := segio.NewNetChannel(conn)
	ep := client.NewEndpoint(ch, cfg, log, nil)
	ep.Init()

	sock, err := ep.Sock(uint16(*clientPort))
	if err != nil {
		log.Error("sock", "err", err)
		os.Exit(1)
	}
	if err := sock.Connect(uint16(*serverPort)); err != nil {
		log.Error("connect", "err", err)
		os.Exit(1)
	}
	log.Info("connected", "server_port", *serverPort)

	var in io.Reader = os.Stdin
	var size int64 = -1
	if *inputPath != "" {
		f, err := os.Open(*inputPath)
		if err != nil {
			log.Error("open input", "err", err)
			os.Exit(1)
		}
		defer f.Close()
		if fi, err := f.Stat(); err == nil {
			size = fi.Size()
		}
		in = f
	}

	bar := progressbar.DefaultBytes(size, "sending")
	buf := make([]byte, cfg.MaxSegLen)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			if sendErr := sock.Send(buf[:n]); sendErr != nil {
				log.Error("send", "err", sendErr)
				os.Exit(1)
			}
			bar.Add(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			log.Error("read input", "err", err)
			os.Exit(1)
		}
	}

	if err := sock.Disconnect(); err != nil {
		log.Error("disconnect", "err", err)
		os.Exit(1)
	}
	sock.Close()
	log.Info("transfer complete")
}
