package client_test

import (
	"bytes"
	"net"
	"testing"
	"time"

	"github.com/soypat/srt/client"
	"github.com/soypat/srt/segio"
	"github.com/soypat/srt/server"
	"github.com/soypat/srt/srt"
)

// newPair returns a connected (client, server) Endpoint pair over an
// in-memory net.Pipe, both already Init'd.
func newPair(t *testing.T, cfg srt.Config) (*client.Endpoint, *server.Endpoint) {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	cep := client.NewEndpoint(segio.NewNetChannel(clientConn), cfg, nil, nil)
	sep := server.NewEndpoint(segio.NewNetChannel(serverConn), cfg, nil, nil)
	cep.Init()
	sep.Init()
	return cep, sep
}

func fastConfig() srt.Config {
	cfg := srt.Default()
	cfg.SynTimeout = 20 * time.Millisecond
	cfg.FinTimeout = 20 * time.Millisecond
	cfg.DataTimeout = 30 * time.Millisecond
	cfg.SendBufPollingInterval = 2 * time.Millisecond
	cfg.CloseWaitTimeout = 20 * time.Millisecond
	cfg.SynMaxRetry = 10
	cfg.FinMaxRetry = 10
	return cfg
}

// TestHandshake verifies that a three-way handshake leaves the client
// CONNECTED and the server CONNECTED.
func TestHandshake(t *testing.T) {
	cfg := fastConfig()
	cep, sep := newPair(t, cfg)

	ssock, err := sep.Sock(9000)
	if err != nil {
		t.Fatalf("server sock: %v", err)
	}
	acceptErr := make(chan error, 1)
	go func() { acceptErr <- ssock.Accept() }()

	csock, err := cep.Sock(7000)
	if err != nil {
		t.Fatalf("client sock: %v", err)
	}
	if err := csock.Connect(9000); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := <-acceptErr; err != nil {
		t.Fatalf("accept: %v", err)
	}
}

// TestDataTransferAndTeardown verifies byte-for-byte stream fidelity across
// a full connect/send/disconnect lifecycle.
func TestDataTransferAndTeardown(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxSegLen = 4 // force multiple segments for a small payload
	cep, sep := newPair(t, cfg)

	ssock, err := sep.Sock(9001)
	if err != nil {
		t.Fatalf("server sock: %v", err)
	}
	acceptErr := make(chan error, 1)
	go func() { acceptErr <- ssock.Accept() }()

	csock, err := cep.Sock(7001)
	if err != nil {
		t.Fatalf("client sock: %v", err)
	}
	if err := csock.Connect(9001); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := <-acceptErr; err != nil {
		t.Fatalf("accept: %v", err)
	}

	payload := []byte("hello world, this is SRT")
	recvd := make([]byte, len(payload))
	recvErr := make(chan error, 1)
	go func() { recvErr <- ssock.Recv(recvd) }()

	if err := csock.Send(payload); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := <-recvErr; err != nil {
		t.Fatalf("recv: %v", err)
	}
	if !bytes.Equal(recvd, payload) {
		t.Fatalf("payload mismatch: got %q want %q", recvd, payload)
	}

	if err := csock.Disconnect(); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if err := csock.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := ssock.Close(); err != nil {
		t.Fatalf("server close: %v", err)
	}
}

// TestGBNWindowBound sends more segments than the configured window and
// verifies they all arrive, which is only possible if the sender respected
// the unacked-count bound and transmitted the remainder as ACKs freed it.
func TestGBNWindowBound(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxSegLen = 2
	cfg.GBNWindow = 2
	cep, sep := newPair(t, cfg)

	ssock, err := sep.Sock(9002)
	if err != nil {
		t.Fatalf("server sock: %v", err)
	}
	acceptErr := make(chan error, 1)
	go func() { acceptErr <- ssock.Accept() }()

	csock, err := cep.Sock(7002)
	if err != nil {
		t.Fatalf("client sock: %v", err)
	}
	if err := csock.Connect(9002); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := <-acceptErr; err != nil {
		t.Fatalf("accept: %v", err)
	}

	payload := []byte("0123456789abcdefghij") // 20 bytes -> 10 segments over a window of 2
	recvd := make([]byte, len(payload))
	recvErr := make(chan error, 1)
	go func() { recvErr <- ssock.Recv(recvd) }()

	if err := csock.Send(payload); err != nil {
		t.Fatalf("send: %v", err)
	}
	if err := <-recvErr; err != nil {
		t.Fatalf("recv: %v", err)
	}
	if !bytes.Equal(recvd, payload) {
		t.Fatalf("payload mismatch: got %q want %q", recvd, payload)
	}
}
