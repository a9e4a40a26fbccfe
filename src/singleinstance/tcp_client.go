package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"time"
)

type tcpClient struct{}

func newTcpClient() Client { return &tcpClient{} }

func (c *tcpClient) TryCapture(ctx context.Context, token string) (bool, string, error) {
	pingTimeout := probeTimeout(ctx, 2*time.Second)
	for _, addr := range CurrentRange().Addrs() {
		if !ping(addr, pingTimeout) {
			continue
		}
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			continue
		}
		msg, err := delegate(ctx, conn, token)
		conn.Close()
		return true, msg, err
	}
	return false, "", nil
}

func delegate(ctx context.Context, conn net.Conn, token string) (string, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	line := captureVerb
	if token != "" {
		line += " " + token
	}
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(line + "\n"); err != nil {
		return "", err
	}
	if err := w.Flush(); err != nil {
		return "", err
	}
	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return "", err
	}
	body, _ := io.ReadAll(br)
	switch status {
	case statusSuccess:
		return string(body), nil
	case statusError:
		return "", errors.New(string(body))
	}
	return "", errors.New("unexpected reply from resident")
}
