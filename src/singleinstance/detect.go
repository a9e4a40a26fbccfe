package singleinstance

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"time"
)

const defaultProbeTimeout = 300 * time.Millisecond

// DetectResidentPort reports the first port in range whose listener
// answers PING.
func DetectResidentPort(ctx context.Context) (int, bool) {
	timeout := probeTimeout(ctx, defaultProbeTimeout)
	for _, addr := range CurrentRange().Addrs() {
		if !ping(addr, timeout) {
			continue
		}
		_, p, _ := net.SplitHostPort(addr)
		port, _ := strconv.Atoi(p)
		return port, true
	}
	return 0, false
}

// probeTimeout shortens def to the time left on ctx.
func probeTimeout(ctx context.Context, def time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left > 0 && left < def {
			return left
		}
	}
	return def
}

func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	if _, err := conn.Write([]byte(pingRequest)); err != nil {
		return false
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	return err == nil && resp == pongResponse
}
