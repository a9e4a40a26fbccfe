package singleinstance

import (
	"net"
	"os"
	"strconv"
)

// PortRange is the inclusive loopback range scanned for a resident. The
// resident binds Start only.
type PortRange struct {
	Start, End int
}

var defaultRange = PortRange{Start: 49600, End: 49650}

// CurrentRange reads SINGLEINSTANCE_PORT_START and SINGLEINSTANCE_PORT_END.
// Invalid values fall back to the defaults; the result lies within
// [1024, 65535] with Start <= End.
func CurrentRange() PortRange {
	r := PortRange{
		Start: envPort("SINGLEINSTANCE_PORT_START", defaultRange.Start),
		End:   envPort("SINGLEINSTANCE_PORT_END", defaultRange.End),
	}
	r.Start = max(r.Start, 1024)
	r.End = min(r.End, 65535)
	if r.End < r.Start {
		r.Start, r.End = r.End, r.Start
	}
	return r
}

func envPort(key string, def int) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return n
}

// Addrs lists the dial addresses in scan order.
func (r PortRange) Addrs() []string {
	addrs := make([]string, 0, r.End-r.Start+1)
	for p := r.Start; p <= r.End; p++ {
		addrs = append(addrs, net.JoinHostPort(residentHost, strconv.Itoa(p)))
	}
	return addrs
}
