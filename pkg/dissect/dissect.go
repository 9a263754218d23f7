// Package dissect renders one-line summaries of captured packets.
package dissect

import (
	"fmt"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/irctrakz/pcapbuf/pkg/pcap"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

const protoICMP = 1

// Summarize describes a packet payload of the given link type. It never
// fails; undecodable data is described by link type and length.
func Summarize(network pcap.Network, data []byte) string {
	if network == pcap.NetworkRaw && IsIPv4(data) {
		if s, ok := summarizeIPv4(data); ok {
			return s
		}
	}
	if network > 0xff {
		return fmt.Sprintf("%s, %d bytes", network, len(data))
	}

	pkt := gopacket.NewPacket(data, layers.LinkType(network), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	return summarizeLayers(network, pkt, len(data))
}

// IsIPv4 reports whether b appears to be an IPv4 packet.
func IsIPv4(b []byte) bool { return len(b) >= ipv4.HeaderLen && b[0]>>4 == 4 }

func summarizeIPv4(b []byte) (string, bool) {
	h, err := ipv4.ParseHeader(b)
	if err != nil || h.Len > len(b) {
		return "", false
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "IPv4 %s > %s", h.Src, h.Dst)
	switch h.Protocol {
	case protoICMP:
		if m, err := icmp.ParseMessage(protoICMP, b[h.Len:]); err == nil {
			fmt.Fprintf(&sb, " ICMP %v", m.Type)
			if echo, ok := m.Body.(*icmp.Echo); ok {
				fmt.Fprintf(&sb, " id %d seq %d", echo.ID, echo.Seq)
			}
		} else {
			sb.WriteString(" ICMP (malformed)")
		}
	default:
		fmt.Fprintf(&sb, " proto %d", h.Protocol)
	}
	fmt.Fprintf(&sb, ", ttl %d, %d bytes", h.TTL, len(b))
	return sb.String(), true
}

func summarizeLayers(network pcap.Network, pkt gopacket.Packet, n int) string {
	var parts []string
	if nl := pkt.NetworkLayer(); nl != nil {
		f := nl.NetworkFlow()
		parts = append(parts, fmt.Sprintf("%s %s > %s", nl.LayerType(), f.Src(), f.Dst()))
	}
	if tl := pkt.TransportLayer(); tl != nil {
		f := tl.TransportFlow()
		parts = append(parts, fmt.Sprintf("%s %s > %s", tl.LayerType(), f.Src(), f.Dst()))
	}
	if len(parts) == 0 {
		for _, l := range pkt.Layers() {
			if l.LayerType() == gopacket.LayerTypeDecodeFailure {
				continue
			}
			parts = append(parts, l.LayerType().String())
		}
	}
	if len(parts) == 0 {
		parts = append(parts, network.String())
	}
	if pkt.ErrorLayer() != nil {
		parts = append(parts, "undecoded")
	}
	parts = append(parts, fmt.Sprintf("%d bytes", n))
	return strings.Join(parts, ", ")
}
