package dissect

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/irctrakz/pcapbuf/pkg/pcap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// makeIPv4 builds a minimal IPv4 packet with src/dst and payload.
func makeIPv4(src, dst net.IP, proto byte, payload []byte) []byte {
	ihl := 20
	total := ihl + len(payload)
	p := make([]byte, total)
	p[0] = 0x45
	p[2] = byte(total >> 8)
	p[3] = byte(total & 0xff)
	p[8] = 64
	p[9] = proto
	copy(p[12:16], src.To4())
	copy(p[16:20], dst.To4())
	var sum uint32
	for i := 0; i < 20; i += 2 {
		if i == 10 {
			continue
		}
		sum += uint32(p[i])<<8 | uint32(p[i+1])
	}
	for (sum >> 16) != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	cs := ^uint16(sum)
	p[10] = byte(cs >> 8)
	p[11] = byte(cs)
	copy(p[ihl:], payload)
	return p
}

func TestSummarizeRawICMP(t *testing.T) {
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &icmp.Echo{ID: 7, Seq: 3, Data: []byte("ping")},
	}
	body, err := msg.Marshal(nil)
	require.NoError(t, err)
	pkt := makeIPv4(net.IPv4(10, 0, 0, 1), net.IPv4(10, 0, 0, 2), 1, body)

	s := Summarize(pcap.NetworkRaw, pkt)
	assert.Contains(t, s, "IPv4 10.0.0.1 > 10.0.0.2")
	assert.Contains(t, s, "ICMP echo id 7 seq 3")
	assert.Contains(t, s, "ttl 64")
}

func TestSummarizeRawOtherProtocol(t *testing.T) {
	pkt := makeIPv4(net.IPv4(192, 168, 0, 1), net.IPv4(192, 168, 0, 9), 17, make([]byte, 8))

	s := Summarize(pcap.NetworkRaw, pkt)
	assert.Contains(t, s, "IPv4 192.168.0.1 > 192.168.0.9 proto 17")
}

func TestSummarizeEthernetUDP(t *testing.T) {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0, 1, 2, 3, 4, 5},
		DstMAC:       net.HardwareAddr{6, 7, 8, 9, 10, 11},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.IPv4(172, 16, 0, 1),
		DstIP:    net.IPv4(172, 16, 0, 2),
	}
	udp := &layers.UDP{SrcPort: 5353, DstPort: 5353}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))

	sb := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(sb, opts, eth, ip, udp, gopacket.Payload([]byte("hello"))))

	s := Summarize(pcap.NetworkEthernet, sb.Bytes())
	assert.Contains(t, s, "IPv4 172.16.0.1 > 172.16.0.2")
	assert.Contains(t, s, "UDP")
	assert.Contains(t, s, "bytes")
	assert.NotContains(t, s, "undecoded")
}

func TestSummarizeUnknown(t *testing.T) {
	s := Summarize(pcap.NetworkUser2, []byte{1, 2, 3})
	assert.Contains(t, s, "3 bytes")

	s = Summarize(pcap.Network(4000), []byte{1, 2})
	assert.Equal(t, "Network(4000), 2 bytes", s)
}

func TestIsIPv4(t *testing.T) {
	assert.False(t, IsIPv4(nil))
	assert.False(t, IsIPv4(make([]byte, 20)))
	assert.True(t, IsIPv4(makeIPv4(net.IPv4(1, 1, 1, 1), net.IPv4(2, 2, 2, 2), 6, nil)))
}
