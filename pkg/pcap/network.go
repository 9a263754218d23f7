package pcap

import "strconv"

// Network is the link-layer type of the packets in a capture, see
// https://tcpdump.org/linktypes.html. Values outside the named set are
// carried through unchanged.
type Network uint32

const (
	NetworkEthernet Network = 1
	NetworkRaw      Network = 101

	// Reserved for private use, see https://wiki.wireshark.org/HowToDissectAnything
	NetworkUser0  Network = 147
	NetworkUser1  Network = 148
	NetworkUser2  Network = 149
	NetworkUser3  Network = 150
	NetworkUser4  Network = 151
	NetworkUser5  Network = 152
	NetworkUser6  Network = 153
	NetworkUser7  Network = 154
	NetworkUser8  Network = 155
	NetworkUser9  Network = 156
	NetworkUser10 Network = 157
	NetworkUser11 Network = 158
	NetworkUser12 Network = 159
	NetworkUser13 Network = 160
	NetworkUser14 Network = 161
	NetworkUser15 Network = 162

	// IEEE 802.15.4 radio: ZigBee, Thread
	NetworkIEEE802_15_4 Network = 195
)

// IsUser reports whether n is one of the private-use link types.
func (n Network) IsUser() bool {
	return n >= NetworkUser0 && n <= NetworkUser15
}

func (n Network) String() string {
	switch {
	case n == NetworkEthernet:
		return "ETHERNET"
	case n == NetworkRaw:
		return "RAW"
	case n.IsUser():
		return "USER" + strconv.Itoa(int(n-NetworkUser0))
	case n == NetworkIEEE802_15_4:
		return "IEEE802_15_4"
	default:
		return "Network(" + strconv.FormatUint(uint64(n), 10) + ")"
	}
}

// ParseNetwork accepts a link type name as printed by String or a decimal
// number.
func ParseNetwork(s string) (Network, error) {
	switch s {
	case "ETHERNET", "ethernet":
		return NetworkEthernet, nil
	case "RAW", "raw":
		return NetworkRaw, nil
	case "IEEE802_15_4", "ieee802_15_4":
		return NetworkIEEE802_15_4, nil
	}
	for i := NetworkUser0; i <= NetworkUser15; i++ {
		if s == i.String() {
			return i, nil
		}
	}
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return Network(v), nil
}
