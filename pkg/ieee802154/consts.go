package ieee802154

const (
	// PhyMTU is the maximum PHY service data unit, overhead included.
	PhyMTU = 128
	// PhyOverhead is the number of PHY octets not available to the MAC layer.
	PhyOverhead = 3
	// MacMTU is the maximum MAC frame length without the frame check sequence.
	MacMTU = PhyMTU - PhyOverhead
	// MacOverhead is the length of the frame check sequence.
	MacOverhead = 2

	// HeaderPrefixLen is FCF(2) + sequence(1) + PAN(2).
	HeaderPrefixLen = 5
	// MaxHeaderLen is the longest header this model produces: prefix, extended destination,
	// source PAN and extended source.
	MaxHeaderLen = HeaderPrefixLen + 8 + 2 + 8

	// BroadcastPAN is the PAN identifier reported by an unassociated radio.
	BroadcastPAN uint16 = 0xffff
	// ShortAddrUnassigned is the short address reported before association.
	ShortAddrUnassigned uint16 = 0xffff
	// ShortAddrBroadcast is the broadcast short address.
	ShortAddrBroadcast uint16 = 0xffff
)
