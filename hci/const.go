package hci

import "github.com/rigado/sdc/raw"

// HCI Packet types
const (
	PktTypeCommand uint8 = 0x01
	PktTypeACLData uint8 = 0x02
	PktTypeSCOData uint8 = 0x03
	PktTypeEvent   uint8 = 0x04
	PktTypeVendor  uint8 = 0xFF
)

// Header lengths, type byte included.
const (
	eventHeaderLength   = 3
	aclHeaderLength     = 5
	commandHeaderLength = 4
)

const (
	readBufferSize  = 1 + raw.HCIMsgBufferMaxSize
	writeBufferSize = 1 + raw.HCIMsgBufferMaxSize
)
