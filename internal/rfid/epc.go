package rfid

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedEpcHeader = errors.New("unsupported epc header")
	ErrMalformedEpc         = errors.New("malformed epc")
)

// SGTIN96Header is the first byte of every SGTIN-96 tag.
const SGTIN96Header = 0x30

const (
	epcHexLength = 24
	serialBits   = 38
	prefixOffset = 8 + 3 + 3 // header, filter, partition
)

// partitionTable maps the partition value to company prefix and item
// reference bit widths. The two always add up to 44.
var partitionTable = [7]struct{ companyBits, itemBits int }{
	{40, 4},
	{37, 7},
	{34, 10},
	{30, 14},
	{27, 17},
	{24, 20},
	{20, 24},
}

// SGTIN96 is a decoded serialized GTIN tag.
type SGTIN96 struct {
	Filter            uint8
	Partition         uint8
	CompanyPrefix     uint64
	ItemReference     uint64
	Serial            uint64
	CompanyPrefixBits int
	ItemReferenceBits int
}

// SKU renders the product part of the tag as "{companyPrefix}.{itemReference}".
func (t SGTIN96) SKU() string {
	return fmt.Sprintf("%d.%d", t.CompanyPrefix, t.ItemReference)
}

// ParseSGTIN96 decodes a 96-bit tag given as 24 hex characters.
func ParseSGTIN96(epc string) (SGTIN96, error) {
	s := strings.TrimSpace(epc)
	if len(s) != epcHexLength {
		return SGTIN96{}, fmt.Errorf("%w: want %d hex characters, got %d", ErrMalformedEpc, epcHexLength, len(s))
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return SGTIN96{}, fmt.Errorf("%w: %v", ErrMalformedEpc, err)
	}

	r := bitReader(raw)
	if header := r.read(0, 8); header != SGTIN96Header {
		return SGTIN96{}, fmt.Errorf("%w: 0x%02X", ErrUnsupportedEpcHeader, header)
	}

	partition := r.read(11, 3)
	if partition >= uint64(len(partitionTable)) {
		return SGTIN96{}, fmt.Errorf("%w: partition %d", ErrMalformedEpc, partition)
	}
	widths := partitionTable[partition]

	return SGTIN96{
		Filter:            uint8(r.read(8, 3)),
		Partition:         uint8(partition),
		CompanyPrefix:     r.read(prefixOffset, widths.companyBits),
		ItemReference:     r.read(prefixOffset+widths.companyBits, widths.itemBits),
		Serial:            r.read(len(raw)*8-serialBits, serialBits),
		CompanyPrefixBits: widths.companyBits,
		ItemReferenceBits: widths.itemBits,
	}, nil
}

// bitReader reads big-endian bit fields. Bit 0 is the most significant bit of byte 0.
type bitReader []byte

func (b bitReader) read(offset, width int) uint64 {
	var v uint64
	for i := offset; i < offset+width; i++ {
		bit := (b[i/8] >> (7 - uint(i%8))) & 1
		v = v<<1 | uint64(bit)
	}
	return v
}

// Read is one decoded tag from a reader batch.
type Read struct {
	EPC string
	Tag SGTIN96
}

// ParseBatch decodes every read it can. A bad tag is reported in rejected and
// never stops the rest of the batch.
func ParseBatch(epcs []string) (decoded []Read, rejected map[string]error) {
	for _, epc := range epcs {
		tag, err := ParseSGTIN96(epc)
		if err != nil {
			if rejected == nil {
				rejected = make(map[string]error)
			}
			rejected[epc] = err
			continue
		}
		decoded = append(decoded, Read{EPC: epc, Tag: tag})
	}
	return decoded, rejected
}
