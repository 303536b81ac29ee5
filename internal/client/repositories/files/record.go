package files

import (
	"fmt"

	"github.com/dmitrijs2005/claimkeeper/internal/common"
	"github.com/dmitrijs2005/claimkeeper/internal/cryptox"
)

// recordVersion prefixes every encoded bbolt record.
const recordVersion byte = 1

// encodeRecord lays a record out as version | checksum | payload.
func encodeRecord(blob []byte) []byte {
	out := make([]byte, 0, 1+cryptox.SumSize+len(blob))
	out = append(out, recordVersion)
	out = append(out, cryptox.Checksum(blob)...)
	return append(out, blob...)
}

// decodeRecord validates raw and returns a copy of its payload.
func decodeRecord(id string, raw []byte) ([]byte, error) {
	if len(raw) < 1+cryptox.SumSize || raw[0] != recordVersion {
		return nil, fmt.Errorf("blob %s: malformed record: %w", id, common.ErrChecksumMismatch)
	}
	sum := raw[1 : 1+cryptox.SumSize]
	payload := make([]byte, len(raw)-1-cryptox.SumSize)
	copy(payload, raw[1+cryptox.SumSize:])

	if !cryptox.Verify(payload, sum) {
		return nil, fmt.Errorf("blob %s: %w", id, common.ErrChecksumMismatch)
	}
	return payload, nil
}
