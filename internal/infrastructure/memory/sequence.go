package memory

import (
	"context"
	"sync/atomic"

	"github.com/wms-platform/lpn-service/internal/domain"
)

// LpnSequence issues LPN ids from an atomic counter
type LpnSequence struct {
	next atomic.Int64
}

// NewLpnSequence starts after last, so the first id is last+1
func NewLpnSequence(last int64) *LpnSequence {
	s := &LpnSequence{}
	s.next.Store(last)
	return s
}

func (s *LpnSequence) NextLpnID(context.Context) (string, error) {
	return domain.FormatLpnID(s.next.Add(1)), nil
}
