package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wms-platform/lpn-service/internal/domain"
)

// lpnSequenceKey holds the last issued LPN number
const lpnSequenceKey = "lpn-service:seq:lpn"

// LpnSequence issues LPN ids with INCR
type LpnSequence struct {
	client goredis.Cmdable
}

func NewLpnSequence(client goredis.Cmdable) *LpnSequence {
	return &LpnSequence{client: client}
}

func (s *LpnSequence) NextLpnID(ctx context.Context) (string, error) {
	seq, err := s.client.Incr(ctx, lpnSequenceKey).Result()
	if err != nil {
		return "", fmt.Errorf("%w: failed to advance lpn sequence: %v", domain.ErrStorageUnavailable, err)
	}
	return domain.FormatLpnID(seq), nil
}
