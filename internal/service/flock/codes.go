package flock

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	batchCodePrefix = "B"
	codeAlphabet    = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeSuffixLen   = 3
	maxCodeRetries  = 5
)

// CodeGenerator produces a candidate batch code.
type CodeGenerator func(now time.Time) string

// NewBatchCode returns "B", the millisecond timestamp in upper-case base 36, and three random base 36 characters.
func NewBatchCode(now time.Time) string {
	var b strings.Builder
	b.WriteString(batchCodePrefix)
	b.WriteString(strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36)))
	for i := 0; i < codeSuffixLen; i++ {
		b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// uniqueCode regenerates on collision up to maxCodeRetries times. The last candidate is returned
// unchecked; the unique index on batch_code rejects it at insert if it is taken after all.
func (s *Service) uniqueCode(ctx context.Context) (string, error) {
	code := s.codes(s.clock.Now())
	for attempt := 0; attempt < maxCodeRetries; attempt++ {
		taken, err := s.store.Batches().CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
		code = s.codes(s.clock.Now())
	}
	s.logger.Warn("batch code collisions exhausted retries", zap.String("batch_code", code), zap.Int("retries", maxCodeRetries))
	return code, nil
}
