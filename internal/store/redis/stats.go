package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/scout-hq/scout/internal/domain"
)

// IndexStats reads document count and vector dimensionality via FT.INFO.
// Dimensions is 0 when the server does not report it.
func (s *Store) IndexStats(ctx context.Context) (domain.IndexStats, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(s.index).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("ft.info: %w", err)
	}

	stats := domain.IndexStats{IndexName: s.index}

	// FT.INFO replies with a flat key/value array.
	for i := 0; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}
		switch key {
		case "num_docs":
			stats.NumDocs = asInt(raw[i+1])
		case "attributes":
			stats.Dimensions = findVectorDim(raw[i+1])
		}
	}

	return stats, nil
}

// findVectorDim scans attribute definitions for the vector field's "dim" entry.
func findVectorDim(msg rueidis.RedisMessage) int {
	attrs, err := msg.ToArray()
	if err != nil {
		return 0
	}
	for _, attr := range attrs {
		pairs, err := attr.ToArray()
		if err != nil {
			continue
		}
		for j := 0; j+1 < len(pairs); j++ {
			key, err := pairs[j].ToString()
			if err != nil || key != "dim" {
				continue
			}
			if dim := asInt(pairs[j+1]); dim > 0 {
				return dim
			}
		}
	}
	return 0
}

// asInt reads a RESP value that may arrive as either integer or string.
func asInt(msg rueidis.RedisMessage) int {
	if n, err := msg.AsInt64(); err == nil {
		return int(n)
	}
	if str, err := msg.ToString(); err == nil {
		if n, err := strconv.Atoi(str); err == nil {
			return n
		}
	}
	return 0
}
