package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/scout-hq/scout/internal/domain"
)

// profileFields are the stored hash fields returned with each match.
var profileFields = []string{
	"full_name", "headline", "current_company", "location", "ai_summary", "companies",
}

// SearchKNN runs a KNN similarity query via FT.SEARCH and returns candidates
// in descending score order. An empty reply is not an error.
func (s *Store) SearchKNN(ctx context.Context, vector []float32, topK int) ([]domain.Candidate, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}

	queryStr := fmt.Sprintf("*=>[KNN %d @vector $BLOB]", topK)

	args := []string{s.index, queryStr}
	args = append(args, "RETURN", strconv.Itoa(len(profileFields)+1))
	args = append(args, profileFields...)
	args = append(args, "__vector_score")
	args = append(args,
		"SORTBY", "__vector_score",
		"LIMIT", "0", strconv.Itoa(topK),
		"PARAMS", "2", "BLOB", vectorToBytes(vector),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, fmt.Errorf("ft.search: %w", err)
	}

	return parseKNNResult(raw)
}

func parseKNNResult(raw []rueidis.RedisMessage) ([]domain.Candidate, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	candidates := make([]domain.Candidate, 0, total)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fieldMsgs, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}
		fields := parseFieldPairs(fieldMsgs)

		c := domain.Candidate{
			ID: key,
			Attrs: domain.Attributes{
				FullName:       fields["full_name"],
				Headline:       fields["headline"],
				CurrentCompany: fields["current_company"],
				Location:       fields["location"],
				RawSummary:     fields["ai_summary"],
				Companies:      fields["companies"],
			},
		}

		if scoreStr, ok := fields["__vector_score"]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				c.Score = max(0, 1.0-d) // cosine distance → similarity, clamped to [0,1]
			}
		}

		candidates = append(candidates, c)
	}

	return candidates, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
