package repository

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/rekko-enroll/internal/domain"
)

func bucketNames(buckets []domain.PoseBucket) []string {
	out := make([]string, len(buckets))
	for i, b := range buckets {
		out[i] = b.String()
	}
	return out
}

func parseBuckets(names []string) ([]domain.PoseBucket, error) {
	out := make([]domain.PoseBucket, 0, len(names))
	for _, n := range names {
		b, err := domain.ParsePoseBucket(n)
		if err != nil {
			return nil, fmt.Errorf("stored bucket %q: %w", n, err)
		}
		out = append(out, b)
	}
	return out, nil
}
