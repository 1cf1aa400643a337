package embedding

import (
	"context"
	"fmt"
	"math"
)

// DefaultBatchSize bounds peak memory of a single embedding request.
const DefaultBatchSize = 16

// InBatches partitions texts into batches of at most size and calls embed
// once per batch, concatenating the results in the original order. A batch
// failure aborts the whole call: no partial result is returned.
func InBatches(
	ctx context.Context,
	texts []string,
	size int,
	embed func(ctx context.Context, batch []string) ([][]float32, error),
) ([][]float32, error) {
	if size <= 0 {
		size = DefaultBatchSize
	}

	vectors := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += size {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		end := i + size
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := embed(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("error processing batch %d: %w", i/size, err)
		}
		if len(batch) != end-i {
			return nil, NewEmbeddingError("InBatches", nil, ErrCodeAPIError,
				fmt.Sprintf("batch %d returned %d vectors for %d inputs", i/size, len(batch), end-i))
		}

		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// Normalize scales a vector to unit length in place. Zero vectors are left
// untouched.
func Normalize(vector []float32) {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vector {
		vector[i] *= inv
	}
}
