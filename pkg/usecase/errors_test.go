package usecase_test

import (
	"errors"
	"testing"

	"github.com/appu-labs/appu/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestErrors_SentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrEmbeddingUnavailable", usecase.ErrEmbeddingUnavailable},
		{"ErrStoreWriteFailure", usecase.ErrStoreWriteFailure},
		{"ErrConsolidationChildFailure", usecase.ErrConsolidationChildFailure},
		{"ErrInvalidQuery", usecase.ErrInvalidQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.err).NotNil()
			wrapped := goerr.Wrap(tt.err, "wrapped")
			gt.Bool(t, errors.Is(wrapped, tt.err)).True()
		})
	}
}

func TestErrors_ErrorsAreDistinct(t *testing.T) {
	gt.Bool(t, errors.Is(usecase.ErrEmbeddingUnavailable, usecase.ErrStoreWriteFailure)).False()
	gt.Bool(t, errors.Is(usecase.ErrStoreWriteFailure, usecase.ErrConsolidationChildFailure)).False()
	gt.Bool(t, errors.Is(usecase.ErrConsolidationChildFailure, usecase.ErrInvalidQuery)).False()
}
