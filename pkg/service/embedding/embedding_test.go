package embedding_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/appu-labs/appu/pkg/domain/model"
	"github.com/appu-labs/appu/pkg/service/embedding"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
)

type mockLLMClient struct {
	generateEmbeddingFn func(ctx context.Context, dimension int, input []string) ([][]float64, error)
}

func (m *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return nil, nil
}

func (m *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	return m.generateEmbeddingFn(ctx, dimension, input)
}

func TestEmbed(t *testing.T) {
	t.Run("converts provider vector", func(t *testing.T) {
		var gotDim int
		var gotInput []string
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				gotDim = dimension
				gotInput = input
				return [][]float64{{0.5, -0.25, 1}}, nil
			},
		}

		client := embedding.New(llm, embedding.WithDimension(3))
		vec, err := client.Embed(context.Background(), "I love elephants")
		gt.NoError(t, err).Required()
		gt.Value(t, vec).Equal(model.Embedding{0.5, -0.25, 1})
		gt.Value(t, gotDim).Equal(3)
		gt.Value(t, gotInput).Equal([]string{"I love elephants"})
		gt.Value(t, client.Dimension()).Equal(3)
	})

	t.Run("default dimension", func(t *testing.T) {
		client := embedding.New(&mockLLMClient{})
		gt.Value(t, client.Dimension()).Equal(model.DefaultEmbeddingDimension)
	})

	t.Run("provider error is wrapped", func(t *testing.T) {
		errProvider := errors.New("quota exceeded")
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				return nil, errProvider
			},
		}

		_, err := embedding.New(llm).Embed(context.Background(), "hello")
		gt.Error(t, err).Is(errProvider)
	})

	t.Run("empty result", func(t *testing.T) {
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				return [][]float64{}, nil
			},
		}

		_, err := embedding.New(llm).Embed(context.Background(), "hello")
		gt.Error(t, err).Is(embedding.ErrEmptyEmbedding)
	})

	t.Run("blank text is rejected without calling provider", func(t *testing.T) {
		called := false
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				called = true
				return nil, nil
			},
		}

		_, err := embedding.New(llm).Embed(context.Background(), "   ")
		gt.Error(t, err).Is(embedding.ErrEmptyText)
		gt.Bool(t, called).False()
	})

	t.Run("timeout cancels provider call", func(t *testing.T) {
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
		}

		_, err := embedding.New(llm, embedding.WithTimeout(10*time.Millisecond)).Embed(context.Background(), "hello")
		gt.Error(t, err).Is(context.DeadlineExceeded)
	})
}
