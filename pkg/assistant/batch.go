package assistant

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchConcurrency bounds AskAll.
const DefaultBatchConcurrency = 3

// Answer pairs a question with its reply.
type Answer struct {
	Question string `json:"question"`
	Reply    string `json:"reply"`
}

// AskAll sends every question concurrently (at most limit at a time) and
// returns the answers in question order. Replies are never errors, so the
// only failure is ctx being done before all questions were sent.
func AskAll(ctx context.Context, r Responder, questions []string, limit int) ([]Answer, error) {
	if limit <= 0 {
		limit = DefaultBatchConcurrency
	}
	answers := make([]Answer, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, q := range questions {
		if err := gctx.Err(); err != nil {
			break
		}
		i, q := i, q
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			answers[i] = Answer{Question: q, Reply: r.GenerateResponse(gctx, q)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return answers, err
	}
	if err := ctx.Err(); err != nil {
		return answers, err
	}
	return answers, nil
}
