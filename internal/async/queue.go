package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one receipt file waiting to be imported.
type Job struct {
	ID          uuid.UUID
	Path        string
	Force       bool // import even if the ledger already has the receipt
	SubmittedAt time.Time
	RunID       string
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}

// Handler processes a single job. Items within a receipt are handled by the
// handler sequentially; the queue only parallelizes across jobs.
type Handler interface {
	Handle(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) error

func (f HandlerFunc) Handle(ctx context.Context, job Job) error { return f(ctx, job) }
