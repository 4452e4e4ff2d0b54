// Package remote mirrors task mutations to a backend.
//
// Sinks are best-effort: they report transport failures to the caller but
// never inspect what the backend answers.
package remote

import (
	"context"

	"github.com/Makepad-fr/tarefas/internal/model"
)

// Sink receives one call per task mutation.
type Sink interface {
	Create(ctx context.Context, task model.Task) error
	Update(ctx context.Context, id int64, title string) error
	Delete(ctx context.Context, id int64) error
}

// Nop drops every call. Used when sync is switched off.
type Nop struct{}

func (Nop) Create(context.Context, model.Task) error    { return nil }
func (Nop) Update(context.Context, int64, string) error { return nil }
func (Nop) Delete(context.Context, int64) error         { return nil }
