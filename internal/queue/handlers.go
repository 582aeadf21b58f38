package queue

import (
	"context"

	"github.com/hibiken/asynq"
)

// Registry collects task handlers for the ingestion worker before the
// asynq server starts serving.
type Registry struct {
	mux *asynq.ServeMux
}

func NewRegistry() *Registry {
	return &Registry{mux: asynq.NewServeMux()}
}

// RegisterFunc binds a task type to a plain handler function.
func (r *Registry) RegisterFunc(taskType string, fn func(context.Context, *asynq.Task) error) {
	r.mux.HandleFunc(taskType, fn)
}

func (r *Registry) Register(taskType string, handler asynq.Handler) {
	r.mux.Handle(taskType, handler)
}

func (r *Registry) Mux() *asynq.ServeMux {
	return r.mux
}
