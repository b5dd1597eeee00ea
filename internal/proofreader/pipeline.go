package proofreader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"proofreader/internal/metrics"
)

// Completer sends one instruction/prompt pair to a hosted model and returns
// the generated text.
type Completer interface {
	Complete(ctx context.Context, instructions, prompt string) (string, error)
}

// Agent is the persona every task of a pipeline speaks as.
type Agent struct {
	Role    string
	Persona string
}

// Task is a single remote call.
type Task struct {
	Name         string
	Agent        Agent
	Instructions string
}

type TaskOutput struct {
	Name   string
	Output string
}

// Pipeline runs its tasks one after another. There is no branching: the
// first failing task aborts the run.
type Pipeline struct {
	Name              string
	CompletionMessage string
	Tasks             []Task
	Completer         Completer
	Log               *slog.Logger
}

func (p *Pipeline) Run(ctx context.Context) ([]TaskOutput, error) {
	outputs := make([]TaskOutput, 0, len(p.Tasks))

	for i, task := range p.Tasks {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run task %q: %w", task.Name, err)
		}

		start := time.Now()
		output, err := p.Completer.Complete(ctx, task.Agent.Persona, task.Instructions)
		elapsed := time.Since(start)
		metrics.TaskDuration.WithLabelValues(task.Name).Observe(elapsed.Seconds())

		if err != nil {
			return nil, fmt.Errorf("run task %q: %w", task.Name, err)
		}

		p.Log.DebugContext(ctx, "Task is done",
			"pipeline", p.Name,
			"task", task.Name,
			"role", task.Agent.Role,
			"index", i,
			"elapsedMs", elapsed.Milliseconds(),
			"output", output)

		outputs = append(outputs, TaskOutput{Name: task.Name, Output: output})
	}

	p.Log.InfoContext(ctx, p.CompletionMessage,
		"pipeline", p.Name,
		"tasks", len(outputs))

	return outputs, nil
}
