package proofreader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	pipelineName      = "AI ProofReader"
	completionMessage = "App Generated all things!"

	RephraseTaskName = "Rephrasing Text"
	RemarksTaskName  = "Remarks"

	rephraseTemplate = "Use the description provided, Check the whole: '%s' and rephrase the text " +
		"according grammar, spelling, punctuation, and formatting errors, " +
		"[!Important] Avoid Introduction and conclusion from the response"

	remarksTemplate = "Check the whole: '%s' and provide the remarks in bullet points " +
		"according grammar, spelling, punctuation, and formatting errors, " +
		"[!Important] Avoid Introduction and conclusion from the response"
)

var ErrEmptyText = errors.New("text is empty")

//nolint:gochecknoglobals // Immutable persona shared by both tasks.
var proofreaderAgent = Agent{
	Role: "AI Proofreader",
	Persona: "You are an expert proofreader who are expert to find the grammatical error, " +
		"as well you are very good at check for grammar, spelling, punctuation, and formatting errors",
}

type Result struct {
	Original  string
	Rephrased string
	Remarks   string
}

type Proofreader struct {
	completer Completer
	log       *slog.Logger
}

func New(completer Completer, log *slog.Logger) *Proofreader {
	return &Proofreader{
		completer: completer,
		log:       log,
	}
}

// Proofread asks the model for a corrected version of text and for a bullet
// list of remarks, in that order.
func (p *Proofreader) Proofread(ctx context.Context, text string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, ErrEmptyText
	}

	pipeline := Pipeline{
		Name:              pipelineName,
		CompletionMessage: completionMessage,
		Tasks:             Tasks(text),
		Completer:         p.completer,
		Log:               p.log,
	}

	outputs, err := pipeline.Run(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("run pipeline: %w", err)
	}

	if len(outputs) != 2 {
		return Result{}, fmt.Errorf("unexpected pipeline output count: %d", len(outputs))
	}

	return Result{
		Original:  text,
		Rephrased: outputs[0].Output,
		Remarks:   outputs[1].Output,
	}, nil
}

// Tasks returns the rephrase and remarks tasks for text.
func Tasks(text string) []Task {
	return []Task{
		{
			Name:         RephraseTaskName,
			Agent:        proofreaderAgent,
			Instructions: fmt.Sprintf(rephraseTemplate, text),
		},
		{
			Name:         RemarksTaskName,
			Agent:        proofreaderAgent,
			Instructions: fmt.Sprintf(remarksTemplate, text),
		},
	}
}
