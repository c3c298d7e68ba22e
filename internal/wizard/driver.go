package wizard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
)

// ErrAborted is returned when the user interrupts the wizard or declines to
// overwrite an existing config
var ErrAborted = errors.New("wizard: aborted")

// InputConfig is a free text question. An empty answer takes Default.
type InputConfig struct {
	Message   string
	Default   string
	Validator func(string) error
}

type ConfirmConfig struct {
	Message string
	Default bool
}

// SelectConfig is a choice between Options, preselecting Default
type SelectConfig struct {
	Message string
	Options []string
	Default string
}

// Prompter asks the wizard's questions
type Prompter interface {
	Input(ctx context.Context, cfg InputConfig) (string, error)
	Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error)
	Select(ctx context.Context, cfg SelectConfig) (string, error)
	Info(ctx context.Context, msg string) error
}

// terminalPrompter asks on the controlling terminal
type terminalPrompter struct {
	out io.Writer
}

// NewSurveyPrompter returns a Prompter backed by survey
func NewSurveyPrompter() Prompter {
	return &terminalPrompter{out: os.Stdout}
}

func (p *terminalPrompter) Input(ctx context.Context, cfg InputConfig) (string, error) {
	var opts []survey.AskOpt
	if cfg.Validator != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			s, _ := ans.(string)
			return cfg.Validator(s)
		}))
	}
	var answer string
	err := ask(ctx, &survey.Input{Message: cfg.Message, Default: cfg.Default}, &answer, opts...)
	return answer, err
}

func (p *terminalPrompter) Confirm(ctx context.Context, cfg ConfirmConfig) (bool, error) {
	var answer bool
	err := ask(ctx, &survey.Confirm{Message: cfg.Message, Default: cfg.Default}, &answer)
	return answer, err
}

func (p *terminalPrompter) Select(ctx context.Context, cfg SelectConfig) (string, error) {
	prompt := &survey.Select{Message: cfg.Message, Options: cfg.Options}
	if cfg.Default != "" {
		prompt.Default = cfg.Default
	}
	var answer string
	err := ask(ctx, prompt, &answer)
	return answer, err
}

func (p *terminalPrompter) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(p.out, msg)
	return err
}

// ask runs one survey prompt; Ctrl+C becomes ErrAborted
func ask(ctx context.Context, prompt survey.Prompt, answer any, opts ...survey.AskOpt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := survey.AskOne(prompt, answer, opts...)
	if errors.Is(err, terminal.InterruptErr) {
		return ErrAborted
	}
	return err
}
