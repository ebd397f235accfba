package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/kiranshivaraju/gitverified/internal/kestra"
	"github.com/kiranshivaraju/gitverified/pkg/models"
)

// Job is the staged input every strategy works from.
type Job struct {
	Filename       string
	HostPath       string
	MountPath      string
	JobDescription string
	CandidateName  string
}

// Strategy is one way of starting the workflow.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, job Job) Result
}

// Placeholder inputs the workflow resolves on its own later in the pipeline.
const (
	placeholderGameLog  = "1,2,3"
	placeholderRepo     = "mock/repo"
	placeholderLeetCode = "mock_user"
)

// HTTPStrategy starts the flow through the engine's REST API. It is tried
// exactly once; any failure hands over to the next strategy.
type HTTPStrategy struct {
	engine kestra.Client
}

func NewHTTPStrategy(engine kestra.Client) *HTTPStrategy {
	return &HTTPStrategy{engine: engine}
}

func (s *HTTPStrategy) Name() string { return "http" }

func (s *HTTPStrategy) Attempt(ctx context.Context, job Job) Result {
	id, err := s.engine.Execute(ctx, []kestra.Input{
		{Name: "candidate_name", Value: job.CandidateName},
		{Name: "pdf_path", Value: job.MountPath},
		{Name: "game_log", Value: placeholderGameLog},
		{Name: "job_description", Value: job.JobDescription},
		{Name: "github_reponame", Value: placeholderRepo},
		{Name: "leetcode_username", Value: placeholderLeetCode},
	})
	if err != nil {
		return NotAvailable(err)
	}
	return Success(id, s.engine.ExecutionLink(id))
}

// Runner executes a program and returns its stdout and stderr.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// ScriptStrategy runs the trigger script under one interpreter.
type ScriptStrategy struct {
	interpreter string
	script      string
	timeout     time.Duration
	runner      Runner
}

func NewScriptStrategy(runner Runner, interpreter, script string, timeout time.Duration) *ScriptStrategy {
	return &ScriptStrategy{
		interpreter: interpreter,
		script:      script,
		timeout:     timeout,
		runner:      runner,
	}
}

func (s *ScriptStrategy) Name() string { return "script:" + s.interpreter }

func (s *ScriptStrategy) Attempt(ctx context.Context, job Job) Result {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stdout, stderr, err := s.runner.Run(runCtx, s.interpreter, s.script, job.MountPath, job.JobDescription)
	if err != nil && interpreterMissing(err) {
		return NotAvailable(err)
	}
	if err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return Failed(models.ExecutionFailedTimeout,
			fmt.Sprintf("trigger script did not finish within %s", s.timeout))
	}
	return ClassifyOutput(stdout, stderr, err)
}

// interpreterMissing reports whether a spawn error means the interpreter
// itself does not exist, as opposed to the script failing.
func interpreterMissing(err error) bool {
	if errors.Is(err, exec.ErrNotFound) {
		return true
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 127 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "not found") || strings.Contains(msg, "not recognized")
}
