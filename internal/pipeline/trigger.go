package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/kiranshivaraju/gitverified/internal/kestra"
	"github.com/kiranshivaraju/gitverified/pkg/models"
)

const (
	DefaultJobDescription = "Generic Engineer"
	maxJobDescription     = 500
)

// whitespaceRun matches the same characters as a JavaScript \s class,
// including no-break and narrow no-break spaces.
var whitespaceRun = regexp.MustCompile(`[\s\v\p{Zs}\x{2028}\x{2029}\x{FEFF}]+`)

// FileStore persists the staged resume. Satisfied by *storage.Local.
type FileStore interface {
	Save(name string, r io.Reader) (string, string, error)
}

// Recorder keeps a history of runs. Optional.
type Recorder interface {
	CreatePipelineRun(ctx context.Context, run *models.PipelineRun) error
}

// Options configures a Trigger.
type Options struct {
	MountDir      string
	ScriptPath    string
	Interpreters  []string
	ScriptTimeout time.Duration
}

// Trigger stages a resume and starts the workflow for it.
type Trigger struct {
	files        FileStore
	mountDir     string
	interpreters []string
	strategies   []Strategy
	recorder     Recorder
}

// New builds a Trigger that tries the engine API first and then the script
// under each interpreter, in order. recorder may be nil.
func New(files FileStore, engine kestra.Client, runner Runner, rec Recorder, opts Options) *Trigger {
	strategies := []Strategy{NewHTTPStrategy(engine)}
	for _, interp := range opts.Interpreters {
		strategies = append(strategies, NewScriptStrategy(runner, interp, opts.ScriptPath, opts.ScriptTimeout))
	}
	return &Trigger{
		files:        files,
		mountDir:     strings.TrimSuffix(opts.MountDir, "/"),
		interpreters: opts.Interpreters,
		strategies:   strategies,
		recorder:     rec,
	}
}

// Run stages the file and walks the strategies. The returned error is set
// only for failures outside the expected outcomes (e.g. the file could not
// be written); every expected outcome, including failures, is a TriggerOutcome.
func (t *Trigger) Run(ctx context.Context, originalName string, file io.Reader, jobDescription string) (models.TriggerOutcome, error) {
	filename, hostPath, err := t.files.Save(SanitizeFilename(originalName), file)
	if err != nil {
		return models.TriggerOutcome{}, fmt.Errorf("staging file: %w", err)
	}
	slog.Info("resume staged for pipeline", "filename", filename, "path", hostPath)

	if jobDescription == "" {
		jobDescription = DefaultJobDescription
	}

	job := Job{
		Filename:       filename,
		HostPath:       hostPath,
		MountPath:      path.Join(t.mountDir, filename),
		JobDescription: CleanJobDescription(jobDescription),
		CandidateName:  "Candidate_" + uuid.NewString()[:8],
	}

	for _, s := range t.strategies {
		res := s.Attempt(ctx, job)
		switch res.Kind {
		case KindNotAvailable:
			slog.Warn("pipeline strategy not available, trying next",
				"strategy", s.Name(), "filename", filename, "error", res.Reason)
			continue
		case KindSuccess:
			slog.Info("pipeline execution started",
				"strategy", s.Name(), "execution_id", res.ExecutionID, "filename", filename)
		default:
			slog.Error("pipeline trigger failed",
				"strategy", s.Name(), "execution_id", res.ExecutionID, "filename", filename, "error", res.Message)
		}

		out := models.TriggerOutcome{
			// Failed script runs still report success=true; the UI keys off
			// execution_id and error.
			Success:     true,
			ExecutionID: res.ExecutionID,
			Filename:    filename,
			Link:        res.Link,
			Error:       res.Message,
		}
		t.record(ctx, s.Name(), out)
		return out, nil
	}

	out := models.TriggerOutcome{
		Success:     false,
		ExecutionID: models.ExecutionFailedNoPython,
		Filename:    filename,
		Error:       "Python not found. Tried: " + strings.Join(t.interpreters, ", "),
	}
	slog.Error("no interpreter available for pipeline trigger",
		"filename", filename, "interpreters", t.interpreters)
	t.record(ctx, "none", out)
	return out, nil
}

func (t *Trigger) record(ctx context.Context, strategy string, out models.TriggerOutcome) {
	if t.recorder == nil {
		return
	}
	run := &models.PipelineRun{
		ID:          uuid.New(),
		Filename:    out.Filename,
		ExecutionID: out.ExecutionID,
		Success:     out.Success && !isSentinel(out.ExecutionID),
		Strategy:    strategy,
		Link:        out.Link,
		Error:       out.Error,
		CreatedAt:   time.Now().UTC(),
	}
	if err := t.recorder.CreatePipelineRun(context.WithoutCancel(ctx), run); err != nil {
		slog.Warn("recording pipeline run failed", "execution_id", out.ExecutionID, "error", err)
	}
}

func isSentinel(executionID string) bool {
	return lo.Contains([]string{
		models.ExecutionFailedNoPython,
		models.ExecutionFailedTrigger,
		models.ExecutionFailedParse,
		models.ExecutionFailedTimeout,
	}, executionID)
}

// SanitizeFilename replaces each run of whitespace with a single underscore.
func SanitizeFilename(name string) string {
	return whitespaceRun.ReplaceAllString(name, "_")
}

// CleanJobDescription swaps double quotes for single quotes and keeps at most
// 500 characters.
func CleanJobDescription(jd string) string {
	jd = strings.ReplaceAll(jd, `"`, "'")
	if utf8.RuneCountInString(jd) <= maxJobDescription {
		return jd
	}
	runes := []rune(jd)
	return string(runes[:maxJobDescription])
}
