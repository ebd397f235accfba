package pipeline

import (
	"bufio"
	"strings"

	"github.com/kiranshivaraju/gitverified/pkg/models"
)

// Marker tokens printed by the trigger script.
const (
	markerFatal   = "[FATAL]"
	markerError   = "[ERROR]"
	markerSuccess = "[SUCCESS] Workflow ID:"

	unknownExecutionID = "unknown_id"
	unknownScriptError = "Unknown Python Error"
)

// ClassifyOutput turns the trigger script's output into a Result.
//
// A script may print key=value lines (execution_id=..., status=ok|error,
// error=...); when an execution_id or status key is present it wins. Otherwise
// the legacy marker tokens are matched in the trimmed stdout.
func ClassifyOutput(stdout, stderr string, runErr error) Result {
	output := strings.TrimSpace(stdout)

	if res, ok := classifyStructured(output); ok {
		return res
	}

	if strings.Contains(output, markerFatal) || strings.Contains(output, markerError) || (runErr != nil && output == "") {
		msg := output
		if msg == "" {
			msg = strings.TrimSpace(stderr)
		}
		if msg == "" {
			msg = unknownScriptError
		}
		return Failed(models.ExecutionFailedTrigger, msg)
	}

	if idx := strings.Index(output, markerSuccess); idx >= 0 {
		rest := output[idx+len(markerSuccess):]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[:nl]
		}
		id := strings.TrimSpace(rest)
		if id == "" {
			id = unknownExecutionID
		}
		return Success(id, "")
	}

	return Failed(models.ExecutionFailedParse, output)
}

func classifyStructured(output string) (Result, bool) {
	fields := map[string]string{}
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "execution_id", "status", "error":
			fields[key] = strings.TrimSpace(value)
		}
	}

	id, hasID := fields["execution_id"]
	status, hasStatus := fields["status"]
	if !hasID && !hasStatus {
		return Result{}, false
	}

	if status == "error" || (hasID && id == "") {
		msg := fields["error"]
		if msg == "" {
			msg = output
		}
		return Failed(models.ExecutionFailedTrigger, msg), true
	}
	if !hasID {
		// status without an id is not something the driver can act on
		return Failed(models.ExecutionFailedParse, output), true
	}
	return Success(id, ""), true
}
