package pipeline

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/invoice-intake/constants"
)

// Outcome is the human-readable result of processing one document.
type Outcome struct {
	Code    constants.Outcome
	File    string
	Kind    constants.Kind
	Message string // status line shown to the uploader
	Warning string // set when the table insert failed after a successful append
	Err     error  // underlying cause for NO_TEXT and FAILED, and the insert error for warnings
}

// OK reports whether the record reached the CSV log.
func (o Outcome) OK() bool { return o.Code == constants.OutcomeSaved }

// Lines returns the status line followed by the database warning, if any.
func (o Outcome) Lines() []string {
	if o.Warning == "" {
		return []string{o.Message}
	}
	return []string{o.Message, o.Warning}
}

// JoinStatuses renders outcomes for display, one paragraph per line.
func JoinStatuses(outs []Outcome) string {
	var lines []string
	for _, o := range outs {
		lines = append(lines, o.Lines()...)
	}
	return strings.Join(lines, "\n\n")
}

func savedOutcome(name string, kind constants.Kind) Outcome {
	msg := "✅ Parsed and saved: " + name
	if constants.FormatOf(kind) == constants.IMAGE {
		msg = "✅ OCR’d and saved: " + name
	}
	return Outcome{Code: constants.OutcomeSaved, File: name, Kind: kind, Message: msg}
}

func noTextOutcome(name string, kind constants.Kind, cause error) Outcome {
	msg := fmt.Sprintf("⚠️ OCR returned empty text for %s", name)
	if constants.FormatOf(kind) == constants.PDF {
		msg = fmt.Sprintf("⚠️ Could not read text from %s (likely a scanned PDF). Convert to image and re-upload.", name)
	}
	return Outcome{Code: constants.OutcomeNoText, File: name, Kind: kind, Message: msg, Err: cause}
}

func unsupportedOutcome(name string, kind constants.Kind) Outcome {
	return Outcome{
		Code:    constants.OutcomeUnsupported,
		File:    name,
		Kind:    kind,
		Message: "❌ Unsupported file type: " + name,
	}
}

func failedOutcome(name string, kind constants.Kind, err error) Outcome {
	return Outcome{
		Code:    constants.OutcomeFailed,
		File:    name,
		Kind:    kind,
		Message: fmt.Sprintf("❌ %s: %v", name, err),
		Err:     err,
	}
}

func insertWarning(name string, err error) string {
	return fmt.Sprintf("⚠️ DB insert warning for %s: %v", name, err)
}
