package models

import (
	"fmt"
	"strings"
)

// Stage tracks where a saved posting is in the application process.
type Stage string

const (
	StageSaved        Stage = "saved"
	StageApplied      Stage = "applied"
	StageInterviewing Stage = "interviewing"
	StageRejected     Stage = "rejected"
)

// ParseStage converts a raw string to a Stage, returning an error for
// unknown values. Empty input is StageSaved.
func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case "":
		return StageSaved, nil
	case StageSaved, StageApplied, StageInterviewing, StageRejected:
		return st, nil
	}
	return "", fmt.Errorf("unknown stage %q", s)
}
