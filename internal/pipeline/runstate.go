// Package pipeline implements the Pipeline (C5): a strict linear sequence of
// stages sharing one RunState value, matching the teacher's per-executor
// pattern in spirit (internal/jobs/executor) but reduced to a plain slice
// of stage functions.
package pipeline

import (
	"time"

	"github.com/ternarybob/docugen/internal/models"
)

// FileEntry is one file discovered by the Scan stage.
type FileEntry struct {
	Path     string
	Size     int64
	Category string // code, docs, config, other
}

// RepoMeta captures the S1 Fetch stage's output.
type RepoMeta struct {
	DisplayName   string
	Branch        string
	Revision      string
	CommitAuthor  string
	CommitSummary string
	WorkspacePath string
}

// ScanResult captures the S2 Scan stage's output.
type ScanResult struct {
	Files          []FileEntry
	TotalSize      int64
	CountsByKind   map[string]int
	Truncated      bool
	ReadmeExcerpt  string // full root README.md content; BuildDocsRequest caps it at N_readme
}

// FileAnalysis is the common shape every per-language extractor in S3
// returns (spec.md §9 "Dynamic per-file dispatch").
type FileAnalysis struct {
	Path      string
	Classes   []ClassInfo
	Functions []FuncInfo
	Imports   []string
	ParseErr  string // non-empty if this file's tolerant parse failed
}

type ClassInfo struct {
	Name      string
	Docstring string
	Methods   []string
	Line      int
}

type FuncInfo struct {
	Name   string
	Params []string
	Line   int
}

// AnalysisResult captures the S3 Analyze stage's output.
type AnalysisResult struct {
	Files []FileAnalysis
}

// GenerateResult captures the S4 Generate stage's output.
type GenerateResult struct {
	Markdown        string
	InputTokens     int
	OutputTokens    int
	CommentedFiles  []CommentedFile // docs-plus-comments variant only
}

type CommentedFile struct {
	Path      string
	Original  string
	Commented string
}

// PublishResult captures the S5 Publish stage's output.
type PublishResult struct {
	LocalPath      string
	ArtifactURL    string
	PullRequestURL string
	BundleURL      string
}

// RunState is threaded through every stage function, per spec.md §4.5.
type RunState struct {
	JobID      string
	Locator    string
	Credential string
	Variant    models.Variant

	Repo     *RepoMeta
	Scan     *ScanResult
	Analysis *AnalysisResult
	Generate *GenerateResult
	Publish  *PublishResult

	// WriteAccessConfirmed is set by the Fetch stage and consulted by
	// Publish when the variant is docs-plus-comments (spec.md §4.5 S5).
	WriteAccessConfirmed bool

	// Deadline tracks the hard cutoff for the whole run; stages consult
	// ctx.Deadline() rather than this field directly, but it is kept here
	// for logging and diagnostics.
	Deadline time.Time
}

func NewRunState(jobID, locator, credential string, variant models.Variant) *RunState {
	return &RunState{
		JobID:      jobID,
		Locator:    locator,
		Credential: credential,
		Variant:    variant,
	}
}
