// Package analysis turns pre-interview document analysis into an interview
// plan: the opening questions and the topics the interviewer should cover.
package analysis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/parleylabs/interviewd/pkg/interview"
)

// ErrNotFound reports that no analysis record exists for a document id.
var ErrNotFound = errors.New("analysis record not found")

// Record is the stored outcome of analyzing one uploaded document.
type Record struct {
	DocumentID string   `json:"document_id"`
	Kind       string   `json:"kind"`
	Summary    string   `json:"summary,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	Topics     []string `json:"topics,omitempty"`
	Questions  []string `json:"questions,omitempty"`
}

// Document kinds.
const (
	KindJobDescription = "job_description"
	KindResume         = "resume"
)

// Store loads analysis records by document id. Implemented by the storage
// providers; a missing record reports ErrNotFound.
type Store interface {
	LoadAnalysis(ctx context.Context, documentID string) (Record, error)
}

// Planner assembles interview plans from stored analysis, falling back to the
// question bank when documents are missing or were never analyzed.
type Planner struct {
	store  Store
	bank   QuestionBank
	logger *slog.Logger
}

func NewPlanner(store Store, bank QuestionBank, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{store: store, bank: bank, logger: logger}
}

// BuildPlan merges the analysis of the job description and resume into a
// plan. Either id may be empty; a lookup failure degrades to the question
// bank rather than failing the interview start.
func (p *Planner) BuildPlan(ctx context.Context, jobDescriptionID, resumeID string) interview.Plan {
	var questions, topics []string
	for _, id := range []string{jobDescriptionID, resumeID} {
		if id == "" {
			continue
		}
		rec, err := p.load(ctx, id)
		if err != nil {
			continue
		}
		questions = append(questions, rec.Questions...)
		topics = append(topics, rec.Topics...)
		topics = append(topics, rec.Skills...)
	}

	if len(questions) == 0 {
		questions = append(questions, p.bank.Opening...)
	}
	if len(topics) == 0 {
		topics = append(topics, p.bank.Topics...)
	}

	return interview.Plan{
		InitialQuestions: dedupe(questions),
		Topics:           dedupe(topics),
	}
}

func (p *Planner) load(ctx context.Context, id string) (Record, error) {
	if p.store == nil {
		return Record{}, ErrNotFound
	}
	rec, err := p.store.LoadAnalysis(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			p.logger.Debug("no analysis for document, using question bank", "document_id", id)
		} else {
			p.logger.Warn("analysis lookup failed", "document_id", id, "error", err)
		}
		return Record{}, err
	}
	return rec, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
