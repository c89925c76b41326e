package analysis

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type fakeStore struct {
	records map[string]Record
}

func (f *fakeStore) LoadAnalysis(_ context.Context, documentID string) (Record, error) {
	rec, ok := f.records[documentID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func TestPlannerMergesDocuments(t *testing.T) {
	store := &fakeStore{records: map[string]Record{
		"jd-1": {
			DocumentID: "jd-1",
			Kind:       KindJobDescription,
			Topics:     []string{"Distributed systems"},
			Questions:  []string{"Why this role?"},
		},
		"res-1": {
			DocumentID: "res-1",
			Kind:       KindResume,
			Skills:     []string{"Go", "Distributed systems"},
			Questions:  []string{"Tell me about your last project."},
		},
	}}
	p := NewPlanner(store, DefaultQuestionBank(), nil)

	plan := p.BuildPlan(context.Background(), "jd-1", "res-1")

	if len(plan.InitialQuestions) != 2 {
		t.Fatalf("questions = %v", plan.InitialQuestions)
	}
	if plan.InitialQuestions[0] != "Why this role?" {
		t.Fatalf("first question = %q", plan.InitialQuestions[0])
	}
	// "Distributed systems" appears in both documents and must not repeat.
	count := 0
	for _, topic := range plan.Topics {
		if topic == "Distributed systems" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("topic deduplication failed: %v", plan.Topics)
	}
}

func TestPlannerFallsBackToBank(t *testing.T) {
	p := NewPlanner(&fakeStore{records: map[string]Record{}}, DefaultQuestionBank(), nil)

	plan := p.BuildPlan(context.Background(), "missing-jd", "")

	if len(plan.InitialQuestions) == 0 {
		t.Fatal("no fallback questions")
	}
	if plan.InitialQuestions[0] != "Tell me about yourself." {
		t.Fatalf("first fallback question = %q", plan.InitialQuestions[0])
	}
	if len(plan.Topics) == 0 {
		t.Fatal("no fallback topics")
	}
}

func TestPlannerNilStore(t *testing.T) {
	p := NewPlanner(nil, DefaultQuestionBank(), nil)
	plan := p.BuildPlan(context.Background(), "jd", "res")
	if len(plan.InitialQuestions) == 0 {
		t.Fatal("nil store should still produce the bank plan")
	}
}

func TestLoadQuestionBank(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	data := "opening:\n  - \"What drew you to this position?\"\ntopics:\n  - Leadership\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write bank: %v", err)
	}

	bank, err := LoadQuestionBank(path)
	if err != nil {
		t.Fatalf("LoadQuestionBank: %v", err)
	}
	if len(bank.Opening) != 1 || bank.Opening[0] != "What drew you to this position?" {
		t.Fatalf("opening = %v", bank.Opening)
	}
	if len(bank.Topics) != 1 || bank.Topics[0] != "Leadership" {
		t.Fatalf("topics = %v", bank.Topics)
	}
}

func TestLoadQuestionBankPartialFileGetsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bank.yaml")
	if err := os.WriteFile(path, []byte("topics:\n  - Culture\n"), 0o644); err != nil {
		t.Fatalf("write bank: %v", err)
	}

	bank, err := LoadQuestionBank(path)
	if err != nil {
		t.Fatalf("LoadQuestionBank: %v", err)
	}
	if len(bank.Opening) == 0 {
		t.Fatal("missing opening section did not fall back to defaults")
	}
	if bank.Topics[0] != "Culture" {
		t.Fatalf("topics = %v", bank.Topics)
	}
}

func TestLoadQuestionBankMissingFile(t *testing.T) {
	_, err := LoadQuestionBank(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("error = %v, want wrapped ErrNotExist", err)
	}
}
