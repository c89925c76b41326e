package analysis

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// QuestionBank holds the stock opening questions and topics used when no
// document analysis is available.
type QuestionBank struct {
	Opening []string `yaml:"opening"`
	Topics  []string `yaml:"topics"`
}

// DefaultQuestionBank is the built-in fallback bank.
func DefaultQuestionBank() QuestionBank {
	return QuestionBank{
		Opening: []string{
			"Tell me about yourself.",
			"Walk me through your resume.",
		},
		Topics: []string{"Experience", "Skills"},
	}
}

// LoadQuestionBank reads a YAML bank from path. Missing sections fall back to
// the defaults so a partial file is still usable.
func LoadQuestionBank(path string) (QuestionBank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return QuestionBank{}, fmt.Errorf("read question bank: %w", err)
	}
	var bank QuestionBank
	if err := yaml.Unmarshal(data, &bank); err != nil {
		return QuestionBank{}, fmt.Errorf("parse question bank: %w", err)
	}
	def := DefaultQuestionBank()
	if len(bank.Opening) == 0 {
		bank.Opening = def.Opening
	}
	if len(bank.Topics) == 0 {
		bank.Topics = def.Topics
	}
	return bank, nil
}
