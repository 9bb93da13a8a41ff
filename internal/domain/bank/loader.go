package bank

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadFile reads a YAML question bank of the form
//
//	categories:
//	  math:
//	    - question: "What is 15 + 27?"
//	      options: ["42", "41"]
//	      correct: "42"
//	      explanation: "15 + 27 = 42"
func LoadFile(path string) (*Static, error) {
	k := koanf.New("::")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadBank, path, err)
	}

	var content map[string][]Question
	if err := k.UnmarshalWithConf("categories", &content, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadBank, path, err)
	}
	return New(content)
}
