// Package examdata loads and validates exam definitions.
package examdata

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"autoscribe/internal/domain"
)

//go:embed demo.yaml
var demoExam []byte

// Load reads an exam file. An empty path yields the embedded demo exam.
func Load(path string) (domain.Exam, error) {
	if strings.TrimSpace(path) == "" {
		return Demo()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Exam{}, fmt.Errorf("read exam: %w", err)
	}
	exam, err := Parse(data, strings.ToLower(filepath.Ext(path)) == ".json")
	if err != nil {
		return domain.Exam{}, fmt.Errorf("%s: %w", path, err)
	}
	return exam, nil
}

// Demo returns the built-in two-question exam.
func Demo() (domain.Exam, error) {
	return Parse(demoExam, false)
}

// Parse decodes and validates an exam. Unknown fields are rejected.
func Parse(data []byte, isJSON bool) (domain.Exam, error) {
	var (
		exam domain.Exam
		err  error
	)
	if isJSON {
		exam, err = parseJSON(data)
	} else {
		exam, err = parseYAML(data)
	}
	if err != nil {
		return domain.Exam{}, err
	}
	normalize(&exam)
	if err := Validate(exam); err != nil {
		return domain.Exam{}, err
	}
	return exam, nil
}

func parseJSON(data []byte) (domain.Exam, error) {
	var exam domain.Exam
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&exam); err != nil {
		return domain.Exam{}, fmt.Errorf("parse json: %w", err)
	}
	var extra any
	if err := decoder.Decode(&extra); err != io.EOF {
		if err == nil {
			return domain.Exam{}, errors.New("parse json: multiple documents are not supported")
		}
		return domain.Exam{}, fmt.Errorf("parse json: %w", err)
	}
	return exam, nil
}

func parseYAML(data []byte) (domain.Exam, error) {
	var exam domain.Exam
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&exam); err != nil {
		return domain.Exam{}, fmt.Errorf("parse yaml: %w", err)
	}
	var extra any
	if err := decoder.Decode(&extra); err != io.EOF {
		if err == nil {
			return domain.Exam{}, errors.New("parse yaml: multiple documents are not supported")
		}
		return domain.Exam{}, fmt.Errorf("parse yaml: %w", err)
	}
	return exam, nil
}

// normalize trims text and infers a missing kind from the options.
func normalize(exam *domain.Exam) {
	exam.ID = strings.TrimSpace(exam.ID)
	exam.Name = strings.TrimSpace(exam.Name)
	for i := range exam.Questions {
		q := &exam.Questions[i]
		q.ID = strings.TrimSpace(q.ID)
		q.Text = strings.TrimSpace(q.Text)
		for j := range q.Options {
			q.Options[j] = strings.TrimSpace(q.Options[j])
		}
		if q.Kind == "" {
			q.Kind = q.Mode()
		}
	}
}
