package convert

import (
	"strings"
	"testing"

	"r2epub/config"
)

func TestExpandTemplate(t *testing.T) {
	values := Values{
		Name:   "ttml-imsc1.2",
		Title:  "TTML Profiles 1.2",
		Status: "REC",
		Date:   "2020-08-04",
		Source: "https://www.w3.org/TR/ttml-imsc1.2/",
	}

	tests := []struct {
		name     string
		template string
		expected string
	}{
		{"plain text", "report", "report"},
		{"name field", "{{ .Name }}", "ttml-imsc1.2"},
		{"several fields", "{{ .Status }}/{{ .Name }}-{{ .Date }}", "REC/ttml-imsc1.2-2020-08-04"},
		{"context is field name", "{{ .Context }}", string(config.OutputNameTemplateFieldName)},
		{"sprig lower", "{{ .Status | lower }}", "rec"},
		{"sprig replace", "{{ .Date | replace \"-\" \"\" }}", "20200804"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := expandTemplate(config.OutputNameTemplateFieldName, tt.template, values)
			if err != nil {
				t.Fatalf("expandTemplate(%q) error = %v", tt.template, err)
			}
			if got != tt.expected {
				t.Errorf("expandTemplate(%q) = %q, want %q", tt.template, got, tt.expected)
			}
		})
	}
}

func TestExpandTemplate_ParseError(t *testing.T) {
	_, err := expandTemplate(config.OutputNameTemplateFieldName, "{{ .Name", Values{})
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), string(config.OutputNameTemplateFieldName)) {
		t.Errorf("error should name the template field, got: %v", err)
	}
}

func TestExpandTemplate_UnknownField(t *testing.T) {
	if _, err := expandTemplate(config.OutputNameTemplateFieldName, "{{ .NoSuchField }}", Values{}); err == nil {
		t.Fatal("expected execution error for unknown field")
	}
}
