package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBytesAcceptsSample(t *testing.T) {
	assert.NoError(t, ValidateBytes([]byte(sampleDoc)))
}

func TestValidateBytesAcceptsNestedGroup(t *testing.T) {
	assert.NoError(t, ValidateBytes([]byte(`
version: "1"
graphs:
  - name: g
    outputs: [grp]
    nodes:
      - name: grp
        kind: group
        graph:
          name: inner
          outputs: [v]
          nodes: [{name: v, kind: value, value: 1}]
`)))
}

func TestValidateBytesRejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty input", "", "empty YAML"},
		{"broken yaml", "{]", "failed to parse YAML"},
		{"missing version", `graphs: [{name: g, outputs: [], nodes: []}]`, "version"},
		{"version not a string", `
version: 1
graphs:
  - name: g
    outputs: []
    nodes: []
`, "version"},
		{"no graphs", `
version: "1"
graphs: []
`, "graphs"},
		{"node missing kind", `
version: "1"
graphs:
  - name: g
    outputs: []
    nodes: [{name: a}]
`, "kind"},
		{"unknown node kind", `
version: "1"
graphs:
  - name: g
    outputs: []
    nodes: [{name: a, kind: teleport}]
`, "kind"},
		{"link missing endpoint", `
version: "1"
graphs:
  - name: g
    outputs: []
    nodes: []
    links: [{from: a}]
`, "to"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBytes([]byte(tt.yaml))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
