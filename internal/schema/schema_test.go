package schema

import (
	"encoding/json"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/require"
)

func reflectProps(t *testing.T, v interface{}) map[string]interface{} {
	t.Helper()
	r := &jsonschema.Reflector{DoNotReference: true, ExpandedStruct: true, Anonymous: true}
	data, err := json.Marshal(r.Reflect(v))
	require.NoError(t, err)
	m := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m["properties"].(map[string]interface{})
}

func TestEntityListFlattensBaseExtraction(t *testing.T) {
	props := reflectProps(t, &EntityList{})
	require.Contains(t, props, "confidence")
	require.Contains(t, props, "reasoning")
	require.Contains(t, props, "entities")
}

func TestDocumentStructureSchemaTerminates(t *testing.T) {
	props := reflectProps(t, &DocumentStructure{})
	sections := props["sections"].(map[string]interface{})
	item := sections["items"].(map[string]interface{})
	sub := item["properties"].(map[string]interface{})["subsections"].(map[string]interface{})
	require.Equal(t, "array", sub["type"])
}

func TestChunkingStrategyEnum(t *testing.T) {
	props := reflectProps(t, &ChunkingStrategy{})
	strategy := props["strategy"].(map[string]interface{})
	require.ElementsMatch(t, []interface{}{"by_section", "by_paragraph", "by_tokens", "hybrid"}, strategy["enum"])
}

func TestDefaultsThenDecode(t *testing.T) {
	var s ChunkingStrategy
	s.SetDefaults()
	require.NoError(t, json.Unmarshal([]byte(`{"strategy":"hybrid","reasoning":"mixed content"}`), &s))
	require.Equal(t, DefaultTargetChunkSize, s.TargetChunkSize)
	require.Equal(t, DefaultChunkOverlap, s.Overlap)

	var m DocumentMetadata
	m.SetDefaults()
	require.NoError(t, json.Unmarshal([]byte(`{"title":"T","summary":"S","language":"vi"}`), &m))
	require.Equal(t, "vi", m.Language)
	require.Equal(t, "unknown", m.DocumentType)
}

func TestValidation(t *testing.T) {
	v := validator.New(validator.WithRequiredStructEnabled())
	tests := []struct {
		name  string
		value interface{}
		ok    bool
	}{
		{"valid step", &ReasoningStep{Thought: "t", Action: ActionSearch, ActionInput: "q"}, true},
		{"unknown action", &ReasoningStep{Thought: "t", Action: "fly"}, false},
		{"confidence above range", &Classification{Label: "x", Confidence: 1.5}, false},
		{"routing", &RoutingDecision{Intent: "i", SelectedAgent: AgentChat, Confidence: 0.4}, true},
		{"bad route", &RoutingDecision{Intent: "i", SelectedAgent: "web", Confidence: 0.4}, false},
		{"nested level", &DocumentStructure{Sections: []DocumentSection{{Level: 1, Subsections: Subsections{{Level: 9}}}}}, false},
		{"entity missing type", &EntityList{BaseExtraction: BaseExtraction{Confidence: 1}, Entities: []Entity{{Name: "Hanoi"}}}, false},
		{"chat tone", &ChatAgentOutput{Response: "hi", Tone: "friendly"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.value)
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
		})
	}
}
