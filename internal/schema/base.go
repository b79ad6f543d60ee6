// Package schema holds the output types inference units decode model
// answers into. Field tags drive both the JSON schema shown to the model
// and the validation of its answer.
package schema

// BaseExtraction is embedded by extraction outputs.
type BaseExtraction struct {
	Confidence float64 `json:"confidence" jsonschema:"minimum=0,maximum=1,default=1" jsonschema_description:"Confidence score for the extraction (0.0-1.0)" validate:"gte=0,lte=1"`
	Reasoning  string  `json:"reasoning,omitempty" jsonschema_description:"Optional reasoning or explanation for the extraction"`
}

func (b *BaseExtraction) SetDefaults() {
	b.Confidence = 1.0
}

type BaseResponse struct {
	Success      bool   `json:"success" jsonschema:"default=true" jsonschema_description:"Whether the task was successful"`
	ErrorMessage string `json:"error_message,omitempty" jsonschema_description:"Error message if failed"`
}

func (b *BaseResponse) SetDefaults() {
	b.Success = true
}

type Entity struct {
	Name       string `json:"name" jsonschema_description:"The entity text" validate:"required"`
	EntityType string `json:"entity_type" jsonschema_description:"Type of entity (person, org, location, etc.)" validate:"required"`
	StartIndex *int   `json:"start_index,omitempty" jsonschema_description:"Start position in source text"`
	EndIndex   *int   `json:"end_index,omitempty" jsonschema_description:"End position in source text"`
}

type EntityList struct {
	BaseExtraction
	Entities []Entity `json:"entities" jsonschema_description:"Entities found in the text" validate:"dive"`
}

type Classification struct {
	Label      string  `json:"label" jsonschema_description:"Classification label" validate:"required"`
	Confidence float64 `json:"confidence" jsonschema:"minimum=0,maximum=1" jsonschema_description:"Confidence score" validate:"gte=0,lte=1"`
	Reasoning  string  `json:"reasoning,omitempty" jsonschema_description:"Explanation for classification"`
}

type Summary struct {
	Summary   string   `json:"summary" jsonschema_description:"The summarized text" validate:"required"`
	KeyPoints []string `json:"key_points,omitempty" jsonschema_description:"Key points extracted"`
	WordCount *int     `json:"word_count,omitempty" jsonschema_description:"Word count of summary"`
}
