package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/p-n-ai/pai-planner/internal/study"
)

const maxBodyBytes = 1 << 20

// Request body schemas. Range checks that depend on stored state stay in
// the handlers and stores.
var (
	courseSchema = mustSchema(`{
		"type": "object",
		"required": ["name", "exam_date"],
		"properties": {
			"name": {"type": "string", "minLength": 1, "maxLength": 200},
			"exam_date": {"type": "string", "minLength": 10}
		}
	}`)

	topicSchema = mustSchema(`{
		"type": "object",
		"required": ["course_id", "name", "weight"],
		"properties": {
			"course_id": {"type": "integer", "minimum": 1},
			"name": {"type": "string", "minLength": 1, "maxLength": 200},
			"weight": {"type": "number", "minimum": 0, "maximum": 1},
			"skill_level": {"type": "number", "minimum": 0, "maximum": 100}
		}
	}`)

	topicUpdateSchema = mustSchema(`{
		"type": "object",
		"minProperties": 1,
		"properties": {
			"name": {"type": "string", "minLength": 1, "maxLength": 200},
			"weight": {"type": "number", "minimum": 0, "maximum": 1},
			"skill_level": {"type": "number", "minimum": 0, "maximum": 100}
		}
	}`)

	dependencySchema = mustSchema(`{
		"type": "object",
		"required": ["prerequisite_topic_id", "dependent_topic_id"],
		"properties": {
			"prerequisite_topic_id": {"type": "integer", "minimum": 1},
			"dependent_topic_id": {"type": "integer", "minimum": 1},
			"min_skill_threshold": {"type": "number", "minimum": 0, "maximum": 100}
		}
	}`)

	skillSchema = mustSchema(`{
		"type": "object",
		"required": ["source"],
		"properties": {
			"source": {"type": "string", "enum": ["manual", "quiz"]},
			"new_skill": {"type": "number", "minimum": 0, "maximum": 100},
			"quiz_score": {"type": "number", "minimum": 0, "maximum": 100},
			"reason": {"type": "string", "maxLength": 500}
		}
	}`)

	planSchema = mustSchema(`{
		"type": "object",
		"required": ["hours"],
		"properties": {
			"hours": {"type": "number"},
			"adaptive": {"type": "boolean"},
			"strategy": {"type": "string", "enum": ["balanced", "weight-focus", "weak-topic-focus"]},
			"min_weight": {"type": "number", "minimum": 0, "maximum": 1}
		}
	}`)

	simulateSchema = mustSchema(`{
		"type": "object",
		"required": ["scenario_type", "params"],
		"properties": {
			"scenario_type": {"type": "string", "enum": ["hours_change", "ignore_low_weight", "exam_date_change"]},
			"params": {
				"type": "object",
				"properties": {
					"current_hours": {"type": "number"},
					"new_hours": {"type": "number"},
					"available_hours": {"type": "number"},
					"weight_threshold": {"type": "number"},
					"course_id": {"type": "integer"},
					"days_shift": {"type": "integer"},
					"adaptive": {"type": "boolean"}
				}
			}
		}
	}`)

	compareSchema = mustSchema(`{
		"type": "object",
		"required": ["available_hours"],
		"properties": {
			"available_hours": {"type": "number"},
			"adaptive": {"type": "boolean"}
		}
	}`)
)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("compiling request schema: %v", err))
	}
	return s
}

// decodeBody validates the request body against schema and decodes it into
// dst. Schema violations become a ValidationError naming the first field.
func decodeBody(w http.ResponseWriter, r *http.Request, schema *gojsonschema.Schema, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return study.Invalid("body", "could not read request body: %v", err)
	}
	if len(body) == 0 {
		return study.Invalid("body", "request body is required")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return study.Invalid("body", "malformed JSON: %v", err)
	}
	if !result.Valid() {
		return schemaError(result.Errors()[0])
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return study.Invalid("body", "malformed JSON: %v", err)
	}
	return nil
}

func schemaError(e gojsonschema.ResultError) error {
	field := strings.TrimPrefix(e.Field(), "(root).")
	if prop, ok := e.Details()["property"].(string); ok && prop != "" && field != prop && !strings.HasSuffix(field, "."+prop) {
		if field == "(root)" {
			field = prop
		} else {
			field += "." + prop
		}
	}
	if field == "(root)" {
		field = "body"
	}
	return study.Invalid(field, "%s", e.Description())
}
