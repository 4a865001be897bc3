package areas

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joshuapare/cbtkit/pkg/types"
)

const schemaFile = "areas.schema.json"

// Schema is the JSON schema every areas document must satisfy.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "changed areas",
  "type": "object",
  "properties": {
    "disk_id": {"type": "string"},
    "change_id": {"type": "string"},
    "new_change_id": {"type": "string"},
    "vmdk_path": {"type": "string"},
    "areas": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["offset", "length"],
        "properties": {
          "offset": {"type": "integer", "minimum": 0},
          "length": {"type": "integer", "minimum": 1}
        }
      }
    }
  }
}`

var documentSchema = jsonschema.MustCompileString(schemaFile, Schema)

// Document is the areas document produced by a changed-area query and
// consumed by the apply stage. Only Areas is required on input.
type Document struct {
	DiskID      string            `json:"disk_id"`
	ChangeID    types.ChangeToken `json:"change_id"`
	NewChangeID types.ChangeToken `json:"new_change_id"`
	VMDKPath    string            `json:"vmdk_path,omitempty"`
	Areas       []types.Range     `json:"areas"`
}

// ParseDocument validates data against Schema and decodes it. A missing
// "areas" key yields an empty area list. Every failure is ErrKindFormat.
func ParseDocument(data []byte) (*Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, types.Wrap(types.ErrKindFormat, err, "decode areas document")
	}
	if err := documentSchema.Validate(raw); err != nil {
		return nil, types.Wrap(types.ErrKindFormat, err, "validate areas document")
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, types.Wrap(types.ErrKindFormat, err, "decode areas document")
	}
	for i, a := range doc.Areas {
		if _, err := types.NewRange(a.Offset, a.Length); err != nil {
			return nil, fmt.Errorf("area %d: %w", i, err)
		}
	}
	return &doc, nil
}

// Marshal encodes doc with two-space indentation. A nil area list encodes as
// an empty array.
func (doc *Document) Marshal() ([]byte, error) {
	out := *doc
	if out.Areas == nil {
		out.Areas = []types.Range{}
	}
	return json.MarshalIndent(&out, "", "  ")
}
