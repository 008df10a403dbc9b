package ingest

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/pvpmeta/pvpmeta-server/internal/source"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// schemas holds one compiled payload schema per source kind
type schemas map[source.Kind]*jsonschema.Schema

func compileSchemas() (schemas, error) {
	c := jsonschema.NewCompiler()
	out := make(schemas, 3)

	for _, kind := range []source.Kind{source.KindGamemaster, source.KindRankings, source.KindTiers} {
		name := string(kind) + ".json"
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to decode schema %s: %w", name, err)
		}
		if err := c.AddResource(name, doc); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
		}
		sch, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		out[kind] = sch
	}
	return out, nil
}

// validate checks body against the schema of kind
func (s schemas) validate(kind source.Kind, body []byte) error {
	sch, ok := s[kind]
	if !ok {
		return fmt.Errorf("no schema for kind %s", kind)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return sch.Validate(inst)
}
