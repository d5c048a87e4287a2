package policy

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/*.schema.json
var schemaFS embed.FS

// Schema names a policy document layout shipped with the binary.
type Schema string

// Known policy layouts.
const (
	FilterSchema     Schema = "filters.schema.json"
	ErrorcheckSchema Schema = "errorcheck.schema.json"
)

var (
	schemaMu       sync.Mutex
	compiledSchema = make(map[Schema]*jsonschema.Schema)
)

// ReadDocument reads a policy file, decodes it according to its extension
// (JSON, YAML or TOML) and validates it against the named schema.
// The returned bytes are the document re-encoded as canonical JSON so callers
// can unmarshal into typed structs regardless of the source format.
// Every failure wraps ErrConfig.
func ReadDocument(path string, schema Schema) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConfig, path, err)
	}
	return ParseDocument(path, data, schema)
}

// ParseDocument is ReadDocument for content already in memory. The name is
// used only to pick the decoder and for error messages.
func ParseDocument(name string, data []byte, schema Schema) ([]byte, error) {
	doc, err := decode(name, data)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfig, name, err)
	}

	// Round-trip through JSON so YAML and TOML documents carry the same
	// value types the schema validator expects.
	canonical, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: normalize %s: %v", ErrConfig, name, err)
	}
	var payload any
	if err := json.Unmarshal(canonical, &payload); err != nil {
		return nil, fmt.Errorf("%w: normalize %s: %v", ErrConfig, name, err)
	}

	sch, err := compile(schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	if err := sch.Validate(payload); err != nil {
		return nil, fmt.Errorf("%w: %s does not match %s: %v", ErrConfig, name, schema, err)
	}
	return canonical, nil
}

// decode picks a decoder from the file extension. Unknown extensions are
// treated as JSON, which is what the policy files have always been.
func decode(name string, data []byte) (any, error) {
	var doc any
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case ".toml":
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("empty document")
	}
	return doc, nil
}

func compile(schema Schema) (*jsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	if sch, ok := compiledSchema[schema]; ok {
		return sch, nil
	}

	f, err := schemaFS.Open("schema/" + string(schema))
	if err != nil {
		return nil, fmt.Errorf("open schema %s: %w", schema, err)
	}
	defer f.Close()

	url := "l10nkit://" + string(schema)
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, f); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	compiledSchema[schema] = sch
	return sch, nil
}
