package scenario

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"
)

//go:embed scenario.cue
var schemaSource string

const (
	fileSchema    = "#ScenarioFile"
	requestSchema = "#Scenario"
)

// cue values are not safe for concurrent use, so every check holds schemaMu.
var (
	schemaOnce sync.Once
	schemaMu   sync.Mutex
	schemaRoot cue.Value
	schemaErr  error
)

func schema(def string) (cue.Value, error) {
	schemaOnce.Do(func() {
		v := cuecontext.New().CompileString(schemaSource, cue.Filename("scenario.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile scenario schema: %w", err)
			return
		}
		schemaRoot = v
	})
	if schemaErr != nil {
		return cue.Value{}, schemaErr
	}
	v := schemaRoot.LookupPath(cue.ParsePath(def))
	return v, v.Err()
}

func checkSchema(b []byte, def string, check func([]byte, cue.Value) error) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()
	v, err := schema(def)
	if err != nil {
		return err
	}
	if err := check(b, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Load reads a YAML scenario file.
func Load(path string) (*Parameters, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return ParseYAML(b)
}

// ParseYAML validates a YAML scenario file and decodes it on top of
// Default, so tuning fields may be omitted.
func ParseYAML(b []byte) (*Parameters, error) {
	if err := checkSchema(b, fileSchema, cueyaml.Validate); err != nil {
		return nil, err
	}
	p := Default()
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("%w: parse scenario: %v", ErrInvalid, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// ParseJSON decodes a JSON request body. Unlike scenario files, requests
// must set every parameter except the environmental covariates, seed and
// scheduling.
func ParseJSON(b []byte) (*Parameters, error) {
	if err := checkSchema(b, requestSchema, cuejson.Validate); err != nil {
		return nil, err
	}
	var p Parameters
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("%w: parse scenario: %v", ErrInvalid, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
