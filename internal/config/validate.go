// CUE schema validation code
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

//go:embed config.cue
var defaultSchema []byte

// ValidateWithCue validates YAML configuration bytes against the #Config
// definition of a CUE schema file, or the embedded schema when cueFile is empty.
func ValidateWithCue(data []byte, cueFile string) error {
	schemaBytes := defaultSchema
	if cueFile != "" {
		b, err := os.ReadFile(cueFile)
		if err != nil {
			return fmt.Errorf("cannot read CUE schema: %w", err)
		}
		schemaBytes = b
	}

	ctx := cuecontext.New()
	schemaVal := ctx.CompileBytes(schemaBytes, cue.Filename("config.cue"))
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("schema compile failed: %w", err)
	}
	def := schemaVal.LookupPath(cue.ParsePath("#Config"))
	if err := def.Err(); err != nil {
		return fmt.Errorf("schema has no #Config: %w", err)
	}

	if err := yaml.Validate(data, def); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
