// Command schema writes the JSON schema for depthseeker scene files.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"depthseeker/internal/config"
)

func main() {
	outPath := flag.String("out", "-", "schema destination; - writes to stdout")
	flag.Parse()

	if err := run(*outPath, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "schema: %v\n", err)
		os.Exit(1)
	}
}

func run(outPath string, stdout io.Writer) error {
	schema := buildSchema()
	if outPath == "" || outPath == "-" {
		data, err := marshalSchema(schema)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}
	return writeSchema(outPath, schema)
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{RequiredFromJSONSchemaTags: true}
	schema := reflector.Reflect(new(config.Config))
	schema.Title = "Depthseeker Config"
	schema.Description = "Scene file accepted by depthseeker -config: simulation tuning, sinks, agents and behavior templates"
	return schema
}

func marshalSchema(schema *jsonschema.Schema) ([]byte, error) {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}

// writeSchema replaces outPath atomically through a sibling temp file.
func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := marshalSchema(schema)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(outPath), filepath.Base(outPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp schema: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp schema: %w", err)
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
