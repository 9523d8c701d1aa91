package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type encodeFunc func(w io.Writer, v any) error

func newEncoder(format string) (encodeFunc, error) {
	switch strings.ToLower(format) {
	case "json":
		return encodeJSON, nil
	case "yaml", "yml":
		return encodeYAML, nil
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// encodeYAML goes through JSON first so field names follow the json tags and
// raw API payloads render as YAML documents rather than byte lists.
func encodeYAML(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// writeOutput encodes v to path, or to stdout when path is empty. A failed
// close is reported since it can mean the file was not fully written.
func writeOutput(path string, enc encodeFunc, v any) (err error) {
	if path == "" {
		return enc(os.Stdout, v)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close output file: %w", cerr)
		}
	}()
	return enc(f, v)
}
