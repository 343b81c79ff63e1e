package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"

	sferrors "github.com/randalmurphal/sagaflow/pkg/sagaflow/errors"
	"gopkg.in/yaml.v3"
)

// Load resolves a named scenario document from resources (filename
// "<name>.yaml", "<name>.yml", or "<name>.json", tried in that order),
// decodes it strictly (unknown top-level keys rejected), and returns a
// Normalize-d Scenario. A missing resource or a parse failure is a fatal
// *errors.ConfigurationError; a failed normalization returns Normalize's
// aggregated configuration-category error.
func Load(resources fs.FS, name string) (*Scenario, error) {
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		data, err := fs.ReadFile(resources, name+ext)
		if err != nil {
			continue
		}
		return decode(data, ext)
	}

	return nil, &sferrors.ConfigurationError{
		Path:    name,
		Message: "no scenario resource found (tried .yaml, .yml, .json)",
	}
}

func decode(data []byte, ext string) (*Scenario, error) {
	var s Scenario

	switch ext {
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&s); err != nil {
			return nil, &sferrors.ConfigurationError{Message: fmt.Sprintf("parse scenario json: %s", err)}
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&s); err != nil {
			return nil, &sferrors.ConfigurationError{Message: fmt.Sprintf("parse scenario yaml: %s", err)}
		}
	}

	// A lenient raw-map pass reads top-level keys before the typed
	// struct is handed to the strict struct-tag validation pass, so a
	// missing version defaults to 1 ahead of that pass rather than
	// inside it. Decode errors here are ignored: the strict decode
	// above is the authoritative parse and has already succeeded.
	raw := decodeRaw(data, ext)
	if s.Version == 0 {
		s.Version = newRawConfig(raw).Int("version", 1)
	}

	if err := Normalize(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// decodeRaw best-effort decodes data into a generic map for rawConfig
// to read. A decode failure yields a nil map, which rawConfig treats as
// empty.
func decodeRaw(data []byte, ext string) map[string]any {
	var raw map[string]any

	switch ext {
	case ".json":
		_ = json.Unmarshal(data, &raw)
	default:
		_ = yaml.Unmarshal(data, &raw)
	}

	return raw
}
