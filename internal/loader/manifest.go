package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jward/plugscan/internal/registry"
)

// Manifest is a declarative unit: a build-time list of the types it
// contributes, written as YAML or TOML.
type Manifest struct {
	Types []registry.Declaration `json:"types" yaml:"types" toml:"types" validate:"required,min=1,dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func decodeManifest(u *unit) ([]registry.Declaration, error) {
	var m Manifest
	switch u.lang {
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(u.content))
		dec.KnownFields(true)
		if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
			return nil, u.syntaxError("yaml: %v", err)
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(u.content))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&m); err != nil {
			return nil, u.syntaxError("toml: %v", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, u.path)
	}

	if err := validate.Struct(&m); err != nil {
		return nil, u.syntaxError("invalid manifest: %v", err)
	}
	return m.Types, nil
}
