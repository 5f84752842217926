package secretstore

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// File is the YAML layout read by LoadFile:
//
//	keys:
//	  - id: f0d16792-cdc9-4585-a5fd-bae3d898d8c5
//	    secret: eox4TsBBPhpi737yMxpdBbr3sgg/DEC4...
type File struct {
	Keys []FileKey `yaml:"keys"`
}

// FileKey is one access key entry of a secrets file.
type FileKey struct {
	ID     string `yaml:"id"`
	Secret string `yaml:"secret"`
}

// LoadFile reads a YAML secrets file into a Static resolver. Unknown
// fields and duplicate ids are rejected.
func LoadFile(path string) (*Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open secrets file")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		return nil, errors.Wrapf(err, "decode secrets file %s", path)
	}

	secrets := make(map[string]string, len(file.Keys))
	for _, key := range file.Keys {
		if _, ok := secrets[key.ID]; ok {
			return nil, errors.Errorf("duplicate access key %q in %s", key.ID, path)
		}

		secrets[key.ID] = key.Secret
	}

	return NewStatic(secrets)
}
