package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnvDatasetPaths names the environment variable holding a reference to
// path mapping, either inline JSON or the path of a JSON file.
const EnvDatasetPaths = "DIAGBENCH_DATASET_PATHS"

// Registry resolves dataset references to local root directories.
//
// A reference resolves, in order, as an existing path, as a key of the
// mapping in EnvDatasetPaths, then as a key of the mapping in ConfigPath.
// Nothing is fetched over the network.
type Registry struct {
	ConfigPath string
	Getenv     func(string) string
}

// DefaultConfigPath returns ~/.diagbench/datasets.json, or "" when the home
// directory cannot be determined.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".diagbench", "datasets.json")
}

// NewRegistry returns a registry reading the process environment and the
// default user mapping file.
func NewRegistry() *Registry {
	return &Registry{ConfigPath: DefaultConfigPath(), Getenv: os.Getenv}
}

// Resolve maps ref to a dataset root directory.
func (r *Registry) Resolve(ref string) (string, error) {
	if ref == "" {
		return "", &Error{Kind: ErrNotFound, Detail: "empty dataset reference"}
	}
	if _, err := os.Stat(ref); err == nil {
		return ref, nil
	}

	envMap, err := r.envMapping()
	if err != nil {
		return "", err
	}
	if root, ok := envMap[ref]; ok {
		if _, err := os.Stat(root); err != nil {
			return "", &Error{
				Kind:   ErrNotFound,
				Path:   root,
				Detail: fmt.Sprintf("%s maps %q to a missing path", EnvDatasetPaths, ref),
			}
		}
		return root, nil
	}

	if r.ConfigPath != "" {
		fileMap, err := readMapping(r.ConfigPath)
		if err != nil {
			return "", err
		}
		if root, ok := fileMap[ref]; ok {
			if _, err := os.Stat(root); err != nil {
				return "", &Error{
					Kind:   ErrNotFound,
					Path:   root,
					Detail: fmt.Sprintf("%s maps %q to a missing path", r.ConfigPath, ref),
				}
			}
			return root, nil
		}
	}

	return "", &Error{
		Kind: ErrNotFound,
		Detail: fmt.Sprintf("unknown dataset reference %q: provide a path, set %s, or add it to %s",
			ref, EnvDatasetPaths, r.configLabel()),
	}
}

// Load resolves ref and loads the dataset it names.
func (r *Registry) Load(ref string, opts ...Option) (*Dataset, error) {
	root, err := r.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return Load(root, opts...)
}

func (r *Registry) configLabel() string {
	if r.ConfigPath == "" {
		return "~/.diagbench/datasets.json"
	}
	return r.ConfigPath
}

func (r *Registry) envMapping() (map[string]string, error) {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	val := strings.TrimSpace(getenv(EnvDatasetPaths))
	if val == "" {
		return nil, nil
	}
	if _, err := os.Stat(val); err == nil {
		return readMapping(val)
	}
	m, err := parseMapping([]byte(val))
	if err != nil {
		return nil, &Error{
			Kind:   ErrInvalidRegistry,
			Detail: fmt.Sprintf("%s must be a JSON object or the path of a JSON file", EnvDatasetPaths),
			Err:    err,
		}
	}
	return m, nil
}

// readMapping loads a mapping file. A missing file is an empty mapping.
func readMapping(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Kind: ErrInvalidRegistry, Path: path, Err: err}
	}
	m, err := parseMapping(data)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidRegistry, Path: path, Err: err}
	}
	return m, nil
}

// parseMapping decodes a JSON object, keeping only string to string pairs.
func parseMapping(data []byte) (map[string]string, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, fmt.Errorf("mapping must be a JSON object")
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out, nil
}
