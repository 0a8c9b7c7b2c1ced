package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360/sonto/errors"
)

// Limits on what a layer or SONTO_* variable may contain. A sonto config is
// a few dozen keys, so anything near these is a wrong file, not a config.
const (
	maxLayerSize   = 1 << 20
	maxLayerDepth  = 32
	maxEnvValueLen = 4096
	maxPathLen     = 4096
)

// Layer formats, chosen by file extension
const (
	formatYAML = "yaml"
	formatJSON = "json"
)

// layerFormat returns the decoder a layer file needs.
func layerFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".json":
		return formatJSON, nil
	default:
		return "", fmt.Errorf("%w: layer %s: only YAML or JSON layers are supported", errors.ErrInvalidConfig, path)
	}
}

// readLayer reads one config layer after checking its path, type and size.
// A missing file reports ErrMissingConfig.
func readLayer(path string) ([]byte, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("%w: empty layer path", errors.ErrInvalidConfig)
	}
	if len(path) > maxPathLen {
		return nil, "", fmt.Errorf("%w: layer path is %d bytes, limit %d", errors.ErrInvalidConfig, len(path), maxPathLen)
	}
	format, err := layerFormat(path)
	if err != nil {
		return nil, "", err
	}

	info, err := os.Stat(path)
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return nil, "", fmt.Errorf("%w: %s", errors.ErrMissingConfig, path)
	case err != nil:
		return nil, "", fmt.Errorf("layer %s: %w", path, err)
	case !info.Mode().IsRegular():
		return nil, "", fmt.Errorf("%w: layer %s is not a regular file", errors.ErrInvalidConfig, path)
	case info.Size() > maxLayerSize:
		return nil, "", fmt.Errorf("%w: layer %s is %d bytes, limit %d",
			errors.ErrInvalidConfig, path, info.Size(), maxLayerSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("layer %s: %w", path, err)
	}
	return data, format, nil
}

// checkEnvValue rejects override values no config field could hold.
func checkEnvValue(key, value string) error {
	if len(value) > maxEnvValueLen {
		return fmt.Errorf("%s is %d bytes, limit %d", key, len(value), maxEnvValueLen)
	}
	if strings.IndexByte(value, 0) >= 0 {
		return fmt.Errorf("%s contains a NUL byte", key)
	}
	return nil
}

// checkJSONDepth bounds object and array nesting in a JSON layer before it
// is decoded. Brackets inside strings are ignored.
func checkJSONDepth(data []byte) error {
	depth := 0
	inString, escaped := false, false

	for _, b := range data {
		switch {
		case escaped:
			escaped = false
		case inString && b == '\\':
			escaped = true
		case b == '"':
			inString = !inString
		case inString:
		case b == '{' || b == '[':
			depth++
			if depth > maxLayerDepth {
				return fmt.Errorf("nesting deeper than %d levels", maxLayerDepth)
			}
		case b == '}' || b == ']':
			depth--
			if depth < 0 {
				return stderrors.New("unbalanced closing bracket")
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("%d unclosed brackets", depth)
	}
	return nil
}
