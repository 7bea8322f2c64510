// Package loader reads architecture documents: the embedded airport
// architecture, or a user-supplied YAML or JSON file.
package loader

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/archtrace/pkg/debug"
	"github.com/vanderheijden86/archtrace/pkg/metrics"
	"github.com/vanderheijden86/archtrace/pkg/model"
)

// DataEnvVar names an architecture file to load instead of the embedded one.
const DataEnvVar = "ARCHTRACE_DATA"

//go:embed data/airport.yaml
var airportYAML []byte

// ErrNoLayers is returned for documents without any layer.
var ErrNoLayers = errors.New("architecture has no layers")

// Format is the encoding of an architecture document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatForPath infers the format from the file extension. Anything that
// is not .json is read as YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// ParseOptions configures Parse.
type ParseOptions struct {
	// WarningHandler receives non-fatal problems (duplicate ids, dangling
	// targets, unknown types). If nil, warnings go to the debug log.
	WarningHandler func(string)
}

// ResolvePath picks the architecture file to load: an explicit flag wins,
// then $ARCHTRACE_DATA, then the configured path. Empty means embedded.
func ResolvePath(flagPath, configPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if env := os.Getenv(DataEnvVar); env != "" {
		return env
	}
	return configPath
}

// Default returns the embedded airport architecture.
func Default() (model.Architecture, error) {
	arch, err := Parse(bytes.NewReader(airportYAML), FormatYAML, ParseOptions{})
	if err != nil {
		return model.Architecture{}, fmt.Errorf("embedded architecture: %w", err)
	}
	return arch, nil
}

// Load reads path, or the embedded architecture when path is empty.
func Load(path string, opts ParseOptions) (model.Architecture, error) {
	if path == "" {
		return Default()
	}
	return LoadFileWithOptions(path, opts)
}

// LoadFile reads an architecture document from path.
func LoadFile(path string) (model.Architecture, error) {
	return LoadFileWithOptions(path, ParseOptions{})
}

// LoadFileWithOptions reads an architecture document with custom options.
func LoadFileWithOptions(path string, opts ParseOptions) (model.Architecture, error) {
	defer metrics.Timer(metrics.DataLoad)()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.Architecture{}, fmt.Errorf("no architecture file at %s: %w", path, err)
		}
		return model.Architecture{}, fmt.Errorf("failed to open architecture file: %w", err)
	}
	defer file.Close()

	arch, err := Parse(file, FormatForPath(path), opts)
	if err != nil {
		return model.Architecture{}, fmt.Errorf("%s: %w", path, err)
	}
	return arch, nil
}

// Parse decodes and validates a document. Structural problems are errors;
// inconsistencies the viewer can live with are reported as warnings.
func Parse(r io.Reader, format Format, opts ParseOptions) (model.Architecture, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Architecture{}, fmt.Errorf("reading architecture: %w", err)
	}
	data = stripBOM(data)

	var arch model.Architecture
	switch format {
	case FormatJSON:
		err = json.Unmarshal(data, &arch)
	default:
		err = yaml.Unmarshal(data, &arch)
	}
	if err != nil {
		return model.Architecture{}, fmt.Errorf("decoding %s: %w", format, err)
	}

	warn := opts.WarningHandler
	if warn == nil {
		warn = func(msg string) { debug.Log("loader: %s", msg) }
	}
	if err := normalize(&arch, warn); err != nil {
		return model.Architecture{}, err
	}
	return arch, nil
}

func normalize(arch *model.Architecture, warn func(string)) error {
	if len(arch.Layers) == 0 {
		return ErrNoLayers
	}

	seen := make(map[string]bool)
	for li := range arch.Layers {
		layer := &arch.Layers[li]
		if layer.ID == "" {
			return fmt.Errorf("layer %d has no id", li+1)
		}
		for gi := range layer.Groups {
			group := &layer.Groups[gi]
			switch group.Direction {
			case "":
				group.Direction = model.DirectionRow
			case model.DirectionRow, model.DirectionCol:
			default:
				warn(fmt.Sprintf("group %q in layer %s: unknown direction %q, using row", group.Name, layer.ID, group.Direction))
				group.Direction = model.DirectionRow
			}
			for ni := range group.Systems {
				node := &group.Systems[ni]
				node.ID = strings.TrimSpace(node.ID)
				if node.ID == "" {
					return fmt.Errorf("layer %s: system %d in group %q has no id", layer.ID, ni+1, group.Name)
				}
				if seen[node.ID] {
					warn(fmt.Sprintf("duplicate system id %q; the first declaration wins", node.ID))
				}
				seen[node.ID] = true

				node.Type = model.SystemType(strings.ToUpper(strings.TrimSpace(string(node.Type))))
				if node.Type == "" {
					node.Type = model.TypeExisting
				} else if !node.Type.IsValid() {
					warn(fmt.Sprintf("system %q: unknown type %q, treating as EXISTING", node.ID, node.Type))
					node.Type = model.TypeExisting
				}
				if !node.Milestone.IsValid() {
					warn(fmt.Sprintf("system %q has no milestone", node.ID))
				}
				if node.Category == "" {
					node.Category = string(layer.ID)
				}
			}
		}
	}

	for _, node := range arch.Nodes() {
		for _, target := range node.Targets {
			if !seen[target] {
				warn(fmt.Sprintf("system %q targets unknown system %q", node.ID, target))
			}
		}
	}
	return nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
