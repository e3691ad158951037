package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"lmsession/internal/common/fsutil"
	"lmsession/pkg/types"
)

// Engine names recorded on registry entries.
const (
	EngineLlama = "llama"
	EngineToy   = "toy"
)

// engineByExt maps supported model file extensions to engines.
var engineByExt = map[string]string{
	".gguf": EngineLlama,
	".tlm":  EngineToy,
}

// quantRe matches llama.cpp quantization tags such as Q4_K_M, Q8_0 or F16.
var quantRe = regexp.MustCompile(`(?i)(?:^|[.\-_])((?:I?Q\d(?:_[A-Z0-9]+)*)|F16|F32|BF16)(?:$|[.\-_])`)

// EngineFor returns the engine able to open path, or "" when the extension is
// not a known model format.
func EngineFor(path string) string { return engineByExt[fsutil.Ext(path)] }

// LoadDir scans a directory for model files (*.gguf, *.tlm) and builds a
// registry from filenames. ID is the filename without extension; Path is the
// absolute file path. Entries are sorted by ID.
func LoadDir(dir string) ([]types.Model, error) {
	abs, err := fsutil.Resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		eng := EngineFor(name)
		if eng == "" {
			continue
		}
		var size int64
		if fi, err := e.Info(); err == nil {
			size = fi.Size()
		}
		id := strings.TrimSuffix(name, filepath.Ext(name))
		models = append(models, types.Model{
			ID:        id,
			Name:      id,
			Path:      filepath.Join(abs, name),
			Quant:     quantOf(id),
			Engine:    eng,
			SizeBytes: size,
		})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// Find returns the entry whose ID or file name equals ref.
func Find(models []types.Model, ref string) (types.Model, bool) {
	for _, m := range models {
		if m.ID == ref || filepath.Base(m.Path) == ref {
			return m, true
		}
	}
	return types.Model{}, false
}

func quantOf(id string) string {
	if m := quantRe.FindStringSubmatch(id); m != nil {
		return strings.ToUpper(m[1])
	}
	return ""
}
