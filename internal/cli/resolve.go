package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"lmsession/internal/common/fsutil"
	"lmsession/internal/generation"
	"lmsession/internal/manager"
	"lmsession/internal/registry"
)

// runFlags are the model and sampling flags shared by generate and chat.
type runFlags struct {
	model     string
	modelsDir string
	engine    string
	threads   int
	ctxLen    int
	batch     int

	maxTokens   int
	temperature float32
	topP        float32
	topK        int
	seed        int
	stop        []string
}

func addRunFlags(fs *pflag.FlagSet, f *runFlags) {
	def := generation.DefaultSampling()
	dm := manager.DefaultModelConfig("")
	fs.StringVarP(&f.model, "model", "m", "", "Model file path or registry id")
	fs.StringVar(&f.modelsDir, "models-dir", "", "Directory scanned for *.gguf and *.tlm models")
	fs.StringVar(&f.engine, "engine", "auto", "Engine: auto|llama|toy (auto picks by file extension)")
	fs.IntVar(&f.threads, "threads", dm.Threads, "Decode threads")
	fs.IntVar(&f.ctxLen, "ctx", dm.ContextLength, "Context length in tokens")
	fs.IntVar(&f.batch, "batch", 0, "Prompt prefill batch size (0 = 512)")
	fs.IntVar(&f.maxTokens, "max-tokens", def.MaxTokens, "Maximum tokens to generate")
	fs.Float32Var(&f.temperature, "temperature", def.Temperature, "Sampling temperature (0 = greedy)")
	fs.Float32Var(&f.topP, "top-p", def.TopP, "Nucleus sampling probability")
	fs.IntVar(&f.topK, "top-k", def.TopK, "Top-k sampling (0 = disabled)")
	fs.IntVar(&f.seed, "seed", 0, "Random seed for non-greedy sampling (0 = random)")
	fs.StringSliceVar(&f.stop, "stop", nil, "Stop sequence (repeatable)")
}

// resolved is the outcome of merging config values and flags.
type resolved struct {
	engine   string
	model    manager.ModelConfig
	sampling generation.SamplingConfig
}

// resolve merges app config with flags. A flag wins only when set explicitly.
func (a *App) resolve(cmd *cobra.Command, f *runFlags) (resolved, error) {
	set := cmd.Flags().Changed
	c := a.cfg
	var r resolved

	r.engine = f.engine
	if !set("engine") && c.Engine != "" {
		r.engine = c.Engine
	}

	ref := f.model
	if !set("model") {
		ref = c.Model
	}
	if ref == "" {
		return r, fmt.Errorf("no model given (use --model or set model in the config file)")
	}
	dir := f.modelsDir
	if !set("models-dir") {
		dir = c.ModelsDir
	}
	path, err := resolveModelPath(ref, dir)
	if err != nil {
		return r, err
	}

	r.model = manager.ModelConfig{Path: path, Threads: f.threads, ContextLength: f.ctxLen, BatchSize: f.batch}
	if !set("threads") && c.Threads > 0 {
		r.model.Threads = c.Threads
	}
	if !set("ctx") && c.ContextLength > 0 {
		r.model.ContextLength = c.ContextLength
	}
	if !set("batch") && c.BatchSize > 0 {
		r.model.BatchSize = c.BatchSize
	}

	s := generation.SamplingConfig{
		MaxTokens:   f.maxTokens,
		Temperature: f.temperature,
		TopP:        f.topP,
		TopK:        f.topK,
		Seed:        f.seed,
		Stop:        f.stop,
	}
	if !set("max-tokens") && c.MaxTokens != nil {
		s.MaxTokens = *c.MaxTokens
	}
	if !set("temperature") && c.Temperature != nil {
		s.Temperature = *c.Temperature
	}
	if !set("top-p") && c.TopP != nil {
		s.TopP = *c.TopP
	}
	if !set("top-k") && c.TopK != nil {
		s.TopK = *c.TopK
	}
	if !set("seed") && c.Seed != nil {
		s.Seed = *c.Seed
	}
	if !set("stop") && len(c.Stop) > 0 {
		s.Stop = c.Stop
	}
	r.sampling = s
	return r, nil
}

// resolveModelPath accepts a file path, or a registry id looked up in dir.
func resolveModelPath(ref, dir string) (string, error) {
	p, err := fsutil.Resolve(ref)
	if err != nil {
		return "", err
	}
	if fsutil.PathExists(p) || dir == "" {
		return p, nil
	}
	models, err := registry.LoadDir(dir)
	if err != nil {
		return "", err
	}
	if m, ok := registry.Find(models, ref); ok {
		return m.Path, nil
	}
	return "", fmt.Errorf("model %q not found in %s", ref, dir)
}
