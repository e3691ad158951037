package types

// Model represents a loadable model file discovered on disk.
type Model struct {
	// Stable identifier for the model (file name without extension).
	// example: tinyllama-q4
	ID string `json:"id"`
	// Human-friendly name.
	// example: TinyLlama (Q4)
	Name string `json:"name"`
	// Absolute path to the model file on disk.
	// example: /home/user/models/TinyLlama.Q4_K_M.gguf
	Path string `json:"path"`
	// Quantization level or variant string, when encoded in the file name.
	// example: Q4_K_M
	Quant string `json:"quant,omitempty"`
	// Engine able to open the file ("llama" for .gguf, "toy" for .tlm).
	// example: llama
	Engine string `json:"engine"`
	// File size in bytes.
	SizeBytes int64 `json:"size_bytes"`
}
