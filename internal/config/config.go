package config

import (
	"flag"
	"os"
)

type Config struct {
	Port      string
	GRPCAddr  string
	Backend   string // sherpa | onnx
	ModelPath string
	EnrollDir string
	Threshold float64
	TempDir   string
	Workers   int
	Threads   int
	Provider  string
}

func Load() *Config {
	port := flag.String("port", "8011", "HTTP server port")
	grpcAddr := flag.String("grpc", "", "gRPC address (unix:/path, npipe:... or host:port; empty = platform default)")
	backend := flag.String("backend", "sherpa", "Embedding backend: sherpa or onnx")
	modelPath := flag.String("model", "models/eres2net_base_sv_16k.onnx", "Path to speaker embedding ONNX model")
	enrollDir := flag.String("enroll", "data/speakers", "Enrollment root with reference voices")
	threshold := flag.Float64("threshold", 0.25, "Default similarity threshold")
	tempDir := flag.String("temp", "", "Base directory for per-request temp audio (default: system temp)")
	workers := flag.Int("workers", 0, "Concurrent segments in scoring (0 = NumCPU)")
	threads := flag.Int("threads", 4, "Threads for the embedding model")
	provider := flag.String("provider", "auto", "ONNX provider: cpu, cuda, coreml, auto")
	flag.Parse()

	cfg := &Config{
		Port:      *port,
		GRPCAddr:  *grpcAddr,
		Backend:   *backend,
		ModelPath: *modelPath,
		EnrollDir: *enrollDir,
		Threshold: *threshold,
		TempDir:   *tempDir,
		Workers:   *workers,
		Threads:   *threads,
		Provider:  *provider,
	}

	// Env-переопределения для деплоя без флагов
	if v := os.Getenv("SPEAKER_MODEL_PATH"); v != "" {
		cfg.ModelPath = v
	}
	if v := os.Getenv("SPEAKER_ENROLL_DIR"); v != "" {
		cfg.EnrollDir = v
	}

	return cfg
}
