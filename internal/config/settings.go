package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrInvalidSettings = errors.New("invalid settings")

type Settings struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
	Production bool   `yaml:"production"`

	Chunking   ChunkingSettings   `yaml:"chunking"`
	Safety     SafetySettings     `yaml:"safety"`
	Retrieval  RetrievalSettings  `yaml:"retrieval"`
	Corpus     CorpusSettings     `yaml:"corpus"`
	Embedding  EmbeddingSettings  `yaml:"embedding"`
	Generation GenerationSettings `yaml:"generation"`
	Index      IndexSettings      `yaml:"index"`
	Redis      RedisSettings      `yaml:"redis"`
	Telemetry  TelemetrySettings  `yaml:"telemetry"`
}

type ChunkingSettings struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type SafetySettings struct {
	MaxQueryLength int      `yaml:"max_query_length"`
	Phrases        []string `yaml:"phrases"`
	Patterns       []string `yaml:"patterns"`
}

type RetrievalSettings struct {
	TopK int `yaml:"top_k"`
	// ValidationTopK is the context size for answer validation and forfeit.
	ValidationTopK int `yaml:"validation_top_k"`
}

type CorpusSettings struct {
	MaxDocuments int    `yaml:"max_documents"`
	MaxPages     int    `yaml:"max_pages"`
	UploadDir    string `yaml:"upload_dir"`
}

type EmbeddingSettings struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	Dimension  int    `yaml:"dimension"`
	BatchSize  int    `yaml:"batch_size"`
	Workers    int    `yaml:"workers"`
	APIKey     string `yaml:"-"`
	MaxRetries int    `yaml:"max_retries"`
}

type GenerationSettings struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	Temperature     float32       `yaml:"temperature"`
	Timeout         time.Duration `yaml:"timeout"`
	CostPer1KTokens float64       `yaml:"cost_per_1k_tokens"`
	APIKey          string        `yaml:"-"`
}

type IndexSettings struct {
	Backend    string `yaml:"backend"`
	Path       string `yaml:"path"`
	QdrantHost string `yaml:"qdrant_host"`
	QdrantPort int    `yaml:"qdrant_port"`
	Collection string `yaml:"collection"`
}

type RedisSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"-"`
}

type TelemetrySettings struct {
	Sinks      []string `yaml:"sinks"`
	JSONLPath  string   `yaml:"jsonl_path"`
	SQLitePath string   `yaml:"sqlite_path"`
	RedisKey   string   `yaml:"redis_key"`
}

// DefaultInjectionPhrases is matched case-insensitively as a substring of the query.
var DefaultInjectionPhrases = []string{
	"ignore previous instructions",
	"ignore all instructions",
	"disregard the above",
	"you are now",
	"new instructions:",
	"forget everything",
	"system:",
	"override",
	"jailbreak",
	"give me the exam answers",
	"tell me what's on the test",
	"what questions will be on",
	"show me the test",
}

var DefaultInjectionPatterns = []string{
	`(?i)ignore\s+(all\s+)?(the\s+)?(previous|prior|above)\s+(instructions|prompts?)`,
	`(?i)(print|show|repeat)\s+(your|the)\s+(system\s+)?(prompt|instructions)`,
}

func Default() Settings {
	return Settings{
		ListenAddr: ServerListenAddr,
		LogLevel:   LOG_LEVEL,
		Production: IS_PROD,
		Chunking: ChunkingSettings{
			Size:    ChunkSize,
			Overlap: ChunkOverlap,
		},
		Safety: SafetySettings{
			MaxQueryLength: MaxQueryLength,
			Phrases:        slices.Clone(DefaultInjectionPhrases),
			Patterns:       slices.Clone(DefaultInjectionPatterns),
		},
		Retrieval: RetrievalSettings{TopK: TopK, ValidationTopK: ValidationTopK},
		Corpus: CorpusSettings{
			MaxDocuments: MaxDocuments,
			MaxPages:     MaxPagesPerDoc,
			UploadDir:    UploadDir,
		},
		Embedding: EmbeddingSettings{
			Provider:   EmbedderHash,
			Model:      HashEmbeddingModel,
			Dimension:  HashEmbeddingDimension,
			BatchSize:  EmbeddingBatchSize,
			Workers:    MaxWorkerCount,
			MaxRetries: EmbeddingMaxRetries,
		},
		Generation: GenerationSettings{
			Provider:    GeneratorGemini,
			Model:       GeminiModelName,
			Temperature: ModelTemperature,
			Timeout:     GenerationTimeout,
		},
		Index: IndexSettings{
			Backend:    IndexBackendMemory,
			Path:       BoltIndexPath,
			QdrantHost: QdrantHost,
			QdrantPort: QdrantGrpcPort,
			Collection: QdrantCollection,
		},
		Redis: RedisSettings{
			Addr: RedisAddr,
		},
		Telemetry: TelemetrySettings{
			Sinks:      []string{TelemetrySinkJSONL},
			JSONLPath:  TelemetryJSONLPath,
			SQLitePath: TelemetrySQLitePath,
			RedisKey:   TelemetryRedisKey,
		},
	}
}

// Load builds Settings from defaults, an optional YAML file and the environment, in that order.
// A missing file at path is not an error; an empty path skips the file entirely.
func Load(path string) (Settings, error) {
	_ = godotenv.Load()

	settings := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return settings, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &settings); err != nil {
				return settings, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := settings.applyEnv(); err != nil {
		return settings, err
	}
	settings.fillProviderDefaults()

	return settings, settings.Validate()
}

func (s *Settings) applyEnv() error {
	setString := func(key string, target *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*target = v
		}
	}
	setInt := func(key string, target *int) error {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidSettings, key, v)
		}
		*target = n
		return nil
	}

	setString("RECALL_LISTEN_ADDR", &s.ListenAddr)
	setString("RECALL_LOG_LEVEL", &s.LogLevel)
	setString("RECALL_EMBEDDER", &s.Embedding.Provider)
	setString("RECALL_EMBEDDING_MODEL", &s.Embedding.Model)
	setString("RECALL_GENERATOR", &s.Generation.Provider)
	setString("RECALL_GENERATION_MODEL", &s.Generation.Model)
	setString("RECALL_INDEX_BACKEND", &s.Index.Backend)
	setString("RECALL_INDEX_PATH", &s.Index.Path)
	setString("QDRANT_HOST", &s.Index.QdrantHost)
	setString("REDIS_ADDR", &s.Redis.Addr)
	setString("REDIS_PASSWORD", &s.Redis.Password)

	if v := os.Getenv("RECALL_PRODUCTION"); v != "" {
		s.Production, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("RECALL_REDIS_ENABLED"); v != "" {
		s.Redis.Enabled, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("RECALL_TELEMETRY_SINKS"); v != "" {
		s.Telemetry.Sinks = strings.Split(v, ",")
	}

	for key, target := range map[string]*int{
		"QDRANT_PORT":             &s.Index.QdrantPort,
		"RECALL_CHUNK_SIZE":       &s.Chunking.Size,
		"RECALL_CHUNK_OVERLAP":    &s.Chunking.Overlap,
		"RECALL_TOP_K":            &s.Retrieval.TopK,
		"RECALL_VALIDATION_TOP_K": &s.Retrieval.ValidationTopK,
		"RECALL_MAX_DOCUMENTS":    &s.Corpus.MaxDocuments,
		"RECALL_EMBEDDING_DIM":    &s.Embedding.Dimension,
		"RECALL_MAX_QUERY_CHARS":  &s.Safety.MaxQueryLength,
	} {
		if err := setInt(key, target); err != nil {
			return err
		}
	}

	s.Embedding.APIKey = s.apiKeyFor(s.Embedding.Provider)
	s.Generation.APIKey = s.apiKeyFor(s.Generation.Provider)
	return nil
}

func (s *Settings) apiKeyFor(provider string) string {
	switch provider {
	case EmbedderGoogle, GeneratorGemini:
		return os.Getenv("GEMINI_API_KEY")
	case EmbedderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	}
	return ""
}

// fillProviderDefaults swaps in the model name of the selected provider when the
// configured one still belongs to another provider's default.
func (s *Settings) fillProviderDefaults() {
	switch s.Embedding.Provider {
	case EmbedderGoogle:
		if s.Embedding.Model == HashEmbeddingModel || s.Embedding.Model == "" {
			s.Embedding.Model = GoogleEmbeddingModel
			s.Embedding.Dimension = int(EmbeddingOutputDimensionality)
		}
	case EmbedderOpenAI:
		if s.Embedding.Model == HashEmbeddingModel || s.Embedding.Model == "" {
			s.Embedding.Model = OpenAIEmbeddingModel
			s.Embedding.Dimension = int(EmbeddingOutputDimensionality)
		}
	}
	if s.Generation.Provider == GeneratorOpenAI && (s.Generation.Model == GeminiModelName || s.Generation.Model == "") {
		s.Generation.Model = OpenAIChatModel
	}
}

func (s Settings) Validate() error {
	var errs []error
	if s.Chunking.Size <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", s.Chunking.Size))
	}
	if s.Chunking.Overlap < 0 || s.Chunking.Overlap >= s.Chunking.Size {
		errs = append(errs, fmt.Errorf("chunk overlap must be in [0, %d), got %d", s.Chunking.Size, s.Chunking.Overlap))
	}
	if s.Retrieval.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", s.Retrieval.TopK))
	}
	if s.Retrieval.ValidationTopK <= 0 {
		errs = append(errs, fmt.Errorf("validation_top_k must be positive, got %d", s.Retrieval.ValidationTopK))
	}
	if s.Safety.MaxQueryLength <= 0 {
		errs = append(errs, fmt.Errorf("max_query_length must be positive, got %d", s.Safety.MaxQueryLength))
	}
	if s.Corpus.MaxDocuments <= 0 || s.Corpus.MaxPages <= 0 {
		errs = append(errs, errors.New("corpus limits must be positive"))
	}
	if s.Embedding.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding dimension must be positive, got %d", s.Embedding.Dimension))
	}
	if !slices.Contains([]string{EmbedderHash, EmbedderGoogle, EmbedderOpenAI}, s.Embedding.Provider) {
		errs = append(errs, fmt.Errorf("unknown embedding provider %q", s.Embedding.Provider))
	}
	if !slices.Contains([]string{GeneratorGemini, GeneratorOpenAI}, s.Generation.Provider) {
		errs = append(errs, fmt.Errorf("unknown generation provider %q", s.Generation.Provider))
	}
	if !slices.Contains([]string{IndexBackendMemory, IndexBackendBolt, IndexBackendQdrant}, s.Index.Backend) {
		errs = append(errs, fmt.Errorf("unknown index backend %q", s.Index.Backend))
	}
	if s.Generation.Timeout <= 0 {
		errs = append(errs, errors.New("generation timeout must be positive"))
	}
	for _, sink := range s.Telemetry.Sinks {
		if !slices.Contains([]string{TelemetrySinkJSONL, TelemetrySinkRedis, TelemetrySinkSQLite}, strings.TrimSpace(sink)) {
			errs = append(errs, fmt.Errorf("unknown telemetry sink %q", sink))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}
