package ifccheck

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/ifccheck/llm"
	"github.com/brunobiangulo/ifccheck/ontology"
	"github.com/brunobiangulo/ifccheck/report"
	"github.com/brunobiangulo/ifccheck/store"
)

// Config holds all configuration for a validation run.
type Config struct {
	// OutputDir receives the RDF graph, the reports and the run lock.
	OutputDir string `json:"output_dir" yaml:"output_dir" validate:"required"`

	// RDFFormat is turtle (default) or ntriples.
	RDFFormat string `json:"rdf_format" yaml:"rdf_format" validate:"omitempty,oneof=turtle ttl ntriples n-triples nt"`

	// XLSX additionally writes validation_report.xlsx.
	XLSX bool `json:"xlsx" yaml:"xlsx"`

	// MetricsFile, when set, receives Prometheus metrics in textfile format.
	MetricsFile string `json:"metrics_file" yaml:"metrics_file"`

	// RootClass limits extraction to subclasses of this IFC class.
	RootClass string `json:"root_class" yaml:"root_class" validate:"omitempty,ifcclass"`

	// Store is the property-graph sink. An empty SQLite path resolves to
	// <OutputDir>/graph.db.
	Store store.Config `json:"store" yaml:"store"`

	// Chat is the suggestion provider.
	Chat llm.Config `json:"chat" yaml:"chat"`

	Suggestions SuggestionConfig `json:"suggestions" yaml:"suggestions"`
}

// SuggestionConfig controls remediation suggestions.
type SuggestionConfig struct {
	// Enabled turns provider calls on. When off every conflict carries the
	// default suggestion.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// NeighbourhoodDepth adds stored elements within this many hops of the
	// failing element to each prompt. Zero disables it.
	NeighbourhoodDepth int `json:"neighbourhood_depth" yaml:"neighbourhood_depth" validate:"gte=0,lte=5"`

	Breaker report.BreakerConfig `json:"breaker" yaml:"breaker"`
}

// DefaultConfig returns a Config for local use: SQLite next to the outputs
// and Ollama for suggestions.
func DefaultConfig() Config {
	return Config{
		OutputDir: filepath.Join("data", "output"),
		RDFFormat: "turtle",
		RootClass: ontology.ClassProduct,
		Store: store.Config{
			Backend: store.BackendSQLite,
		},
		Chat: llm.Config{
			Provider: "ollama",
			Model:    llm.DefaultOllamaModel,
			BaseURL:  "http://localhost:11434",
		},
		Suggestions: SuggestionConfig{
			Enabled: true,
			Breaker: report.DefaultBreakerConfig(),
		},
	}
}

// LoadConfig reads a YAML (or JSON) file over DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: reading %s: %v", ErrInvalidConfig, path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from IFCCHECK_* environment variables.
func (c *Config) ApplyEnv() error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	str("IFCCHECK_OUTPUT_DIR", &c.OutputDir)
	str("IFCCHECK_RDF_FORMAT", &c.RDFFormat)
	str("IFCCHECK_METRICS_FILE", &c.MetricsFile)
	str("IFCCHECK_STORE_BACKEND", &c.Store.Backend)
	str("IFCCHECK_STORE_PATH", &c.Store.Path)
	str("IFCCHECK_NEO4J_URI", &c.Store.URI)
	str("IFCCHECK_NEO4J_USER", &c.Store.Username)
	str("IFCCHECK_NEO4J_PASSWORD", &c.Store.Password)
	str("IFCCHECK_NEO4J_DATABASE", &c.Store.Database)
	str("IFCCHECK_CHAT_PROVIDER", &c.Chat.Provider)
	str("IFCCHECK_CHAT_MODEL", &c.Chat.Model)
	str("IFCCHECK_CHAT_BASE_URL", &c.Chat.BaseURL)
	str("IFCCHECK_CHAT_API_KEY", &c.Chat.APIKey)

	if v := os.Getenv("IFCCHECK_SUGGESTIONS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: IFCCHECK_SUGGESTIONS: %v", ErrInvalidConfig, err)
		}
		c.Suggestions.Enabled = b
	}
	if v := os.Getenv("IFCCHECK_CHAT_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: IFCCHECK_CHAT_TIMEOUT: %v", ErrInvalidConfig, err)
		}
		c.Chat.Timeout = d
	}

	// Fall back to the provider's conventional key variable.
	if c.Chat.APIKey == "" && c.Chat.Provider == "openai" {
		c.Chat.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ifcclass", func(fl validator.FieldLevel) bool {
		return ontology.Default().Known(fl.Field().String())
	})
	return v
}

// Validate checks field constraints. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
}

// resolveStore fills the default SQLite path.
func (c Config) resolveStore() store.Config {
	sc := c.Store
	if strings.EqualFold(sc.Backend, store.BackendSQLite) && sc.Path == "" {
		sc.Path = filepath.Join(c.OutputDir, "graph.db")
	}
	return sc
}
