package catalog

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/aiorch/internal/enrich"
	"github.com/phrazzld/aiorch/internal/generation"
	"github.com/phrazzld/aiorch/internal/registry"
	"gopkg.in/yaml.v3"
)

// Provider names understood by the server wiring.
const (
	ProviderEcho   = "echo"
	ProviderGemini = "gemini"
)

// ErrNoBuilder is returned by Apply when every model names a provider that
// has no Builder.
var ErrNoBuilder = errors.New("no model could be built")

//go:embed default.yaml
var defaultCatalog []byte

// Catalog is the decoded YAML document.
type Catalog struct {
	Models []ModelSpec `yaml:"models" validate:"required,min=1,dive"`
	Users  []UserSpec  `yaml:"users" validate:"dive"`
}

// ModelSpec describes one model registration.
type ModelSpec struct {
	Name         string   `yaml:"name" validate:"required"`
	Type         string   `yaml:"type" validate:"required"`
	Provider     string   `yaml:"provider" validate:"required"`
	Capabilities []string `yaml:"capabilities"`
	MaxTokens    int      `yaml:"max_tokens" validate:"gte=0"`
	CostPerToken float64  `yaml:"cost_per_token" validate:"gte=0"`
	AvgLatencyMs float64  `yaml:"avg_latency_ms" validate:"gt=0"`
	QualityScore float64  `yaml:"quality_score" validate:"gte=0,lte=1"`
	Available    *bool    `yaml:"available"`

	// GeminiModel overrides the configured Gemini model name for this entry.
	GeminiModel string `yaml:"gemini_model"`

	// EchoDelay and Confidence tune the echo provider.
	EchoDelay  time.Duration `yaml:"echo_delay" validate:"gte=0"`
	Confidence *float64      `yaml:"confidence" validate:"omitempty,gte=0,lte=1"`
}

// UserSpec seeds enrichment data for one user.
type UserSpec struct {
	ID          string         `yaml:"id" validate:"required"`
	Business    map[string]any `yaml:"business"`
	Preferences map[string]any `yaml:"preferences"`
}

// Builder constructs the processor for a model spec.
type Builder func(ctx context.Context, spec ModelSpec) (generation.Processor, error)

var validate = validator.New()

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("validate catalog: %w", err)
	}
	return &c, nil
}

// Load reads the catalog at path. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return c, nil
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Apply registers every model whose provider has a builder and seeds store
// with the user entries. Models without a builder are skipped with a warning;
// a builder error aborts. It returns the number of models registered.
func (c *Catalog) Apply(
	ctx context.Context,
	reg *registry.Registry,
	builders map[string]Builder,
	store *enrich.MapStore,
	logger *slog.Logger,
) (int, error) {
	registered := 0
	for _, spec := range c.Models {
		build, ok := builders[spec.Provider]
		if !ok {
			logger.WarnContext(ctx, "skipping catalog model without provider",
				"model", spec.Name,
				"provider", spec.Provider)
			continue
		}

		proc, err := build(ctx, spec)
		if err != nil {
			return registered, fmt.Errorf("build model %s: %w", spec.Name, err)
		}

		if err := reg.Register(registry.Model{
			Name:         spec.Name,
			Type:         spec.Type,
			Capabilities: spec.Capabilities,
			MaxTokens:    spec.MaxTokens,
			CostPerToken: spec.CostPerToken,
			AvgLatencyMs: spec.AvgLatencyMs,
			QualityScore: spec.QualityScore,
			Available:    spec.Available,
			Processor:    proc,
		}); err != nil {
			return registered, fmt.Errorf("register model %s: %w", spec.Name, err)
		}
		registered++
	}

	if store != nil {
		for _, u := range c.Users {
			if u.Business != nil {
				store.SetBusinessContext(u.ID, u.Business)
			}
			if u.Preferences != nil {
				store.SetPreferences(u.ID, u.Preferences)
			}
		}
	}

	logger.InfoContext(ctx, "catalog applied",
		"models", registered,
		"skipped", len(c.Models)-registered,
		"users", len(c.Users))

	if registered == 0 {
		return 0, ErrNoBuilder
	}
	return registered, nil
}
