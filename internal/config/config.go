// Package config handles configuration loading with environment layering.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"cbir-engine/internal/descriptor"
)

// Config holds all application configuration. Defaults match the
// descriptor and search defaults; a YAML file layered with an optional
// config.<env>.yaml override adjusts them.
type Config struct {
	DataDir string `yaml:"data_dir"`

	Store struct {
		Backend string `yaml:"backend"` // "csv" (canonical text store) or "mmap"
	} `yaml:"store"`

	Descriptors struct {
		Enabled []string `yaml:"enabled"`

		Color struct {
			Bins [3]int `yaml:"bins"`
		} `yaml:"color"`

		Texture struct {
			Points int     `yaml:"points"`
			Radius float64 `yaml:"radius"`
		} `yaml:"texture"`

		Shape struct {
			KernelSize int  `yaml:"kernel_size"`
			Border     bool `yaml:"border"`
		} `yaml:"shape"`
	} `yaml:"descriptors"`

	Search struct {
		Metric         string  `yaml:"metric"`
		Limit          int     `yaml:"limit"`
		Offset         int     `yaml:"offset"`
		MinkowskiOrder float64 `yaml:"minkowski_order"`
	} `yaml:"search"`

	Indexer struct {
		Extensions   []string `yaml:"extensions"`
		MaxDimension int      `yaml:"max_dimension"` // 0 disables downscaling
		AccessionIDs bool     `yaml:"accession_ids"`
	} `yaml:"indexer"`

	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.DataDir = "data"
	cfg.Store.Backend = "csv"
	cfg.Descriptors.Enabled = []string{"color", "texture", "shape"}
	cfg.Descriptors.Color.Bins = descriptor.DefaultColorBins
	cfg.Descriptors.Texture.Points = descriptor.DefaultTexturePoints
	cfg.Descriptors.Texture.Radius = descriptor.DefaultTextureRadius
	cfg.Descriptors.Shape.KernelSize = descriptor.DefaultShapeKernelSize
	cfg.Descriptors.Shape.Border = true
	cfg.Search.Metric = "chi-squared"
	cfg.Search.Limit = 5
	cfg.Search.Offset = 0
	cfg.Search.MinkowskiOrder = 3
	cfg.Indexer.Extensions = []string{".png", ".jpg", ".jpeg"}
	cfg.Server.Addr = ":8080"
	return cfg
}

// Load reads configuration from the base file and an optional
// environment override named config.<env>.yaml in the same directory.
// An empty basePath yields the defaults.
func Load(basePath string, env string) (*Config, error) {
	cfg := Default()
	if basePath == "" {
		return cfg, nil
	}

	if err := loadYAML(basePath, cfg); err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if env != "" {
		dir := filepath.Dir(basePath)
		envPath := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
		if _, err := os.Stat(envPath); err == nil {
			if err := loadYAML(envPath, cfg); err != nil {
				return nil, fmt.Errorf("loading %s config: %w", env, err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks the fields the descriptor constructors do not see.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "csv", "mmap":
	default:
		return fmt.Errorf("store backend must be csv or mmap, got %q", c.Store.Backend)
	}
	if c.Search.Limit <= 0 {
		return fmt.Errorf("search limit must be positive, got %d", c.Search.Limit)
	}
	if c.Search.Offset < 0 {
		return fmt.Errorf("search offset must not be negative, got %d", c.Search.Offset)
	}
	if len(c.Descriptors.Enabled) == 0 {
		return fmt.Errorf("at least one descriptor must be enabled")
	}
	return nil
}

// BuildDescriptors instantiates the enabled descriptors with the
// configured parameters.
func (c *Config) BuildDescriptors() ([]descriptor.Descriptor, error) {
	out := make([]descriptor.Descriptor, 0, len(c.Descriptors.Enabled))
	for _, name := range c.Descriptors.Enabled {
		switch name {
		case "color":
			d, err := descriptor.NewColor(c.Descriptors.Color.Bins)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		case "texture":
			d, err := descriptor.NewTexture(c.Descriptors.Texture.Points, c.Descriptors.Texture.Radius, descriptor.DefaultTextureEps)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		case "shape":
			d, err := descriptor.NewShape(c.Descriptors.Shape.KernelSize, c.Descriptors.Shape.Border)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
		default:
			return nil, fmt.Errorf("unknown descriptor %q", name)
		}
	}
	return out, nil
}
