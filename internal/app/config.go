package app

import (
	"path/filepath"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix) or YAML config files.
type Config struct {
	DataDir        string `default:"data" usage:"Directory holding the data files"`
	ProductsFile   string `default:"products.txt" usage:"Products file name, relative to the data dir"`
	PromotionsFile string `default:"promotions.txt" usage:"Promotions file name, relative to the data dir"`
	OrdersFile     string `default:"orders.txt" usage:"Orders file name, relative to the data dir"`
	ReviewsFile    string `default:"reviews.txt" usage:"Append-only review log, relative to the data dir"`
	UsersFile      string `default:"users.txt" usage:"Customer credentials file, relative to the data dir"`
}

// LoadConfig loads configuration from environment variables and YAML config
// files. Command line flags belong to the subcommands and are not read here.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFlags: true,
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/store/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if cfg.DataDir == "" {
		return nil, errors.New("data dir is required: set STORE_DATA_DIR")
	}
	return &cfg, nil
}

// path resolves a data file name against DataDir. Absolute names are kept.
func (c *Config) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig(dataDir string) *Config {
	return &Config{
		DataDir:        dataDir,
		ProductsFile:   "products.txt",
		PromotionsFile: "promotions.txt",
		OrdersFile:     "orders.txt",
		ReviewsFile:    "reviews.txt",
		UsersFile:      "users.txt",
	}
}
