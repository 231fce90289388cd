package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/tabloom-cli/internal/logging"
	"github.com/KaramelBytes/tabloom-cli/internal/table"
	"github.com/KaramelBytes/tabloom-cli/internal/utils"
)

// DefaultMonths is the month ordering used for monthly sales.
var DefaultMonths = []string{"Ianuarie", "Februarie", "Martie", "Aprilie", "Mai"}

// Global configuration structure.
type Global struct {
	DataDir          string `mapstructure:"data_dir" yaml:"data_dir" json:"data_dir"`
	OutputDir        string `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	Delimiter        string `mapstructure:"delimiter" yaml:"delimiter" json:"delimiter"`
	DecimalSeparator string `mapstructure:"decimal_separator" yaml:"decimal_separator" json:"decimal_separator"`
	LogLevel         string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogFormat        string `mapstructure:"log_format" yaml:"log_format" json:"log_format"`

	// Charts
	ChartWidthIn  float64 `mapstructure:"chart_width_in" yaml:"chart_width_in" json:"chart_width_in"`
	ChartHeightIn float64 `mapstructure:"chart_height_in" yaml:"chart_height_in" json:"chart_height_in"`

	// Models
	Seed              int64   `mapstructure:"seed" yaml:"seed" json:"seed"`
	Clusters          int     `mapstructure:"clusters" yaml:"clusters" json:"clusters"`
	KMeansMaxIter     int     `mapstructure:"kmeans_max_iter" yaml:"kmeans_max_iter" json:"kmeans_max_iter"`
	KMeansInit        int     `mapstructure:"kmeans_init" yaml:"kmeans_init" json:"kmeans_init"`
	LogisticPenalty   float64 `mapstructure:"logistic_penalty" yaml:"logistic_penalty" json:"logistic_penalty"`
	LogisticMaxIter   int     `mapstructure:"logistic_max_iter" yaml:"logistic_max_iter" json:"logistic_max_iter"`
	DecisionThreshold float64 `mapstructure:"decision_threshold" yaml:"decision_threshold" json:"decision_threshold"`
	SignificanceLevel float64 `mapstructure:"significance_level" yaml:"significance_level" json:"significance_level"`

	// Retail pipeline
	VATRate                 float64  `mapstructure:"vat_rate" yaml:"vat_rate" json:"vat_rate"`
	PriceIncrease           float64  `mapstructure:"price_increase" yaml:"price_increase" json:"price_increase"`
	BranchPlaceholderFactor float64  `mapstructure:"branch_placeholder_factor" yaml:"branch_placeholder_factor" json:"branch_placeholder_factor"`
	Months                  []string `mapstructure:"months" yaml:"months" json:"months"`
	Workbook                string   `mapstructure:"workbook" yaml:"workbook" json:"workbook"`

	// Students pipeline
	PassMark float64 `mapstructure:"pass_mark" yaml:"pass_mark" json:"pass_mark"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", ".")
	v.SetDefault("output_dir", "out")
	v.SetDefault("delimiter", "")
	v.SetDefault("decimal_separator", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("chart_width_in", 10.0)
	v.SetDefault("chart_height_in", 6.0)
	v.SetDefault("seed", 42)
	v.SetDefault("clusters", 3)
	v.SetDefault("kmeans_max_iter", 300)
	v.SetDefault("kmeans_init", 10)
	v.SetDefault("logistic_penalty", 1.0)
	v.SetDefault("logistic_max_iter", 100)
	v.SetDefault("decision_threshold", 0.5)
	v.SetDefault("significance_level", 0.05)
	v.SetDefault("vat_rate", 0.19)
	v.SetDefault("price_increase", 0.05)
	v.SetDefault("branch_placeholder_factor", 1000.0)
	v.SetDefault("months", DefaultMonths)
	v.SetDefault("workbook", "")
	v.SetDefault("pass_mark", 70.0)
}

// Default returns the configuration with only defaults applied.
func Default() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// Validate rejects settings the pipelines cannot run with.
func (c *Global) Validate() error {
	if c.Clusters <= 0 {
		return fmt.Errorf("clusters must be positive, got %d", c.Clusters)
	}
	if c.KMeansMaxIter <= 0 || c.KMeansInit <= 0 || c.LogisticMaxIter <= 0 {
		return fmt.Errorf("iteration counts must be positive")
	}
	if c.DecisionThreshold <= 0 || c.DecisionThreshold >= 1 {
		return fmt.Errorf("decision_threshold must be in (0,1), got %v", c.DecisionThreshold)
	}
	if c.SignificanceLevel <= 0 || c.SignificanceLevel >= 1 {
		return fmt.Errorf("significance_level must be in (0,1), got %v", c.SignificanceLevel)
	}
	if c.LogisticPenalty < 0 {
		return fmt.Errorf("logistic_penalty must be >= 0, got %v", c.LogisticPenalty)
	}
	if len(c.Months) == 0 {
		return fmt.Errorf("months must list at least one month")
	}
	if c.ChartWidthIn <= 0 || c.ChartHeightIn <= 0 {
		return fmt.Errorf("chart size must be positive")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(c.LogFormat) {
	case "", logging.FormatConsole, logging.FormatJSON:
	default:
		return fmt.Errorf("invalid log_format %q (want console or json)", c.LogFormat)
	}
	return nil
}

// Keys lists the settable keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var setters = map[string]func(c *Global, s string) error{
	"data_dir":          func(c *Global, s string) error { c.DataDir = s; return nil },
	"output_dir":        func(c *Global, s string) error { c.OutputDir = s; return nil },
	"delimiter":         func(c *Global, s string) error { c.Delimiter = s; return nil },
	"decimal_separator": func(c *Global, s string) error { c.DecimalSeparator = s; return nil },
	"log_level":         func(c *Global, s string) error { c.LogLevel = s; return nil },
	"log_format":        func(c *Global, s string) error { c.LogFormat = s; return nil },
	"workbook":          func(c *Global, s string) error { c.Workbook = s; return nil },
	"chart_width_in":    floatSetter(func(c *Global) *float64 { return &c.ChartWidthIn }),
	"chart_height_in":   floatSetter(func(c *Global) *float64 { return &c.ChartHeightIn }),
	"logistic_penalty":  floatSetter(func(c *Global) *float64 { return &c.LogisticPenalty }),
	"decision_threshold": floatSetter(func(c *Global) *float64 {
		return &c.DecisionThreshold
	}),
	"significance_level": floatSetter(func(c *Global) *float64 {
		return &c.SignificanceLevel
	}),
	"vat_rate":       floatSetter(func(c *Global) *float64 { return &c.VATRate }),
	"price_increase": floatSetter(func(c *Global) *float64 { return &c.PriceIncrease }),
	"branch_placeholder_factor": floatSetter(func(c *Global) *float64 {
		return &c.BranchPlaceholderFactor
	}),
	"pass_mark":         floatSetter(func(c *Global) *float64 { return &c.PassMark }),
	"clusters":          intSetter(func(c *Global) *int { return &c.Clusters }),
	"kmeans_max_iter":   intSetter(func(c *Global) *int { return &c.KMeansMaxIter }),
	"kmeans_init":       intSetter(func(c *Global) *int { return &c.KMeansInit }),
	"logistic_max_iter": intSetter(func(c *Global) *int { return &c.LogisticMaxIter }),
	"seed": func(c *Global, s string) error {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		c.Seed = n
		return nil
	},
	"months": func(c *Global, s string) error {
		var out []string
		for _, m := range strings.Split(s, ",") {
			if m = strings.TrimSpace(m); m != "" {
				out = append(out, m)
			}
		}
		c.Months = out
		return nil
	},
}

// LoadOptions maps the delimiter and decimal settings onto loader options.
// "tab" and `\t` select a tab; an empty value lets the loader decide.
func (c *Global) LoadOptions() table.LoadOptions {
	return table.LoadOptions{Delimiter: ParseRune(c.Delimiter), DecimalSeparator: ParseRune(c.DecimalSeparator)}
}

// ParseRune reads a single-character setting.
func ParseRune(s string) rune {
	switch strings.ToLower(s) {
	case "":
		return 0
	case "tab", "\\t":
		return '\t'
	}
	return []rune(s)[0]
}

func floatSetter(field func(*Global) *float64) func(*Global, string) error {
	return func(c *Global, s string) error {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*field(c) = f
		return nil
	}
}

func intSetter(field func(*Global) *int) func(*Global, string) error {
	return func(c *Global, s string) error {
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		*field(c) = n
		return nil
	}
}

// Set assigns a key from its string form and validates the result.
func (c *Global) Set(key, value string) error {
	set, ok := setters[key]
	if !ok {
		return fmt.Errorf("unknown key %q (valid: %s)", key, strings.Join(Keys(), ", "))
	}
	next := *c
	if err := set(&next, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".tabloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.tabloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("TABLOOM")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}
