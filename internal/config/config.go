// Package config loads archive.yaml, the per-project settings file, and
// manages the .archive state directory next to it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kingrea/lecture-archive/internal/lecture"
	"github.com/kingrea/lecture-archive/internal/logging"
	"github.com/kingrea/lecture-archive/internal/placement"
	"github.com/kingrea/lecture-archive/internal/render"
	"github.com/kingrea/lecture-archive/internal/section"
)

const (
	// ProjectFile is the settings file looked up in the project directory.
	ProjectFile = "archive.yaml"
	// StateDir holds logs and other run state inside the project directory.
	StateDir = ".archive"

	defaultDataDir   = "data"
	defaultOutputDir = "."
)

// Environment overrides, read from the process environment first and then
// from an optional .env file in the project directory.
const (
	EnvDataDir   = "ARCHIVE_DATA_DIR"
	EnvOutputDir = "ARCHIVE_OUTPUT_DIR"
	EnvLogMode   = "ARCHIVE_LOG_MODE"
)

const defaultProjectConfigYAML = `# lecture archive configuration
version: 1

site:
  title: Auburn Hills Bhakti Vriksha

# Source JSON lives in <data_dir>/<section>/*.json. Pages are written below output_dir.
data_dir: data
output_dir: .

# Leave empty to use the standard eight sections.
sections: []

cross_listing:
  # additive lists a lecture in its own section and every matching cross section.
  # move drops it from its own section when that section is listed in move_from.
  policy: additive
  move_from:
    - bg-lectures
  rules:
    - token: sb
      section: sb-lectures
    - token: cc
      section: cc-lectures

# Extra hand-picked placements, inline or in a separate YAML/JSON file.
placements: []
# placements_file: placements.yaml

logging:
  mode: dev
  level: info
  # file: .archive/logs/archive.log

# metrics_file: .archive/metrics/archive.prom
`

// SiteConfig holds presentation settings.
type SiteConfig struct {
	Title string `yaml:"title"`
}

// SectionConfig declares one section.
type SectionConfig struct {
	Key   string `yaml:"key"`
	Title string `yaml:"title"`
}

// CrossRuleConfig declares a cross-listing rule.
type CrossRuleConfig struct {
	Token   string `yaml:"token"`
	Section string `yaml:"section"`
}

// CrossListingConfig captures the cross-listing policy.
type CrossListingConfig struct {
	Policy   string            `yaml:"policy"`
	MoveFrom []string          `yaml:"move_from"`
	Rules    []CrossRuleConfig `yaml:"rules"`
}

// PlacementConfig is one manual placement.
type PlacementConfig struct {
	ID      string `yaml:"id"`
	Section string `yaml:"section"`
}

// LoggingConfig selects the logger output.
type LoggingConfig struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// ProjectConfig models archive.yaml.
type ProjectConfig struct {
	Version        int                `yaml:"version"`
	Site           SiteConfig         `yaml:"site"`
	DataDir        string             `yaml:"data_dir"`
	OutputDir      string             `yaml:"output_dir"`
	Sections       []SectionConfig    `yaml:"sections"`
	CrossListing   CrossListingConfig `yaml:"cross_listing"`
	Placements     []PlacementConfig  `yaml:"placements"`
	PlacementsFile string             `yaml:"placements_file,omitempty"`
	Logging        LoggingConfig      `yaml:"logging"`
	MetricsFile    string             `yaml:"metrics_file,omitempty"`
}

type placementsFile struct {
	Placements []PlacementConfig `yaml:"placements"`
}

// Config is the resolved runtime configuration.
type Config struct {
	// ProjectDir is the directory holding archive.yaml.
	ProjectDir string
	// StateDir is ProjectDir/.archive.
	StateDir string

	Project ProjectConfig

	catalog    section.Catalog
	policy     placement.Policy
	placements []placement.Placement
}

// Init creates the .archive directory and writes a commented archive.yaml
// unless one already exists.
func Init(projectDir string) error {
	stateDir := filepath.Join(projectDir, StateDir)
	for _, dir := range []string{filepath.Join(stateDir, "logs"), filepath.Join(stateDir, "metrics")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: ensure %s: %w", dir, err)
		}
	}
	return ensureProjectConfig(filepath.Join(projectDir, ProjectFile))
}

// Load reads archive.yaml from projectDir, applies defaults and environment
// overrides, and validates the result. A missing file yields the defaults.
func Load(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve project dir: %w", err)
	}
	cfg := &Config{
		ProjectDir: abs,
		StateDir:   filepath.Join(abs, StateDir),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProjectConfigPath returns the on-disk location for archive.yaml.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.ProjectDir, ProjectFile)
}

// LogsDir returns the directory for log files and the build journal.
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// JournalPath returns the build journal location.
func (c *Config) JournalPath() string {
	return filepath.Join(c.LogsDir(), "builds.log")
}

// DataDir returns the absolute source directory.
func (c *Config) DataDir() string {
	return c.Project.DataDir
}

// OutputDir returns the absolute output directory.
func (c *Config) OutputDir() string {
	return c.Project.OutputDir
}

// MetricsFile returns the textfile metrics destination, or "".
func (c *Config) MetricsFile() string {
	return c.Project.MetricsFile
}

// Catalog returns the configured sections.
func (c *Config) Catalog() section.Catalog {
	return c.catalog
}

// CrossRules returns the cross-listing rules.
func (c *Config) CrossRules() []lecture.CrossRule {
	rules := make([]lecture.CrossRule, 0, len(c.Project.CrossListing.Rules))
	for _, r := range c.Project.CrossListing.Rules {
		rules = append(rules, lecture.CrossRule{Token: r.Token, Section: section.Key(r.Section)})
	}
	return rules
}

// Planner returns the placement planner for the configured policy.
func (c *Config) Planner() placement.Planner {
	moveFrom := make([]section.Key, 0, len(c.Project.CrossListing.MoveFrom))
	for _, key := range c.Project.CrossListing.MoveFrom {
		moveFrom = append(moveFrom, section.Key(key))
	}
	return placement.Planner{Policy: c.policy, MoveFrom: moveFrom}
}

// Placements returns inline placements followed by those from placements_file.
func (c *Config) Placements() []placement.Placement {
	return append([]placement.Placement(nil), c.placements...)
}

// LogOptions returns logger settings with relative files resolved.
func (c *Config) LogOptions() logging.Options {
	return logging.Options{
		Mode:  c.Project.Logging.Mode,
		Level: c.Project.Logging.Level,
		File:  c.Project.Logging.File,
	}
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var parsed ProjectConfig
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
		c.Project = parsed
	case errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	c.Project.applyDefaults()
	if err := c.Project.applyEnv(c.ProjectDir); err != nil {
		return err
	}
	c.Project.normalize(c.ProjectDir)
	if err := c.Project.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.resolve(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) resolve() error {
	entries := section.DefaultEntries()
	if len(c.Project.Sections) > 0 {
		entries = entries[:0]
		for _, s := range c.Project.Sections {
			entries = append(entries, section.Entry{Key: section.Key(s.Key), Title: s.Title})
		}
	}
	catalog, err := section.NewCatalog(entries)
	if err != nil {
		return err
	}
	c.catalog = catalog

	policy, err := placement.ParsePolicy(c.Project.CrossListing.Policy)
	if err != nil {
		return err
	}
	c.policy = policy

	for i, r := range c.Project.CrossListing.Rules {
		if !catalog.Has(section.Key(r.Section)) {
			return fmt.Errorf("cross_listing.rules[%d]: unknown section %q", i, r.Section)
		}
	}
	for _, key := range c.Project.CrossListing.MoveFrom {
		if !catalog.Has(section.Key(key)) {
			return fmt.Errorf("cross_listing.move_from: unknown section %q", key)
		}
	}

	manual := append([]PlacementConfig(nil), c.Project.Placements...)
	if c.Project.PlacementsFile != "" {
		extra, err := readPlacementsFile(c.Project.PlacementsFile)
		if err != nil {
			return err
		}
		manual = append(manual, extra...)
	}
	c.placements = c.placements[:0]
	for i, p := range manual {
		id := strings.TrimSpace(p.ID)
		key := section.Key(strings.TrimSpace(p.Section))
		if id == "" {
			return fmt.Errorf("placements[%d]: id is required", i)
		}
		if !catalog.Has(key) {
			return fmt.Errorf("placements[%d]: unknown section %q", i, p.Section)
		}
		c.placements = append(c.placements, placement.Placement{Section: key, ID: id})
	}
	return nil
}

// readPlacementsFile loads extra placements. A missing file means none.
func readPlacementsFile(path string) ([]PlacementConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read placements file: %w", err)
	}
	var parsed placementsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse placements file %s: %w", path, err)
	}
	return parsed.Placements, nil
}

func defaultProjectConfig() ProjectConfig {
	pc := ProjectConfig{}
	pc.applyDefaults()
	return pc
}

func (pc *ProjectConfig) applyDefaults() {
	if pc.Version == 0 {
		pc.Version = 1
	}
	if strings.TrimSpace(pc.Site.Title) == "" {
		pc.Site.Title = render.DefaultSiteTitle
	}
	if strings.TrimSpace(pc.DataDir) == "" {
		pc.DataDir = defaultDataDir
	}
	if strings.TrimSpace(pc.OutputDir) == "" {
		pc.OutputDir = defaultOutputDir
	}
	if pc.CrossListing.MoveFrom == nil {
		for _, key := range placement.DefaultMoveFrom() {
			pc.CrossListing.MoveFrom = append(pc.CrossListing.MoveFrom, string(key))
		}
	}
	if pc.CrossListing.Rules == nil {
		for _, r := range lecture.DefaultCrossRules() {
			pc.CrossListing.Rules = append(pc.CrossListing.Rules, CrossRuleConfig{Token: r.Token, Section: string(r.Section)})
		}
	}
	if strings.TrimSpace(pc.Logging.Mode) == "" {
		pc.Logging.Mode = "dev"
	}
}

// applyEnv overrides directories and log mode from the environment. Values
// already set in the process win over the project's .env file.
func (pc *ProjectConfig) applyEnv(base string) error {
	dotenv, err := godotenv.Read(filepath.Join(base, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: read .env: %w", err)
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(dotenv[key])
	}
	if v := lookup(EnvDataDir); v != "" {
		pc.DataDir = v
	}
	if v := lookup(EnvOutputDir); v != "" {
		pc.OutputDir = v
	}
	if v := lookup(EnvLogMode); v != "" {
		pc.Logging.Mode = v
	}
	return nil
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Site.Title = strings.TrimSpace(pc.Site.Title)
	pc.DataDir = resolvePath(base, pc.DataDir)
	pc.OutputDir = resolvePath(base, pc.OutputDir)
	pc.PlacementsFile = resolvePath(base, pc.PlacementsFile)
	pc.MetricsFile = resolvePath(base, pc.MetricsFile)
	pc.Logging.Mode = strings.ToLower(strings.TrimSpace(pc.Logging.Mode))
	pc.Logging.Level = strings.ToLower(strings.TrimSpace(pc.Logging.Level))
	pc.Logging.File = resolvePath(base, pc.Logging.File)
	pc.CrossListing.Policy = strings.ToLower(strings.TrimSpace(pc.CrossListing.Policy))
	for i := range pc.Sections {
		pc.Sections[i].Key = strings.TrimSpace(pc.Sections[i].Key)
		pc.Sections[i].Title = strings.TrimSpace(pc.Sections[i].Title)
	}
	for i := range pc.CrossListing.Rules {
		pc.CrossListing.Rules[i].Token = strings.ToLower(strings.TrimSpace(pc.CrossListing.Rules[i].Token))
		pc.CrossListing.Rules[i].Section = strings.TrimSpace(pc.CrossListing.Rules[i].Section)
	}
	for i := range pc.CrossListing.MoveFrom {
		pc.CrossListing.MoveFrom[i] = strings.TrimSpace(pc.CrossListing.MoveFrom[i])
	}
}

func (pc *ProjectConfig) validate() error {
	if pc.Version < 1 {
		return fmt.Errorf("config version must be >= 1")
	}
	if pc.DataDir == pc.OutputDir {
		return fmt.Errorf("data_dir and output_dir must differ")
	}
	switch pc.Logging.Mode {
	case "dev", "prod":
	default:
		return fmt.Errorf("logging.mode must be 'dev' or 'prod'")
	}
	for i, r := range pc.CrossListing.Rules {
		if r.Token == "" {
			return fmt.Errorf("cross_listing.rules[%d]: token is required", i)
		}
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultProjectConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
