// Package config resolves settings from flags, OVERLAP_* environment
// variables, an optional config file and the layer definition file.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/bsaid97/go-overlap-checker/geometry"
	"github.com/bsaid97/go-overlap-checker/layers"
	"github.com/bsaid97/go-overlap-checker/overlap"
	"github.com/bsaid97/go-overlap-checker/reportcache"
	"github.com/bsaid97/go-overlap-checker/store"
)

const EnvPrefix = "OVERLAP"

// Setting keys.
const (
	KeyConfigFile      = "config"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
	KeyHTTPAddr        = "http.addr"
	KeyMinOverlapHa    = "engine.min_overlap_ha"
	KeyMetersPerDegree = "engine.degree_to_meters_lat"
	KeyCacheSize       = "engine.cache_size"
	KeyPrepared        = "engine.prepared"
	KeyThreshold       = "inclusion.threshold"
	KeyWorkers         = "pipeline.workers"
	KeyTimeout         = "pipeline.timeout"
	KeyAreaStrategy    = "target.area_strategy"
	KeySourceCRS       = "target.source_crs"
	KeyProjectedCRS    = "target.projected_crs"
	KeyStoreDriver     = "store.driver"
	KeyStoreDSN        = "store.dsn"
	KeyStoreDir        = "store.dir"
	KeyLayersFile      = "layers.file"
	KeyRedisAddr       = "redis.addr"
	KeyRedisPassword   = "redis.password"
	KeyRedisDB         = "redis.db"
	KeyRedisTTL        = "redis.ttl"
)

type Config struct {
	LogLevel  string
	LogFormat string
	HTTPAddr  string

	Engine    overlap.Options
	Threshold float64
	Workers   int
	Timeout   time.Duration

	AreaStrategy string
	AreaOptions  geometry.AreaOptions

	Store      store.Config
	LayersFile string
	Redis      reportcache.Options
}

// New returns a viper instance with defaults and environment binding. A .env
// file in the working directory is loaded into the environment first.
func New() *viper.Viper {
	_ = godotenv.Load()

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyHTTPAddr, ":8080")
	v.SetDefault(KeyMinOverlapHa, overlap.DefaultMinOverlapHa)
	v.SetDefault(KeyMetersPerDegree, geometry.MetersPerDegreeLat)
	v.SetDefault(KeyCacheSize, overlap.DefaultCacheSize)
	v.SetDefault(KeyPrepared, true)
	v.SetDefault(KeyThreshold, overlap.DefaultInclusionThreshold)
	v.SetDefault(KeyWorkers, runtime.NumCPU())
	v.SetDefault(KeyTimeout, time.Duration(0))
	v.SetDefault(KeyAreaStrategy, geometry.StrategyGeodesic)
	v.SetDefault(KeySourceCRS, geometry.DefaultSourceCRS)
	v.SetDefault(KeyProjectedCRS, geometry.DefaultProjectedCRS)
	v.SetDefault(KeyStoreDriver, store.DriverMemory)
	v.SetDefault(KeyRedisDB, 0)
	v.SetDefault(KeyRedisTTL, reportcache.DefaultTTL)
}

// Load reads the config file named by the "config" key, if any, and
// resolves every setting.
func Load(v *viper.Viper) (*Config, error) {
	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", file, err)
		}
	}

	cfg := &Config{
		LogLevel:  v.GetString(KeyLogLevel),
		LogFormat: v.GetString(KeyLogFormat),
		HTTPAddr:  v.GetString(KeyHTTPAddr),
		Engine: overlap.Options{
			MinOverlapHa: v.GetFloat64(KeyMinOverlapHa),
			CacheSize:    v.GetInt(KeyCacheSize),
			Prepared:     v.GetBool(KeyPrepared),
			Area:         geometry.PlanarConverter{MetersPerDegree: v.GetFloat64(KeyMetersPerDegree)},
		},
		Threshold:    v.GetFloat64(KeyThreshold),
		Workers:      v.GetInt(KeyWorkers),
		Timeout:      v.GetDuration(KeyTimeout),
		AreaStrategy: v.GetString(KeyAreaStrategy),
		AreaOptions: geometry.AreaOptions{
			MetersPerDegree: v.GetFloat64(KeyMetersPerDegree),
			SourceCRS:       v.GetString(KeySourceCRS),
			TargetCRS:       v.GetString(KeyProjectedCRS),
		},
		Store: store.Config{
			Driver: v.GetString(KeyStoreDriver),
			DSN:    v.GetString(KeyStoreDSN),
			Dir:    v.GetString(KeyStoreDir),
		},
		LayersFile: v.GetString(KeyLayersFile),
		Redis: reportcache.Options{
			Addr:     v.GetString(KeyRedisAddr),
			Password: v.GetString(KeyRedisPassword),
			DB:       v.GetInt(KeyRedisDB),
			TTL:      v.GetDuration(KeyRedisTTL),
		},
	}
	return cfg, cfg.Validate()
}

var ErrInvalid = errors.New("invalid configuration")

func (c *Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: %s must be in (0, 1], got %v", ErrInvalid, KeyThreshold, c.Threshold)
	}
	if c.Engine.MinOverlapHa < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalid, KeyMinOverlapHa)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: %s must not be negative", ErrInvalid, KeyTimeout)
	}
	if _, err := geometry.NewAreaConverter(c.AreaStrategy, c.AreaOptions); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	switch c.Store.Driver {
	case store.DriverCSV, store.DriverShapefile:
		if c.Store.Dir == "" {
			return fmt.Errorf("%w: %s driver needs %s", ErrInvalid, c.Store.Driver, KeyStoreDir)
		}
	case store.DriverSQLite, store.DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: %s driver needs %s", ErrInvalid, c.Store.Driver, KeyStoreDSN)
		}
	}
	return nil
}

type layerFile struct {
	Layers []layers.Spec `yaml:"layers"`
}

// LoadLayers reads the layer list from a YAML file. An empty path yields the
// built-in layers. Blank settings of each entry fall back to its kind's
// defaults.
func LoadLayers(path string) ([]layers.Spec, error) {
	if path == "" {
		return layers.DefaultSpecs(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layers file: %w", err)
	}
	return ParseLayers(b)
}

func ParseLayers(b []byte) ([]layers.Spec, error) {
	var f layerFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("decoding layers file: %w", err)
	}
	if len(f.Layers) == 0 {
		return nil, fmt.Errorf("%w: layers file lists no layers", ErrInvalid)
	}

	seen := make(map[layers.Kind]bool, len(f.Layers))
	specs := make([]layers.Spec, 0, len(f.Layers))
	for i, s := range f.Layers {
		kind, err := layers.ParseKind(string(s.Kind))
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d: %v", ErrInvalid, i, err)
		}
		if seen[kind] {
			return nil, fmt.Errorf("%w: layer %q listed twice", ErrInvalid, kind)
		}
		seen[kind] = true
		s.Kind = kind
		specs = append(specs, s.WithDefaults())
	}
	return specs, nil
}
