package goSoap

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// fileLayout is the on-disk shape of a config file.
type fileLayout struct {
	Charset     string        `toml:"charset"`
	Session     SessionConfig `toml:"session"`
	Codec       CodecConfig   `toml:"codec"`
	Audit       AuditConfig   `toml:"audit"`
	Metrics     MetricsConfig `toml:"metrics"`
	Credentials Credentials   `toml:"credentials"`
}

// LoadConfig reads a TOML config file over the defaults and validates it.
func LoadConfig(path string) (Config, error) {
	cfg, _, err := LoadFile(path)
	return cfg, err
}

// LoadFile is LoadConfig that also returns the optional [credentials]
// table. Unknown keys are rejected.
func LoadFile(path string) (Config, Credentials, error) {
	def := defaultConfig()
	layout := fileLayout{
		Charset: def.Charset,
		Session: def.Session,
		Codec:   def.Codec,
		Audit:   def.Audit,
		Metrics: def.Metrics,
	}

	md, err := toml.DecodeFile(path, &layout)
	if err != nil {
		return Config{}, Credentials{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, Credentials{}, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}

	cfg := Config{
		Charset: layout.Charset,
		Session: layout.Session,
		Codec:   layout.Codec,
		Audit:   layout.Audit,
		Metrics: layout.Metrics,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, Credentials{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, layout.Credentials, nil
}
