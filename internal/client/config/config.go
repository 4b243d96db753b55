package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/lingopost/internal/flagx"
	"github.com/dmitrijs2005/lingopost/internal/validation"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const EnvPrefix = "LINGOPOST_"

// Config holds runtime settings for the LingoPost CLI.
//
// Player and Recorder override the external commands used for audio; the
// source or target path is appended as the last argument. Empty means
// autodetect.
type Config struct {
	BaseURL        string        `koanf:"base_url" validate:"required,url"`
	DataDir        string        `koanf:"data_dir" validate:"required"`
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
	UploadTimeout  time.Duration `koanf:"upload_timeout" validate:"gt=0"`
	LogLevel       string        `koanf:"log_level" validate:"oneof=debug info warn error"`
	LogFile        string        `koanf:"log_file"`
	Player         []string      `koanf:"player"`
	Recorder       []string      `koanf:"recorder"`
}

// Defaults returns the configuration used when nothing else is set.
func Defaults() Config {
	return Config{
		BaseURL:        "http://127.0.0.1:8000",
		DataDir:        defaultDataDir(),
		RequestTimeout: 30 * time.Second,
		UploadTimeout:  60 * time.Second,
		LogLevel:       "info",
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "lingopost")
	}
	return ".lingopost"
}

// DatabasePath is the local SQLite file inside DataDir.
func (c *Config) DatabasePath() string { return filepath.Join(c.DataDir, "lingopost.db") }

// MediaDir holds downloaded posts media and TTS audio.
func (c *Config) MediaDir() string { return filepath.Join(c.DataDir, "media") }

// RecordingsDir holds microphone captures.
func (c *Config) RecordingsDir() string { return filepath.Join(c.DataDir, "recordings") }

// DeviceKeyPath is the per-installation key sealing the stored session.
func (c *Config) DeviceKeyPath() string { return filepath.Join(c.DataDir, "device.key") }

// loaders are variables so tests can inject failures.
var (
	defaultLoader = func(k *koanf.Koanf) error {
		return k.Load(structs.Provider(Defaults(), "koanf"), nil)
	}

	fileLoader = func(k *koanf.Koanf, path string) error {
		if path == "" {
			return nil
		}
		return k.Load(file.Provider(path), json.Parser())
	}

	envLoader = func(k *koanf.Koanf) error {
		return k.Load(env.Provider(".", env.Opt{
			Prefix: EnvPrefix,
			TransformFunc: func(key, value string) (string, any) {
				return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
			},
		}), nil)
	}
)

// Load builds a Config from defaults, the JSON file named in args, the
// environment and finally the flags in args (without the program name).
func Load(args []string) (*Config, error) {
	k := koanf.New(".")

	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	path := flagx.ConfigPath(args)
	if err := fileLoader(k, path); err != nil {
		return nil, fmt.Errorf("load config file %s: %w", path, err)
	}
	if err := envLoader(k); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}
	if err := loadFlags(k, args); err != nil {
		return nil, err
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(" "),
			),
			Result:           &cfg,
			WeaklyTypedInput: true,
			TagName:          "koanf",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if err := validation.Struct(cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadFlags sets only the flags present on the command line, so absent
// flags never mask the file or the environment.
func loadFlags(k *koanf.Koanf, args []string) error {
	fs := flag.NewFlagSet("lingopost", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	keys := map[string]string{
		"a":        "base_url",
		"d":        "data_dir",
		"t":        "request_timeout",
		"u":        "upload_timeout",
		"l":        "log_level",
		"log-file": "log_file",
	}
	fs.String("a", "", "backend base URL")
	fs.String("d", "", "data directory")
	fs.String("t", "", "request timeout")
	fs.String("u", "", "upload timeout")
	fs.String("l", "", "log level")
	fs.String("log-file", "", "log file")
	fs.String("c", "", "config file")
	fs.String("config", "", "config file")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		key, ok := keys[f.Name]
		if !ok || err != nil {
			return
		}
		err = k.Set(key, f.Value.String())
	})
	return err
}
