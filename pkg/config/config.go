package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config represents the spettro configuration file. cmd/spettro applies
// its cache, scheduler, web and logging settings; the display, audio and
// FFT sections are loaded but not applied, since the display state comes
// from the command-line flags alone. The --jobs flag always replaces
// Scheduler.MaxThreads.
type Config struct {
	Display struct {
		Width        int     `yaml:"width"`
		Height       int     `yaml:"height"`
		Fullscreen   bool    `yaml:"fullscreen"`
		MinFreq      float64 `yaml:"min_freq"`
		MaxFreq      float64 `yaml:"max_freq"`
		DynRange     float64 `yaml:"dyn_range"`
		LogMax       float64 `yaml:"log_max"`
		PPSec        float64 `yaml:"ppsec"`
		FPS          float64 `yaml:"fps"`
		Window       string  `yaml:"window"`
		ColorMap     string  `yaml:"color_map"`
		ShowFreqAxes bool    `yaml:"show_freq_axes"`
		ShowTimeAxes bool    `yaml:"show_time_axes"`
	} `yaml:"display"`

	Audio struct {
		SoftVol    float64 `yaml:"softvol"`
		OutputName string  `yaml:"output_device"`
	} `yaml:"audio"`

	FFT struct {
		FFTFreq float64 `yaml:"fft_freq"`
	} `yaml:"fft"`

	Web struct {
		Port        int    `yaml:"port"`
		BindAddress string `yaml:"bind_address"`
	} `yaml:"web"`

	Scheduler struct {
		MaxThreads int `yaml:"max_threads"`
	} `yaml:"scheduler"`

	Cache struct {
		ResultCacheBytes int64 `yaml:"result_cache_bytes"`
		SampleCacheBlocks int  `yaml:"sample_cache_blocks"`
	} `yaml:"cache"`

	Logging struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
		Console    bool   `yaml:"console"`
		Structured bool   `yaml:"structured"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a YAML file, filling in defaults for
// anything the file leaves unset.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// Default returns a Config populated entirely with defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Display.Width == 0 {
		c.Display.Width = 800
	}
	if c.Display.Height == 0 {
		c.Display.Height = 480
	}
	if c.Display.MinFreq == 0 {
		c.Display.MinFreq = 20
	}
	if c.Display.MaxFreq == 0 {
		c.Display.MaxFreq = 8000
	}
	if c.Display.DynRange == 0 {
		c.Display.DynRange = 100
	}
	if c.Display.LogMax == 0 {
		c.Display.LogMax = 0
	}
	if c.Display.PPSec == 0 {
		c.Display.PPSec = 25
	}
	if c.Display.FPS == 0 {
		c.Display.FPS = 25
	}
	if c.Display.Window == "" {
		c.Display.Window = "kaiser"
	}
	if c.Display.ColorMap == "" {
		c.Display.ColorMap = "heat"
	}
	if c.Audio.SoftVol == 0 {
		c.Audio.SoftVol = 1.0
	}
	if c.Audio.OutputName == "" {
		c.Audio.OutputName = "default"
	}
	if c.FFT.FFTFreq == 0 {
		c.FFT.FFTFreq = 10
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8080
	}
	if c.Web.BindAddress == "" {
		c.Web.BindAddress = "127.0.0.1"
	}
	if c.Scheduler.MaxThreads == 0 {
		c.Scheduler.MaxThreads = 8
	}
	if c.Cache.ResultCacheBytes == 0 {
		c.Cache.ResultCacheBytes = 64 * 1024 * 1024
	}
	if c.Cache.SampleCacheBlocks == 0 {
		c.Cache.SampleCacheBlocks = 256
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSize == 0 {
		c.Logging.MaxSize = 20
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 3
	}
	if c.Logging.MaxAge == 0 {
		c.Logging.MaxAge = 14
	}
}

// Validate checks the configuration for internally-inconsistent values.
func (c *Config) Validate() error {
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display width/height must be positive")
	}
	if c.Display.MaxFreq-c.Display.MinFreq < 1 {
		return fmt.Errorf("max_freq must be at least min_freq+1")
	}
	if c.Display.PPSec <= 0 {
		return fmt.Errorf("ppsec must be positive")
	}
	if c.Audio.SoftVol <= 0 {
		return fmt.Errorf("softvol must be positive")
	}
	if c.Scheduler.MaxThreads < 0 {
		return fmt.Errorf("max_threads must be >= 0")
	}
	return nil
}
