package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		APIKey          string        `yaml:"api_key"`
		FastModel       string        `yaml:"fast_model"`
		ImageModel      string        `yaml:"image_model"`
		ProModel        string        `yaml:"pro_model"`
		ProImageModel   string        `yaml:"pro_image_model"`
		VideoModel      string        `yaml:"video_model"`
		RequestTimeout  time.Duration `yaml:"request_timeout"`
		PollInterval    time.Duration `yaml:"poll_interval"`
		MaxPollAttempts int           `yaml:"max_poll_attempts"`
	} `yaml:"llm"`

	Server struct {
		Addr          string `yaml:"addr"`
		AppURL        string `yaml:"app_url"`
		StaticDir     string `yaml:"static_dir"`
		SessionSecret string `yaml:"session_secret"`
		MaxUploadMB   int    `yaml:"max_upload_mb"`
	} `yaml:"server"`

	OAuth struct {
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
		RedirectURL  string `yaml:"redirect_url"`
	} `yaml:"oauth"`

	Store struct {
		Driver string `yaml:"driver"` // file, sqlite, postgres, memory
		Path   string `yaml:"path"`
		URL    string `yaml:"url"`
		Key    string `yaml:"key"`
	} `yaml:"store"`

	Backup struct {
		FileName string `yaml:"file_name"`
	} `yaml:"backup"`

	Fetch struct {
		Timeout   time.Duration `yaml:"timeout"`
		RateLimit float64       `yaml:"rate_limit"`
	} `yaml:"fetch"`

	Log struct {
		Level    string `yaml:"level"`
		Format   string `yaml:"format"`
		Output   string `yaml:"output"`
		FilePath string `yaml:"file_path"`
	} `yaml:"log"`
}

func LoadConfig(path string) (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"studio.yaml",
			"studio.yml",
			filepath.Join(os.Getenv("HOME"), ".config/studio/config.yaml"),
			"/etc/studio/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.FastModel == "" {
		config.LLM.FastModel = "gemini-3-flash-preview"
	}
	if config.LLM.ImageModel == "" {
		config.LLM.ImageModel = "gemini-2.5-flash-image"
	}
	if config.LLM.ProModel == "" {
		config.LLM.ProModel = "gemini-3-pro-preview"
	}
	if config.LLM.ProImageModel == "" {
		config.LLM.ProImageModel = "gemini-3-pro-image-preview"
	}
	if config.LLM.VideoModel == "" {
		config.LLM.VideoModel = "veo-3.1-fast-generate-preview"
	}
	if config.LLM.RequestTimeout == 0 {
		config.LLM.RequestTimeout = 2 * time.Minute
	}
	if config.LLM.PollInterval == 0 {
		config.LLM.PollInterval = 5 * time.Second
	}
	if config.LLM.MaxPollAttempts == 0 {
		config.LLM.MaxPollAttempts = 120
	}

	if config.Server.Addr == "" {
		config.Server.Addr = ":3000"
	}
	if config.Server.AppURL == "" {
		config.Server.AppURL = "http://localhost:3000"
	}
	if config.Server.MaxUploadMB == 0 {
		config.Server.MaxUploadMB = 50
	}

	if config.OAuth.RedirectURL == "" {
		config.OAuth.RedirectURL = config.Server.AppURL + "/auth/google/callback"
	}

	if config.Store.Driver == "" {
		config.Store.Driver = "file"
	}
	if config.Store.Key == "" {
		config.Store.Key = "chaoticx_suite_v3"
	}

	if config.Backup.FileName == "" {
		config.Backup.FileName = "xpert_studio_backup.json"
	}

	if config.Fetch.Timeout == 0 {
		config.Fetch.Timeout = 60 * time.Second
	}
	if config.Fetch.RateLimit == 0 {
		config.Fetch.RateLimit = 2.0
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}
	if config.Log.Output == "" {
		config.Log.Output = "stderr"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if id := os.Getenv("GOOGLE_CLIENT_ID"); id != "" {
		config.OAuth.ClientID = id
	}
	if secret := os.Getenv("GOOGLE_CLIENT_SECRET"); secret != "" {
		config.OAuth.ClientSecret = secret
	}
	if appURL := os.Getenv("APP_URL"); appURL != "" {
		config.Server.AppURL = appURL
	}
	if secret := os.Getenv("SESSION_SECRET"); secret != "" {
		config.Server.SessionSecret = secret
	}
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Addr = ":" + port
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Store.URL = dbURL
	}
}
