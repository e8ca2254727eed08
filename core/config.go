package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Port            string
		DebugHost       string
		ShutdownTimeout time.Duration
	}

	MongoConfig struct {
		URI     string
		Name    string
		Timeout time.Duration
	}

	// GoogleConfig holds the OAuth client settings for the Google Classroom
	// integration. It is injected into the credential vault; nothing reads
	// it from ambient state.
	GoogleConfig struct {
		ClientID     string
		ClientSecret string
		RedirectURL  string
		Scopes       []string
	}

	LimitsConfig struct {
		Classes     int
		Evaluators  int
		Evaluations int
	}

	Config struct {
		Debug    bool
		TestMode bool
		Env      string
		Build    string

		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromName  string
		DefaultFromEmail string

		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration

		SendgridAPIKey string
		RollbarToken   string

		Server        ServerConfig
		Mongo         MongoConfig
		Google        GoogleConfig
		DefaultLimits LimitsConfig
	}
)

func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) DefaultFrom() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromEmail}
}

// NewConfig loads the app configuration; defaults first, then an optional
// config/.env.<env> file, then environment variables (prefixed with the
// current ENV name).
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("build", "dev")
	conf.SetDefault("appName", "Darasa")
	conf.SetDefault("secretKey", "w3p&2q8$9y#ujp7^ml#_=&+*%$o2(yrh0&4f-one8&=6t+0-dr")
	conf.SetDefault("frontendBaseUrl", "http://localhost:3000")
	conf.SetDefault("defaultFromName", "Darasa")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("serverHost", "0.0.0.0")
	conf.SetDefault("serverPort", "8080")
	conf.SetDefault("serverDebugHost", "0.0.0.0:4000")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)

	conf.SetDefault("mongoUri", "mongodb://localhost:27017")
	conf.SetDefault("mongoName", "darasa")
	conf.SetDefault("mongoTimeout", 10*time.Second)

	conf.SetDefault("googleRedirectUrl", "http://localhost:8080/v1/users/auth/google/callback")
	conf.SetDefault("googleScopes", []string{
		"https://www.googleapis.com/auth/classroom.courses",
		"https://www.googleapis.com/auth/classroom.rosters",
		"https://www.googleapis.com/auth/classroom.profile.emails",
	})

	conf.SetDefault("classesLimit", 5)
	conf.SetDefault("evaluatorsLimit", 5)
	conf.SetDefault("evaluationsLimit", 100)

	env := os.Getenv("ENV") // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:    conf.GetBool("debug"),
		TestMode: conf.GetBool("testMode"),
		Env:      env,
		Build:    conf.GetString("build"),

		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		FrontendBaseURL:  conf.GetString("frontendBaseUrl"),
		DefaultFromName:  conf.GetString("defaultFromName"),
		DefaultFromEmail: conf.GetString("defaultFromEmail"),

		JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
		JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),

		SendgridAPIKey: conf.GetString("sendgridApiKey"),
		RollbarToken:   conf.GetString("rollbarToken"),

		Server: ServerConfig{
			Host:            conf.GetString("serverHost"),
			Port:            conf.GetString("serverPort"),
			DebugHost:       conf.GetString("serverDebugHost"),
			ShutdownTimeout: conf.GetDuration("serverShutdownTimeout"),
		},
		Mongo: MongoConfig{
			URI:     conf.GetString("mongoUri"),
			Name:    conf.GetString("mongoName"),
			Timeout: conf.GetDuration("mongoTimeout"),
		},
		Google: GoogleConfig{
			ClientID:     conf.GetString("googleClientId"),
			ClientSecret: conf.GetString("googleClientSecret"),
			RedirectURL:  conf.GetString("googleRedirectUrl"),
			Scopes:       conf.GetStringSlice("googleScopes"),
		},
		DefaultLimits: LimitsConfig{
			Classes:     conf.GetInt("classesLimit"),
			Evaluators:  conf.GetInt("evaluatorsLimit"),
			Evaluations: conf.GetInt("evaluationsLimit"),
		},
	}
}
