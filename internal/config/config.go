package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort         string  `mapstructure:"SERVER_PORT"`
	JWTSecret          string  `mapstructure:"JWT_SECRET"`
	StravaClientID     string  `mapstructure:"STRAVA_CLIENT_ID"`
	StravaClientSecret string  `mapstructure:"STRAVA_CLIENT_SECRET"`
	StravaRedirectURI  string  `mapstructure:"STRAVA_REDIRECT_URI"`
	WeatherAPIKey      string  `mapstructure:"WEATHER_API_KEY"`
	GeocoderProvider   string  `mapstructure:"GEOCODER_PROVIDER"`
	GoogleGeocodingKey string  `mapstructure:"GOOGLE_GEOCODING_KEY"`
	NominatimBaseURL   string  `mapstructure:"NOMINATIM_BASE_URL"`
	SessionTTLHours    int     `mapstructure:"SESSION_TTL_HOURS"`
	SearchZoneRadiusKm float64 `mapstructure:"SEARCH_ZONE_RADIUS_KM"`
	DefaultMaxHR       int     `mapstructure:"DEFAULT_MAX_HR"`
	DefaultFTP         int     `mapstructure:"DEFAULT_FTP"`
	DefaultWeightKg    float64 `mapstructure:"DEFAULT_WEIGHT_KG"`
}

func Load() Config {
	// A local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("SERVER_PORT", ":8080")
	viper.SetDefault("JWT_SECRET", "dev-secret-change-me")
	// Empty defaults register the keys so AutomaticEnv picks them up during
	// Unmarshal.
	viper.SetDefault("STRAVA_CLIENT_ID", "")
	viper.SetDefault("STRAVA_CLIENT_SECRET", "")
	viper.SetDefault("STRAVA_REDIRECT_URI", "http://localhost:8080/api/v1/auth/strava/callback")
	viper.SetDefault("WEATHER_API_KEY", "")
	viper.SetDefault("GEOCODER_PROVIDER", "nominatim")
	viper.SetDefault("GOOGLE_GEOCODING_KEY", "")
	viper.SetDefault("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org")
	viper.SetDefault("SESSION_TTL_HOURS", 24)
	viper.SetDefault("SEARCH_ZONE_RADIUS_KM", 5.0)
	viper.SetDefault("DEFAULT_MAX_HR", 190)
	viper.SetDefault("DEFAULT_FTP", 250)
	viper.SetDefault("DEFAULT_WEIGHT_KG", 70.0)

	var cfg Config
	_ = viper.Unmarshal(&cfg)
	return cfg
}
