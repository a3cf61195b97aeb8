package configs

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

const (
	ConfigSourceLocal = "local"
	ConfigSourceEtcd  = "etcd"
)

// InitConfig binds the process environment into appConfigs.
func InitConfig(appConfigs *AppConfigs) error {
	v := viper.New()
	setDefaults(v)
	bindEnvVars(v)

	cfg, ok := appConfigs.GetStaticConfig().(*Configs)
	if !ok {
		return fmt.Errorf("static config is not *Configs")
	}
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config from environment: %w", err)
	}
	return cfg.validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", "local")
	v.SetDefault("app_log_level", "INFO")
	v.SetDefault("app_name", "onscene")
	v.SetDefault("app_port", 8080)

	v.SetDefault("metrics_sampling_rate", 1.0)
	v.SetDefault("telegraf_host", "localhost")
	v.SetDefault("telegraf_port", "8125")

	v.SetDefault("featureStore_keyPrefix", "onscene:user")
	v.SetDefault("featureStore_batchSize", 50)
	v.SetDefault("featureStore_timeoutMs", 150)
	v.SetDefault("featureStore_poolSize", 64)
	v.SetDefault("featureStore_poolTimeoutMs", 20)
	v.SetDefault("featureStore_cacheSizeBytes", 16*1024*1024)
	v.SetDefault("featureStore_cacheTtlSec", 300)
	v.SetDefault("featureStore_cbEnabled", true)
	v.SetDefault("featureStore_cbFailureRate", 50)
	v.SetDefault("featureStore_cbMinRequests", 20)
	v.SetDefault("featureStore_cbWindowMs", 10000)
	v.SetDefault("featureStore_cbSuccessRatio", 3)
	v.SetDefault("featureStore_cbSuccessWindow", 5)
	v.SetDefault("featureStore_cbDelayMs", 5000)

	v.SetDefault("modelValidation_errorTolerance", 0.05)
	v.SetDefault("modelValidation_warnTolerance", 0.01)

	v.SetDefault("serviceConfigName", "on_scene_model_service")
	v.SetDefault("configSource", ConfigSourceLocal)
	v.SetDefault("configDir", "./configs")
	v.SetDefault("etcd_basePath", "/config/onscene")

	v.SetDefault("requestDeadlineMs", 1000)
	v.SetDefault("shadowDeadlineMs", 2000)
	v.SetDefault("shadowSamplePercent", 100)

	v.SetDefault("kafka_shadowTopic", "onscene-shadow-predictions")
	v.SetDefault("kafka_bufferSize", 1024)
}

func bindEnvVars(v *viper.Viper) {
	// Application config
	v.BindEnv("app_env", "APP_ENV")
	v.BindEnv("app_log_level", "APP_LOG_LEVEL")
	v.BindEnv("app_name", "APP_NAME")
	v.BindEnv("app_port", "APP_PORT")

	// Metrics / Telegraf config
	v.BindEnv("metrics_sampling_rate", "METRIC_SAMPLING_RATE")
	v.BindEnv("telegraf_host", "TELEGRAF_HOST")
	v.BindEnv("telegraf_port", "TELEGRAF_PORT")

	// Feature store config
	v.BindEnv("featureStore_endpoint", "FEATURE_STORE_ENDPOINT")
	v.BindEnv("featureStore_password", "FEATURE_STORE_PASSWORD")
	v.BindEnv("featureStore_db", "FEATURE_STORE_DB")
	v.BindEnv("featureStore_keyPrefix", "FEATURE_STORE_KEY_PREFIX")
	v.BindEnv("featureStore_batchSize", "FEATURE_STORE_BATCH_SIZE")
	v.BindEnv("featureStore_timeoutMs", "FEATURE_STORE_TIMEOUT_MS")
	v.BindEnv("featureStore_poolSize", "FEATURE_STORE_POOL_SIZE")
	v.BindEnv("featureStore_poolTimeoutMs", "FEATURE_STORE_POOL_TIMEOUT_MS")
	v.BindEnv("featureStore_cacheSizeBytes", "FEATURE_STORE_CACHE_SIZE_BYTES")
	v.BindEnv("featureStore_cacheTtlSec", "FEATURE_STORE_CACHE_TTL_SEC")
	v.BindEnv("featureStore_cbEnabled", "FEATURE_STORE_CB_ENABLED")
	v.BindEnv("featureStore_cbFailureRate", "FEATURE_STORE_CB_FAILURE_RATE")
	v.BindEnv("featureStore_cbMinRequests", "FEATURE_STORE_CB_MIN_REQUESTS")
	v.BindEnv("featureStore_cbWindowMs", "FEATURE_STORE_CB_WINDOW_MS")
	v.BindEnv("featureStore_cbSuccessRatio", "FEATURE_STORE_CB_SUCCESS_RATIO")
	v.BindEnv("featureStore_cbSuccessWindow", "FEATURE_STORE_CB_SUCCESS_WINDOW")
	v.BindEnv("featureStore_cbDelayMs", "FEATURE_STORE_CB_DELAY_MS")

	// Model store config
	v.BindEnv("modelStore_path", "MODEL_STORE_PATH")
	v.BindEnv("modelStore_s3Region", "MODEL_STORE_S3_REGION")
	v.BindEnv("modelStore_s3Endpoint", "MODEL_STORE_S3_ENDPOINT")
	v.BindEnv("modelStore_s3AccessKeyId", "MODEL_STORE_S3_ACCESS_KEY_ID")
	v.BindEnv("modelStore_s3SecretAccessKey", "MODEL_STORE_S3_SECRET_ACCESS_KEY")
	v.BindEnv("modelValidation_errorTolerance", "MODEL_VALIDATION_ERROR_TOLERANCE")
	v.BindEnv("modelValidation_warnTolerance", "MODEL_VALIDATION_WARN_TOLERANCE")

	// Model service config
	v.BindEnv("serviceConfigName", "SERVICE_CONFIG_NAME")
	v.BindEnv("configSource", "CONFIG_SOURCE")
	v.BindEnv("configDir", "CONFIG_DIR")

	// ETCD config
	v.BindEnv("etcd_watcherEnabled", "ETCD_WATCHER_ENABLED")
	v.BindEnv("etcd_server", "ETCD_SERVER")
	v.BindEnv("etcd_username", "ETCD_USERNAME")
	v.BindEnv("etcd_password", "ETCD_PASSWORD")
	v.BindEnv("etcd_basePath", "ETCD_BASE_PATH")

	// Request handling
	v.BindEnv("requestDeadlineMs", "REQUEST_DEADLINE_MS")
	v.BindEnv("shadowDeadlineMs", "SHADOW_DEADLINE_MS")
	v.BindEnv("shadowSamplePercent", "SHADOW_SAMPLE_PERCENT")

	// Event streaming config
	v.BindEnv("kafka_bootstrapServers", "KAFKA_BOOTSTRAP_SERVERS")
	v.BindEnv("kafka_shadowTopic", "KAFKA_SHADOW_TOPIC")
	v.BindEnv("kafka_saslUsername", "KAFKA_SASL_USERNAME")
	v.BindEnv("kafka_bufferSize", "KAFKA_BUFFER_SIZE")
	v.BindEnv("eventStreaming_apiToken", "EVENT_STREAMING_API_TOKEN")

	v.BindEnv("auth_callerTokens", "AUTH_CALLER_TOKENS")
}

func (c *Configs) validate() error {
	if c.FeatureStore_Endpoint == "" {
		return fmt.Errorf("FEATURE_STORE_ENDPOINT is not set")
	}
	if c.ModelStore_Path == "" {
		return fmt.Errorf("MODEL_STORE_PATH is not set")
	}
	switch c.ConfigSource {
	case ConfigSourceLocal:
	case ConfigSourceEtcd:
		if c.ETCD_SERVER == "" {
			return fmt.Errorf("ETCD_SERVER is not set for config source %s", ConfigSourceEtcd)
		}
	default:
		return fmt.Errorf("unknown CONFIG_SOURCE %q", c.ConfigSource)
	}
	if c.ShadowSamplePercent < 0 || c.ShadowSamplePercent > 100 {
		return fmt.Errorf("SHADOW_SAMPLE_PERCENT must be within [0, 100], got %d", c.ShadowSamplePercent)
	}
	return nil
}

// CallerTokens parses AuthCallerTokens into caller id -> token.
func (c *Configs) CallerTokens() map[string]string {
	tokens := make(map[string]string)
	for _, pair := range strings.Split(c.AuthCallerTokens, ",") {
		caller, token, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || caller == "" {
			continue
		}
		tokens[caller] = token
	}
	return tokens
}
