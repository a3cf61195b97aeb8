package configs

type Configs struct {
	ApplicationEnv      string `mapstructure:"app_env"`
	ApplicationLogLevel string `mapstructure:"app_log_level"`
	ApplicationName     string `mapstructure:"app_name"`
	ApplicationPort     int    `mapstructure:"app_port"`

	//telegraf-config
	MetricsSamplingRate float64 `mapstructure:"metrics_sampling_rate"`
	Telegraf_Host       string  `mapstructure:"telegraf_host"`
	Telegraf_Port       string  `mapstructure:"telegraf_port"`

	//feature-store
	FeatureStore_Endpoint        string `mapstructure:"featureStore_endpoint"`
	FeatureStore_Password        string `mapstructure:"featureStore_password"`
	FeatureStore_DB              int    `mapstructure:"featureStore_db"`
	FeatureStore_KeyPrefix       string `mapstructure:"featureStore_keyPrefix"`
	FeatureStore_BatchSize       int    `mapstructure:"featureStore_batchSize"`
	FeatureStore_TimeoutMs       int    `mapstructure:"featureStore_timeoutMs"`
	FeatureStore_PoolSize        int    `mapstructure:"featureStore_poolSize"`
	FeatureStore_PoolTimeoutMs   int    `mapstructure:"featureStore_poolTimeoutMs"`
	FeatureStore_CacheSizeBytes  int    `mapstructure:"featureStore_cacheSizeBytes"`
	FeatureStore_CacheTTLSec     int    `mapstructure:"featureStore_cacheTtlSec"`
	FeatureStore_CBEnabled       bool   `mapstructure:"featureStore_cbEnabled"`
	FeatureStore_CBFailureRate   int    `mapstructure:"featureStore_cbFailureRate"`
	FeatureStore_CBMinRequests   int    `mapstructure:"featureStore_cbMinRequests"`
	FeatureStore_CBWindowMs      int    `mapstructure:"featureStore_cbWindowMs"`
	FeatureStore_CBSuccessRatio  int    `mapstructure:"featureStore_cbSuccessRatio"`
	FeatureStore_CBSuccessWindow int    `mapstructure:"featureStore_cbSuccessWindow"`
	FeatureStore_CBDelayMs       int    `mapstructure:"featureStore_cbDelayMs"`

	//model-store
	ModelStore_Path              string  `mapstructure:"modelStore_path"`
	ModelStore_S3Region          string  `mapstructure:"modelStore_s3Region"`
	ModelStore_S3Endpoint        string  `mapstructure:"modelStore_s3Endpoint"`
	ModelStore_S3AccessKeyID     string  `mapstructure:"modelStore_s3AccessKeyId"`
	ModelStore_S3SecretAccessKey string  `mapstructure:"modelStore_s3SecretAccessKey"`
	ModelValidation_ErrorTol     float64 `mapstructure:"modelValidation_errorTolerance"`
	ModelValidation_WarnTol      float64 `mapstructure:"modelValidation_warnTolerance"`

	//model-service-config
	ServiceConfigName string `mapstructure:"serviceConfigName"`
	ConfigSource      string `mapstructure:"configSource"`
	ConfigDir         string `mapstructure:"configDir"`

	ETCD_WATCHER_ENABLED bool   `mapstructure:"etcd_watcherEnabled"`
	ETCD_SERVER          string `mapstructure:"etcd_server"`
	ETCD_USERNAME        string `mapstructure:"etcd_username"`
	ETCD_PASSWORD        string `mapstructure:"etcd_password"`
	ETCD_BASE_PATH       string `mapstructure:"etcd_basePath"`

	//request-handling
	RequestDeadlineMs   int `mapstructure:"requestDeadlineMs"`
	ShadowDeadlineMs    int `mapstructure:"shadowDeadlineMs"`
	ShadowSamplePercent int `mapstructure:"shadowSamplePercent"`

	//event-streaming
	Kafka_BootstrapServers string `mapstructure:"kafka_bootstrapServers"`
	Kafka_ShadowTopic      string `mapstructure:"kafka_shadowTopic"`
	Kafka_SaslUsername     string `mapstructure:"kafka_saslUsername"`
	Kafka_BufferSize       int    `mapstructure:"kafka_bufferSize"`
	EventStreamingAPIToken string `mapstructure:"eventStreaming_apiToken"`

	// comma separated caller:token pairs; empty disables caller auth
	AuthCallerTokens string `mapstructure:"auth_callerTokens"`
}

type AppConfigs struct {
	Configs Configs
}

func (a *AppConfigs) GetStaticConfig() interface{} {
	return &a.Configs
}
