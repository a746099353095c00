package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port                int      `yaml:"port"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
		Pprof               bool     `yaml:"pprof"`
		AdminAllowCIDRs     []string `yaml:"admin_allow_cidrs"`
	} `yaml:"server"`
	App struct {
		Version            string  `yaml:"version"`
		Environment        string  `yaml:"environment"`
		MinUptimeSeconds   int     `yaml:"min_uptime_seconds"`
		CPULimitMillicores float64 `yaml:"cpu_limit_millicores"`
		MemoryLimitBytes   int64   `yaml:"memory_limit_bytes"`
		PodName            string  `yaml:"pod_name"`
		PodNamespace       string  `yaml:"pod_namespace"`
		NodeName           string  `yaml:"node_name"`
	} `yaml:"app"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Notifier struct {
		TrackingTable      string `yaml:"tracking_table"`
		AdminEmail         string `yaml:"admin_email"`
		SenderEmail        string `yaml:"sender_email"`
		SESRegion          string `yaml:"ses_region"`
		CostExplorerRegion string `yaml:"cost_explorer_region"`
		DynamoEndpoint     string `yaml:"dynamo_endpoint"`
		CronSpec           string `yaml:"cron_spec"`
		RetryMaxAttempts   int    `yaml:"retry_max_attempts"`
		RetryBackoffBaseMS int    `yaml:"retry_backoff_base_ms"`
	} `yaml:"notifier"`
}

// RetryBackoffBase returns the configured base backoff as a duration.
func (c Config) RetryBackoffBase() time.Duration {
	return time.Duration(c.Notifier.RetryBackoffBaseMS) * time.Millisecond
}

// MinUptime returns the readiness grace period as a duration.
func (c Config) MinUptime() time.Duration {
	return time.Duration(c.App.MinUptimeSeconds) * time.Second
}

func defaultConfig() Config {
	var c Config
	c.Server.Port = 5000
	c.Server.ReadTimeoutSeconds = 5
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	c.Server.Pprof = false
	c.Server.AdminAllowCIDRs = []string{"127.0.0.0/8", "::1/128", "10.0.0.0/8"}
	c.App.Version = "1.0.0"
	c.App.Environment = "development"
	c.App.MinUptimeSeconds = 5
	c.App.CPULimitMillicores = 200
	c.App.MemoryLimitBytes = 134217728
	c.App.PodName = "unknown"
	c.App.PodNamespace = "unknown"
	c.App.NodeName = "unknown"
	c.Logging.Level = "info"
	c.Logging.Pretty = false
	c.Notifier.TrackingTable = "aws-cost-notifier-tracking"
	c.Notifier.AdminEmail = "admin@company.com"
	c.Notifier.SenderEmail = "noreply@company.com"
	c.Notifier.SESRegion = "us-east-1"
	c.Notifier.CostExplorerRegion = "us-east-1"
	c.Notifier.RetryMaxAttempts = 3
	c.Notifier.RetryBackoffBaseMS = 1000
	return c
}

// Load builds the configuration from defaults, an optional YAML file pointed
// at by COSTWATCH_CONFIG, and environment variables, in increasing precedence.
// A .env file in the working directory is folded into the environment first.
func Load() Config {
	_ = godotenv.Load()

	c := defaultConfig()
	if path := os.Getenv("COSTWATCH_CONFIG"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	if v := os.Getenv("PORT"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Server.Port = n
		}
	}
	if v := os.Getenv("MIN_UPTIME_SECONDS"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n >= 0 {
			c.App.MinUptimeSeconds = n
		}
	}
	if v := os.Getenv("APP_VERSION"); v != "" {
		c.App.Version = v
	}
	if v := os.Getenv("ENVIRONMENT"); v != "" {
		c.App.Environment = v
	}
	if v := os.Getenv("CPU_LIMIT_MILLICORES"); v != "" {
		var f float64
		_, _ = fmt.Sscan(v, &f)
		if f > 0 {
			c.App.CPULimitMillicores = f
		}
	}
	if v := os.Getenv("MEMORY_LIMIT_BYTES"); v != "" {
		var n int64
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.App.MemoryLimitBytes = n
		}
	}
	if v := os.Getenv("POD_NAME"); v != "" {
		c.App.PodName = v
	}
	if v := os.Getenv("POD_NAMESPACE"); v != "" {
		c.App.PodNamespace = v
	}
	if v := os.Getenv("NODE_NAME"); v != "" {
		c.App.NodeName = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("LOG_PRETTY"); v == "1" || v == "true" {
		c.Logging.Pretty = true
	}
	if v := os.Getenv("PPROF"); v == "1" || v == "true" {
		c.Server.Pprof = true
	}
	if v := os.Getenv("ADMIN_ALLOW_CIDRS"); v != "" {
		c.Server.AdminAllowCIDRs = splitCSV(v)
	}
	if v := os.Getenv("TRACKING_TABLE"); v != "" {
		c.Notifier.TrackingTable = v
	}
	if v := os.Getenv("ADMIN_EMAIL"); v != "" {
		c.Notifier.AdminEmail = v
	}
	if v := os.Getenv("SENDER_EMAIL"); v != "" {
		c.Notifier.SenderEmail = v
	}
	if v := os.Getenv("SES_REGION"); v != "" {
		c.Notifier.SESRegion = v
	}
	if v := os.Getenv("COST_EXPLORER_REGION"); v != "" {
		c.Notifier.CostExplorerRegion = v
	}
	if v := os.Getenv("DYNAMO_ENDPOINT"); v != "" {
		c.Notifier.DynamoEndpoint = v
	}
	if v := os.Getenv("NOTIFIER_CRON_SPEC"); v != "" {
		c.Notifier.CronSpec = v
	}
	if v := os.Getenv("RETRY_MAX_ATTEMPTS"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Notifier.RetryMaxAttempts = n
		}
	}
	if v := os.Getenv("RETRY_BACKOFF_BASE_MS"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Notifier.RetryBackoffBaseMS = n
		}
	}
	return c
}

func splitCSV(s string) []string {
	var out []string
	buf := []rune{}
	for _, r := range s {
		if r == ',' {
			if len(buf) > 0 {
				out = append(out, string(buf))
				buf = buf[:0]
			}
			continue
		}
		buf = append(buf, r)
	}
	if len(buf) > 0 {
		out = append(out, string(buf))
	}
	return out
}
