package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/fs"
)

func TestLoad_Defaults(t *testing.T) {
	dir := fs.NewDir(t, "gridops-config")
	t.Chdir(dir.Path())

	var cfg Config
	require.NoError(t, Load(EnvPrefix, "", &cfg))
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, 4, cfg.Runner.Partitions)
	assert.Equal(t, "default", cfg.Project.ID)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	dir := fs.NewDir(t, "gridops-config", fs.WithFile("conf.yaml", `
log:
  level: debug
store:
  backend: s3
  endpoint: localhost:9000
  bucket: changes
runner:
  partitions: 8
`))
	t.Setenv("GRIDOPS_RUNNER_WORKERS", "3")
	t.Setenv("GRIDOPS_STORE_ACCESS_KEY", "minio")
	t.Setenv("GRIDOPS_LOG_LEVEL", "warn")

	var cfg Config
	require.NoError(t, Load(EnvPrefix, dir.Join("conf.yaml"), &cfg))
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, BackendS3, cfg.Store.Backend)
	assert.Equal(t, "changes", cfg.Store.Bucket)
	assert.Equal(t, "minio", cfg.Store.AccessKey)
	assert.Equal(t, 8, cfg.Runner.Partitions)
	assert.Equal(t, 3, cfg.Runner.Workers)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := fs.NewDir(t, "gridops-config", fs.WithFile(".env", "GRIDOPS_STORE_SECRET_KEY=from-dotenv\nGRIDOPS_PROJECT_ID=from-dotenv\n"))
	t.Chdir(dir.Path())
	t.Setenv("GRIDOPS_PROJECT_ID", "from-env")
	t.Cleanup(func() { os.Unsetenv("GRIDOPS_STORE_SECRET_KEY") })

	var cfg Config
	require.NoError(t, Load(EnvPrefix, "", &cfg))
	assert.Equal(t, "from-dotenv", cfg.Store.SecretKey)
	assert.Equal(t, "from-env", cfg.Project.ID)
}

func TestLoad_MissingFile(t *testing.T) {
	var cfg Config
	require.Error(t, Load(EnvPrefix, "/nonexistent/gridops.yaml", &cfg))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Log:     LogConfig{Level: "info", Format: "text"},
			Store:   StoreConfig{Backend: BackendFile, Dir: "changes"},
			Runner:  RunnerConfig{Partitions: 1, Workers: 1},
			Project: ProjectConfig{ID: "p"},
		}
	}
	base := valid()
	require.NoError(t, base.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"backend", func(c *Config) { c.Store.Backend = "tape" }},
		{"file dir", func(c *Config) { c.Store.Dir = "" }},
		{"s3 endpoint", func(c *Config) { c.Store.Backend = BackendS3; c.Store.Bucket = "b" }},
		{"partitions", func(c *Config) { c.Runner.Partitions = 0 }},
		{"workers", func(c *Config) { c.Runner.Workers = -1 }},
		{"project", func(c *Config) { c.Project.ID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
