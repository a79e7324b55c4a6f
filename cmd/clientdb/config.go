package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/kjk/clientdb/snapshot"
)

type Config struct {
	DataDir string
	LogDir  string
	Help    bool
	Verbose bool
	Journal bool
	EnvPath string
	Remote  snapshot.RemoteConfig
	SFTP    snapshot.SFTPConfig
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// parseEnv parses KEY=VALUE lines. Empty lines and lines starting with
// # are skipped
func parseEnv(d []byte) (map[string]string, error) {
	m := map[string]string{}
	lines := strings.Split(normalizeNewlines(string(d)), "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("invalid line %d '%s', expected KEY=VALUE", i+1, line)
		}
		m[strings.TrimSpace(key)] = strings.TrimSpace(val)
	}
	return m, nil
}

// loadRemoteConfig fills c.Remote from the env file (if given) and then
// from the process environment, which takes precedence
func (c *Config) loadRemoteConfig(getenv func(string) string) error {
	env := map[string]string{}
	if c.EnvPath != "" {
		d, err := os.ReadFile(c.EnvPath)
		if err != nil {
			return err
		}
		env, err = parseEnv(d)
		if err != nil {
			return fmt.Errorf("%s: %w", c.EnvPath, err)
		}
	}
	get := func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return env[key]
	}
	c.Remote = snapshot.RemoteConfig{
		Access:   get("S3_ACCESS"),
		Secret:   get("S3_SECRET"),
		Bucket:   get("S3_BUCKET"),
		Endpoint: get("S3_ENDPOINT"),
		Region:   get("S3_REGION"),
		Insecure: get("S3_INSECURE") == "true",
	}
	c.SFTP = snapshot.SFTPConfig{
		User:    get("SFTP_USER"),
		Host:    get("SFTP_HOST"),
		KeyPath: get("SFTP_KEY"),
		Dir:     get("SFTP_DIR"),
	}
	return nil
}
