package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	vault "github.com/hashicorp/vault/api"
)

type VaultConfig struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	Overwrite bool
}

type VaultResult struct {
	Enabled bool
	Path    string
	Loaded  int
	Skipped int
}

func LoadVaultConfigFromEnv(pathOverride string) VaultConfig {
	enabled := strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true")
	mount := os.Getenv("VAULT_MOUNT")
	if mount == "" {
		mount = "secret"
	}
	kvVersion := 2
	if val := os.Getenv("VAULT_KV_VERSION"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			kvVersion = parsed
		}
	}
	path := pathOverride
	if path == "" {
		path = os.Getenv("VAULT_PATH")
	}
	timeout := 5 * time.Second
	if val := os.Getenv("VAULT_TIMEOUT_MS"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			timeout = time.Duration(parsed) * time.Millisecond
		}
	}

	return VaultConfig{
		Enabled:   enabled,
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     mount,
		Path:      path,
		KVVersion: kvVersion,
		Timeout:   timeout,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
	}
}

// ApplyVaultSecrets reads one KV secret and exports its keys as environment
// variables so config.Load picks them up. Existing variables win unless
// Overwrite is set.
func ApplyVaultSecrets(ctx context.Context, cfg VaultConfig) (VaultResult, error) {
	if !cfg.Enabled {
		return VaultResult{Enabled: false}, nil
	}

	result := VaultResult{Enabled: true, Path: cfg.Path}

	if cfg.Addr == "" || cfg.Token == "" || cfg.Path == "" {
		return result, errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")
	}

	client, err := newVaultClient(cfg)
	if err != nil {
		return result, err
	}

	data, err := readSecret(ctx, client, cfg)
	if err != nil {
		return result, err
	}

	for key, value := range data {
		if !cfg.Overwrite && os.Getenv(key) != "" {
			result.Skipped++
			continue
		}
		if err := os.Setenv(key, stringifyVaultValue(value)); err != nil {
			return result, err
		}
		result.Loaded++
	}

	return result, nil
}

func newVaultClient(cfg VaultConfig) (*vault.Client, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = strings.TrimRight(cfg.Addr, "/")
	vaultConfig.Timeout = cfg.Timeout

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}
	return client, nil
}

func readSecret(ctx context.Context, client *vault.Client, cfg VaultConfig) (map[string]interface{}, error) {
	mount := strings.Trim(cfg.Mount, "/")
	path := strings.Trim(cfg.Path, "/")
	if mount == "" || path == "" {
		return nil, errors.New("vault mount and path must be set")
	}

	var (
		secret *vault.KVSecret
		err    error
	)
	if cfg.KVVersion == 1 {
		secret, err = client.KVv1(mount).Get(ctx, path)
	} else {
		secret, err = client.KVv2(mount).Get(ctx, path)
	}
	if err != nil {
		return nil, fmt.Errorf("vault fetch failed for %s/%s: %w", mount, path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("vault secret %s/%s has no data", mount, path)
	}
	return secret.Data, nil
}

func stringifyVaultValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
