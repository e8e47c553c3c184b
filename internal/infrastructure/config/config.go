// Package config provides configuration loading for the combine-prs application.
// It reads run settings from environment variables and can fall back to
// HashiCorp Vault for the GitHub token.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"dario.cat/mergo"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/vault"

	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
)

// Environment variable names.
const (
	EnvGitHubToken      = "GITHUB_TOKEN"
	EnvGitHubRepository = "GITHUB_REPOSITORY"
	EnvGitHubAPIURL     = "GITHUB_API_URL"
	EnvGitUserName      = "GIT_USERNAME"
	EnvGitUserEmail     = "GIT_EMAIL"
	EnvBaseBranch       = "BASE_BRANCH"
	EnvCombineBranch    = "COMBINE_BRANCH"
	EnvPRUser           = "PR_USER"
	EnvOutputJSON       = "OUTPUT_JSON"

	// EnvLogLevel is the log level (debug, info, error).
	EnvLogLevel = "LOG_LEVEL"

	// EnvLogAppName is the application name for log context.
	EnvLogAppName = "LOG_APP_NAME"

	// EnvVaultTokenPath is the path in Vault KV where the GitHub token is stored.
	EnvVaultTokenPath = "VAULT_GITHUB_TOKEN_PATH"

	// EnvVaultTokenMount is the Vault KV mount point (defaults to "secret").
	EnvVaultTokenMount = "VAULT_GITHUB_TOKEN_MOUNT"
)

// Default values.
const (
	DefaultLogLevel        = "info"
	DefaultLogAppName      = "combine-prs"
	DefaultVaultTokenMount = "secret"

	// vaultTokenKey is the key of the token inside the Vault secret.
	vaultTokenKey = "token"
)

// Configuration errors.
var (
	// ErrTokenRequired indicates no GitHub token is available.
	ErrTokenRequired = errors.New(
		"GitHub token required: set GITHUB_TOKEN or VAULT_GITHUB_TOKEN_PATH " +
			"(with VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID)",
	)

	// ErrRepositoryRequired indicates GITHUB_REPOSITORY is not set.
	ErrRepositoryRequired = errors.New("repository required: set GITHUB_REPOSITORY to owner/repo")

	// ErrInvalidRepository indicates GITHUB_REPOSITORY is not in owner/repo form.
	ErrInvalidRepository = errors.New("GITHUB_REPOSITORY must be in owner/repo form")

	// ErrVaultClientFailed indicates failure to create or authenticate with Vault.
	ErrVaultClientFailed = errors.New("failed to create Vault client")

	// ErrVaultSecretNotFound indicates the token secret was not found in Vault.
	ErrVaultSecretNotFound = errors.New("GitHub token not found in Vault")
)

// VaultClient defines the interface for Vault operations.
// This interface allows for dependency injection and testing.
type VaultClient interface {
	// GetKVSecret retrieves a secret from Vault's KV v2 secrets engine.
	GetKVSecret(ctx context.Context, path, mount string) (map[string]interface{}, error)
}

// VaultClientFactory creates a VaultClient using AppRole authentication.
// This is the default factory used in production.
type VaultClientFactory func(ctx context.Context) (VaultClient, error)

// DefaultVaultClientFactory creates a VaultClient using goLibMyCarrier/vault with AppRole auth.
func DefaultVaultClientFactory(ctx context.Context) (VaultClient, error) {
	// Uses: VAULT_ADDRESS, VAULT_ROLE_ID, VAULT_SECRET_ID
	vaultConfig, err := vault.VaultLoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	client, err := vault.CreateVaultClient(ctx, vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrVaultClientFailed, err)
	}

	return client, nil
}

// Config holds all application configuration.
// It is built once by Load and must not be modified afterwards.
type Config struct {
	// Token is the GitHub API bearer token.
	Token string

	// Owner and Repo are the two halves of Repository.
	Owner string
	Repo  string

	// Repository is the owner/repo identifier.
	Repository string

	// APIURL is the GitHub REST API base URL; empty means github.com.
	APIURL string

	// GitUserName and GitUserEmail are the committer identity to configure.
	GitUserName  string
	GitUserEmail string

	// BaseBranch is the branch candidate pull requests target.
	BaseBranch string

	// CombineBranch is the working branch and head of the combined pull request.
	CombineBranch string

	// PRUser is the author login candidates are filtered by.
	PRUser string

	// OutputJSON is the report destination; empty disables the report.
	OutputJSON string

	// LogLevel is the logging level (debug, info, error).
	LogLevel string

	// LogAppName is the application name for log context.
	LogAppName string
}

// defaults returns the values used for every setting left empty.
func defaults() Config {
	return Config{
		GitUserName:   domain.DefaultGitUserName,
		GitUserEmail:  domain.DefaultGitUserEmail,
		BaseBranch:    domain.DefaultBaseBranch,
		CombineBranch: domain.DefaultCombineBranch,
		PRUser:        domain.DefaultAuthor,
		LogLevel:      DefaultLogLevel,
		LogAppName:    DefaultLogAppName,
	}
}

// Load loads the application configuration from environment variables.
// The GitHub token is read from GITHUB_TOKEN, or from Vault when that is
// empty and VAULT_GITHUB_TOKEN_PATH is set.
//
// Returns ErrTokenRequired or ErrRepositoryRequired when a mandatory
// setting is missing.
func Load() (*Config, error) {
	return LoadWithVaultClient(context.Background(), nil)
}

// LoadWithVaultClient loads configuration using the provided VaultClient factory.
// If vaultClientFactory is nil, DefaultVaultClientFactory is used.
// This function enables dependency injection for testing.
func LoadWithVaultClient(ctx context.Context, vaultClientFactory VaultClientFactory) (*Config, error) {
	cfg := Config{
		Token:         strings.TrimSpace(os.Getenv(EnvGitHubToken)),
		Repository:    strings.TrimSpace(os.Getenv(EnvGitHubRepository)),
		APIURL:        os.Getenv(EnvGitHubAPIURL),
		GitUserName:   os.Getenv(EnvGitUserName),
		GitUserEmail:  os.Getenv(EnvGitUserEmail),
		BaseBranch:    os.Getenv(EnvBaseBranch),
		CombineBranch: os.Getenv(EnvCombineBranch),
		PRUser:        os.Getenv(EnvPRUser),
		OutputJSON:    os.Getenv(EnvOutputJSON),
		LogLevel:      os.Getenv(EnvLogLevel),
		LogAppName:    os.Getenv(EnvLogAppName),
	}

	if err := mergo.Merge(&cfg, defaults()); err != nil {
		return nil, fmt.Errorf("failed to apply configuration defaults: %w", err)
	}

	if cfg.Token == "" {
		token, err := loadTokenFromVault(ctx, vaultClientFactory)
		if err != nil {
			return nil, err
		}
		cfg.Token = token
	}

	if cfg.Repository == "" {
		return nil, ErrRepositoryRequired
	}

	owner, repo, err := splitRepository(cfg.Repository)
	if err != nil {
		return nil, err
	}
	cfg.Owner = owner
	cfg.Repo = repo

	return &cfg, nil
}

// loadTokenFromVault reads the token from Vault KV v2 when a path is configured.
func loadTokenFromVault(ctx context.Context, vaultClientFactory VaultClientFactory) (string, error) {
	path := os.Getenv(EnvVaultTokenPath)
	if path == "" {
		return "", ErrTokenRequired
	}

	if vaultClientFactory == nil {
		vaultClientFactory = DefaultVaultClientFactory
	}

	client, err := vaultClientFactory(ctx)
	if err != nil {
		return "", err
	}

	mount := os.Getenv(EnvVaultTokenMount)
	if mount == "" {
		mount = DefaultVaultTokenMount
	}

	secretData, err := client.GetKVSecret(ctx, path, mount)
	if err != nil {
		return "", fmt.Errorf("%w at path %s: %w", ErrVaultSecretNotFound, path, err)
	}

	token, ok := secretData[vaultTokenKey].(string)
	if !ok || strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: secret at %s has no %q key", ErrVaultSecretNotFound, path, vaultTokenKey)
	}

	return strings.TrimSpace(token), nil
}

// splitRepository splits owner/repo.
func splitRepository(repository string) (string, string, error) {
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRepository, repository)
	}
	return owner, repo, nil
}
