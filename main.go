// Package main is the entry point for the combine-prs CLI application.
// combine-prs consolidates open dependency bot pull requests into a single
// combination branch and pull request.
package main

import (
	"os"

	"github.com/MyCarrier-DevOps/goLibMyCarrier/logger"

	"github.com/clhore/combine-dependabot-pull-requests/cmd"
	"github.com/clhore/combine-dependabot-pull-requests/internal/adapters/git"
	"github.com/clhore/combine-dependabot-pull-requests/internal/adapters/github"
	logadapter "github.com/clhore/combine-dependabot-pull-requests/internal/adapters/logger"
	"github.com/clhore/combine-dependabot-pull-requests/internal/adapters/output"
	"github.com/clhore/combine-dependabot-pull-requests/internal/domain"
	"github.com/clhore/combine-dependabot-pull-requests/internal/infrastructure/config"
	"github.com/clhore/combine-dependabot-pull-requests/internal/usecases"
)

func main() {
	// The logger is created lazily so --verbose can raise LOG_LEVEL first.
	var adapter *logadapter.ZapAdapter

	deps := &cmd.Dependencies{
		LoggerFactory: func() cmd.Logger {
			adapter = logadapter.NewZapAdapter(logger.NewZapLoggerFromConfig())
			return adapter
		},

		ConfigLoader: func() (*cmd.AppConfig, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			return toAppConfig(cfg), nil
		},

		RepositoryFactory: func(path string, log cmd.Logger) (domain.Repository, error) {
			repo, err := git.NewRepository(path, log)
			if err != nil {
				return nil, err
			}
			return repo, nil
		},

		PullRequestServiceFactory: func(cfg *cmd.AppConfig, dryRun bool, log cmd.Logger) (domain.PullRequestService, error) {
			clt, err := github.New(cfg.Token, cfg.APIURL, log)
			if err != nil {
				return nil, err
			}
			if dryRun {
				return github.NewDryClient(clt, log), nil
			}
			return clt, nil
		},

		CombinerFactory: func(
			repo domain.Repository,
			prs domain.PullRequestService,
			cfg *cmd.AppConfig,
			dryRun bool,
			log cmd.Logger,
		) domain.Combiner {
			if adapter != nil {
				log = adapter.With(runFields(cfg))
			}
			return usecases.NewCombiner(repo, prs, log, dryRun)
		},

		ReportWriterFactory: func(path string) domain.ReportWriter {
			return output.NewFileWriter(path)
		},

		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}

	cmd.SetDefaultDependencies(deps)
	cmd.Execute()
}

// toAppConfig copies the loaded configuration into the command's view of it.
func toAppConfig(cfg *config.Config) *cmd.AppConfig {
	return &cmd.AppConfig{
		Token:         cfg.Token,
		APIURL:        cfg.APIURL,
		Owner:         cfg.Owner,
		Repo:          cfg.Repo,
		Repository:    cfg.Repository,
		BaseBranch:    cfg.BaseBranch,
		CombineBranch: cfg.CombineBranch,
		Author:        cfg.PRUser,
		GitUserName:   cfg.GitUserName,
		GitUserEmail:  cfg.GitUserEmail,
		OutputJSON:    cfg.OutputJSON,
		LogLevel:      cfg.LogLevel,
		LogAppName:    cfg.LogAppName,
	}
}

// runFields are attached to every log entry of the combination pipeline.
func runFields(cfg *cmd.AppConfig) map[string]any {
	return map[string]any{
		"repository": cfg.Repository,
		"branch":     cfg.CombineBranch,
		"base":       cfg.BaseBranch,
	}
}
