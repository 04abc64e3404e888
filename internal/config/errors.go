package config

import "errors"

var ErrMissingGitHubToken = errors.New("GITHUB_TOKEN is required")
