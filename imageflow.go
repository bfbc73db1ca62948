// Package imageflow provides a top-level convenience entry point for running
// image generation workflows with minimal boilerplate.
//
// Usage:
//
//	import "github.com/BaSui01/imageflow"
//
//	cfg := imageflow.DefaultConfig()
//	cfg.Gateway.BaseURL = "https://proxy.example.com"
//	cfg.Storage.BaseURL = "https://img.example.com"
//	cfg.Credentials = imageflow.Credentials{AccessKey: "ak", SecretKey: "sk"}
//
//	c, err := imageflow.New(cfg)
//	res, err := c.Generate(ctx, imageflow.GenerateRequest{
//		TemplateID: "7f3a0c1e",
//		File:       photo,
//		Filename:   "photo.jpg",
//	})
//
// This is a thin wrapper around [client.New]; both produce identical results.
// Use this package when you prefer the shorter import path.
package imageflow

import (
	"github.com/BaSui01/imageflow/client"
	"github.com/BaSui01/imageflow/config"
	"github.com/BaSui01/imageflow/types"
)

// Option configures the client created by [New].
type Option = client.Option

// Config holds the full client configuration. Load it from YAML and
// environment variables via [config.NewLoader], or start from
// [DefaultConfig] and fill in the gateway, storage and credential fields.
type Config = config.Config

// Credentials is the access key pair used to sign gateway requests.
type Credentials = types.Credentials

// AssetRef references an input image: a storage key or an absolute URL.
type AssetRef = types.AssetRef

// GenerateRequest describes a single generation: the workflow template,
// the input image (uploaded file or existing asset) and template parameters.
type GenerateRequest = client.GenerateRequest

// New creates a [client.Client] from the given configuration.
// At minimum the gateway base URL, storage base URL and credentials
// must be set.
func New(cfg *Config, opts ...Option) (*client.Client, error) {
	return client.New(cfg, opts...)
}

// Re-export the common helpers so callers never need to import the subpackages.

// DefaultConfig returns a configuration pre-filled with sane defaults.
var DefaultConfig = config.DefaultConfig

// AssetFromKey references an uploaded storage object by its key.
var AssetFromKey = types.AssetFromKey

// AssetFromURL references an external image by absolute URL.
var AssetFromURL = types.AssetFromURL

// WithLogger sets a custom zap logger.
var WithLogger = client.WithLogger

// WithHTTPClient overrides the HTTP client used for gateway and upload calls.
var WithHTTPClient = client.WithHTTPClient

// WithCache plugs in a result cache (e.g. [cache.NewMemory] or [cache.NewRedis]).
var WithCache = client.WithCache

// WithHistory plugs in a run recorder (e.g. [history.Open]).
var WithHistory = client.WithHistory

// WithMetrics plugs in a Prometheus collector.
var WithMetrics = client.WithMetrics

// WithPollConfig overrides the polling attempt count and interval.
var WithPollConfig = client.WithPollConfig

// WithBatchConcurrency caps concurrent jobs in [client.Client.GenerateBatch].
var WithBatchConcurrency = client.WithBatchConcurrency
