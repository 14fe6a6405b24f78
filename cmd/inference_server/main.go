package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"

	"pricetier/inference"
	"pricetier/logging"
	"pricetier/ml"
)

type Config struct {
	Model struct {
		Path string `yaml:"path"`
	} `yaml:"model"`
	Http struct {
		Port    int           `yaml:"port"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"http"`
	Cache struct {
		Size int `yaml:"size"`
	} `yaml:"cache"`
	Log logging.Config `yaml:"log"`
}

func main() {
	configPath := flag.String("config", "inference.yaml", "config file path")
	flag.Parse()

	config, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(config.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// The artifact is loaded exactly once, before serving begins, and is
	// never swapped afterwards.
	var model inference.SpecClassifier
	if config.Model.Path == "" {
		logger.Warn("no model path configured, predict will return 503")
	} else {
		artifact, err := ml.LoadArtifact(config.Model.Path)
		if err != nil {
			logger.Fatal("failed to load model artifact",
				zap.String("path", config.Model.Path),
				zap.Error(err))
		}
		logger.Info("model artifact loaded",
			zap.String("path", config.Model.Path),
			zap.Int("estimators", artifact.Hyperparams.Estimators),
			zap.Int("max_depth", artifact.Hyperparams.MaxDepth),
			zap.Time("trained_at", artifact.TrainedAt))
		model = artifact
	}

	serverConfig := inference.DefaultConfig()
	if config.Http.Port != 0 {
		serverConfig.Port = config.Http.Port
	}
	if config.Http.Timeout != 0 {
		serverConfig.Timeout = config.Http.Timeout
	}
	if config.Cache.Size != 0 {
		serverConfig.CacheSize = config.Cache.Size
	}

	server, err := inference.NewServer(serverConfig, model, logger)
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}
	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
}

func loadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
