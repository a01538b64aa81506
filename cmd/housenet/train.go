package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/FlavioCFOliveira/housenet/internal/config"
	"github.com/FlavioCFOliveira/housenet/internal/dataset"
	"github.com/FlavioCFOliveira/housenet/internal/pipeline"
)

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(cfg config.Config) *logrus.Logger {
	log := logrus.New()
	log.SetLevel(cfg.Level())
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}

func runTrain(cmd *cobra.Command, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		logErrorCmd(*cmd, err)
		return err
	}
	log := newLogger(cfg)

	source, err := dataset.SourceFromConfig(cfg)
	if err != nil {
		logErrorCmd(*cmd, err)
		return err
	}

	res, err := pipeline.Run(cfg, source, log)
	if err != nil {
		logErrorCmd(*cmd, err)
		return err
	}

	logReportCmd(*cmd, res)
	return nil
}
