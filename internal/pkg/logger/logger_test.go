package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/your-org/storefront-api/internal/config"
)

func TestNew(t *testing.T) {
	jsonLogger := New(config.LoggingConfig{Level: "warn", Format: "json"})
	assert.Equal(t, logrus.WarnLevel, jsonLogger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, jsonLogger.Formatter)

	textLogger := New(config.LoggingConfig{Level: "bogus", Format: "text"})
	assert.Equal(t, logrus.InfoLevel, textLogger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, textLogger.Formatter)
}
