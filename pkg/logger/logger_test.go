package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestInitLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		dev       bool
		wantLevel logrus.Level
		wantJSON  bool
	}{
		{"explicit level", "warn", false, logrus.WarnLevel, true},
		{"upper case level", "DEBUG", true, logrus.DebugLevel, false},
		{"dev default", "", true, logrus.DebugLevel, false},
		{"prod default", "", false, logrus.InfoLevel, true},
		{"invalid level", "loud", false, logrus.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LOG_FORMAT", "")
			log := InitLogger(tt.level, tt.dev)

			assert.Equal(t, tt.wantLevel, log.GetLevel())
			_, isJSON := log.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)
			assert.Same(t, log, GetLogger())
		})
	}
}

func TestWithService(t *testing.T) {
	InitLogger("info", false)
	entry := WithService("picado-teamgen")
	assert.Equal(t, "picado-teamgen", entry.Data["service"])
}
