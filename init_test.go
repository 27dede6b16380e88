package perfscope

import (
	"testing"

	"github.com/raykavin/perfscope/pkg/logger"
	"github.com/raykavin/perfscope/pkg/logger/logrus"
	"github.com/raykavin/perfscope/pkg/logger/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLogger(t *testing.T) {
	tt := []struct {
		name    string
		backend string
		level   string
		want    any
		wantErr string
	}{
		{name: "default", level: "debug", want: &zerolog.Adapter{}},
		{name: "zerolog", backend: "zerolog", level: "info", want: &zerolog.Adapter{}},
		{name: "logrus", backend: "logrus", level: "warn", want: &logrus.Adapter{}},
		{name: "unknown backend", backend: "syslog", wantErr: "unknown log backend"},
		{name: "bad logrus level", backend: "logrus", level: "loud", wantErr: "invalid log level"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(envLogBackend, tc.backend)
			t.Setenv(envLogLevel, tc.level)
			t.Setenv(envLogJSON, "true")

			log, err := initLogger()
			if tc.wantErr != "" {
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tc.want, log)
		})
	}
}

func TestInitLogger_LogrusLevel(t *testing.T) {
	t.Setenv(envLogBackend, "logrus")
	t.Setenv(envLogLevel, "error")

	log, err := initLogger()
	require.NoError(t, err)
	assert.Equal(t, logger.ErrorLevel, log.GetLevel())
}
