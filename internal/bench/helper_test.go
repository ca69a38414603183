package bench

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/content-cache/content-cache/internal/config"
)

func testBenchConfig() config.BenchConfig {
	return config.BenchConfig{
		Count:       40,
		Concurrency: 1,
		FillerSize:  512,
		Verify:      true,
		ContentID:   1,
		CommitID:    100,
		PrincipalID: "18.10.100",
		Creator:     "principal_1",
		Modifier:    "principal_2",
		Committer:   "principal_3",
	}
}

func testLogger(t *testing.T) (*logrus.Logger, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger, hook
}
