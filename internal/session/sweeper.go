package session

import (
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartSweeper drops expired sessions from mem on the cron schedule spec
// (e.g. "@every 1m"). Runs never overlap. Stop the returned scheduler on
// shutdown.
func StartSweeper(mem *MemoryStorage, spec string, logger *zap.SugaredLogger) (*cron.Cron, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	clog := cronLogger{logger.Named("sweeper")}
	c := cron.New(
		cron.WithLogger(clog),
		cron.WithChain(cron.SkipIfStillRunning(clog)),
	)
	if _, err := c.AddFunc(spec, func() {
		if n := mem.Sweep(); n > 0 {
			logger.Debugw("expired sessions swept", "entries", n, "remaining", mem.Len())
		}
	}); err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

// cronLogger routes the scheduler's own messages to zap. Routine
// scheduling chatter goes to debug.
type cronLogger struct{ l *zap.SugaredLogger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
