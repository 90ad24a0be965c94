package nsqpeer

import (
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// nsqLogger adapts the lg.Logger interface used by go-nsq's Producer and
// Consumer into this project's structured logger, the same technique
// karalabe-minority/broker uses for its nsqProducerLogger/nsqConsumerLogger.
type nsqLogger struct {
	logger log.Logger
}

// Output implements the lg.Logger interface used by go-nsq.
func (l *nsqLogger) Output(maxdepth int, s string) error {
	if len(s) < 3 {
		l.logger.Warn("NSQ peer transport emitted log", "msg", s)
		return nil
	}
	level := s[:3]
	msg := strings.TrimSpace(s[3:])

	switch level {
	case "DBG":
		l.logger.Trace("NSQ peer transport log", "msg", msg)
	case "INF":
		l.logger.Debug("NSQ peer transport log", "msg", msg)
	case "WRN":
		l.logger.Warn("NSQ peer transport log", "msg", msg)
	case "ERR":
		l.logger.Error("NSQ peer transport log", "msg", msg)
	default:
		l.logger.Warn("NSQ peer transport log", "msg", s)
	}
	return nil
}
