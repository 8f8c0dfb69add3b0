package billing

import (
	"fmt"

	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

// stripeLogger routes stripe-go client logs through the application logger.
// Request chatter is demoted to debug and client errors to warnings.
type stripeLogger struct {
	logger *logging.Logger
}

func (l stripeLogger) Debugf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l stripeLogger) Infof(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l stripeLogger) Warnf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l stripeLogger) Errorf(format string, v ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "stripe")
}
