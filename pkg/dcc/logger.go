package dcc

import "github.com/sirupsen/logrus"

var logger = logrus.New()

// SetLogger replaces the logger used by transports created without
// WithLogger.
func SetLogger(l *logrus.Logger) {
	logger = l
}
