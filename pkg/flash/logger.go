package flash

import "github.com/sirupsen/logrus"

var logger = logrus.New()

// SetLogger replaces the package logger. The CLI shares one logger across
// all packages.
func SetLogger(l *logrus.Logger) {
	logger = l
}
