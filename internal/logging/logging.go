// Package logging builds per-component structured loggers, the way
// streamdal-plumber's monitor and stats packages derive a *logrus.Entry
// per collaborator instead of logging through the package-level logger
// directly.
package logging

import "github.com/sirupsen/logrus"

// New returns a base entry tagged with table/replica identity; callers
// further narrow it with WithField("component", ...) per collaborator
// (puller, mutation tracker, worker).
func New(table, replica string) *logrus.Entry {
	log := logrus.StandardLogger()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log.WithFields(logrus.Fields{
		"table":   table,
		"replica": replica,
	})
}
