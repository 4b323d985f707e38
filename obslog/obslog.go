// Package obslog centralizes logrus setup so every subsystem tags its
// messages with the acting component — each subsystem gets its own
// named *logrus.Entry instead of a free-floating log.Info call.
package obslog

import "github.com/sirupsen/logrus"

// Component returns a logger tagged with the given component name. Callers
// hold onto the returned entry for the lifetime of their subsystem rather
// than calling Component on every log line.
func Component(name string) *logrus.Entry {
	return logrus.StandardLogger().WithField("component", name)
}

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
