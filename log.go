package spore

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLog returns the package's default logger, used by a Node whose
// Config.Logger is left nil. Mirrors the teacher's own fallback in
// Server.Start: "if srv.log == nil { srv.log = NewLog() }".
func NewLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	return logrus.NewEntry(l).WithField("module", "spore")
}
