package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/apex/log"
)

// InitLogger sets up Apex with a custom handler writing to stderr and the
// given level. An empty or unknown level falls back to info.
func InitLogger(level string) {
	log.SetHandler(&CustomHandler{Out: os.Stderr})
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// CustomHandler formats log messages as a timestamp, a one letter level,
// the message and any fields in key=value form.
type CustomHandler struct {
	Out io.Writer
}

// HandleLog implements the log.Handler interface
func (h *CustomHandler) HandleLog(e *log.Entry) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s",
		e.Timestamp.Format("2006-01-02 15:04:05"),
		strings.ToUpper(e.Level.String()),
		e.Message)
	for _, name := range e.Fields.Names() {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields.Get(name))
	}
	b.WriteByte('\n')

	_, err := io.WriteString(h.Out, b.String())
	return err
}
