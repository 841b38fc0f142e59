package output

import (
	"github.com/abatilo/abbrlink/internal/config"
	"github.com/abatilo/abbrlink/internal/conflict"
	"github.com/abatilo/abbrlink/internal/engine"
	"github.com/abatilo/abbrlink/internal/task"
)

// Formatter defines the interface for output formatting.
type Formatter interface {
	FormatResult(r *engine.Result) string
	FormatTaskList(tasks []*task.Task) string
	FormatConflicts(groups []conflict.Group) string
	FormatConfig(c config.Config) string
	FormatIdentifier(name, id string) string
	FormatError(err error) string
	FormatMessage(msg string) string
	FormatWarning(msg string) string
}
