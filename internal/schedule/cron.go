package schedule

import (
	"fmt"

	shellquote "github.com/kballard/go-shellquote"
)

// CronLine renders a crontab entry running the launcher daily at the entry's
// time. No redirection is added; the launcher writes the agent log itself.
func CronLine(e Entry) (string, error) {
	if err := e.validate(); err != nil {
		return "", err
	}
	args, err := e.args()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d %d * * * %s", e.Minute, e.Hour, shellquote.Join(args...)), nil
}
