package step

import (
	"github.com/bitrise-io/go-utils/colorstring"
	"github.com/bitrise-io/go-utils/stringutil"
	"github.com/bitrise-io/go-utils/v2/log"
)

// Utils ...
type Utils interface {
	PrintLastLinesOfRunnerLog(runnerOutput string, isRunSuccess bool)
}

type utils struct {
	logger log.Logger
}

// NewUtils ...
func NewUtils(logger log.Logger) Utils {
	return &utils{
		logger: logger,
	}
}

func (u utils) PrintLastLinesOfRunnerLog(runnerOutput string, isRunSuccess bool) {
	const lastLines = "\nLast lines of the runner log:"
	if !isRunSuccess {
		u.logger.Errorf(lastLines)
	} else {
		u.logger.Infof(lastLines)
	}

	u.logger.Printf("%s", stringutil.LastNLines(runnerOutput, 20))

	if !isRunSuccess {
		u.logger.Warnf("If you can't find the reason of the error in the log, please check the runner.log.")
	}

	u.logger.Infof(colorstring.Magenta(`
The log file is stored in $BITRISE_DEPLOY_DIR, and its full path
is available in the $RUNNER_SMOKE_TEST_LOG_PATH environment variable.

If you have the Deploy to Bitrise.io step (after this step),
that will attach the file to your build as an artifact!`))
}
