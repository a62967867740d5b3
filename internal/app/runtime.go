package app

import (
	"os"
	"strconv"
	"sync"
)

const testModeEnv = "KOMPELLO_CONSOLE_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	on, _ := strconv.ParseBool(os.Getenv(testModeEnv))
	return on
})

// InTestMode reports whether KOMPELLO_CONSOLE_TEST_MODE is set. In test mode
// logs are discarded and serve returns without binding a port.
func InTestMode() bool {
	return testMode()
}
