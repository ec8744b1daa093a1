package signalengine

import (
	"github.com/raykavin/signalengine/pkg/logger/zerolog"
)

func init() {
	log, err := zerolog.NewZerolog("info", "2006-01-02 15:04:05", true, false)
	if err != nil {
		panic(err)
	}

	DefaultLog = zerolog.NewAdapter(log.Logger)
}
