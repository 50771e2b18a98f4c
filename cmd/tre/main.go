package main

import (
	"fmt"

	"github.com/temirov/tre/internal/cli"
	"github.com/temirov/tre/internal/utils"
)

// main is the entry point for the tre command.
func main() {
	loggerInstance, logLevel, loggerInitializationError := utils.NewApplicationLogger()
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()
	if applicationExecutionError := cli.Execute(loggerInstance, logLevel); applicationExecutionError != nil {
		loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage + ": " + applicationExecutionError.Error())
	}
}
