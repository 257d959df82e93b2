package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
)

var (
	appName        = "IMSPSMS"     // application name
	version        = "1.0.0"       // version
	date           = ""            // build date
	build          = ""            // git build number
	detailedLog    = false         // log message texts
	configFileName = "config.yaml" // configuration file name
	sendTo         = ""            // recipients of a one-shot message
	sendText       = ""            // text of a one-shot message
	logOutput      = os.Stderr     // log output
	logger         = logrus.New()  // application log
)

func init() {
	// print the application version to the log
	fmt.Fprintf(logOutput, "### %s %s", appName, version)
	if build != "" {
		fmt.Fprintf(logOutput, " [#%s]", build)
	}
	if date != "" {
		fmt.Fprintf(logOutput, " (%s)", date)
	}
	fmt.Fprintln(logOutput)

	flag.StringVar(&configFileName, "config", configFileName, "configuration `fileName`")
	flag.BoolVar(&detailedLog, "debug", detailedLog, "log output full messages")
	flag.StringVar(&sendTo, "to", sendTo, "send one message to comma separated `phones` and exit")
	flag.StringVar(&sendText, "msg", sendText, "`text` of the message sent with -to")
}

func main() {
	flag.Parse()
	logger.Out = logOutput
	if detailedLog {
		logger.SetLevel(logrus.DebugLevel)
	}
	if sendTo != "" {
		os.Exit(sendOnce())
	}
	for { // load and stop the service until a non-reload signal is received
		logger.Infof("Loading %q...", configFileName)
		service, err := startService()
		if err != nil {
			logger.WithError(err).Fatal("Start error")
		}
		signal := monitorSignals(os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
		service.Stop()
		if signal != syscall.SIGUSR1 {
			logger.Info("[THE END]")
			return
		}
		logger.Info("Reload signal...")
	}
}

// startService loads the configuration and starts the interfaces.
func startService() (*Service, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, err
	}
	service, err := NewService(config, logrus.NewEntry(logger))
	if err != nil {
		return nil, err
	}
	if err := service.Start(); err != nil {
		service.Stop()
		return nil, err
	}
	return service, nil
}

func loadConfig() (*Config, error) {
	config, err := LoadConfig(configFileName)
	if err != nil {
		return nil, err
	}
	logger.ReplaceHooks(make(logrus.LevelHooks))
	hook, err := config.LogHook()
	if err != nil {
		return nil, err
	}
	if hook != nil {
		logger.AddHook(hook)
	}
	return config, nil
}

// sendOnce sends the -msg text to the -to recipients, prints the gateway
// answer and returns the exit code.
func sendOnce() int {
	config, err := loadConfig()
	if err != nil {
		logger.WithError(err).Error("Config error")
		return 2
	}
	config.Listen, config.NATS = "", nil
	service, err := NewService(config, logrus.NewEntry(logger))
	if err != nil {
		logger.WithError(err).Error("Start error")
		return 2
	}
	defer service.Stop()
	result, err := service.Send(context.Background(), sendText, sendTo)
	if err != nil {
		logger.WithError(err).Error("Send error")
		return 1
	}
	for _, rec := range result.Records() {
		fmt.Println(strings.Join(rec, "\t"))
	}
	if err := result.Err(); err != nil {
		logger.WithError(err).Warning("Gateway response")
		return 1
	}
	return 0
}

// monitorSignals waits for one of the signals and returns it.
func monitorSignals(signals ...os.Signal) os.Signal {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, signals...)
	defer signal.Stop(signalChan)
	return <-signalChan
}
