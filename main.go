package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/kardianos/service"
	"github.com/toolkits/pkg/runner"
	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/natefinch/lumberjack.v2"

	"flashcat.cloud/statsgraf/agent"
	"flashcat.cloud/statsgraf/agent/install"
	"flashcat.cloud/statsgraf/config"
	"flashcat.cloud/statsgraf/pkg/osx"
)

var (
	version = "unknown"

	configDir = kingpin.Flag("configs", "Specify configuration directory").Default(osx.GetEnv("STATSGRAF_CONFIGS", "conf")).String()
	debugMode = kingpin.Flag("debug", "Log verbosely and echo every event").Default(osx.GetEnv("STATSGRAF_DEBUG", "false")).Bool()
	testMode  = kingpin.Flag("test", "Print events to stdout instead of shipping them").Bool()

	doInstall = kingpin.Flag("install", "Install service").Bool()
	doRemove  = kingpin.Flag("remove", "Remove service").Bool()
	doStart   = kingpin.Flag("start", "Start service").Bool()
	doStop    = kingpin.Flag("stop", "Stop service").Bool()
	doStatus  = kingpin.Flag("status", "Show service status").Bool()
	userMode  = kingpin.Flag("user", "Install or run as a user service").Bool()
)

func main() {
	kingpin.Version(version)
	kingpin.HelpFlag.Short('h')
	kingpin.Parse()

	if *doInstall || *doRemove || *doStart || *doStop || *doStatus {
		if err := serviceProcess(); err != nil {
			log.Println("F! failed to control service:", err)
			os.Exit(1)
		}
		return
	}

	printEnv()

	if err := config.InitConfig(*configDir, *debugMode, *testMode); err != nil {
		log.Println("F! failed to init config:", err)
		os.Exit(1)
	}
	config.Version = version

	initLog(config.Config.Log)

	ag := agent.NewAgent()
	if err := ag.Start(); err != nil {
		log.Println("F! failed to start agent:", err)
		os.Exit(1)
	}

	osHooks()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

EXIT:
	for {
		sig := <-sc
		log.Println("I! received signal:", sig.String())
		switch sig {
		case syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT:
			break EXIT
		case syscall.SIGHUP:
			ag.Reload()
		default:
			break EXIT
		}
	}

	ag.Stop()
	log.Println("I! exited")
}

type program struct{}

func (p *program) Start(service.Service) error { return nil }
func (p *program) Stop(service.Service) error  { return nil }

func serviceProcess() error {
	svc, err := service.New(&program{}, install.ServiceConfig(*userMode))
	if err != nil {
		return err
	}

	switch {
	case *doInstall:
		return svc.Install()
	case *doRemove:
		return svc.Uninstall()
	case *doStart:
		return svc.Start()
	case *doStop:
		return svc.Stop()
	case *doStatus:
		status, err := svc.Status()
		if err != nil {
			return err
		}
		switch status {
		case service.StatusRunning:
			fmt.Println("running")
		case service.StatusStopped:
			fmt.Println("stopped")
		default:
			fmt.Println("unknown")
		}
	}
	return nil
}

func initLog(l config.Log) {
	switch l.FileName {
	case "", "stdout":
		log.SetOutput(os.Stdout)
	case "stderr":
		log.SetOutput(os.Stderr)
	default:
		log.SetOutput(&lumberjack.Logger{
			Filename:   l.FileName,
			MaxSize:    l.MaxSize,
			MaxAge:     l.MaxAge,
			MaxBackups: l.MaxBackups,
			LocalTime:  l.LocalTime,
			Compress:   l.Compress,
		})
	}
}

func printEnv() {
	runner.Init()
	log.Println("I! runner.binarydir:", runner.Cwd)
	log.Println("I! runner.hostname:", runner.Hostname)
	log.Println("I! runner.fd_limits:", runner.FdLimits())
	log.Println("I! runner.vm_limits:", runner.VMLimits())
}
