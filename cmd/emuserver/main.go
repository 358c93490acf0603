// Command emuserver is a worked example embedding gdbstub: a tiny
// two-core toy machine (package toyvm) served over TCP via
// transportnet, with firmware-image hot-reload grounded on
// SeleniaProject-Orizon's fsnotify-based vfs watcher.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/coresim/gdbstub"
	"github.com/coresim/gdbstub/internal/toyvm"
	"github.com/coresim/gdbstub/transportnet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	flagRAMSize  int
	flagLoglevel string
	flagListen   string
	flagWatch    bool
	flagBreak    string
)

var loglevels = map[string]logrus.Level{
	"error": logrus.ErrorLevel,
	"warn":  logrus.WarnLevel,
	"info":  logrus.InfoLevel,
	"debug": logrus.DebugLevel,
}

func main() {
	flag.IntVar(&flagRAMSize, "ram", 64, "machine memory size in kB")
	flag.StringVar(&flagLoglevel, "loglevel", "info", "error, warn, info, debug")
	flag.StringVar(&flagListen, "gdb", "localhost:7333", "GDB target listen address")
	flag.BoolVar(&flagWatch, "watch", false, "reload the firmware image on write")
	flag.StringVar(&flagBreak, "break", "", "hex address of a software breakpoint to pre-arm at startup")
	flag.Parse()

	log := logrus.New()
	level, ok := loglevels[flagLoglevel]
	if !ok {
		fmt.Fprintln(os.Stderr, "error: loglevel must be one of: error, warn, info, debug")
		flag.PrintDefaults()
		os.Exit(1)
	}
	log.SetLevel(level)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "error: provide a firmware image")
		flag.PrintDefaults()
		os.Exit(1)
	}
	firmwarePath := flag.Arg(0)

	machine := toyvm.NewMachine(flagRAMSize*1024, 0)
	if err := loadFirmware(machine, firmwarePath); err != nil {
		log.WithError(err).Fatal("cannot load firmware image")
	}
	machine.Cores[0].Running = true

	if flagBreak != "" {
		addr, err := strconv.ParseUint(flagBreak, 16, 64)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error: -break must be a hex address")
			flag.PrintDefaults()
			os.Exit(1)
		}
		machine.SetBreakpoint(addr, true)
		log.WithField("addr", flagBreak).Info("pre-armed breakpoint")
	}

	if flagWatch {
		abs, err := filepath.Abs(firmwarePath)
		if err != nil {
			log.WithError(err).Fatal("cannot resolve firmware path")
		}
		w, err := watchFirmware(abs, log, func() {
			if err := loadFirmware(machine, firmwarePath); err != nil {
				log.WithError(err).Warn("firmware reload failed")
			} else {
				log.Info("firmware reloaded")
			}
		})
		if err != nil {
			log.WithError(err).Fatal("cannot watch firmware image")
		}
		defer w.Close()
	}

	recorder := transportnet.NewRecorder(prometheus.DefaultRegisterer)

	ln, err := net.Listen("tcp", flagListen)
	if err != nil {
		log.WithError(err).Fatal("cannot listen")
	}
	log.WithField("addr", ln.Addr()).Info("listening for GDB connections")

	for {
		nc, err := ln.Accept()
		if err != nil {
			log.WithError(err).Error("accept failed")
			continue
		}
		conn := transportnet.Wrap(nc)
		sessionLog := log.WithFields(logrus.Fields{
			"session": conn.SessionID(),
			"remote":  conn.RemoteAddr(),
			"fd":      conn.FD(),
		})
		sessionLog.Info("session started")

		// Intentionally not a goroutine: only one GDB session may drive
		// the shared Machine at a time, or two sessions' resume actions
		// would trample each other.
		func() {
			defer conn.Close()
			stub := gdbstub.NewWithConfig(conn, gdbstub.Config{
				Logger:   sessionLog.Logger,
				Recorder: recorder,
			})
			reason, err := stub.RunBlocking(machine, toyvm.EventLoop{})
			if err != nil {
				sessionLog.WithError(err).Warn("session ended with error")
				return
			}
			sessionLog.WithField("reason", reason).Info("session ended")
		}()
	}
}

func loadFirmware(m *toyvm.Machine, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return m.LoadImage(data)
}
