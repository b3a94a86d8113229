// Command fpctl is a one-shot CLI for the R30x fingerprint sensor: it
// opens a port, runs a single subcommand against the driver, and
// exits. It mirrors the scripts an integrator would otherwise write
// against the driver package directly, grounded on the original SDK's
// ex_*.py example scripts.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/r30x/fpdriver/internal/driver"
	"github.com/r30x/fpdriver/internal/fpserial"
	"github.com/r30x/fpdriver/internal/logging"
)

type command struct {
	usage string
	run   func(d *driver.Driver, args []string) error
}

var commands = map[string]command{
	"handshake": {"handshake", cmdHandshake},
	"enroll":    {"enroll", cmdEnroll},
	"search":    {"search", cmdSearch},
	"image":     {"image <out.png>", cmdImage},
	"index":     {"index", cmdIndex},
	"delete":    {"delete <index>", cmdDelete},
	"random":    {"random", cmdRandom},
}

func main() {
	addr := flag.String("addr", "ffffffff", "Sensor address, hex")
	pass := flag.String("pass", "00000000", "Sensor password, hex")
	baud := flag.Int("baud", 57600, "Serial baud rate")
	logLevel := flag.String("log-level", "warn", "Log level: debug|info|warn|error")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		printUsage()
		os.Exit(2)
	}
	serialDev := args[0]
	cmd, ok := commands[args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "fpctl: unknown command %q\n", args[1])
		printUsage()
		os.Exit(2)
	}

	logging.Set(logging.New("text", logLevelOf(*logLevel), os.Stderr))

	addrVal, err := parseHex32(*addr)
	if err != nil {
		fatal("invalid --addr: %v", err)
	}
	passVal, err := parseHex32(*pass)
	if err != nil {
		fatal("invalid --pass: %v", err)
	}

	port, err := fpserial.Open(serialDev, *baud)
	if err != nil {
		fatal("open %s: %v", serialDev, err)
	}
	d := driver.New(port, driver.WithAddress(addrVal), driver.WithPassword(passVal))
	defer d.Close()

	if ok, err := d.PasswordVerify(); err != nil || !ok {
		fatal("password verify: %v", err)
	}
	_ = d.Backlight(false)

	if err := cmd.run(d, args[2:]); err != nil {
		fatal("%s: %v", args[1], err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: fpctl [flags] <port> <command> [args]")
	fmt.Fprintln(os.Stderr, "commands:")
	for name, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, c.usage)
	}
	flag.PrintDefaults()
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "fpctl: "+format+"\n", args...)
	os.Exit(1)
}

func parseHex32(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	v, err := strconv.ParseUint(s, 16, 32)
	return uint32(v), err
}

func logLevelOf(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// waitForFinger blocks until the sensor's CTS-derived presence signal
// matches want, polling the cached session state the same way the
// original examples busy-waited on finger_pressed/finger_released.
func waitForFinger(d *driver.Driver, want bool) {
	for {
		if d.FingerPresent() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}
