// Command obdscan polls a vehicle over a serial or WiFi ELM327 adapter,
// decodes the responses, and publishes them over MQTT, optionally logging
// a CSV trip file and driving a GPIO MIL replica. SocketCAN is not
// supported by any subcommand.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/ryzhkov/obdscan/common"
	"github.com/ryzhkov/obdscan/internal/command"
	"github.com/ryzhkov/obdscan/internal/config"
	"github.com/ryzhkov/obdscan/internal/mqttpub"
	"github.com/ryzhkov/obdscan/internal/obd"
	"github.com/ryzhkov/obdscan/internal/storage"
	"github.com/ryzhkov/obdscan/internal/transport"
	"github.com/ryzhkov/obdscan/internal/triplog"
	bolt "go.etcd.io/bbolt"
)

// version is the CLI's own release string, distinct from the adapter
// firmware version internal/transport/version.go parses.
const version = "0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "obdscan"
	app.Usage = "poll, decode, and publish OBD-II data from an ELM327 adapter"
	app.Version = version
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "path to a YAML config file"},
	}
	app.Commands = []cli.Command{
		{
			Name:   "scan",
			Usage:  "poll the configured PIDs once, print the decoded readings, and exit",
			Action: scanCommand,
		},
		{
			Name:   "monitor",
			Usage:  "poll continuously, publishing readings and DTCs to MQTT until interrupted",
			Action: monitorCommand,
		},
		{
			Name:   "clear-dtcs",
			Usage:  "send mode 04 (clear DTCs) and reset the local DTC store",
			Action: clearDTCsCommand,
		},
		{
			Name:  "version",
			Usage: "print the adapter's reported ELM327 firmware version",
			Action: func(c *cli.Context) error {
				fmt.Printf("obdscan %s\n", version)
				return reportAdapterVersion(c)
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(c *cli.Context) (config.Config, error) {
	cfg, err := config.Load(c.GlobalString("config"))
	if err != nil {
		return config.Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openTransport opens the transport named by cfg.Transport. SocketCAN is
// deliberately excluded: it has no SendCommand/prompt model (§4.6), so
// scan/monitor/clear-dtcs, which all drive the adapter through AT/OBD
// request-response, only support Serial and WiFi.
func openTransport(cfg config.Config) (transport.Transport, error) {
	switch cfg.Transport {
	case config.TransportSerial:
		return transport.OpenSerial(transport.SerialConfig{Device: cfg.SerialDevice, Baud: cfg.SerialBaud})
	case config.TransportWiFi:
		return transport.DialWiFi(cfg.WiFiAddress, transport.DefaultResponseTimeout)
	default:
		return nil, fmt.Errorf("obdscan: transport %q does not support request/response commands", cfg.Transport)
	}
}

// detectProtocol issues "ATDPN" to learn which protocol the adapter has
// auto-detected, then "0100" to populate the ECU map, mirroring how a real
// scan tool brings up a session before polling anything.
func detectProtocol(t transport.Transport) (obd.Protocol, error) {
	dpn, err := t.SendCommand("ATDPN")
	if err != nil {
		return nil, fmt.Errorf("obdscan: querying protocol number: %w", err)
	}
	if len(dpn) == 0 {
		return nil, fmt.Errorf("obdscan: adapter returned no protocol number")
	}
	elmID := dpn[len(dpn)-1]
	if len(elmID) > 1 && (elmID[0] == 'A' || elmID[0] == 'a') {
		elmID = elmID[len(elmID)-1:] // "ATDPN" prefixes auto-detected protocols with 'A'
	}

	lines0100, err := t.SendCommand("0100")
	if err != nil {
		return nil, fmt.Errorf("obdscan: querying supported PIDs: %w", err)
	}

	proto, err := obd.NewProtocol(elmID, lines0100)
	if err != nil {
		return nil, fmt.Errorf("obdscan: %w", err)
	}
	return proto, nil
}

// reading is one decoded value ready for publication or display.
type reading struct {
	name  string
	value any
	ecu   obd.ECU
}

// readings is a Snapshot: the latest decoded value of every PID polled
// this cycle, keyed by command name.
type readings map[string]reading

func (r readings) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r))
	for k, v := range r {
		flat[k] = v.value
	}
	return json.Marshal(flat)
}

// pollOnce sends every configured PID command in turn and decodes each
// response against the command registry, by the mode/pid it knows it just
// asked for (§3: Message no longer carries its own mode/PID once the core
// strips it).
func pollOnce(t transport.Transport, proto obd.Protocol, reg *command.CachingRegistry, pids []string) readings {
	out := make(readings, len(pids))
	for _, pidCmd := range pids {
		mode, pid, ok := parsePIDCommand(pidCmd)
		if !ok {
			log.Printf("obdscan: skipping malformed PID command %q", pidCmd)
			continue
		}

		lines, err := t.SendCommand(pidCmd)
		if err != nil {
			log.Printf("obdscan: sending %s: %v", pidCmd, err)
			continue
		}

		for _, msg := range proto.Call(lines) {
			if !msg.Parsed() {
				continue
			}
			name, value, err := reg.Decode(mode, pid, msg.Data)
			if err != nil {
				continue
			}
			out[name] = reading{name: name, value: value, ecu: msg.ECU}
		}
	}
	return out
}

// parsePIDCommand splits an ASCII OBD command like "010C" into its mode
// and PID bytes.
func parsePIDCommand(s string) (mode, pid byte, ok bool) {
	if len(s) < 4 {
		return 0, 0, false
	}
	m, err := strconv.ParseUint(s[0:2], 16, 8)
	if err != nil {
		return 0, 0, false
	}
	p, err := strconv.ParseUint(s[2:4], 16, 8)
	if err != nil {
		return 0, 0, false
	}
	return byte(m), byte(p), true
}

func printReadings(r readings) {
	for _, v := range r {
		fmt.Printf("  %-24s %-12v [ECU %s]\n", v.name, v.value, v.ecu)
	}
}

func scanCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	t, err := openTransport(cfg)
	if err != nil {
		return err
	}
	defer t.Close()

	proto, err := detectProtocol(t)
	if err != nil {
		return err
	}
	fmt.Printf("protocol: %s\n", proto.ELMName())

	reg, err := command.NewCachingRegistry(0)
	if err != nil {
		return err
	}

	printReadings(pollOnce(t, proto, reg, cfg.PIDs))
	return nil
}

func monitorCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	t, err := openTransport(cfg)
	if err != nil {
		return err
	}
	defer t.Close()

	proto, err := detectProtocol(t)
	if err != nil {
		return err
	}
	fmt.Printf("protocol: %s\n", proto.ELMName())

	reg, err := command.NewCachingRegistry(0)
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	logger, err := openTripLogger(cfg)
	if err != nil {
		return err
	}
	if logger != nil {
		defer logger.Close()
	}

	mil, err := openMILIndicator(cfg)
	if err != nil {
		log.Printf("obdscan: MIL indicator unavailable: %v", err)
	}
	if mil != nil {
		defer mil.Close()
	}

	var latest readings
	mqttClient := mqttpub.NewClient(mqttpub.Config{
		Broker:         cfg.MQTTBroker,
		ClientID:       fmt.Sprintf("%s-%d", mqttpub.DefaultClientID, os.Getpid()),
		Topic:          cfg.MQTTTopic,
		CommandTopic:   cfg.MQTTCommandTopic,
		UpdateInterval: cfg.PollInterval,
	}, func() mqttpub.Snapshot {
		return latest
	}, func(cmd common.ServerCommand) error {
		return handleServerCommand(cmd, t, proto, db)
	})

	if err := mqttClient.Connect(); err != nil {
		return fmt.Errorf("obdscan: connecting to MQTT broker: %w", err)
	}
	defer mqttClient.Disconnect()
	mqttClient.StartPublishing()
	defer mqttClient.StopPublishing()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	log.Println("obdscan: monitoring started, press Ctrl+C to stop")
	for {
		select {
		case <-sigChan:
			log.Println("obdscan: shutting down")
			return nil
		case <-ticker.C:
			latest = pollOnce(t, proto, reg, cfg.PIDs)
			anyDTCActive := false

			lines, err := t.SendCommand("03")
			if err != nil {
				log.Printf("obdscan: reading DTCs: %v", err)
			} else {
				for _, msg := range proto.Call(lines) {
					if !msg.Parsed() {
						continue
					}
					codes, err := command.DecodeDTCs(msg.Data)
					if err != nil {
						continue
					}
					for _, code := range codes {
						anyDTCActive = true
						isNew, err := storage.IsNewDTC(db, code)
						if err != nil {
							log.Printf("obdscan: checking DTC store: %v", err)
							continue
						}
						if isNew {
							fmt.Println(color.New(color.FgHiRed).Sprintf("new DTC: %s", code))
							mqttClient.PublishDTC(common.DTCCode{
								Code:      code,
								ECU:       msg.ECU.String(),
								Timestamp: time.Now().Unix(),
							})
						}
					}
				}
			}

			if mil != nil {
				if err := mil.Set(anyDTCActive); err != nil {
					log.Printf("obdscan: driving MIL indicator: %v", err)
				}
			}
			if logger != nil {
				if err := logTripRow(logger, reg, cfg.PIDs, latest); err != nil {
					log.Printf("obdscan: trip log: %v", err)
				}
			}
		}
	}
}

func clearDTCsCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	t, err := openTransport(cfg)
	if err != nil {
		return err
	}
	defer t.Close()

	if _, err := t.SendCommand("04"); err != nil {
		return fmt.Errorf("obdscan: sending clear-DTCs command: %w", err)
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.ClearAllDTCs(db); err != nil {
		return err
	}

	fmt.Println(color.New(color.FgHiGreen).Sprint("DTCs cleared"))
	return nil
}

func reportAdapterVersion(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	t, err := openTransport(cfg)
	if err != nil {
		return err
	}
	defer t.Close()

	lines, err := t.SendCommand("ATI")
	if err != nil {
		return fmt.Errorf("obdscan: querying adapter identity: %w", err)
	}
	for _, line := range lines {
		v, err := transport.ParseFirmwareVersion(line)
		if err != nil {
			continue
		}
		supported := transport.IsSupportedFirmware(v)
		fmt.Printf("adapter firmware: %s (supported: %t)\n", v, supported)
		return nil
	}
	fmt.Println("adapter firmware: could not be determined")
	return nil
}

func openTripLogger(cfg config.Config) (*triplog.Logger, error) {
	if cfg.TripLogDir == "" {
		return nil, nil
	}
	return triplog.Open(cfg.TripLogDir, triplog.DefaultFilenamePattern, time.Now(), cfg.PIDs)
}

// logTripRow builds one CSV row in the same column order as cfg.PIDs,
// looking each command's decoded name up via the registry so the row lines
// up even though readings is keyed by name rather than PID string.
func logTripRow(logger *triplog.Logger, reg *command.CachingRegistry, pids []string, r readings) error {
	values := make([]any, len(pids))
	for i, pidCmd := range pids {
		mode, pid, ok := parsePIDCommand(pidCmd)
		if !ok {
			continue
		}
		cmd, ok := reg.Lookup(mode, pid)
		if !ok {
			continue
		}
		if v, ok := r[cmd.Name]; ok {
			values[i] = v.value
		}
	}
	return logger.Log(time.Now(), values)
}

func openMILIndicator(cfg config.Config) (milIndicator, error) {
	if cfg.MILGPIOChip == "" {
		return nil, nil
	}
	return openMIL(cfg.MILGPIOChip, cfg.MILGPIOLine)
}

// milIndicator abstracts internal/gpio's Linux-only MILIndicator so this
// file compiles on every platform; see mil_other.go and mil_linux.go.
type milIndicator interface {
	Set(on bool) error
	Close() error
}

func handleServerCommand(cmd common.ServerCommand, t transport.Transport, proto obd.Protocol, db *bolt.DB) error {
	switch cmd.Type {
	case common.CommandTypeClearDTCs:
		if _, err := t.SendCommand("04"); err != nil {
			return err
		}
		return storage.ClearAllDTCs(db)
	case common.CommandTypeReadPID:
		if cmd.Params.Mode == nil || cmd.Params.PID == nil {
			return fmt.Errorf("obdscan: read_pid command missing mode/pid")
		}
		pidCmd := fmt.Sprintf("%02X%02X", *cmd.Params.Mode, *cmd.Params.PID)
		_, err := t.SendCommand(pidCmd)
		return err
	default:
		return fmt.Errorf("obdscan: unsupported command type %q", cmd.Type)
	}
}
